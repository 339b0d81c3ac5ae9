// Package api implements the HTTP handlers of the service: accounts and
// profiles, chat queries with response polling, feedback, notifications and
// client analytics. Handlers depend on small service interfaces and translate
// service errors into status codes with MapErrorToStatusCode.
package api
