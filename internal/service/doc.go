// Package service contains the application use cases: accounts, chat,
// feedback, analytics and notifications. It orchestrates domain objects and
// the store interfaces from internal/store.
//
// Services receive their collaborators through constructor injection and
// never depend on a concrete store implementation. Work that must not delay a
// request (emails, welcome notifications, analytics, AI replies) is handed to
// the task runner by publishing events.
//
// Expected conditions are reported with the sentinel errors in errors.go and
// the store and domain sentinels. The API layer maps them to HTTP status codes.
package service
