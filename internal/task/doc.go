// Package task manages background job queuing, processing, and lifecycle.
// It provides mechanisms for asynchronous execution of long-running operations
// like generating AI replies or sending email, ensuring they don't block HTTP
// request handling and can recover from application restarts.
//
// Tasks are persisted before they are queued. On start the runner reloads
// unfinished rows and rebuilds concrete tasks through a Registry keyed by task
// type, so every task must be reconstructible from its payload alone.
package task
