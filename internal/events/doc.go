// Package events decouples services from the background task machinery.
//
// Services publish a TaskRequestEvent describing work to run later (an AI reply,
// an email, an analytics record). Handlers registered on an EventEmitter turn
// those events into durable tasks. The event ID doubles as the ID of the task
// built from it, so a publisher can hand a task ID back to its caller before the
// task exists.
package events
