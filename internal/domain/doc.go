// Package domain contains the core business entities, value objects, and
// domain logic of the application: users and their reset tokens, chat
// sessions and messages, feedback, analytics events, notifications and
// knowledge base entries. It is independent of any specific infrastructure
// or delivery mechanism.
package domain
