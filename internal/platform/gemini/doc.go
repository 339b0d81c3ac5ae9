// Package gemini implements chat.Responder on top of Google's Gemini API.
//
// Prompts are rendered from an embedded text/template using the query, the
// reply options, the caller context, recent session history and matching
// knowledge base entries. Calls are retried with exponential backoff and
// jitter when the failure looks transient; safety blocks and empty or
// malformed responses fail immediately.
package gemini
