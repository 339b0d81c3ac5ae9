// Package chat defines the contract between the chat service and the AI
// responder that produces replies.
//
// A Job describes one pending reply, as stored in the background task payload.
// The service turns a Job into a Request by loading the conversation history
// and knowledge base sources; a Responder (the Gemini implementation lives in
// platform/gemini) turns a Request into a Response.
package chat
