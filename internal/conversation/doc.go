// Package conversation provides the turn state machine that turns one
// submitted line of user text into a streamed assistant response.
//
// # Orchestrator
//
// The Orchestrator owns the active Conversation Context and the in-flight
// guard. A turn moves through:
//
//	Idle -> Resolving -> Requesting -> Streaming -> Succeeded | Failed -> Idle
//
// Submit resolves the persona, starts or supersedes the context, appends the
// user's message, builds a request and hands it to the LLM client on a
// background goroutine. The client's answer is marshalled back onto the loop.
// Only after the client returns a stream is the assistant placeholder
// appended and given to the stream processor.
//
// A client error before the placeholder exists is reported and announced as
// conversation.error; no assistant message is created for it. Errors after
// streaming starts are folded into the message by the stream processor.
// Every path clears the in-flight guard.
//
// # Conversation Context
//
// A Context is replaced, never edited: a persona change, or inactivity longer
// than the configured timeout, starts a new one with a fresh session id and
// announces conversation.started. Expiry is checked when the next turn is
// submitted and announced as conversation.expired.
//
// All methods must be called on the loop.
package conversation
