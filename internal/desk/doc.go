// Package desk wires the conversation core onto one loop and exposes it to
// the rest of the program.
//
// A Desk owns the loop, the bus, the Message Log, the stream processor, the
// orchestrator and the reporter. Its exported methods are safe to call from
// any goroutine: each marshals onto the loop and waits for the result.
//
// Persistence is a bus subscriber like any other. Start opens a Feed and
// drains it on a dedicated goroutine, writing finalized messages and
// sessions to the store, so disk latency never stalls the loop.
package desk
