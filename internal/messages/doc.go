// Package messages holds the ordered, mutable collection of conversation
// turns shown to the user.
//
// The Log is capped: appending past the cap evicts the oldest entries first.
// Every mutating call publishes exactly one event on the injected bus:
//
//   - Append            -> message.added
//   - Mutate            -> message.updated (nothing when the id is unknown)
//   - Clear             -> messages.cleared
//   - PrependHistorical -> messages.prepended
//
// Mutate replaces the full text; callers always pass the complete
// accumulated content. While a message is streaming, a write that would drop
// a previously published prefix is rejected, and once a message is finalized
// (Streaming false) it is frozen.
//
// Like the bus, a Log is owned by the loop and is not safe for concurrent use.
package messages
