// Package loop provides the single serialized execution context that owns
// every core mutation in coven-desk.
//
// # Overview
//
// The Event Bus, the Message Log and the Conversation Orchestrator are not
// safe for concurrent use. Instead of guarding them with mutexes, all work
// that touches them runs as a task on one Loop:
//
//	l := loop.New(logger)
//	defer l.Close()
//
//	l.Post(func() { msgLog.Append(msg) })     // fire and forget
//	err := l.Call(ctx, func() { n = msgLog.Len() }) // wait for completion
//
// Background goroutines (stream pullers, adapter calls) never touch shared
// state directly; they Post a closure back onto the loop.
//
// # Guarantees
//
//   - Tasks run one at a time, in Post order.
//   - Post never blocks; the queue is unbounded.
//   - A panicking task is recovered and logged; later tasks still run.
//   - Close drains already-queued tasks before returning.
//
// Call must not be used from inside a task: the task would wait on itself.
package loop
