// Package stream drives one assistant turn's fragment stream to completion,
// reflecting it into the Message Log.
//
// # Runs
//
// Process registers a run for a message id and starts a goroutine that pulls
// fragments from the provider channel. The goroutine never touches the log:
// every fragment is posted back onto the loop, where it is applied.
//
//   - Content: appended to the run's private accumulator, then
//     Mutate(id, accumulated, true). Every ProgressInterval content fragments
//     a stream.progress event carrying only the length is published.
//   - Metadata: merged into the run's metadata.
//   - Done, or the channel closing: Mutate(id, accumulated, false) and
//     stream.completed with Success true.
//   - Error: Mutate(id, accumulated+suffix, false), the error is reported,
//     and stream.completed with Success false.
//
// Cancel finalizes a run immediately with whatever accumulated, or
// CancelledMarker when nothing did. After a run is finalized it writes
// nothing more. Only one run per message id may be active.
//
// Process, Cancel and the accessors must be called on the loop.
package stream
