// Package progress supervises a running ffmpeg trial through its -progress
// stream.
//
// Two actors share a per-trial Counter. A reader goroutine stores every
// "frame=N" line it receives, and the evaluator (Monitor.Watch, on the
// caller's goroutine) samples the counter once per stats period and drives
// the state machine:
//
//	AwaitingStream -> Streaming -> Complete | OverloadDetected | StallDetected | Cancelled
//
// Only the evaluator changes state. Cancellation of the caller's context
// supersedes every other outcome.
package progress
