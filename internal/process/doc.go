// Package process runs the short-lived ffmpeg children of a trial.
//
// Each child gets its own process group. Stopping a child follows the same
// sequence everywhere:
//   - SIGINT to the group, letting ffmpeg flush and close its outputs
//   - SIGKILL once the graceful timeout expires
//
// Output is either discarded or streamed line by line through a logger,
// with a pluggable parser extracting the level of each line.
package process
