// Package exitcodes defines the standard exit codes used by sim-acceptor.
package exitcodes

// Exit code constants:
//
// * Success (0): all executed tests passed
// * Failure (1): one or more tests failed, or a fatal configuration or
//   build-environment error stopped the run before completion
const (
	Success = 0
	Failure = 1
)
