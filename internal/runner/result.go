package runner

import "time"

// Status is the terminal variant of a run. Exactly one holds per Result.
type Status string

const (
	// Completed means the process exited on its own within its budget.
	// ExitCode carries the code; only 0 is success.
	Completed Status = "completed"
	// TimedOut means the budget elapsed (or the run was interrupted) and
	// the process was terminated.
	TimedOut Status = "timed_out"
	// LaunchFailed means the process could not be started. Reason says why.
	LaunchFailed Status = "launch_failed"
)

// State is a step of the per-run state machine:
//
//	launched -> (exited | timeout_elapsed)
//	timeout_elapsed -> (terminated_gracefully | kill_elapsed)
//	kill_elapsed -> forcibly_killed
//	* -> reported
type State string

const (
	StateLaunched             State = "launched"
	StateExited               State = "exited"
	StateTimeoutElapsed       State = "timeout_elapsed"
	StateTerminatedGracefully State = "terminated_gracefully"
	StateKillElapsed          State = "kill_elapsed"
	StateForciblyKilled       State = "forcibly_killed"
	StateReported             State = "reported"
)

// Result holds the outcome of one execution attempt.
type Result struct {
	RunID       string        // unique identifier for this run
	Path        string        // executable that was launched
	Status      Status        // completed, timed_out or launch_failed
	ExitCode    int           // process exit code, or -signum; meaningful only when Completed
	Signal      string        // name of the signal that ended the process, if any
	Reason      string        // launch error; set only when LaunchFailed
	Stdout      string        // captured stdout (may be truncated)
	Stderr      string        // captured stderr (may be truncated)
	Truncated   bool          // true if either stream exceeded the size cap
	Interrupted bool          // true if the caller cancelled the run
	Duration    time.Duration // wall-clock time from launch to report
	States      []State       // state-machine path, in order
}

// OK reports whether the process completed with exit code 0.
func (r *Result) OK() bool {
	return r.Status == Completed && r.ExitCode == 0
}

func (r *Result) enter(s State) {
	r.States = append(r.States, s)
}
