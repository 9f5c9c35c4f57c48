// Package report holds run records produced by batch and single-run
// invocations so individual outcomes can be looked up by run ID.
package report

import (
	"fmt"
	"time"

	"github.com/deixis/exrun/internal/runner"
)

// Kind identifies the type of a run.
type Kind string

const (
	// Batch is a run of every catalog entry.
	Batch Kind = "batch"
	// Single is a run of one named entry.
	Single Kind = "single"
)

// Store persists and retrieves run results.
type Store interface {
	Save(result *RunResult) error
	Load(runID string) (*RunResult, error)
}

// RunResult is the record of one batch or single-run invocation.
type RunResult struct {
	ID      string      `json:"id"`
	Kind    Kind        `json:"kind"`
	Missing []string    `json:"missing,omitempty"` // set when the pre-run check failed
	Runs    []RunRecord `json:"runs,omitempty"`
	Aborted bool        `json:"aborted,omitempty"` // stopped early by an operator interrupt
}

// RunRecord is the outcome of one example within a RunResult.
type RunRecord struct {
	Name        string        `json:"name"`
	RunID       string        `json:"run_id"`
	Status      runner.Status `json:"status"`
	ExitCode    int           `json:"exit_code"`
	Signal      string        `json:"signal,omitempty"`
	Reason      string        `json:"reason,omitempty"`
	Stdout      string        `json:"stdout,omitempty"`
	Stderr      string        `json:"stderr,omitempty"`
	Truncated   bool          `json:"truncated,omitempty"`
	Interrupted bool          `json:"interrupted,omitempty"`
	DurationMS  int64         `json:"duration_ms"`
}

// NewRecord converts an executor result into a RunRecord for name.
func NewRecord(name string, res *runner.Result) RunRecord {
	return RunRecord{
		Name:        name,
		RunID:       res.RunID,
		Status:      res.Status,
		ExitCode:    res.ExitCode,
		Signal:      res.Signal,
		Reason:      res.Reason,
		Stdout:      res.Stdout,
		Stderr:      res.Stderr,
		Truncated:   res.Truncated,
		Interrupted: res.Interrupted,
		DurationMS:  res.Duration.Milliseconds(),
	}
}

// OK reports whether the example completed with exit code 0.
func (r RunRecord) OK() bool {
	return r.Status == runner.Completed && r.ExitCode == 0
}

// Duration returns the recorded wall-clock time.
func (r RunRecord) Duration() time.Duration {
	return time.Duration(r.DurationMS) * time.Millisecond
}

// Outcome is a short label for the record such as ok, FAIL (exit N) or TIMEOUT.
func (r RunRecord) Outcome() string {
	switch r.Status {
	case runner.Completed:
		if r.ExitCode == 0 {
			return "ok"
		}
		if r.Signal != "" {
			return fmt.Sprintf("FAIL (exit %d, %s)", r.ExitCode, r.Signal)
		}
		return fmt.Sprintf("FAIL (exit %d)", r.ExitCode)
	case runner.TimedOut:
		if r.Interrupted {
			return "INTERRUPTED"
		}
		return "TIMEOUT"
	case runner.LaunchFailed:
		return "LAUNCH FAILED"
	}
	return string(r.Status)
}

// Expect returns an error if the run's Kind does not match want.
func (r *RunResult) Expect(want Kind) error {
	if r.Kind != want {
		return fmt.Errorf("run %s is a %s run, not a %s run", r.ID, r.Kind, want)
	}
	return nil
}

// Passed reports whether the pre-run check passed and every run succeeded.
func (r *RunResult) Passed() bool {
	if len(r.Missing) > 0 || r.Aborted {
		return false
	}
	for _, run := range r.Runs {
		if !run.OK() {
			return false
		}
	}
	return true
}

// Lookup returns the record for the named example.
func (r *RunResult) Lookup(name string) (RunRecord, bool) {
	for _, run := range r.Runs {
		if run.Name == name {
			return run, true
		}
	}
	return RunRecord{}, false
}
