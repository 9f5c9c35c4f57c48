package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deixis/exrun/internal/config"
	"github.com/deixis/exrun/internal/locator"
	"github.com/deixis/exrun/internal/report"
	"github.com/deixis/exrun/internal/runner"
)

const rule = "--------------------------------------------------"

// ErrInterrupted is returned when the operator cancels a batch.
var ErrInterrupted = errors.New("interrupted")

// RunAll checks the catalog and, if every binary is present, runs each
// entry in catalog order with its own timeout, pausing between runs.
// A failing entry never stops the batch; a cancelled ctx does, after the
// current run has been terminated.
func (e *Engine) RunAll(ctx context.Context) (*report.RunResult, error) {
	rr := &report.RunResult{ID: uuid.New().String(), Kind: report.Batch}

	if err := e.Check(); err != nil {
		rr.Missing = missingNames(err)
		return rr, err
	}

	catalog := e.Config.Catalog()
	e.printf("\nrunning %d examples\n", len(catalog))

	for i, ex := range catalog {
		if i > 0 {
			pause(ctx, e.Config.Pause())
		}
		if ctx.Err() != nil {
			rr.Aborted = true
			break
		}
		rec := e.runExample(ctx, ex)
		rr.Runs = append(rr.Runs, rec)
		if rec.Interrupted {
			rr.Aborted = true
			break
		}
	}

	e.printf("\n%s", FormatSummary(rr))
	if rr.Aborted {
		return rr, ErrInterrupted
	}
	return rr, nil
}

// RunOne checks the catalog and runs the named entry with the default
// timeout. A name outside the catalog is reported as missing and
// nothing is launched.
func (e *Engine) RunOne(ctx context.Context, name string) (*report.RunResult, error) {
	rr := &report.RunResult{ID: uuid.New().String(), Kind: report.Single}

	if err := e.Check(); err != nil {
		rr.Missing = missingNames(err)
		return rr, err
	}

	ex, ok := e.Config.Lookup(name)
	if !ok || !e.Location.Exists(name) {
		e.printf("FAIL example %q not found in %s\n", name, e.Location.Dir)
		rr.Missing = []string{name}
		return rr, &locator.MissingError{Dir: e.Location.Dir, Names: []string{name}}
	}
	ex.Timeout = e.Config.Timeout()

	rec := e.runExample(ctx, ex)
	rr.Runs = append(rr.Runs, rec)
	if rec.Interrupted {
		rr.Aborted = true
		return rr, ErrInterrupted
	}
	return rr, nil
}

// runExample launches one catalog entry from the binary directory and
// prints its status.
func (e *Engine) runExample(ctx context.Context, ex config.Example) report.RunRecord {
	e.printf("\n=== RUN %s (timeout %s)\n%s\n", ex.Name, ex.Timeout, rule)

	res := e.Runner.Run(ctx, e.Location.Path(ex.Name), e.Location.Dir, ex.Timeout)
	rec := report.NewRecord(ex.Name, res)

	e.logger().Info("example finished",
		zap.String("name", ex.Name),
		zap.String("run_id", rec.RunID),
		zap.String("status", string(rec.Status)),
		zap.Int("exit_code", rec.ExitCode),
		zap.Duration("duration", rec.Duration()),
	)
	e.printf("%s", FormatRecord(rec, ex.Timeout))
	return rec
}

// FormatRecord renders the status line and captured output of one run.
func FormatRecord(rec report.RunRecord, timeout time.Duration) string {
	var b strings.Builder
	w := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
	}
	block := func(label, text string) {
		if text == "" {
			return
		}
		w("%s:\n%s", label, text)
		if !strings.HasSuffix(text, "\n") {
			w("\n")
		}
	}

	switch rec.Status {
	case runner.Completed:
		if rec.ExitCode == 0 {
			w("--- ok   %s (%s)\n", rec.Name, rec.Duration().Round(time.Millisecond))
			block("stdout", rec.Stdout)
		} else if rec.Signal != "" {
			w("--- FAIL %s (killed by signal: %s, exit code %d)\n", rec.Name, rec.Signal, rec.ExitCode)
			block("stderr", rec.Stderr)
		} else {
			w("--- FAIL %s (exit code %d)\n", rec.Name, rec.ExitCode)
			block("stderr", rec.Stderr)
		}
	case runner.TimedOut:
		if rec.Interrupted {
			w("--- INTERRUPTED %s; process terminated\n", rec.Name)
		} else {
			w("--- TIMEOUT %s ran longer than %s; process terminated\n", rec.Name, timeout)
		}
		block("stdout", rec.Stdout)
		block("stderr", rec.Stderr)
	case runner.LaunchFailed:
		w("--- FAIL %s could not start: %s\n", rec.Name, rec.Reason)
	}
	if rec.Truncated {
		w("(output truncated)\n")
	}
	return b.String()
}

// FormatSummary renders one line per run in execution order.
func FormatSummary(rr *report.RunResult) string {
	var b strings.Builder
	if rr.Passed() {
		b.WriteString("ok\n")
	} else {
		b.WriteString("FAIL\n")
	}
	for _, run := range rr.Runs {
		fmt.Fprintf(&b, "  %-28s %s\n", run.Name, run.Outcome())
	}
	if rr.Aborted {
		b.WriteString("  (stopped by operator)\n")
	}
	return b.String()
}

func missingNames(err error) []string {
	var missing *locator.MissingError
	if errors.As(err, &missing) {
		return missing.Names
	}
	return nil
}
