package runs

import (
	"errors"
	"fmt"

	"github.com/vibetrading/sim-backend/pkg/types"
)

// Caller-facing error taxonomy. These are returned synchronously from
// registry calls; pipeline-internal failures never reach callers directly,
// they surface as an error step on the run.
var (
	// ErrNotFound means the run id is unknown to the registry.
	ErrNotFound = errors.New("run not found")
	// ErrNotReady means a report was requested before the run completed.
	ErrNotReady = errors.New("report not ready")
	// ErrInvalidState means an operation is not valid in the run's state,
	// e.g. deploying a run that has not completed.
	ErrInvalidState = errors.New("invalid run state")
	// ErrGeneration means the backtest configuration cannot produce a
	// simulation (end before start, non-positive windows).
	ErrGeneration = errors.New("generation error")
)

// StepFailure records an internal failure inside a pipeline phase. It is
// caught at the phase boundary, recorded as an error-status step, and
// converts the run to failed; it never escapes the pipeline.
type StepFailure struct {
	Step types.StepKey
	Err  error
}

func (f *StepFailure) Error() string {
	return fmt.Sprintf("step %s failed: %v", f.Step, f.Err)
}

func (f *StepFailure) Unwrap() error { return f.Err }
