package runs

import (
	"strings"

	"github.com/vibetrading/sim-backend/pkg/types"
)

// ComputeRunStatus derives the coarse run state and progress from a step
// list. It is a pure, idempotent reducer: the run is failed if any step is
// in error; running if any step is running, or still queued behind a
// finished step; completed once every step reports done or warn; queued
// otherwise.
//
// Progress is the percentage of steps in a terminal state. Because the
// registry never mutates steps after the run reaches a terminal state,
// progress is non-decreasing across successive calls for the same run.
func ComputeRunStatus(steps []types.RunStep) (types.RunState, float64) {
	var terminal int
	var anyError, anyRunning, queuedBehindDone bool
	var sawFinished bool

	for _, s := range steps {
		if s.Status.Terminal() {
			terminal++
		}
		switch s.Status {
		case types.StepStatusError:
			anyError = true
		case types.StepStatusRunning:
			anyRunning = true
		case types.StepStatusQueued:
			if sawFinished {
				queuedBehindDone = true
			}
		}
		if s.Status == types.StepStatusDone || s.Status == types.StepStatusWarn {
			sawFinished = true
		}
	}

	var progress float64
	if len(steps) > 0 {
		progress = float64(terminal) / float64(len(steps)) * 100
	}

	switch {
	case anyError:
		return types.RunStateFailed, progress
	case anyRunning || queuedBehindDone:
		return types.RunStateRunning, progress
	case len(steps) > 0 && terminal == len(steps):
		return types.RunStateCompleted, progress
	default:
		return types.RunStateQueued, progress
	}
}

// FailureReason returns the first [ERROR] log line of the first error step,
// the human-readable reason a failed run surfaces to callers.
func FailureReason(steps []types.RunStep) string {
	for _, s := range steps {
		if s.Status != types.StepStatusError {
			continue
		}
		for _, line := range s.Logs {
			if strings.Contains(line, "[ERROR]") {
				return line
			}
		}
		return "unknown error in step " + string(s.Key)
	}
	return ""
}
