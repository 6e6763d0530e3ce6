package runs_test

import (
	"testing"

	"github.com/vibetrading/sim-backend/internal/runs"
	"github.com/vibetrading/sim-backend/pkg/types"
)

func steps(statuses ...types.StepStatus) []types.RunStep {
	keys := []types.StepKey{types.StepParse, types.StepPlan, types.StepData, types.StepBacktest, types.StepReport}
	out := make([]types.RunStep, len(statuses))
	for i, s := range statuses {
		out[i] = types.RunStep{Key: keys[i%len(keys)], Status: s}
	}
	return out
}

func TestComputeRunStatus(t *testing.T) {
	q, r, d, w, e := types.StepStatusQueued, types.StepStatusRunning,
		types.StepStatusDone, types.StepStatusWarn, types.StepStatusError

	cases := []struct {
		name     string
		steps    []types.RunStep
		state    types.RunState
		progress float64
	}{
		{"all queued", steps(q, q, q), types.RunStateQueued, 0},
		{"first running", steps(r, q, q), types.RunStateRunning, 0},
		{"queued behind done", steps(d, q, q), types.RunStateRunning, float64(1) / 3 * 100},
		{"mid pipeline", steps(d, d, r, q), types.RunStateRunning, 50},
		{"all done", steps(d, d, d), types.RunStateCompleted, 100},
		{"warn still completes", steps(d, w, d), types.RunStateCompleted, 100},
		{"error dominates running", steps(d, e, r), types.RunStateFailed, float64(2) / 3 * 100},
		{"error dominates done", steps(d, d, e), types.RunStateFailed, 100},
		{"no steps", nil, types.RunStateQueued, 0},
	}

	for _, tc := range cases {
		state, progress := runs.ComputeRunStatus(tc.steps)
		if state != tc.state {
			t.Errorf("%s: state %s, want %s", tc.name, state, tc.state)
		}
		if progress != tc.progress {
			t.Errorf("%s: progress %v, want %v", tc.name, progress, tc.progress)
		}
	}
}

func TestComputeRunStatusProgressMonotonic(t *testing.T) {
	q, r, d := types.StepStatusQueued, types.StepStatusRunning, types.StepStatusDone

	sequence := [][]types.RunStep{
		steps(q, q, q),
		steps(r, q, q),
		steps(d, q, q),
		steps(d, r, q),
		steps(d, d, r),
		steps(d, d, d),
	}

	prev := -1.0
	for i, s := range sequence {
		_, progress := runs.ComputeRunStatus(s)
		if progress < prev {
			t.Fatalf("Progress regressed at step %d: %v after %v", i, progress, prev)
		}
		prev = progress
	}
}

func TestFailureReason(t *testing.T) {
	s := steps(types.StepStatusDone, types.StepStatusError)
	s[1].Logs = []string{
		"2025-01-01T00:00:00Z [INFO] phase started",
		"2025-01-01T00:00:01Z [ERROR] end date before start date",
	}

	reason := runs.FailureReason(s)
	if reason != "2025-01-01T00:00:01Z [ERROR] end date before start date" {
		t.Errorf("Unexpected failure reason: %q", reason)
	}

	if got := runs.FailureReason(steps(types.StepStatusDone)); got != "" {
		t.Errorf("Expected empty reason for healthy steps, got %q", got)
	}
}
