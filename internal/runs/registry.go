// Package runs models a backtest execution as an ordered sequence of named
// steps and provides the in-memory registry the rest of the application
// polls against.
package runs

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vibetrading/sim-backend/internal/backtester"
	"github.com/vibetrading/sim-backend/internal/workers"
	"github.com/vibetrading/sim-backend/pkg/seed"
	"github.com/vibetrading/sim-backend/pkg/types"
	"go.uber.org/zap"
)

// Registry owns all Run records. It is an explicit store object injected
// into whatever needs it, never package-level state, so tests can hold
// several independent registries.
//
// Reads are safe concurrently with an in-flight pipeline writing to the
// same run: every step update replaces the whole step record under the
// lock, and status calls return deep-copied snapshots.
type Registry struct {
	logger *zap.Logger
	engine *backtester.Engine
	pool   *workers.Pool

	mu      sync.RWMutex
	runs    map[string]*runRecord
	history []types.HistorySummary

	onUpdate func(types.RunStatus)
}

// runRecord is the registry's private state for one run.
type runRecord struct {
	run    types.Run
	cfg    types.BacktestConfig
	report *types.BacktestReport
	deploy *types.DeployResult
}

// NewRegistry creates a registry that executes pipelines on the given pool.
func NewRegistry(logger *zap.Logger, engine *backtester.Engine, pool *workers.Pool) *Registry {
	return &Registry{
		logger: logger,
		engine: engine,
		pool:   pool,
		runs:   make(map[string]*runRecord),
	}
}

// OnUpdate registers a callback invoked with a status snapshot after every
// step transition. Used by the push surface; polling never needs it.
func (r *Registry) OnUpdate(fn func(types.RunStatus)) {
	r.mu.Lock()
	r.onUpdate = fn
	r.mu.Unlock()
}

// CreateRun validates the configuration, allocates a run id, constructs
// the ordered step list and begins asynchronous execution. It returns as
// soon as the id is allocated; callers observe progress by polling
// GetRunStatus. Exactly one execution drives a given id.
func (r *Registry) CreateRun(prompt string, cfg types.BacktestConfig) (string, error) {
	if cfg.InitialCapital == 0 {
		cfg.InitialCapital = types.DefaultBacktestConfig().InitialCapital
	}
	if cfg.CommissionRate == 0 {
		cfg.CommissionRate = types.DefaultBacktestConfig().CommissionRate
	}
	if cfg.MaxDrawdownFilterLimit == 0 {
		cfg.MaxDrawdownFilterLimit = types.DefaultBacktestConfig().MaxDrawdownFilterLimit
	}
	if err := cfg.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	runID := seed.NewRunID()
	if cfg.Seed == "" {
		cfg.Seed = runID
	}

	now := time.Now().UTC()
	rec := &runRecord{
		run: types.Run{
			ID:         runID,
			StrategyID: "strat_" + strings.TrimPrefix(runID, "run_")[:8],
			Prompt:     prompt,
			Steps:      newStepList(),
			State:      types.RunStateQueued,
			CreatedAt:  now,
		},
		cfg: cfg,
	}

	r.mu.Lock()
	if _, exists := r.runs[runID]; exists {
		r.mu.Unlock()
		return "", fmt.Errorf("%w: run %s already exists", ErrInvalidState, runID)
	}
	r.runs[runID] = rec
	r.mu.Unlock()

	if err := r.pool.Submit(workers.TaskFunc(func() error {
		r.executePipeline(runID)
		return nil
	})); err != nil {
		r.mu.Lock()
		delete(r.runs, runID)
		r.mu.Unlock()
		return "", fmt.Errorf("failed to schedule run: %w", err)
	}

	r.logger.Info("Run created",
		zap.String("runId", runID),
		zap.String("symbol", cfg.Symbol),
		zap.Time("startDate", cfg.StartDate),
		zap.Time("endDate", cfg.EndDate),
	)

	return runID, nil
}

// GetRun returns a snapshot of the full run record.
func (r *Registry) GetRun(runID string) (types.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.runs[runID]
	if !ok {
		return types.Run{}, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return cloneRun(rec.run), nil
}

// GetRunStatus returns the polling snapshot for a run.
func (r *Registry) GetRunStatus(runID string) (types.RunStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.runs[runID]
	if !ok {
		return types.RunStatus{}, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return statusOf(rec.run), nil
}

// GetRunReport returns the full backtest report. Available only once the
// run has completed; NotReady otherwise.
func (r *Registry) GetRunReport(runID string) (types.BacktestReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.runs[runID]
	if !ok {
		return types.BacktestReport{}, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if rec.run.State != types.RunStateCompleted || rec.report == nil {
		return types.BacktestReport{}, fmt.Errorf("%w: run %s is %s", ErrNotReady, runID, rec.run.State)
	}
	return *rec.report, nil
}

// History returns immutable summaries of finished runs, most recent first.
func (r *Registry) History() []types.HistorySummary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.HistorySummary, len(r.history))
	for i := range r.history {
		out[i] = r.history[len(r.history)-1-i]
	}
	return out
}

// Deploy activates the deploy step of a completed run. Paper deployments
// come up immediately; live deployments queue. An empty mode falls back to
// the mode recorded on the run's configuration, then to paper. Repeat
// calls on the same run return the original deployment rather than
// creating a second one.
func (r *Registry) Deploy(runID string, mode types.DeployMode) (types.DeployResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.runs[runID]
	if !ok {
		return types.DeployResult{}, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if rec.run.State != types.RunStateCompleted {
		return types.DeployResult{}, fmt.Errorf("%w: cannot deploy run in state %s", ErrInvalidState, rec.run.State)
	}
	if rec.deploy != nil {
		return *rec.deploy, nil
	}

	if mode == "" {
		mode = rec.cfg.Mode
	}
	if mode == "" {
		mode = types.DeployModePaper
	}

	status := "ok"
	if mode == types.DeployModeLive {
		status = "queued"
	}
	result := types.DeployResult{DeployID: seed.NewDeployID(), Status: status}
	rec.deploy = &result

	steps := cloneSteps(rec.run.Steps)
	steps = append(steps, types.RunStep{
		Key:    types.StepDeploy,
		Title:  "DEPLOY",
		Status: types.StepStatusDone,
		Logs: []string{
			logLine("INFO", fmt.Sprintf("deployment %s created (%s)", result.DeployID, mode)),
		},
	})
	rec.run.Steps = steps

	r.logger.Info("Run deployed",
		zap.String("runId", runID),
		zap.String("deployId", result.DeployID),
		zap.String("mode", string(mode)),
	)

	return result, nil
}

// newStepList builds the ordered pipeline steps. The deploy step is
// appended only after an explicit deploy call.
func newStepList() []types.RunStep {
	mk := func(key types.StepKey, title string) types.RunStep {
		return types.RunStep{Key: key, Title: title, Status: types.StepStatusQueued, Logs: []string{}}
	}
	return []types.RunStep{
		mk(types.StepParse, "STRATEGIC ANALYSIS"),
		mk(types.StepPlan, "LOGIC CONSTRUCTION"),
		mk(types.StepData, "DATA SYNTHESIS"),
		mk(types.StepBacktest, "BACKTEST ENGINE"),
		mk(types.StepReport, "REPORT ASSEMBLY"),
	}
}

func statusOf(run types.Run) types.RunStatus {
	return types.RunStatus{
		RunID:     run.ID,
		State:     run.State,
		Steps:     cloneSteps(run.Steps),
		Progress:  run.Progress,
		Artifacts: run.Artifacts,
	}
}

func cloneRun(run types.Run) types.Run {
	out := run
	out.Steps = cloneSteps(run.Steps)
	return out
}

func cloneSteps(steps []types.RunStep) []types.RunStep {
	out := make([]types.RunStep, len(steps))
	for i, s := range steps {
		s.Logs = append([]string(nil), s.Logs...)
		s.Tags = append([]string(nil), s.Tags...)
		out[i] = s
	}
	return out
}
