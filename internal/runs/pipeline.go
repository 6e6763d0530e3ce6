package runs

import (
	"fmt"
	"strings"
	"time"

	"github.com/vibetrading/sim-backend/internal/marketdata"
	"github.com/vibetrading/sim-backend/internal/strategy"
	"github.com/vibetrading/sim-backend/pkg/types"
	"go.uber.org/zap"
)

// executePipeline drives one run through parse, plan, data, backtest and
// report. Each phase is guarded: an error or panic becomes an error-status
// step and a failed run, and never escapes to the pool or other runs.
func (r *Registry) executePipeline(runID string) {
	rec, ok := r.record(runID)
	if !ok {
		return
	}
	prompt := rec.run.Prompt
	cfg := rec.cfg

	var (
		rule    strategy.Rule
		dslText string
		candles []types.Candle
		report  types.BacktestReport
	)

	phases := []struct {
		key types.StepKey
		fn  func(log func(level, msg string)) error
	}{
		{types.StepParse, func(log func(level, msg string)) error {
			log("INFO", "parsing natural language prompt")
			rule = strategy.ParseFromPrompt(prompt)
			if cfg.Symbol != "" {
				rule.Symbol = cfg.Symbol
			}
			if err := rule.Validate(); err != nil {
				return err
			}
			log("INFO", fmt.Sprintf("detected asset %s", rule.Symbol))
			log("INFO", fmt.Sprintf("entry: %s", rule.Entry.Describe(rule)))
			log("INFO", fmt.Sprintf("exit: %s", rule.Exit.Describe(rule)))
			r.setStepTags(runID, types.StepParse, []string{
				"Asset: " + rule.Symbol,
				"Logic: " + string(rule.Entry.Kind),
				fmt.Sprintf("Sizing: %.0f%%", rule.SizingFraction*100),
			})
			return nil
		}},
		{types.StepPlan, func(log func(level, msg string)) error {
			dslText = strategy.RenderDSL(rule, prompt)
			log("INFO", "strategy rule compiled to DSL")
			log("DEBUG", fmt.Sprintf("sma windows %d/%d, macd %d/%d/%d",
				rule.FastWindow, rule.SlowWindow, rule.MACDFast, rule.MACDSlow, rule.MACDSignal))
			return nil
		}},
		{types.StepData, func(log func(level, msg string)) error {
			var err error
			candles, err = marketdata.Generate(rule.Symbol, cfg.StartDate, cfg.EndDate, cfg.Seed)
			if err != nil {
				return err
			}
			log("INFO", fmt.Sprintf("%d daily candles synthesized for %s", len(candles), rule.Symbol))
			log("DEBUG", fmt.Sprintf("window %s .. %s",
				cfg.StartDate.Format("2006-01-02"), cfg.EndDate.Format("2006-01-02")))
			return nil
		}},
		{types.StepBacktest, func(log func(level, msg string)) error {
			var err error
			report, err = r.engine.Run(rule, cfg, candles)
			if err != nil {
				return err
			}
			log("INFO", fmt.Sprintf("%d trades executed over %d bars", len(report.Trades), len(candles)))
			if len(report.Trades) == 0 {
				log("WARN", "strategy produced no trades in this window")
			}
			return nil
		}},
		{types.StepReport, func(log func(level, msg string)) error {
			k := report.KPIs
			log("INFO", fmt.Sprintf("total return %.2f%%, sharpe %.2f, max drawdown %.2f%%",
				k.TotalReturnPct, k.Sharpe, k.MaxDrawdownPct))
			log("INFO", fmt.Sprintf("win rate %.1f%% across %d trades", k.WinRatePct, k.TotalTrades))
			return nil
		}},
	}

	for _, phase := range phases {
		if !r.runPhase(runID, phase.key, phase.fn) {
			r.finalize(runID, types.RunStateFailed, nil, "")
			return
		}
	}

	r.finalize(runID, types.RunStateCompleted, &report, dslText)
}

// runPhase executes one phase, converting errors and panics into an
// error-status step. It reports whether the pipeline may continue.
func (r *Registry) runPhase(runID string, key types.StepKey, fn func(log func(level, msg string)) error) (ok bool) {
	started := time.Now()
	var lines []string
	log := func(level, msg string) {
		lines = append(lines, logLine(level, msg))
	}

	r.updateStep(runID, key, func(s *types.RunStep) {
		s.Status = types.StepStatusRunning
		s.Logs = append(s.Logs, logLine("INFO", string(key)+" phase started"))
	})

	var err error
	func() {
		defer func() {
			if p := recover(); p != nil {
				err = &StepFailure{Step: key, Err: fmt.Errorf("panic: %v", p)}
			}
		}()
		if e := fn(log); e != nil {
			err = &StepFailure{Step: key, Err: e}
		}
	}()

	duration := time.Since(started)
	if err != nil {
		r.logger.Warn("Pipeline phase failed",
			zap.String("runId", runID),
			zap.String("step", string(key)),
			zap.Error(err),
		)
		r.updateStep(runID, key, func(s *types.RunStep) {
			s.Status = types.StepStatusError
			s.Duration = duration
			s.Logs = append(s.Logs, lines...)
			s.Logs = append(s.Logs, logLine("ERROR", err.Error()))
		})
		return false
	}

	status := types.StepStatusDone
	for _, l := range lines {
		if strings.Contains(l, "[WARN]") {
			status = types.StepStatusWarn
		}
	}
	r.updateStep(runID, key, func(s *types.RunStep) {
		s.Status = status
		s.Duration = duration
		s.Logs = append(s.Logs, lines...)
	})
	return true
}

// updateStep applies fn to a fresh copy of the step record and swaps the
// whole record into a new step slice, so concurrent readers only ever see
// complete snapshots. Terminal runs are never mutated.
func (r *Registry) updateStep(runID string, key types.StepKey, fn func(*types.RunStep)) {
	r.mu.Lock()
	rec, ok := r.runs[runID]
	if !ok || rec.run.State.Terminal() {
		r.mu.Unlock()
		return
	}

	steps := cloneSteps(rec.run.Steps)
	for i := range steps {
		if steps[i].Key == key {
			fn(&steps[i])
			break
		}
	}
	rec.run.Steps = steps
	state, progress := ComputeRunStatus(steps)
	if state == types.RunStateCompleted {
		// Completion is published by finalize, atomically with the report,
		// so a caller that observes a completed run can always fetch it.
		state = types.RunStateRunning
	}
	rec.run.State, rec.run.Progress = state, progress

	notify := r.onUpdate
	snapshot := statusOf(rec.run)
	r.mu.Unlock()

	if notify != nil {
		notify(snapshot)
	}
}

func (r *Registry) setStepTags(runID string, key types.StepKey, tags []string) {
	r.updateStep(runID, key, func(s *types.RunStep) {
		s.Tags = tags
	})
}

// finalize records the run's terminal state, its artifacts and the history
// entry. After this point the run record is immutable apart from deploy.
func (r *Registry) finalize(runID string, state types.RunState, report *types.BacktestReport, dslText string) {
	r.mu.Lock()
	rec, ok := r.runs[runID]
	if !ok {
		r.mu.Unlock()
		return
	}

	now := time.Now().UTC()
	rec.run.CompletedAt = &now
	rec.run.State, rec.run.Progress = ComputeRunStatus(rec.run.Steps)
	rec.report = report

	summary := types.HistorySummary{
		RunID:       rec.run.ID,
		StrategyID:  rec.run.StrategyID,
		Prompt:      rec.run.Prompt,
		State:       rec.run.State,
		CompletedAt: now,
	}
	if state == types.RunStateCompleted && report != nil {
		kpis := report.KPIs
		summary.KPIs = &kpis
		rec.run.Artifacts = types.Artifacts{
			DSL:          dslText,
			ReportURL:    "/api/runs/" + runID + "/report",
			TradesCSVURL: "/api/runs/" + runID + "/report?format=csv",
		}
	}
	r.history = append(r.history, summary)

	notify := r.onUpdate
	snapshot := statusOf(rec.run)
	reason := FailureReason(rec.run.Steps)
	r.mu.Unlock()

	if state == types.RunStateFailed {
		r.logger.Warn("Run failed",
			zap.String("runId", runID),
			zap.String("reason", reason),
		)
	} else {
		r.logger.Info("Run completed", zap.String("runId", runID))
	}

	if notify != nil {
		notify(snapshot)
	}
}

func (r *Registry) record(runID string) (*runRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.runs[runID]
	return rec, ok
}

func logLine(level, msg string) string {
	return time.Now().UTC().Format(time.RFC3339) + " [" + level + "] " + msg
}
