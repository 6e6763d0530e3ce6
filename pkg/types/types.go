// Package types provides shared type definitions for the simulation backend.
package types

import (
	"time"
)

// TradeSide represents buy or sell
type TradeSide string

const (
	TradeSideBuy  TradeSide = "BUY"
	TradeSideSell TradeSide = "SELL"
)

// StepKey identifies a named phase of a run
type StepKey string

const (
	StepParse    StepKey = "parse"
	StepPlan     StepKey = "plan"
	StepData     StepKey = "data"
	StepBacktest StepKey = "backtest"
	StepReport   StepKey = "report"
	StepDeploy   StepKey = "deploy"
)

// StepStatus represents the status of a single run step.
// Transitions are monotonic: queued -> running -> {done, warn, error}.
type StepStatus string

const (
	StepStatusQueued  StepStatus = "queued"
	StepStatusRunning StepStatus = "running"
	StepStatusDone    StepStatus = "done"
	StepStatusWarn    StepStatus = "warn"
	StepStatusError   StepStatus = "error"
)

// Terminal reports whether the step has finished, successfully or not.
func (s StepStatus) Terminal() bool {
	return s == StepStatusDone || s == StepStatusWarn || s == StepStatusError
}

// RunState represents the coarse state of a run, derived from step states
type RunState string

const (
	RunStateQueued    RunState = "queued"
	RunStateRunning   RunState = "running"
	RunStateCompleted RunState = "completed"
	RunStateFailed    RunState = "failed"
)

// Terminal reports whether the run has reached a final state.
func (s RunState) Terminal() bool {
	return s == RunStateCompleted || s == RunStateFailed
}

// DeployMode selects the deployment target for a completed run
type DeployMode string

const (
	DeployModePaper DeployMode = "paper"
	DeployModeLive  DeployMode = "live"
)

// Candle represents one trading session's price action.
// Invariant: High >= max(Open, Close) >= min(Open, Close) >= Low.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
}

// IndicatorSeries holds derived signal values aligned to a candle series.
// Values[i] is valid only where Defined[i] is true; leading entries stay
// undefined until the indicator window is satisfied.
type IndicatorSeries struct {
	Window  int       `json:"window"`
	Values  []float64 `json:"values"`
	Defined []bool    `json:"defined"`
}

// At returns the value at index i and whether it is defined.
// Out-of-range indices are undefined, never a panic.
func (s IndicatorSeries) At(i int) (float64, bool) {
	if i < 0 || i >= len(s.Values) || !s.Defined[i] {
		return 0, false
	}
	return s.Values[i], true
}

// Trade represents one executed position change.
// PnL fields are populated only for closing (SELL) trades.
type Trade struct {
	ID           string    `json:"id"`
	DecisionTime time.Time `json:"decisionTime"`
	FillTime     time.Time `json:"fillTime"`
	Symbol       string    `json:"symbol"`
	Side         TradeSide `json:"side"`
	Quantity     float64   `json:"quantity"`
	Price        float64   `json:"price"`
	PnL          *float64  `json:"pnl"`
	PnLPct       *float64  `json:"pnlPct"`
	Reason       string    `json:"reason"`
}

// EquityPoint represents total portfolio value at a point in time
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// KPISet holds summary performance statistics for a backtest.
// MaxDrawdownPct is <= 0 by convention; WinRatePct is in [0, 100].
type KPISet struct {
	TotalReturnPct float64 `json:"returnPct"`
	CAGRPct        float64 `json:"cagrPct"`
	Sharpe         float64 `json:"sharpe"`
	MaxDrawdownPct float64 `json:"maxDdPct"`
	WinRatePct     float64 `json:"winRatePct"`
	TotalTrades    int     `json:"totalTrades"`
}

// RunStep is one named phase of a run with its own status and logs
type RunStep struct {
	Key      StepKey       `json:"key"`
	Title    string        `json:"title"`
	Status   StepStatus    `json:"status"`
	Duration time.Duration `json:"duration"`
	Logs     []string      `json:"logs"`
	Tags     []string      `json:"tags,omitempty"`
}

// Artifacts references the outputs of a completed run
type Artifacts struct {
	DSL          string `json:"dsl"`
	ReportURL    string `json:"reportUrl"`
	TradesCSVURL string `json:"tradesCsvUrl"`
}

// Run represents one end-to-end execution of the simulation pipeline
type Run struct {
	ID          string     `json:"runId"`
	StrategyID  string     `json:"strategyId"`
	Prompt      string     `json:"prompt"`
	Steps       []RunStep  `json:"steps"`
	State       RunState   `json:"state"`
	Progress    float64    `json:"progress"`
	Artifacts   Artifacts  `json:"artifacts"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// RunStatus is the polling snapshot returned to callers
type RunStatus struct {
	RunID     string    `json:"runId"`
	State     RunState  `json:"state"`
	Steps     []RunStep `json:"steps"`
	Progress  float64   `json:"progress"`
	Artifacts Artifacts `json:"artifacts"`
}

// BacktestReport holds everything a completed simulation produced
type BacktestReport struct {
	KPIs        KPISet        `json:"kpis"`
	EquityCurve []EquityPoint `json:"equity"`
	Trades      []Trade       `json:"trades"`
	Candles     []Candle      `json:"candles"`
}

// HistorySummary is an immutable summary of a finished run
type HistorySummary struct {
	RunID       string    `json:"runId"`
	StrategyID  string    `json:"strategyId"`
	Prompt      string    `json:"prompt"`
	State       RunState  `json:"state"`
	CompletedAt time.Time `json:"completedAt"`
	KPIs        *KPISet   `json:"kpis,omitempty"`
}

// DeployResult is returned by a successful deploy call
type DeployResult struct {
	DeployID string `json:"deployId"`
	Status   string `json:"status"`
}
