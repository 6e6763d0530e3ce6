// Package backtester provides the bar-driven simulation engine and the
// KPI aggregation over its output.
package backtester

import (
	"fmt"
	"time"

	"github.com/vibetrading/sim-backend/internal/strategy"
	"github.com/vibetrading/sim-backend/pkg/types"
	"go.uber.org/zap"
)

// Engine evaluates a canonical strategy rule bar-by-bar against a candle
// series, producing a trade list, an equity trajectory and summary KPIs.
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates a new simulation engine.
func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{logger: logger}
}

// position is the engine's single open position, if any.
type position struct {
	quantity  float64
	costBasis float64 // total cash spent opening, commission included
	openedAt  time.Time
}

// Run executes the simulation. For each candle from the first bar with
// sufficient indicator history to the last:
//
//  1. if holding and the exit condition fires, close at this bar's close
//     (exit takes precedence; no same-bar round trips),
//  2. else if flat and the entry condition fires, open a position sized by
//     the rule's fraction of current equity,
//  3. record one equity point per bar: cash plus mark-to-market.
//
// Any position still open at the final bar is force-closed so every SELL
// carries realized pnl and the curve ends fully in cash. Monetary values
// accumulate unrounded; rounding happens at the presentation boundary only.
func (e *Engine) Run(rule strategy.Rule, cfg types.BacktestConfig, candles []types.Candle) (types.BacktestReport, error) {
	if err := rule.Validate(); err != nil {
		return types.BacktestReport{}, fmt.Errorf("invalid strategy rule: %w", err)
	}
	if len(candles) == 0 {
		return types.BacktestReport{}, fmt.Errorf("no candles supplied")
	}

	eval := strategy.NewEvaluator(rule, candles)
	warmup := eval.Warmup()

	commission := 0.0
	if cfg.TransactionCosts {
		commission = cfg.CommissionRate
	}

	cash := cfg.InitialCapital
	var pos *position
	var trades []types.Trade
	equity := []types.EquityPoint{{
		Timestamp: candles[0].Timestamp.AddDate(0, 0, -1),
		Value:     cfg.InitialCapital,
	}}
	peak := cfg.InitialCapital

	markToMarket := func(price float64) float64 {
		if pos == nil {
			return cash
		}
		return cash + pos.quantity*price
	}

	closePosition := func(bar types.Candle, reason string) {
		proceeds := pos.quantity * bar.Close * (1 - commission)
		pnl := proceeds - pos.costBasis
		pnlPct := 0.0
		if pos.costBasis > 0 {
			pnlPct = pnl / pos.costBasis * 100
		}
		cash += proceeds
		trades = append(trades, types.Trade{
			ID:           fmt.Sprintf("t_%03d", len(trades)+1),
			DecisionTime: bar.Timestamp,
			FillTime:     bar.Timestamp,
			Symbol:       rule.Symbol,
			Side:         types.TradeSideSell,
			Quantity:     pos.quantity,
			Price:        bar.Close,
			PnL:          &pnl,
			PnLPct:       &pnlPct,
			Reason:       reason,
		})
		pos = nil
	}

	for i := warmup; i < len(candles); i++ {
		bar := candles[i]

		if pos != nil && eval.ExitAt(i) {
			closePosition(bar, rule.Exit.Describe(rule))
		} else if pos != nil && cfg.MaxDrawdownFilter && peak > 0 {
			if dd := (markToMarket(bar.Close) - peak) / peak * 100; dd <= cfg.MaxDrawdownFilterLimit {
				closePosition(bar, fmt.Sprintf("max drawdown filter (%.1f%%)", dd))
			}
		} else if pos == nil && eval.EntryAt(i) {
			alloc := cash * rule.SizingFraction
			qty := alloc / (bar.Close * (1 + commission))
			if qty > 0 {
				cost := qty * bar.Close * (1 + commission)
				cash -= cost
				pos = &position{quantity: qty, costBasis: cost, openedAt: bar.Timestamp}
				trades = append(trades, types.Trade{
					ID:           fmt.Sprintf("t_%03d", len(trades)+1),
					DecisionTime: bar.Timestamp,
					FillTime:     bar.Timestamp,
					Symbol:       rule.Symbol,
					Side:         types.TradeSideBuy,
					Quantity:     qty,
					Price:        bar.Close,
					Reason:       rule.Entry.Describe(rule),
				})
			}
		}

		value := markToMarket(bar.Close)
		if value > peak {
			peak = value
		}
		equity = append(equity, types.EquityPoint{Timestamp: bar.Timestamp, Value: value})
	}

	if pos != nil {
		last := candles[len(candles)-1]
		closePosition(last, "end of backtest window")
		equity[len(equity)-1].Value = cash
	}

	report := types.BacktestReport{
		KPIs:        KPIs(equity, trades),
		EquityCurve: equity,
		Trades:      trades,
		Candles:     candles,
	}

	e.logger.Debug("simulation finished",
		zap.String("symbol", rule.Symbol),
		zap.Int("bars", len(candles)),
		zap.Int("trades", len(trades)),
		zap.Float64("finalEquity", cash),
	)

	return report, nil
}
