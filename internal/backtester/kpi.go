package backtester

import (
	"math"

	"github.com/vibetrading/sim-backend/pkg/types"
)

// barsPerYear matches the generator's calendar: one candle per calendar
// day, weekends included.
const barsPerYear = 365

// KPIs reduces an equity trajectory and trade list into the fixed summary
// statistics. Degenerate inputs never divide by zero: a flat curve yields
// Sharpe 0 and drawdown 0; an empty trade list yields win rate 0.
func KPIs(equity []types.EquityPoint, trades []types.Trade) types.KPISet {
	k := types.KPISet{TotalTrades: len(trades)}
	if len(equity) == 0 {
		return k
	}

	initial := equity[0].Value
	final := equity[len(equity)-1].Value
	if initial > 0 {
		k.TotalReturnPct = (final/initial - 1) * 100
	}

	// CAGR: spans shorter than one calendar year are not annualized, so a
	// ten-day window cannot explode into an absurd compounded figure.
	years := equity[len(equity)-1].Timestamp.Sub(equity[0].Timestamp).Hours() / 24 / 365
	if years >= 1 && initial > 0 && final > 0 {
		k.CAGRPct = (math.Pow(final/initial, 1/years) - 1) * 100
	} else {
		k.CAGRPct = k.TotalReturnPct
	}

	k.Sharpe = sharpe(equity)
	k.MaxDrawdownPct = maxDrawdown(equity)
	k.WinRatePct = winRate(trades)
	return k
}

// sharpe is the mean per-bar return over its standard deviation, annualized
// by the square root of bars per year. Zero variance means zero, not NaN.
func sharpe(equity []types.EquityPoint) float64 {
	var returns []float64
	for i := 1; i < len(equity); i++ {
		if prev := equity[i-1].Value; prev > 0 {
			returns = append(returns, (equity[i].Value-prev)/prev)
		}
	}
	if len(returns) < 2 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)
	if variance == 0 {
		return 0
	}

	return mean / math.Sqrt(variance) * math.Sqrt(barsPerYear)
}

// maxDrawdown is the minimum over time of (equity-peak)/peak, in percent,
// always <= 0.
func maxDrawdown(equity []types.EquityPoint) float64 {
	var maxDD float64
	peak := math.Inf(-1)
	for _, p := range equity {
		if p.Value > peak {
			peak = p.Value
		}
		if peak > 0 {
			if dd := (p.Value - peak) / peak * 100; dd < maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// winRate is the share of closed trades with positive pnl, in percent.
func winRate(trades []types.Trade) float64 {
	var closed, wins int
	for _, t := range trades {
		if t.PnL == nil {
			continue
		}
		closed++
		if *t.PnL > 0 {
			wins++
		}
	}
	if closed == 0 {
		return 0
	}
	return float64(wins) / float64(closed) * 100
}
