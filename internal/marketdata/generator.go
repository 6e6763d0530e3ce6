// Package marketdata provides deterministic synthetic market data and the
// technical indicators computed from it.
package marketdata

import (
	"fmt"
	"math"
	"time"

	"github.com/vibetrading/sim-backend/pkg/seed"
	"github.com/vibetrading/sim-backend/pkg/types"
)

const (
	// Daily random-walk parameters. Tuned so a one-year series moves
	// enough to generate crossovers without leaving a plausible range.
	dailyDrift    = 0.0005
	dailyVol      = 0.02
	overnightGap  = 0.004
	intradayRange = 0.008
)

// Generate produces a daily OHLC candle series for symbol over the
// inclusive [start, end] date range. Identical (symbol, start, end, seed)
// inputs always yield identical output; the registry relies on this to
// regenerate a run's data for report retrieval without storing it.
func Generate(symbol string, start, end time.Time, seedStr string) ([]types.Candle, error) {
	start = midnightUTC(start)
	end = midnightUTC(end)
	if end.Before(start) {
		return nil, fmt.Errorf("end date %s before start date %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	h := seed.Hash(seedStr + symbol)
	rng := seed.NewSequence(h)

	// Base price derived from the seed so distinct symbols start at
	// distinct levels.
	price := 80.0 + float64(h%9000)/100.0

	var candles []types.Candle
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		open := price
		if len(candles) > 0 {
			open = price * (1 + (rng.Float64()-0.5)*overnightGap)
		}

		ret := dailyDrift + (rng.Float64()-0.5)*2*dailyVol
		close := open * (1 + ret)

		high := math.Max(open, close) * (1 + intradayRange*rng.Float64())
		low := math.Min(open, close) * (1 - intradayRange*rng.Float64())

		candles = append(candles, types.Candle{
			Timestamp: day,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
		})
		price = close
	}

	return candles, nil
}

// Aggregate groups daily candles into coarser buckets of bucketDays
// consecutive candles (e.g. 7 for weekly). Open is the first bucket open,
// close the last bucket close, high/low the bucket extremes. The trailing
// partial bucket is kept.
func Aggregate(candles []types.Candle, bucketDays int) ([]types.Candle, error) {
	if bucketDays < 1 {
		return nil, fmt.Errorf("bucket size must be positive, got %d", bucketDays)
	}
	if bucketDays > len(candles) {
		return nil, fmt.Errorf("bucket size %d exceeds %d available bars", bucketDays, len(candles))
	}

	out := make([]types.Candle, 0, (len(candles)+bucketDays-1)/bucketDays)
	for i := 0; i < len(candles); i += bucketDays {
		j := i + bucketDays
		if j > len(candles) {
			j = len(candles)
		}
		merged := candles[i]
		for _, c := range candles[i+1 : j] {
			merged.High = math.Max(merged.High, c.High)
			merged.Low = math.Min(merged.Low, c.Low)
			merged.Close = c.Close
		}
		out = append(out, merged)
	}
	return out, nil
}

func midnightUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
