// Package marketdata_test provides tests for the synthetic data generator
// and the indicator library.
package marketdata_test

import (
	"testing"
	"time"

	"github.com/vibetrading/sim-backend/internal/marketdata"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestGenerateDeterministic(t *testing.T) {
	start, end := date(2025, 1, 1), date(2025, 12, 31)

	a, err := marketdata.Generate("BTC", start, end, "vibe")
	if err != nil {
		t.Fatalf("Failed to generate: %v", err)
	}
	b, err := marketdata.Generate("BTC", start, end, "vibe")
	if err != nil {
		t.Fatalf("Failed to generate: %v", err)
	}

	if len(a) != len(b) {
		t.Fatalf("Length mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Candle %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestGenerateSeedAndSymbolVary(t *testing.T) {
	start, end := date(2025, 1, 1), date(2025, 3, 31)

	base, _ := marketdata.Generate("BTC", start, end, "vibe")
	otherSeed, _ := marketdata.Generate("BTC", start, end, "other")
	otherSym, _ := marketdata.Generate("ETH", start, end, "vibe")

	if base[0].Open == otherSeed[0].Open && base[1].Close == otherSeed[1].Close {
		t.Error("Different seeds produced identical series")
	}
	if base[0].Open == otherSym[0].Open && base[1].Close == otherSym[1].Close {
		t.Error("Different symbols produced identical series")
	}
}

func TestGenerateCandleInvariants(t *testing.T) {
	candles, err := marketdata.Generate("SPY", date(2025, 1, 1), date(2025, 12, 31), "invariants")
	if err != nil {
		t.Fatalf("Failed to generate: %v", err)
	}
	if len(candles) != 365 {
		t.Fatalf("Expected 365 daily candles, got %d", len(candles))
	}

	for i, c := range candles {
		if c.Low > c.Open || c.Low > c.Close || c.High < c.Open || c.High < c.Close {
			t.Fatalf("Candle %d violates OHLC bounds: %+v", i, c)
		}
		if c.Low <= 0 {
			t.Fatalf("Candle %d has non-positive price: %+v", i, c)
		}
		if i > 0 {
			want := candles[i-1].Timestamp.AddDate(0, 0, 1)
			if !c.Timestamp.Equal(want) {
				t.Fatalf("Candle %d not consecutive: %s after %s",
					i, c.Timestamp, candles[i-1].Timestamp)
			}
		}
	}
}

func TestGenerateSingleDay(t *testing.T) {
	candles, err := marketdata.Generate("BTC", date(2025, 6, 1), date(2025, 6, 1), "one")
	if err != nil {
		t.Fatalf("Failed to generate: %v", err)
	}
	if len(candles) != 1 {
		t.Fatalf("Expected 1 candle, got %d", len(candles))
	}
}

func TestGenerateRejectsReversedRange(t *testing.T) {
	_, err := marketdata.Generate("BTC", date(2025, 6, 1), date(2025, 1, 1), "bad")
	if err == nil {
		t.Fatal("Expected error for end before start")
	}
}

func TestAggregateWeekly(t *testing.T) {
	candles, err := marketdata.Generate("BTC", date(2025, 1, 1), date(2025, 1, 17), "agg")
	if err != nil {
		t.Fatalf("Failed to generate: %v", err)
	}
	// 17 days -> two full weeks plus a 3-day trailing bucket.
	weekly, err := marketdata.Aggregate(candles, 7)
	if err != nil {
		t.Fatalf("Failed to aggregate: %v", err)
	}
	if len(weekly) != 3 {
		t.Fatalf("Expected 3 buckets, got %d", len(weekly))
	}

	if weekly[0].Open != candles[0].Open {
		t.Errorf("Bucket open should be first candle open")
	}
	if weekly[0].Close != candles[6].Close {
		t.Errorf("Bucket close should be last candle close")
	}
	if weekly[2].Close != candles[16].Close {
		t.Errorf("Trailing partial bucket should end at the final candle")
	}

	maxHigh := candles[0].High
	minLow := candles[0].Low
	for _, c := range candles[:7] {
		if c.High > maxHigh {
			maxHigh = c.High
		}
		if c.Low < minLow {
			minLow = c.Low
		}
	}
	if weekly[0].High != maxHigh || weekly[0].Low != minLow {
		t.Errorf("Bucket extremes wrong: high %v want %v, low %v want %v",
			weekly[0].High, maxHigh, weekly[0].Low, minLow)
	}
}

func TestAggregateRejectsBadBuckets(t *testing.T) {
	candles, _ := marketdata.Generate("BTC", date(2025, 1, 1), date(2025, 1, 5), "agg")

	if _, err := marketdata.Aggregate(candles, 0); err == nil {
		t.Error("Expected error for bucket size 0")
	}
	if _, err := marketdata.Aggregate(candles, 10); err == nil {
		t.Error("Expected error for bucket larger than series")
	}
}
