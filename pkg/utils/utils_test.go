package utils_test

import (
	"testing"

	"github.com/vibetrading/sim-backend/pkg/utils"
)

func TestRound(t *testing.T) {
	cases := []struct {
		in     float64
		places int32
		want   float64
	}{
		{3.14159, 2, 3.14},
		{2.675, 2, 2.68},
		{-1.005, 2, -1.01},
		{100, 2, 100},
	}
	for _, tc := range cases {
		if got := utils.Round(tc.in, tc.places); got != tc.want {
			t.Errorf("Round(%v, %d) = %v, want %v", tc.in, tc.places, got, tc.want)
		}
	}
}

func TestFormat(t *testing.T) {
	if got := utils.FormatMoney(1234.5); got != "1234.50" {
		t.Errorf("FormatMoney: got %q", got)
	}
	if got := utils.FormatPct(12.345); got != "12.3" {
		t.Errorf("FormatPct: got %q", got)
	}
	if got := utils.FormatQty(0.5); got != "0.5000" {
		t.Errorf("FormatQty: got %q", got)
	}
}
