package marketdata

import (
	"errors"
	"testing"

	"hybrid-mm-engine/internal/domain"
)

func TestSortBars(t *testing.T) {
	// Intentionally unordered bars
	bars := []*domain.Bar{
		{Symbol: "BTCUSDT", TimestampMs: 3_000},
		{Symbol: "ETHUSDT", TimestampMs: 1_000},
		{Symbol: "BTCUSDT", TimestampMs: 1_000},
		{Symbol: "BTCUSDT", TimestampMs: 2_000},
	}

	SortBars(bars)

	want := []struct {
		ts     int64
		symbol string
	}{
		{1_000, "BTCUSDT"},
		{1_000, "ETHUSDT"},
		{2_000, "BTCUSDT"},
		{3_000, "BTCUSDT"},
	}
	for i, w := range want {
		if bars[i].TimestampMs != w.ts || bars[i].Symbol != w.symbol {
			t.Errorf("bars[%d] = (%d, %s), want (%d, %s)",
				i, bars[i].TimestampMs, bars[i].Symbol, w.ts, w.symbol)
		}
	}
}

func TestValidateBarOrdering(t *testing.T) {
	ordered := []*domain.Bar{
		{Symbol: "BTCUSDT", TimestampMs: 1_000},
		{Symbol: "BTCUSDT", TimestampMs: 2_000},
		{Symbol: "BTCUSDT", TimestampMs: 3_000},
	}
	if err := ValidateBarOrdering(ordered); err != nil {
		t.Errorf("Expected ordered bars to validate, got %v", err)
	}

	outOfOrder := []*domain.Bar{
		{Symbol: "BTCUSDT", TimestampMs: 2_000},
		{Symbol: "BTCUSDT", TimestampMs: 1_000},
	}
	if err := ValidateBarOrdering(outOfOrder); !errors.Is(err, ErrInvalidOrdering) {
		t.Errorf("Expected ErrInvalidOrdering, got %v", err)
	}

	duplicate := []*domain.Bar{
		{Symbol: "BTCUSDT", TimestampMs: 1_000},
		{Symbol: "BTCUSDT", TimestampMs: 1_000},
	}
	if err := ValidateBarOrdering(duplicate); !errors.Is(err, ErrInvalidOrdering) {
		t.Errorf("Expected ErrInvalidOrdering for duplicate, got %v", err)
	}

	if err := ValidateBarOrdering(nil); err != nil {
		t.Errorf("Expected empty slice to validate, got %v", err)
	}
}

func TestDedupBars_KeepsLast(t *testing.T) {
	bars := []*domain.Bar{
		{Symbol: "BTCUSDT", TimestampMs: 1_000, Close: 100},
		{Symbol: "BTCUSDT", TimestampMs: 2_000, Close: 101},
		{Symbol: "BTCUSDT", TimestampMs: 2_000, Close: 102},
		{Symbol: "BTCUSDT", TimestampMs: 3_000, Close: 103},
	}

	out := DedupBars(bars)

	if len(out) != 3 {
		t.Fatalf("Expected 3 bars, got %d", len(out))
	}
	// The re-sent version of the 2_000 bar wins.
	if out[1].Close != 102 {
		t.Errorf("Expected last duplicate kept, got close %.1f", out[1].Close)
	}
	if err := ValidateBarOrdering(out); err != nil {
		t.Errorf("Deduped bars should validate, got %v", err)
	}
}

func TestDedupBars_Small(t *testing.T) {
	if out := DedupBars(nil); len(out) != 0 {
		t.Errorf("Expected empty result, got %d", len(out))
	}
	one := []*domain.Bar{{Symbol: "BTCUSDT", TimestampMs: 1_000}}
	if out := DedupBars(one); len(out) != 1 {
		t.Errorf("Expected single bar kept, got %d", len(out))
	}
}

func TestIntervalMs(t *testing.T) {
	cases := []struct {
		interval string
		want     int64
		wantErr  bool
	}{
		{"1s", 1_000, false},
		{"1m", 60_000, false},
		{"15m", 900_000, false},
		{"1h", 3_600_000, false},
		{"4h", 14_400_000, false},
		{"1d", 86_400_000, false},
		{"1w", 604_800_000, false},
		{"", 0, true},
		{"m", 0, true},
		{"0m", 0, true},
		{"1x", 0, true},
		{"-5m", 0, true},
	}

	for _, tc := range cases {
		got, err := IntervalMs(tc.interval)
		if tc.wantErr {
			if err == nil {
				t.Errorf("IntervalMs(%q): expected error", tc.interval)
			}
			continue
		}
		if err != nil {
			t.Errorf("IntervalMs(%q): unexpected error %v", tc.interval, err)
			continue
		}
		if got != tc.want {
			t.Errorf("IntervalMs(%q) = %d, want %d", tc.interval, got, tc.want)
		}
	}
}
