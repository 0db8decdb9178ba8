package money

import "testing"

func TestApplyPercent(t *testing.T) {
	cases := []struct {
		name    string
		amount  int64
		percent float64
		want    int64
	}{
		{"twenty percent of 10000", 10000, 0.20, 2000},
		{"rounds half up", 1001, 0.125, 125},
		{"rounds down below half", 333, 0.10, 33},
		{"rounds up at half", 335, 0.10, 34},
		{"zero percent", 10000, 0, 0},
		{"zero amount", 0, 0.20, 0},
		{"full percent", 10000, 1, 10000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ApplyPercent(tc.amount, tc.percent); got != tc.want {
				t.Fatalf("ApplyPercent(%d, %v) = %d, want %d", tc.amount, tc.percent, got, tc.want)
			}
		})
	}
}

func TestProportional(t *testing.T) {
	cases := []struct {
		name             string
		base, num, denom int64
		want             int64
	}{
		{"half refund", 2000, 5000, 10000, 1000},
		{"full refund", 2000, 10000, 10000, 2000},
		{"zero denominator", 2000, 5000, 0, 0},
		{"zero numerator", 2000, 0, 10000, 0},
		{"rounds half up", 1000, 1, 3, 333},
		{"uneven thirds", 100, 2, 3, 67},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Proportional(tc.base, tc.num, tc.denom); got != tc.want {
				t.Fatalf("Proportional(%d, %d, %d) = %d, want %d", tc.base, tc.num, tc.denom, got, tc.want)
			}
		})
	}
}

func TestNormalizePercent(t *testing.T) {
	if got := NormalizePercent(20); got != 0.20 {
		t.Fatalf("NormalizePercent(20) = %v, want 0.20", got)
	}
	if got := NormalizePercent(0.20); got != 0.20 {
		t.Fatalf("NormalizePercent(0.20) = %v, want 0.20", got)
	}
	if got := NormalizePercent(1); got != 1.0 {
		t.Fatalf("NormalizePercent(1) = %v, want 1", got)
	}
	if got := NormalizePercent(100); got != 1.0 {
		t.Fatalf("NormalizePercent(100) = %v, want 1", got)
	}
}
