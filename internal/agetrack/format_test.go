package agetrack

import (
	"testing"
	"time"
)

func TestFormatAge(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{-5 * time.Second, "0s"},
		{0, "0s"},
		{42 * time.Second, "42s"},
		{119 * time.Second, "119s"},
		{120 * time.Second, "2m00s"},
		{9*time.Minute + 59*time.Second, "9m59s"},
		{10 * time.Minute, "10m"},
		{59 * time.Minute, "59m"},
		{time.Hour, "1h0m"},
		{9*time.Hour + 59*time.Minute, "9h59m"},
		{10 * time.Hour, "10h"},
		{23 * time.Hour, "23h"},
		{24 * time.Hour, "1d0h"},
		{9*24*time.Hour + 23*time.Hour, "9d23h"},
		{10 * 24 * time.Hour, "10d"},
		{27 * 24 * time.Hour, "27d"},
	}
	for _, tc := range cases {
		if got := FormatAge(tc.d); got != tc.want {
			t.Errorf("FormatAge(%v): want %q got %q", tc.d, tc.want, got)
		}
	}
}

func TestFormatCountdown(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{-time.Second, "now"},
		{0, "in 0s"},
		{42 * time.Second, "in 42s"},
		{time.Minute, "in 1m00s"},
		{5*time.Minute + 4*time.Second, "in 5m04s"},
		{time.Hour, "in 1h0m"},
		{90 * time.Minute, "in 1h30m"},
		{23*time.Hour + 59*time.Minute, "in 23h59m"},
		{2*24*time.Hour + 4*time.Hour, "in 2d4h"},
	}
	for _, tc := range cases {
		if got := FormatCountdown(tc.d); got != tc.want {
			t.Errorf("FormatCountdown(%v): want %q got %q", tc.d, tc.want, got)
		}
	}
}

func TestTierPlacement(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want int
	}{
		{30 * time.Second, 0},
		{119 * time.Second, 0},
		{2 * time.Minute, 1},
		{9 * time.Minute, 1},
		{30 * time.Minute, 2},
		{5 * time.Hour, 3},
		{12 * time.Hour, 4},
		{3 * 24 * time.Hour, 5},
		{30 * 24 * time.Hour, 6},
	}
	for _, tc := range cases {
		if got := tierIndex(ageLadder, tc.d); got != tc.want {
			t.Errorf("tierIndex(age, %v): want %d got %d", tc.d, tc.want, got)
		}
	}

	// The countdown ladder keeps per-second refreshes all the way to an hour
	// out and has no dedicated 10-24h band.
	if got := tierIndex(countdownLadder, 45*time.Minute); got != 2 {
		t.Errorf("tierIndex(countdown, 45m): want 2 got %d", got)
	}
	if countdownLadder[2].Cadence != CadenceSecond {
		t.Errorf("countdown 10m-1h tier should refresh per second")
	}
	if got := tierIndex(countdownLadder, 12*time.Hour); got != 3 {
		t.Errorf("tierIndex(countdown, 12h): want 3 got %d", got)
	}
}
