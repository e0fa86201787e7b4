// Package agetrack keeps relative-time display fields ("5m ago", "in 2h")
// fresh without running one timer per visible row. Fields are grouped into
// refresh tiers by how old (or how imminent) they are, and a single periodic
// tick refreshes whole tiers at the coarsest cadence that still looks live.
package agetrack

import "time"

// Mode selects whether a tracked field counts elapsed time up from a creation
// timestamp or remaining time down to a deadline.
type Mode string

const (
	ModeAge       Mode = "age"
	ModeCountdown Mode = "countdown"
)

// Cadence is how often a tier's members need redisplay.
type Cadence int

const (
	CadenceSecond Cadence = iota
	CadenceMinute
	CadenceHour
	CadenceDay
)

func (c Cadence) String() string {
	switch c {
	case CadenceSecond:
		return "second"
	case CadenceMinute:
		return "minute"
	case CadenceHour:
		return "hour"
	case CadenceDay:
		return "day"
	default:
		return "unknown"
	}
}

// fired reports whether this cadence's wall-clock boundary lands on now.
// Second-cadence tiers refresh on every tick.
func (c Cadence) fired(now time.Time) bool {
	switch c {
	case CadenceSecond:
		return true
	case CadenceMinute:
		return now.Second() == 0
	case CadenceHour:
		return now.Minute() == 0 && now.Second() == 0
	case CadenceDay:
		return now.Hour() == 0 && now.Minute() == 0 && now.Second() == 0
	default:
		return false
	}
}

// Tier is one refresh class of a ladder. Threshold is the exclusive upper
// bound of the duration range the tier covers; the final tier of a ladder is
// unbounded and has Threshold zero.
type Tier struct {
	Name      string
	Threshold time.Duration
	Cadence   Cadence
}

func (t Tier) unbounded() bool { return t.Threshold <= 0 }

// The two ladders are fixed. Age counts up, so items migrate toward the
// coarser tiers; countdown counts down, so items migrate toward the finer
// ones and finally expire out of tracking.
var (
	ageLadder = []Tier{
		{Name: "under-2m", Threshold: 2 * time.Minute, Cadence: CadenceSecond},
		{Name: "2m-10m", Threshold: 10 * time.Minute, Cadence: CadenceSecond},
		{Name: "10m-1h", Threshold: time.Hour, Cadence: CadenceMinute},
		{Name: "1h-10h", Threshold: 10 * time.Hour, Cadence: CadenceMinute},
		{Name: "10h-1d", Threshold: 24 * time.Hour, Cadence: CadenceHour},
		{Name: "1d-10d", Threshold: 240 * time.Hour, Cadence: CadenceHour},
		{Name: "over-10d", Cadence: CadenceDay},
	}

	countdownLadder = []Tier{
		{Name: "under-2m", Threshold: 2 * time.Minute, Cadence: CadenceSecond},
		{Name: "2m-10m", Threshold: 10 * time.Minute, Cadence: CadenceSecond},
		{Name: "10m-1h", Threshold: time.Hour, Cadence: CadenceSecond},
		{Name: "1h-1d", Threshold: 24 * time.Hour, Cadence: CadenceMinute},
		{Name: "1d-10d", Threshold: 240 * time.Hour, Cadence: CadenceHour},
		{Name: "over-10d", Cadence: CadenceDay},
	}
)

func ladderFor(mode Mode) []Tier {
	if mode == ModeCountdown {
		return countdownLadder
	}
	return ageLadder
}

// tierIndex places a duration on a ladder: the first tier whose threshold the
// duration has not yet reached, or the unbounded last tier.
func tierIndex(ladder []Tier, d time.Duration) int {
	for i, tier := range ladder {
		if tier.unbounded() {
			return i
		}
		if d < tier.Threshold {
			return i
		}
	}
	return len(ladder) - 1
}

// transitionInstant computes the exact wall-clock moment at which a field in
// tier idx will cross into its neighbouring tier, or the zero time when no
// further transition can occur.
//
// Age fields leave tier idx when their elapsed time reaches the tier's own
// threshold; the final tier is never left. Countdown fields leave tier idx
// when their remaining time drops below the previous tier's threshold; the
// finest tier is "left" at the deadline itself, at which point the field
// expires out of tracking.
func transitionInstant(mode Mode, ladder []Tier, idx int, timestamp time.Time) time.Time {
	if mode == ModeCountdown {
		if idx == 0 {
			return timestamp
		}
		return timestamp.Add(-ladder[idx-1].Threshold)
	}
	if ladder[idx].unbounded() {
		return time.Time{}
	}
	return timestamp.Add(ladder[idx].Threshold)
}
