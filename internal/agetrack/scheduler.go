package agetrack

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

// Refresh identifies one field whose rendered value needs redisplay.
type Refresh struct {
	ID        string
	Field     string
	Timestamp time.Time
	Mode      Mode
}

type fieldKey struct {
	kind  string
	id    string
	field string
}

type entry struct {
	key        fieldKey
	mode       Mode
	timestamp  time.Time
	tier       int
	transition time.Time
}

// Option tunes a Scheduler.
type Option func(*Scheduler)

// WithInterval overrides the tick interval (default one second).
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithNow injects the clock used for tier placement and cadence checks.
func WithNow(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// Scheduler owns the tier buckets for both ladders and emits one batched
// refresh notification per resource kind per tick.
type Scheduler struct {
	log      logr.Logger
	now      func() time.Time
	interval time.Duration

	mu        sync.Mutex
	age       []map[fieldKey]*entry
	countdown []map[fieldKey]*entry
	byKey     map[fieldKey]*entry
	subs      map[string][]chan []Refresh
}

// NewScheduler builds an empty scheduler. Call Run to start ticking.
func NewScheduler(log logr.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		log:      log.WithName("agetrack"),
		now:      time.Now,
		interval: time.Second,
		byKey:    make(map[fieldKey]*entry),
		subs:     make(map[string][]chan []Refresh),
	}
	s.age = make([]map[fieldKey]*entry, len(ageLadder))
	for i := range s.age {
		s.age[i] = make(map[fieldKey]*entry)
	}
	s.countdown = make([]map[fieldKey]*entry, len(countdownLadder))
	for i := range s.countdown {
		s.countdown[i] = make(map[fieldKey]*entry)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Scheduler) buckets(mode Mode) []map[fieldKey]*entry {
	if mode == ModeCountdown {
		return s.countdown
	}
	return s.age
}

// Track registers a field for refresh scheduling and reports whether it is
// now tracked. Countdowns whose deadline has already passed are not tracked;
// re-tracking an existing (kind, id, field) replaces its timestamp and mode.
func (s *Scheduler) Track(kind, id, field string, timestamp time.Time, mode Mode) bool {
	if timestamp.IsZero() {
		return false
	}
	now := s.now()
	if mode == ModeCountdown && timestamp.Before(now) {
		return false
	}

	key := fieldKey{kind: kind, id: id, field: field}
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.byKey[key]; ok {
		delete(s.buckets(old.mode)[old.tier], key)
	}

	ladder := ladderFor(mode)
	var d time.Duration
	if mode == ModeCountdown {
		d = timestamp.Sub(now)
	} else {
		d = now.Sub(timestamp)
	}
	idx := tierIndex(ladder, d)
	e := &entry{
		key:        key,
		mode:       mode,
		timestamp:  timestamp,
		tier:       idx,
		transition: transitionInstant(mode, ladder, idx, timestamp),
	}
	s.buckets(mode)[idx][key] = e
	s.byKey[key] = e
	return true
}

// Untrack removes a field and reports whether it was tracked.
func (s *Scheduler) Untrack(kind, id, field string) bool {
	key := fieldKey{kind: kind, id: id, field: field}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byKey[key]
	if !ok {
		return false
	}
	delete(s.buckets(e.mode)[e.tier], key)
	delete(s.byKey, key)
	return true
}

// Subscribe returns a channel receiving one refresh batch per tick for the
// kind. Delivery is best effort: a consumer that stops draining loses batches
// rather than stalling the tick.
func (s *Scheduler) Subscribe(kind string) <-chan []Refresh {
	ch := make(chan []Refresh, 8)
	s.mu.Lock()
	s.subs[kind] = append(s.subs[kind], ch)
	s.mu.Unlock()
	return ch
}

// Unsubscribe detaches a channel previously returned by Subscribe.
func (s *Scheduler) Unsubscribe(kind string, ch <-chan []Refresh) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subs := s.subs[kind]
	for i, existing := range subs {
		if existing == ch {
			s.subs[kind] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Run ticks the scheduler until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.tick(s.now())
		}
	}
}

// tick runs the two-phase refresh pass: migrate every field whose transition
// instant has passed, then report whole tiers whose cadence boundary fired.
func (s *Scheduler) tick(now time.Time) {
	s.mu.Lock()

	changed := make(map[string]map[fieldKey]Refresh)
	mark := func(e *entry) {
		kindChanged, ok := changed[e.key.kind]
		if !ok {
			kindChanged = make(map[fieldKey]Refresh)
			changed[e.key.kind] = kindChanged
		}
		kindChanged[e.key] = Refresh{ID: e.key.id, Field: e.key.field, Timestamp: e.timestamp, Mode: e.mode}
	}

	for _, mode := range []Mode{ModeAge, ModeCountdown} {
		buckets := s.buckets(mode)
		ladder := ladderFor(mode)

		var due []*entry
		for _, bucket := range buckets {
			for _, e := range bucket {
				if !e.transition.IsZero() && !e.transition.After(now) {
					due = append(due, e)
				}
			}
		}
		for _, e := range due {
			delete(buckets[e.tier], e.key)
			mark(e)
			if mode == ModeCountdown && e.timestamp.Before(now) {
				// Deadline reached: one final repaint, then stop tracking.
				delete(s.byKey, e.key)
				continue
			}
			var d time.Duration
			if mode == ModeCountdown {
				d = e.timestamp.Sub(now)
			} else {
				d = now.Sub(e.timestamp)
			}
			e.tier = tierIndex(ladder, d)
			e.transition = transitionInstant(mode, ladder, e.tier, e.timestamp)
			buckets[e.tier][e.key] = e
		}

		for i, tier := range ladder {
			if !tier.Cadence.fired(now) {
				continue
			}
			for _, e := range buckets[i] {
				mark(e)
			}
		}
	}

	type delivery struct {
		ch    chan []Refresh
		batch []Refresh
	}
	var deliveries []delivery
	for kind, byField := range changed {
		subs := s.subs[kind]
		if len(subs) == 0 {
			continue
		}
		batch := make([]Refresh, 0, len(byField))
		for _, r := range byField {
			batch = append(batch, r)
		}
		sort.Slice(batch, func(i, j int) bool {
			if batch[i].ID != batch[j].ID {
				return batch[i].ID < batch[j].ID
			}
			return batch[i].Field < batch[j].Field
		})
		for _, ch := range subs {
			deliveries = append(deliveries, delivery{ch: ch, batch: batch})
		}
	}
	s.mu.Unlock()

	for _, d := range deliveries {
		select {
		case d.ch <- d.batch:
		default:
			s.log.V(1).Info("dropping refresh batch for slow consumer", "fields", len(d.batch))
		}
	}
}
