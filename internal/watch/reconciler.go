package watch

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	apiwatch "k8s.io/apimachinery/pkg/watch"
)

// State is the observable phase of a reconciliation loop. The console footer
// uses it to show a "retrying" indicator when a scope cannot make progress.
type State int32

const (
	StateListing State = iota
	StateWatching
	StateBackoff
	StateRelisting
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateListing:
		return "listing"
	case StateWatching:
		return "watching"
	case StateBackoff:
		return "backoff"
	case StateRelisting:
		return "relisting"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// LoopOptions tunes one reconciliation loop. Zero values select defaults.
type LoopOptions struct {
	// EventTimeout is the per-event liveness guard: a watch stream that stays
	// silent this long is treated as dead and replaced via a fresh list.
	EventTimeout time.Duration

	// InitialBackoff and MaxBackoff bound the capped-exponential delay after
	// transport failures.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func (o LoopOptions) withDefaults() LoopOptions {
	if o.EventTimeout <= 0 {
		o.EventTimeout = time.Minute
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = 500 * time.Millisecond
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 15 * time.Second
	}
	return o
}

// Loop keeps one scope of the store synchronized with the cluster: list,
// watch, and on any break re-list, forever, until the context is cancelled.
// Every failure is absorbed and retried; cancellation is the only exit.
type Loop struct {
	log     logr.Logger
	gateway Gateway
	store   *Store
	scope   Scope
	opts    LoopOptions
	state   atomic.Int32
}

// NewLoop builds a loop for one scope.
func NewLoop(log logr.Logger, gateway Gateway, store *Store, scope Scope, opts LoopOptions) *Loop {
	return &Loop{
		log:     log.WithName("reconciler").WithValues("scope", scope.String()),
		gateway: gateway,
		store:   store,
		scope:   scope,
		opts:    opts.withDefaults(),
	}
}

// Scope returns the scope this loop owns.
func (l *Loop) Scope() Scope { return l.scope }

// State returns the loop's current phase.
func (l *Loop) State() State { return State(l.state.Load()) }

func (l *Loop) setState(s State) { l.state.Store(int32(s)) }

// Run drives the state machine until ctx is cancelled. It always returns nil:
// there is no permanently fatal condition for a reconciliation loop.
func (l *Loop) Run(ctx context.Context) error {
	defer l.setState(StateStopped)
	backoff := l.opts.InitialBackoff
	for {
		if ctx.Err() != nil {
			return nil
		}
		l.setState(StateListing)
		items, version, err := l.gateway.List(ctx, l.scope)
		if err != nil {
			if isContextErr(err) || ctx.Err() != nil {
				return nil
			}
			l.setState(StateBackoff)
			l.log.Error(err, "list failed; backing off", "delay", backoff.String())
			if !sleepCtx(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff, l.opts.MaxBackoff)
			continue
		}
		backoff = l.opts.InitialBackoff
		l.store.ReplaceList(l.scope.Kind, l.scope.Key(), items, version)
		l.log.V(1).Info("scope synchronized", "items", len(items), "resourceVersion", version)

		outcome, lastVersion, watchErr := l.watch(ctx, version)
		switch outcome {
		case watchCancelled:
			return nil
		case watchGone:
			// Expected steady state: the server aged our version out of its
			// change log. A fresh list establishes a new baseline.
			l.setState(StateRelisting)
			l.log.V(1).Info("watch version expired; relisting", "resourceVersion", lastVersion)
		case watchStale:
			l.setState(StateRelisting)
			l.log.V(1).Info("watch stream went quiet; relisting", "timeout", l.opts.EventTimeout.String())
		case watchEnded:
			l.setState(StateRelisting)
			l.log.V(1).Info("watch stream ended; relisting", "resourceVersion", lastVersion)
		case watchFailed:
			l.setState(StateBackoff)
			l.log.Error(watchErr, "watch failed; backing off", "delay", backoff.String())
			if !sleepCtx(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff, l.opts.MaxBackoff)
		}
	}
}

type watchOutcome int

const (
	watchEnded watchOutcome = iota
	watchStale
	watchGone
	watchFailed
	watchCancelled
)

// watch consumes one stream until it breaks, applying events to the store.
// The returned version is the last one observed locally (bookmarks included);
// it is informational only, since every break leads back through a list.
func (l *Loop) watch(ctx context.Context, fromVersion string) (watchOutcome, string, error) {
	stream, err := l.gateway.Watch(ctx, l.scope, fromVersion)
	if err != nil {
		if isContextErr(err) || ctx.Err() != nil {
			return watchCancelled, fromVersion, nil
		}
		if isGone(err) {
			return watchGone, fromVersion, nil
		}
		return watchFailed, fromVersion, err
	}
	defer stream.Stop()
	l.setState(StateWatching)

	version := fromVersion
	timeout := time.NewTimer(l.opts.EventTimeout)
	defer timeout.Stop()
	for {
		select {
		case <-ctx.Done():
			return watchCancelled, version, nil
		case <-timeout.C:
			return watchStale, version, nil
		case evt, ok := <-stream.ResultChan():
			if !ok {
				return watchEnded, version, nil
			}
			if !timeout.Stop() {
				select {
				case <-timeout.C:
				default:
				}
			}
			timeout.Reset(l.opts.EventTimeout)

			switch evt.Type {
			case apiwatch.Bookmark:
				if obj, ok := evt.Object.(*unstructured.Unstructured); ok {
					if rv := obj.GetResourceVersion(); rv != "" {
						version = rv
					}
				}
			case apiwatch.Error:
				statusErr := apierrors.FromObject(evt.Object)
				if isGone(statusErr) {
					return watchGone, version, nil
				}
				return watchFailed, version, statusErr
			case apiwatch.Added, apiwatch.Modified, apiwatch.Deleted:
				obj, ok := evt.Object.(*unstructured.Unstructured)
				if !ok {
					l.log.Info("dropping watch event with unexpected payload", "type", string(evt.Type))
					continue
				}
				applied := Event{Type: EventType(evt.Type), Object: obj}
				if rv, ok := l.store.UpdateFromEvent(l.scope.Kind, l.scope.Key(), applied); ok && rv != "" {
					version = rv
				}
			default:
				l.log.Info("dropping watch event with unknown type", "type", string(evt.Type))
			}
		}
	}
}

func isGone(err error) bool {
	return apierrors.IsGone(err) || apierrors.IsResourceExpired(err)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}

// sleepCtx waits for d unless ctx ends first; it reports whether the full
// delay elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
