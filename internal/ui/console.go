// Package ui renders the dashboard: one in-place updating terminal table per
// watched kind, repainted as the synchronization engine reports changes.
package ui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/example/kdash/internal/agetrack"
	"github.com/example/kdash/internal/kube"
	"github.com/example/kdash/internal/resources"
	"github.com/example/kdash/internal/watch"
)

var kindTitleCaser = cases.Title(language.Und, cases.NoLower)

// Engine is the slice of the synchronization manager the console consumes.
type Engine interface {
	SubscribeAndList(kind, namespace string, l watch.Listener) ([]*unstructured.Unstructured, string)
	Unsubscribe(kind string, l watch.Listener)
	CurrentList(kind, namespace string) ([]*unstructured.Unstructured, string)
	TrackField(kind, id, field string, timestamp time.Time, mode agetrack.Mode) bool
	UntrackField(kind, id, field string) bool
	Refreshes(kind string) <-chan []agetrack.Refresh
	StopRefreshes(kind string, ch <-chan []agetrack.Refresh)
	LoopStates() []watch.LoopStatus
}

type ConsoleOptions struct {
	Width int
	Tick  time.Duration
	Now   func() time.Time
}

// Console is the reference consumer of the engine boundary. Change
// notifications only mark a kind dirty; the paint loop re-reads the current
// list and rewrites the affected sections in place.
type Console struct {
	out       io.Writer
	log       logr.Logger
	engine    Engine
	namespace string
	stats     *kube.APIRequestStats
	opts      ConsoleOptions

	mu         sync.Mutex
	order      []string
	kinds      map[string]*kindState
	sections   []consoleSection
	totalLines int
}

type kindState struct {
	table   resources.Table
	dirty   bool
	lines   []string
	tracked map[string]map[string]time.Time
}

func NewConsole(out io.Writer, log logr.Logger, engine Engine, tables []resources.Table, namespace string, stats *kube.APIRequestStats, opts ConsoleOptions) *Console {
	if opts.Tick <= 0 {
		opts.Tick = 2 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Width <= 0 {
		opts.Width = consoleWidth(out, 120)
	}
	c := &Console{
		out:       out,
		log:       log.WithName("console"),
		engine:    engine,
		namespace: namespace,
		stats:     stats,
		opts:      opts,
		kinds:     make(map[string]*kindState, len(tables)),
	}
	for _, table := range tables {
		c.order = append(c.order, table.Kind())
		c.kinds[table.Kind()] = &kindState{table: table, tracked: make(map[string]map[string]time.Time)}
	}
	return c
}

var _ watch.Listener = (*Console)(nil)

func (c *Console) OnAdded(kind string, _ watch.Key)    { c.markDirty(kind) }
func (c *Console) OnModified(kind string, _ watch.Key) { c.markDirty(kind) }
func (c *Console) OnDeleted(kind string, _ watch.Key)  { c.markDirty(kind) }
func (c *Console) OnFullRefresh(kind string, _ string) { c.markDirty(kind) }

func (c *Console) markDirty(kind string) {
	c.mu.Lock()
	if st := c.kinds[kind]; st != nil {
		st.dirty = true
	}
	c.mu.Unlock()
}

// Run subscribes every kind, paints the initial frame, and repaints dirty
// sections once per tick until ctx is cancelled.
func (c *Console) Run(ctx context.Context) error {
	now := c.opts.Now()
	for _, kind := range c.order {
		st := c.kinds[kind]
		items, _ := c.engine.SubscribeAndList(kind, c.listNamespace(st.table), c)
		c.mu.Lock()
		c.applyItemsLocked(kind, st, items, now)
		c.mu.Unlock()
	}
	for _, kind := range c.order {
		ch := c.engine.Refreshes(kind)
		if ch == nil {
			continue
		}
		go c.forwardRefreshes(ctx, kind, ch)
	}
	c.paint()

	ticker := time.NewTicker(c.opts.Tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return nil
		case <-ticker.C:
			c.paint()
		}
	}
}

func (c *Console) forwardRefreshes(ctx context.Context, kind string, ch <-chan []agetrack.Refresh) {
	defer c.engine.StopRefreshes(kind, ch)
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			c.markDirty(kind)
		}
	}
}

func (c *Console) shutdown() {
	for _, kind := range c.order {
		c.engine.Unsubscribe(kind, c)
	}
	c.mu.Lock()
	if c.totalLines > 0 {
		fmt.Fprint(c.out, "\x1b[K\n")
		c.totalLines++
	}
	c.mu.Unlock()
}

func (c *Console) listNamespace(table resources.Table) string {
	if !table.Namespaced() {
		return ""
	}
	return c.namespace
}

func (c *Console) paint() {
	now := c.opts.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, kind := range c.order {
		st := c.kinds[kind]
		if st.dirty || st.lines == nil {
			items, _ := c.engine.CurrentList(kind, c.listNamespace(st.table))
			c.applyItemsLocked(kind, st, items, now)
		}
	}
	sections := make([]consoleSection, 0, len(c.order)+1)
	for _, kind := range c.order {
		sections = append(sections, consoleSection{name: kind, lines: c.kinds[kind].lines})
	}
	sections = append(sections, consoleSection{name: "footer", lines: c.footerLines(now)})
	c.applyDiffLocked(sections)
}

func (c *Console) applyItemsLocked(kind string, st *kindState, items []*unstructured.Unstructured, now time.Time) {
	rows := make([]resources.Row, 0, len(items))
	for _, obj := range items {
		rows = append(rows, st.table.Row(obj))
	}
	c.syncTrackingLocked(kind, st, rows)

	lines := make([]string, 0, len(rows)+3)
	lines = append(lines, fmt.Sprintf("%s (%d)", kindTitleCaser.String(kind), len(rows)))
	lines = append(lines, renderKindTable(st.table, rows, c.opts.Width, now)...)
	lines = append(lines, "")
	st.lines = lines
	st.dirty = false
}

// syncTrackingLocked reconciles the scheduler registrations against the new
// rows: fields gain tracking when they appear or their timestamp moves, and
// lose it when the row disappears.
func (c *Console) syncTrackingLocked(kind string, st *kindState, rows []resources.Row) {
	cols := st.table.Columns()
	want := make(map[string]map[string]time.Time, len(rows))
	for _, row := range rows {
		for i, cell := range row.Cells {
			if cell.Stamp.IsZero() || i >= len(cols) {
				continue
			}
			field := cols[i].Title
			if want[row.ID] == nil {
				want[row.ID] = make(map[string]time.Time)
			}
			want[row.ID][field] = cell.Stamp
			prev, tracked := st.tracked[row.ID][field]
			if !tracked || !prev.Equal(cell.Stamp) {
				c.engine.TrackField(kind, row.ID, field, cell.Stamp, cols[i].Mode)
			}
		}
	}
	for id, fields := range st.tracked {
		for field := range fields {
			if _, keep := want[id][field]; !keep {
				c.engine.UntrackField(kind, id, field)
			}
		}
	}
	st.tracked = want
}

func (c *Console) footerLines(now time.Time) []string {
	states := c.engine.LoopStates()
	watching := 0
	var stragglers []string
	for _, s := range states {
		if s.State == watch.StateWatching {
			watching++
			continue
		}
		stragglers = append(stragglers, fmt.Sprintf("%s=%s", s.Scope, s.State))
	}
	sync := fmt.Sprintf("sync %d/%d watching", watching, len(states))
	if len(stragglers) > 0 {
		sync += " (" + strings.Join(stragglers, ", ") + ")"
	}
	parts := []string{sync}
	if c.stats != nil {
		parts = append(parts, "api: "+c.stats.Snapshot().String())
	}
	parts = append(parts, now.Format("15:04:05"))
	return []string{strings.Join(parts, " • ")}
}

type consoleSection struct {
	name  string
	lines []string
}

func (c *Console) applyDiffLocked(newSections []consoleSection) {
	newTotal := countLines(newSections)
	if len(c.sections) == 0 {
		c.writeSections(newSections)
		c.sections = cloneSections(newSections)
		c.totalLines = newTotal
		return
	}
	idx := diffIndex(c.sections, newSections)
	if idx == -1 && newTotal == c.totalLines {
		return
	}
	if idx == -1 {
		idx = len(newSections)
	}
	startLine := sumLines(c.sections[:idx])
	linesBelow := c.totalLines - startLine
	if linesBelow > 0 {
		fmt.Fprintf(c.out, "\x1b[%dF", linesBelow)
	}
	fmt.Fprint(c.out, "\x1b[J")
	c.writeSections(newSections[idx:])
	c.sections = cloneSections(newSections)
	c.totalLines = newTotal
}

func (c *Console) writeSections(sections []consoleSection) {
	for _, section := range sections {
		for _, line := range section.lines {
			fmt.Fprintf(c.out, "%s\x1b[K\n", line)
		}
	}
	if len(sections) == 0 {
		fmt.Fprint(c.out, "\x1b[K\n")
	}
}

func cloneSections(sections []consoleSection) []consoleSection {
	if len(sections) == 0 {
		return nil
	}
	out := make([]consoleSection, len(sections))
	for i, sec := range sections {
		lines := make([]string, len(sec.lines))
		copy(lines, sec.lines)
		out[i] = consoleSection{name: sec.name, lines: lines}
	}
	return out
}

func countLines(sections []consoleSection) int {
	total := 0
	for _, sec := range sections {
		total += len(sec.lines)
	}
	return total
}

func sumLines(sections []consoleSection) int {
	total := 0
	for _, sec := range sections {
		total += len(sec.lines)
	}
	return total
}

func diffIndex(oldSections, newSections []consoleSection) int {
	max := len(oldSections)
	if len(newSections) < max {
		max = len(newSections)
	}
	for i := 0; i < max; i++ {
		if !equalLines(oldSections[i].lines, newSections[i].lines) {
			return i
		}
	}
	if len(oldSections) != len(newSections) {
		return max
	}
	return -1
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
