// Package journal persists applied watch events into a SQLite file so object
// history survives the process: every add/modify carries a JSON snapshot, and
// the read side can reconstruct and diff recent revisions of any key.
//
// Writes flow through a bounded queue into a single writer goroutine that
// commits in batched transactions. When the queue is full the entry is
// dropped and counted; the synchronization engine is never blocked.
package journal

import (
	"context"
	"database/sql"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// Event classification for journal rows.
const (
	EventAdded    = "added"
	EventModified = "modified"
	EventDeleted  = "deleted"
	EventRefresh  = "refresh"
)

var initStmts = []string{
	`PRAGMA journal_mode=WAL;`,
	`PRAGMA synchronous=NORMAL;`,
	`PRAGMA busy_timeout=5000;`,
	`CREATE TABLE IF NOT EXISTS events (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  recorded_at TEXT NOT NULL,
  kind TEXT NOT NULL,
  event TEXT NOT NULL,
  namespace TEXT NOT NULL DEFAULT '',
  name TEXT NOT NULL DEFAULT '',
  resource_version TEXT NOT NULL DEFAULT '',
  object TEXT
);`,
	`CREATE INDEX IF NOT EXISTS idx_events_target ON events(kind, namespace, name, id DESC);`,
}

const insertStmt = `INSERT INTO events(recorded_at, kind, event, namespace, name, resource_version, object) VALUES(?, ?, ?, ?, ?, ?, ?)`

// Entry is one journal row. Object holds the JSON snapshot for adds and
// modifies and stays nil for deletes and refreshes.
type Entry struct {
	RecordedAt      time.Time
	Kind            string
	Event           string
	Namespace       string
	Name            string
	ResourceVersion string
	Object          []byte
}

// Options tunes the journal. Zero values select defaults.
type Options struct {
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration

	// MaxRows caps the table; older rows are pruned. Zero disables pruning.
	MaxRows int
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 1024
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 64
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = 250 * time.Millisecond
	}
	return o
}

// Journal owns one SQLite file: an exclusive write connection fed by the
// writer goroutine, and a read-only connection so queries never contend with
// the writer.
type Journal struct {
	path    string
	writeDB *sql.DB
	readDB  *sql.DB
	opts    Options

	queue     chan Entry
	wg        sync.WaitGroup
	writeMu   sync.Mutex
	writeErr  error
	dropped   uint64
	lastPrune time.Time

	mu     sync.Mutex
	closed bool
}

// Open creates or reopens the journal at path and starts the writer.
func Open(path string, opts Options) (*Journal, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("journal path cannot be empty")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "resolve journal path")
	}
	if dir := filepath.Dir(absPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "create journal directory")
		}
	}

	writeDB, err := sql.Open("sqlite", absPath)
	if err != nil {
		return nil, errors.Wrap(err, "open journal sqlite")
	}
	writeDB.SetMaxOpenConns(1)
	writeDB.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, stmt := range initStmts {
		if _, err := writeDB.ExecContext(ctx, stmt); err != nil {
			_ = writeDB.Close()
			return nil, errors.Wrap(err, "init journal schema")
		}
	}

	// Read-only connection so history queries don't block the writer.
	u := url.URL{Scheme: "file", Path: absPath}
	q := u.Query()
	q.Set("mode", "ro")
	q.Set("_busy_timeout", "5000")
	u.RawQuery = q.Encode()
	readDB, err := sql.Open("sqlite", u.String())
	if err != nil {
		_ = writeDB.Close()
		return nil, errors.Wrap(err, "open journal sqlite (ro)")
	}
	readDB.SetMaxOpenConns(1)
	readDB.SetMaxIdleConns(1)
	if err := readDB.PingContext(ctx); err != nil {
		_ = readDB.Close()
		_ = writeDB.Close()
		return nil, errors.Wrap(err, "ping journal sqlite")
	}

	o := opts.withDefaults()
	j := &Journal{
		path:    absPath,
		writeDB: writeDB,
		readDB:  readDB,
		opts:    o,
		queue:   make(chan Entry, o.QueueSize),
	}
	j.wg.Add(1)
	go j.writerLoop()
	return j, nil
}

// Path returns the journal file location.
func (j *Journal) Path() string { return j.path }

// Append queues one entry. It never blocks: a full queue drops the entry and
// returns an error the caller may log and forget.
func (j *Journal) Append(e Entry) error {
	if j == nil {
		return nil
	}
	if err := j.firstWriteErr(); err != nil {
		return err
	}
	if e.Kind == "" || e.Event == "" {
		return errors.New("journal entry needs kind and event")
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now()
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return errors.New("journal is closed")
	}
	select {
	case j.queue <- e:
		return nil
	default:
		atomic.AddUint64(&j.dropped, 1)
		return errors.New("journal queue is full")
	}
}

// Dropped reports how many entries were discarded on a full queue.
func (j *Journal) Dropped() uint64 { return atomic.LoadUint64(&j.dropped) }

// Close drains the queue, flushes, prunes, and releases both connections.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	close(j.queue)
	j.mu.Unlock()

	j.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _ = j.writeDB.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE);`)

	writeErr := j.firstWriteErr()
	closeErr := j.writeDB.Close()
	_ = j.readDB.Close()
	if writeErr != nil {
		return writeErr
	}
	return closeErr
}

func (j *Journal) firstWriteErr() error {
	j.writeMu.Lock()
	defer j.writeMu.Unlock()
	return j.writeErr
}

func (j *Journal) setWriteErr(err error) {
	j.writeMu.Lock()
	if j.writeErr == nil {
		j.writeErr = err
	}
	j.writeMu.Unlock()
}

func (j *Journal) writerLoop() {
	defer j.wg.Done()

	batch := make([]Entry, 0, j.opts.BatchSize)
	flush := func() bool {
		if len(batch) == 0 || j.firstWriteErr() != nil {
			batch = batch[:0]
			return false
		}
		ctx := context.Background()
		tx, err := j.writeDB.BeginTx(ctx, nil)
		if err != nil {
			j.setWriteErr(errors.Wrap(err, "begin journal batch"))
			batch = batch[:0]
			return true
		}
		for _, e := range batch {
			var object any
			if len(e.Object) > 0 {
				object = string(e.Object)
			}
			if _, err := tx.ExecContext(ctx, insertStmt,
				e.RecordedAt.UTC().Format(time.RFC3339Nano),
				e.Kind, e.Event, e.Namespace, e.Name, e.ResourceVersion, object,
			); err != nil {
				_ = tx.Rollback()
				j.setWriteErr(errors.Wrap(err, "insert journal entry"))
				batch = batch[:0]
				return true
			}
		}
		if err := tx.Commit(); err != nil {
			j.setWriteErr(errors.Wrap(err, "commit journal batch"))
		}
		batch = batch[:0]
		return true
	}

	ticker := time.NewTicker(j.opts.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-j.queue:
			if !ok {
				flush()
				j.maybePrune(true)
				return
			}
			batch = append(batch, e)
			if len(batch) >= cap(batch) {
				flush()
			}
		case <-ticker.C:
			if flush() {
				j.maybePrune(false)
			}
		}
	}
}

// maybePrune trims the table down to MaxRows, at most every 30 seconds while
// running and always on shutdown.
func (j *Journal) maybePrune(force bool) {
	if j.opts.MaxRows <= 0 || j.firstWriteErr() != nil {
		return
	}
	now := time.Now()
	if !force && !j.lastPrune.IsZero() && now.Sub(j.lastPrune) < 30*time.Second {
		return
	}
	j.lastPrune = now

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var cutoff int64
	err := j.writeDB.QueryRowContext(ctx,
		`SELECT id FROM events ORDER BY id DESC LIMIT 1 OFFSET ?`, j.opts.MaxRows).Scan(&cutoff)
	if err == sql.ErrNoRows {
		return
	}
	if err != nil {
		j.setWriteErr(errors.Wrap(err, "find journal prune cutoff"))
		return
	}
	if _, err := j.writeDB.ExecContext(ctx, `DELETE FROM events WHERE id <= ?`, cutoff); err != nil {
		j.setWriteErr(errors.Wrap(err, "prune journal"))
	}
}
