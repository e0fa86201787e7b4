package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
	"sigs.k8s.io/yaml"
)

// Revision is one persisted snapshot of an object, newest first in query
// results.
type Revision struct {
	ID              int64
	RecordedAt      time.Time
	Event           string
	ResourceVersion string
	Object          []byte
}

// Revisions returns up to limit snapshots of one key, newest first. Rows
// without a body (deletes, refresh markers) are skipped.
func (j *Journal) Revisions(ctx context.Context, kind, namespace, name string, limit int) ([]Revision, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := j.readDB.QueryContext(ctx,
		`SELECT id, recorded_at, event, resource_version, object
		 FROM events
		 WHERE kind = ? AND namespace = ? AND name = ? AND object IS NOT NULL
		 ORDER BY id DESC LIMIT ?`,
		kind, namespace, name, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query journal revisions")
	}
	defer rows.Close()

	var out []Revision
	for rows.Next() {
		var (
			rev      Revision
			recorded string
			object   string
		)
		if err := rows.Scan(&rev.ID, &recorded, &rev.Event, &rev.ResourceVersion, &object); err != nil {
			return nil, errors.Wrap(err, "scan journal revision")
		}
		if ts, err := time.Parse(time.RFC3339Nano, recorded); err == nil {
			rev.RecordedAt = ts
		}
		rev.Object = []byte(object)
		out = append(out, rev)
	}
	return out, errors.Wrap(rows.Err(), "iterate journal revisions")
}

// DiffLatest renders a unified diff between the two most recent snapshots of
// one key, as YAML. An empty string means the snapshots are identical.
func (j *Journal) DiffLatest(ctx context.Context, kind, namespace, name string) (string, error) {
	revs, err := j.Revisions(ctx, kind, namespace, name, 2)
	if err != nil {
		return "", err
	}
	target := name
	if namespace != "" {
		target = namespace + "/" + name
	}
	if len(revs) < 2 {
		return "", errors.Errorf("need two recorded revisions of %s %s, have %d", kind, target, len(revs))
	}

	// revs[0] is the newest.
	previous, err := yaml.JSONToYAML(revs[1].Object)
	if err != nil {
		return "", errors.Wrap(err, "render previous revision")
	}
	latest, err := yaml.JSONToYAML(revs[0].Object)
	if err != nil {
		return "", errors.Wrap(err, "render latest revision")
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(previous)),
		B:        difflib.SplitLines(string(latest)),
		FromFile: fmt.Sprintf("%s %s (rv %s)", kind, target, revs[1].ResourceVersion),
		ToFile:   fmt.Sprintf("%s %s (rv %s)", kind, target, revs[0].ResourceVersion),
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", errors.Wrap(err, "compute revision diff")
	}
	return text, nil
}
