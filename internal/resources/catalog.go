// Package resources declares the table catalog: one descriptor per watched
// kind carrying its API coordinates, column layout, and row builder. The
// catalog is a compile-time table, so adding a kind means adding a descriptor
// here and nothing else.
package resources

import (
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/example/kdash/internal/agetrack"
)

// ColumnSpec describes one table column. A non-empty Mode marks a live time
// column whose cells carry a timestamp and are kept fresh by the refresh
// scheduler rather than rendered once.
type ColumnSpec struct {
	Title string
	Mode  agetrack.Mode
}

// Cell is one rendered table value. Live time cells set Stamp and leave Text
// empty; the console formats and re-formats them as the clock moves.
type Cell struct {
	Text  string
	Stamp time.Time
}

// Row is one object rendered into cells, addressed by its store key.
type Row struct {
	ID    string
	Cells []Cell
}

// Table describes one watched kind end to end.
type Table interface {
	Kind() string
	GVR() schema.GroupVersionResource
	Namespaced() bool
	Columns() []ColumnSpec
	Row(obj *unstructured.Unstructured) Row
}

var catalog = []Table{
	podTable{},
	deploymentTable{},
	daemonSetTable{},
	statefulSetTable{},
	serviceTable{},
	persistentVolumeClaimTable{},
	namespaceTable{},
	podMetricsTable{},
}

// Catalog returns every table in display order.
func Catalog() []Table {
	out := make([]Table, len(catalog))
	copy(out, catalog)
	return out
}

// Kinds returns the catalog's kind names in display order.
func Kinds() []string {
	out := make([]string, 0, len(catalog))
	for _, table := range catalog {
		out = append(out, table.Kind())
	}
	return out
}

// Lookup finds a table by kind name.
func Lookup(kind string) (Table, bool) {
	for _, table := range catalog {
		if table.Kind() == kind {
			return table, true
		}
	}
	return nil, false
}
