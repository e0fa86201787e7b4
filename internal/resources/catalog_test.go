package resources

import (
	"reflect"
	"testing"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/example/kdash/internal/agetrack"
)

func TestCatalogCoversExpectedKinds(t *testing.T) {
	want := []string{
		"pods",
		"deployments",
		"daemonsets",
		"statefulsets",
		"services",
		"persistentvolumeclaims",
		"namespaces",
		"podmetrics",
	}
	if got := Kinds(); !reflect.DeepEqual(got, want) {
		t.Fatalf("catalog kinds = %v, want %v", got, want)
	}
}

func TestLookupFindsEveryKind(t *testing.T) {
	for _, kind := range Kinds() {
		table, ok := Lookup(kind)
		if !ok {
			t.Fatalf("Lookup(%q) missed a registered kind", kind)
		}
		if table.Kind() != kind {
			t.Fatalf("Lookup(%q) returned table for %q", kind, table.Kind())
		}
	}
	if _, ok := Lookup("gadgets"); ok {
		t.Fatalf("Lookup invented a table for an unknown kind")
	}
}

func TestRowsMatchColumnCount(t *testing.T) {
	for _, table := range Catalog() {
		metadata := map[string]any{"name": "thing"}
		if table.Namespaced() {
			metadata["namespace"] = "default"
		}
		obj := &unstructured.Unstructured{Object: map[string]any{"metadata": metadata}}

		columns := table.Columns()
		if len(columns) == 0 {
			t.Fatalf("%s has no columns", table.Kind())
		}
		row := table.Row(obj)
		if len(row.Cells) != len(columns) {
			t.Fatalf("%s row has %d cells for %d columns", table.Kind(), len(row.Cells), len(columns))
		}
		if row.ID == "" {
			t.Fatalf("%s row has no id", table.Kind())
		}
	}
}

func TestAgeColumnsCarryTimeMode(t *testing.T) {
	for _, table := range Catalog() {
		for _, column := range table.Columns() {
			if column.Title == "AGE" && column.Mode != agetrack.ModeAge {
				t.Fatalf("%s AGE column is not time tracked", table.Kind())
			}
		}
	}
}
