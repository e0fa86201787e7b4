package resources

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/example/kdash/internal/agetrack"
)

type namespaceTable struct{}

func (namespaceTable) Kind() string { return "namespaces" }

func (namespaceTable) GVR() schema.GroupVersionResource {
	return schema.GroupVersionResource{Version: "v1", Resource: "namespaces"}
}

func (namespaceTable) Namespaced() bool { return false }

func (namespaceTable) Columns() []ColumnSpec {
	return []ColumnSpec{
		{Title: "NAME"},
		{Title: "STATUS"},
		{Title: "AGE", Mode: agetrack.ModeAge},
	}
}

func (namespaceTable) Row(obj *unstructured.Unstructured) Row {
	return Row{
		ID: rowID(obj),
		Cells: []Cell{
			{Text: obj.GetName()},
			{Text: orDash(str(obj, "status", "phase"))},
			ageCell(obj),
		},
	}
}
