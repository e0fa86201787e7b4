// fields.go holds the shared accessors row builders use to pull display
// values out of unstructured documents.
package resources

import (
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

func str(obj *unstructured.Unstructured, path ...string) string {
	value, _, _ := unstructured.NestedString(obj.Object, path...)
	return value
}

func num(obj *unstructured.Unstructured, path ...string) int64 {
	value, _, _ := unstructured.NestedInt64(obj.Object, path...)
	return value
}

func slice(obj *unstructured.Unstructured, path ...string) []any {
	value, _, _ := unstructured.NestedSlice(obj.Object, path...)
	return value
}

func rowID(obj *unstructured.Unstructured) string {
	if ns := obj.GetNamespace(); ns != "" {
		return ns + "/" + obj.GetName()
	}
	return obj.GetName()
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}

func fraction(ready, total int64) string {
	return fmt.Sprintf("%d/%d", ready, total)
}

// ageCell builds the live creation-age cell. Objects without a creation
// timestamp render as a dash and are never tracked.
func ageCell(obj *unstructured.Unstructured) Cell {
	raw := str(obj, "metadata", "creationTimestamp")
	if raw == "" {
		return Cell{Text: "-"}
	}
	created, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return Cell{Text: "-"}
	}
	return Cell{Stamp: created}
}
