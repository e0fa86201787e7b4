package resources

import (
	"strings"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/example/kdash/internal/agetrack"
)

type persistentVolumeClaimTable struct{}

func (persistentVolumeClaimTable) Kind() string { return "persistentvolumeclaims" }

func (persistentVolumeClaimTable) GVR() schema.GroupVersionResource {
	return schema.GroupVersionResource{Version: "v1", Resource: "persistentvolumeclaims"}
}

func (persistentVolumeClaimTable) Namespaced() bool { return true }

func (persistentVolumeClaimTable) Columns() []ColumnSpec {
	return []ColumnSpec{
		{Title: "NAMESPACE"},
		{Title: "NAME"},
		{Title: "STATUS"},
		{Title: "VOLUME"},
		{Title: "CAPACITY"},
		{Title: "ACCESS MODES"},
		{Title: "STORAGECLASS"},
		{Title: "AGE", Mode: agetrack.ModeAge},
	}
}

func (persistentVolumeClaimTable) Row(obj *unstructured.Unstructured) Row {
	return Row{
		ID: rowID(obj),
		Cells: []Cell{
			{Text: obj.GetNamespace()},
			{Text: obj.GetName()},
			{Text: orDash(str(obj, "status", "phase"))},
			{Text: orDash(str(obj, "spec", "volumeName"))},
			{Text: orDash(str(obj, "status", "capacity", "storage"))},
			{Text: accessModes(obj)},
			{Text: orDash(str(obj, "spec", "storageClassName"))},
			ageCell(obj),
		},
	}
}

var accessModeShort = map[corev1.PersistentVolumeAccessMode]string{
	corev1.ReadWriteOnce:    "RWO",
	corev1.ReadOnlyMany:     "ROX",
	corev1.ReadWriteMany:    "RWX",
	corev1.ReadWriteOncePod: "RWOP",
}

func accessModes(obj *unstructured.Unstructured) string {
	var modes []string
	for _, raw := range slice(obj, "spec", "accessModes") {
		mode, ok := raw.(string)
		if !ok {
			continue
		}
		if short, ok := accessModeShort[corev1.PersistentVolumeAccessMode(mode)]; ok {
			mode = short
		}
		modes = append(modes, mode)
	}
	if len(modes) == 0 {
		return "-"
	}
	return strings.Join(modes, ",")
}
