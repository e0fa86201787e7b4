// podmetrics.go renders the synthetic pod metrics table. Rows sum container
// usage into whole-pod CPU (millicores) and memory (binary SI) figures the
// way 'kubectl top pod' presents them.
package resources

import (
	"fmt"

	"k8s.io/apimachinery/pkg/api/resource"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

type podMetricsTable struct{}

func (podMetricsTable) Kind() string { return "podmetrics" }

func (podMetricsTable) GVR() schema.GroupVersionResource {
	return schema.GroupVersionResource{Group: "metrics.k8s.io", Version: "v1beta1", Resource: "pods"}
}

func (podMetricsTable) Namespaced() bool { return true }

func (podMetricsTable) Columns() []ColumnSpec {
	return []ColumnSpec{
		{Title: "NAMESPACE"},
		{Title: "NAME"},
		{Title: "CPU"},
		{Title: "MEMORY"},
	}
}

func (podMetricsTable) Row(obj *unstructured.Unstructured) Row {
	cpu, memory := usageTotals(obj)
	return Row{
		ID: rowID(obj),
		Cells: []Cell{
			{Text: obj.GetNamespace()},
			{Text: obj.GetName()},
			{Text: fmt.Sprintf("%dm", cpu.MilliValue())},
			{Text: resource.NewQuantity(memory.Value(), resource.BinarySI).String()},
		},
	}
}

func usageTotals(obj *unstructured.Unstructured) (cpu, memory resource.Quantity) {
	for _, raw := range slice(obj, "containers") {
		container, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		usage, ok := container["usage"].(map[string]any)
		if !ok {
			continue
		}
		if text, _ := usage["cpu"].(string); text != "" {
			if q, err := resource.ParseQuantity(text); err == nil {
				cpu.Add(q)
			}
		}
		if text, _ := usage["memory"].(string); text != "" {
			if q, err := resource.ParseQuantity(text); err == nil {
				memory.Add(q)
			}
		}
	}
	return cpu, memory
}
