// pods.go renders the pod table: readiness, a kubectl-style status column
// that prefers container-level reasons over the bare phase, and restarts.
package resources

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/example/kdash/internal/agetrack"
)

type podTable struct{}

func (podTable) Kind() string { return "pods" }

func (podTable) GVR() schema.GroupVersionResource {
	return schema.GroupVersionResource{Version: "v1", Resource: "pods"}
}

func (podTable) Namespaced() bool { return true }

func (podTable) Columns() []ColumnSpec {
	return []ColumnSpec{
		{Title: "NAMESPACE"},
		{Title: "NAME"},
		{Title: "READY"},
		{Title: "STATUS"},
		{Title: "RESTARTS"},
		{Title: "AGE", Mode: agetrack.ModeAge},
	}
}

func (podTable) Row(obj *unstructured.Unstructured) Row {
	ready, total, restarts := containerCounts(obj)
	return Row{
		ID: rowID(obj),
		Cells: []Cell{
			{Text: obj.GetNamespace()},
			{Text: obj.GetName()},
			{Text: fraction(ready, total)},
			{Text: podStatus(obj)},
			{Text: fmt.Sprintf("%d", restarts)},
			ageCell(obj),
		},
	}
}

func containerCounts(obj *unstructured.Unstructured) (ready, total, restarts int64) {
	for _, raw := range slice(obj, "status", "containerStatuses") {
		status, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		total++
		if isReady, _ := status["ready"].(bool); isReady {
			ready++
		}
		if count, ok := status["restartCount"].(int64); ok {
			restarts += count
		}
	}
	return ready, total, restarts
}

// podStatus mirrors the usual CLI presentation: a pending deletion shows as
// Terminating, then a pod-level reason, then the most specific container
// reason, then the phase. Pods that already reached a terminal phase keep
// that status while they wait for deletion.
func podStatus(obj *unstructured.Unstructured) string {
	phase := str(obj, "status", "phase")
	if str(obj, "metadata", "deletionTimestamp") != "" && !terminalPodPhase(phase) {
		return "Terminating"
	}
	if reason := str(obj, "status", "reason"); reason != "" {
		return reason
	}
	for _, raw := range slice(obj, "status", "containerStatuses") {
		status, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		state, ok := status["state"].(map[string]any)
		if !ok {
			continue
		}
		if waiting, ok := state["waiting"].(map[string]any); ok {
			if reason, _ := waiting["reason"].(string); reason != "" {
				return reason
			}
		}
		if terminated, ok := state["terminated"].(map[string]any); ok {
			if reason, _ := terminated["reason"].(string); reason != "" {
				return reason
			}
		}
	}
	return orDash(phase)
}

func terminalPodPhase(phase string) bool {
	return phase == string(corev1.PodSucceeded) || phase == string(corev1.PodFailed)
}
