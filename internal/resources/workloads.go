// workloads.go renders the apps/v1 controller tables: deployments,
// daemonsets, and statefulsets.
package resources

import (
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/example/kdash/internal/agetrack"
)

type deploymentTable struct{}

func (deploymentTable) Kind() string { return "deployments" }

func (deploymentTable) GVR() schema.GroupVersionResource {
	return schema.GroupVersionResource{Group: "apps", Version: "v1", Resource: "deployments"}
}

func (deploymentTable) Namespaced() bool { return true }

func (deploymentTable) Columns() []ColumnSpec {
	return []ColumnSpec{
		{Title: "NAMESPACE"},
		{Title: "NAME"},
		{Title: "READY"},
		{Title: "UP-TO-DATE"},
		{Title: "AVAILABLE"},
		{Title: "AGE", Mode: agetrack.ModeAge},
	}
}

func (deploymentTable) Row(obj *unstructured.Unstructured) Row {
	desired := num(obj, "spec", "replicas")
	return Row{
		ID: rowID(obj),
		Cells: []Cell{
			{Text: obj.GetNamespace()},
			{Text: obj.GetName()},
			{Text: fraction(num(obj, "status", "readyReplicas"), desired)},
			{Text: fmt.Sprintf("%d", num(obj, "status", "updatedReplicas"))},
			{Text: fmt.Sprintf("%d", num(obj, "status", "availableReplicas"))},
			ageCell(obj),
		},
	}
}

type daemonSetTable struct{}

func (daemonSetTable) Kind() string { return "daemonsets" }

func (daemonSetTable) GVR() schema.GroupVersionResource {
	return schema.GroupVersionResource{Group: "apps", Version: "v1", Resource: "daemonsets"}
}

func (daemonSetTable) Namespaced() bool { return true }

func (daemonSetTable) Columns() []ColumnSpec {
	return []ColumnSpec{
		{Title: "NAMESPACE"},
		{Title: "NAME"},
		{Title: "DESIRED"},
		{Title: "CURRENT"},
		{Title: "READY"},
		{Title: "UP-TO-DATE"},
		{Title: "AVAILABLE"},
		{Title: "AGE", Mode: agetrack.ModeAge},
	}
}

func (daemonSetTable) Row(obj *unstructured.Unstructured) Row {
	return Row{
		ID: rowID(obj),
		Cells: []Cell{
			{Text: obj.GetNamespace()},
			{Text: obj.GetName()},
			{Text: fmt.Sprintf("%d", num(obj, "status", "desiredNumberScheduled"))},
			{Text: fmt.Sprintf("%d", num(obj, "status", "currentNumberScheduled"))},
			{Text: fmt.Sprintf("%d", num(obj, "status", "numberReady"))},
			{Text: fmt.Sprintf("%d", num(obj, "status", "updatedNumberScheduled"))},
			{Text: fmt.Sprintf("%d", num(obj, "status", "numberAvailable"))},
			ageCell(obj),
		},
	}
}

type statefulSetTable struct{}

func (statefulSetTable) Kind() string { return "statefulsets" }

func (statefulSetTable) GVR() schema.GroupVersionResource {
	return schema.GroupVersionResource{Group: "apps", Version: "v1", Resource: "statefulsets"}
}

func (statefulSetTable) Namespaced() bool { return true }

func (statefulSetTable) Columns() []ColumnSpec {
	return []ColumnSpec{
		{Title: "NAMESPACE"},
		{Title: "NAME"},
		{Title: "READY"},
		{Title: "AGE", Mode: agetrack.ModeAge},
	}
}

func (statefulSetTable) Row(obj *unstructured.Unstructured) Row {
	return Row{
		ID: rowID(obj),
		Cells: []Cell{
			{Text: obj.GetNamespace()},
			{Text: obj.GetName()},
			{Text: fraction(num(obj, "status", "readyReplicas"), num(obj, "spec", "replicas"))},
			ageCell(obj),
		},
	}
}
