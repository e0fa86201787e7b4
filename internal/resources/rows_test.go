package resources

import (
	"testing"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

func TestServiceRow(t *testing.T) {
	table, _ := Lookup("services")
	obj := &unstructured.Unstructured{Object: map[string]any{
		"metadata": map[string]any{"namespace": "default", "name": "web"},
		"spec": map[string]any{
			"type":      "LoadBalancer",
			"clusterIP": "10.0.0.7",
			"ports": []any{
				map[string]any{"port": int64(80), "protocol": "TCP"},
				map[string]any{"port": int64(443), "protocol": "TCP", "nodePort": int64(30443)},
			},
		},
		"status": map[string]any{
			"loadBalancer": map[string]any{
				"ingress": []any{map[string]any{"ip": "203.0.113.9"}},
			},
		},
	}}

	row := table.Row(obj)
	if got := cellText(t, row, table, "PORTS"); got != "80/TCP,443:30443/TCP" {
		t.Fatalf("PORTS = %q", got)
	}
	if got := cellText(t, row, table, "EXTERNAL-IP"); got != "203.0.113.9" {
		t.Fatalf("EXTERNAL-IP = %q", got)
	}
	if got := cellText(t, row, table, "CLUSTER-IP"); got != "10.0.0.7" {
		t.Fatalf("CLUSTER-IP = %q", got)
	}
}

func TestServiceRowWithoutPortsOrIngress(t *testing.T) {
	table, _ := Lookup("services")
	obj := &unstructured.Unstructured{Object: map[string]any{
		"metadata": map[string]any{"namespace": "default", "name": "headless"},
		"spec":     map[string]any{"type": "ClusterIP", "clusterIP": "None"},
	}}

	row := table.Row(obj)
	if got := cellText(t, row, table, "PORTS"); got != "-" {
		t.Fatalf("PORTS = %q, want dash", got)
	}
	if got := cellText(t, row, table, "EXTERNAL-IP"); got != "-" {
		t.Fatalf("EXTERNAL-IP = %q, want dash", got)
	}
}

func TestDeploymentRowReadyFraction(t *testing.T) {
	table, _ := Lookup("deployments")
	obj := &unstructured.Unstructured{Object: map[string]any{
		"metadata": map[string]any{"namespace": "default", "name": "api"},
		"spec":     map[string]any{"replicas": int64(5)},
		"status": map[string]any{
			"readyReplicas":     int64(3),
			"updatedReplicas":   int64(4),
			"availableReplicas": int64(3),
		},
	}}

	row := table.Row(obj)
	if got := cellText(t, row, table, "READY"); got != "3/5" {
		t.Fatalf("READY = %q, want %q", got, "3/5")
	}
	if got := cellText(t, row, table, "UP-TO-DATE"); got != "4" {
		t.Fatalf("UP-TO-DATE = %q, want %q", got, "4")
	}
}

func TestPersistentVolumeClaimRow(t *testing.T) {
	table, _ := Lookup("persistentvolumeclaims")
	obj := &unstructured.Unstructured{Object: map[string]any{
		"metadata": map[string]any{"namespace": "default", "name": "data"},
		"spec": map[string]any{
			"volumeName":       "pv-042",
			"storageClassName": "ssd",
			"accessModes":      []any{"ReadWriteOnce", "ReadOnlyMany"},
		},
		"status": map[string]any{
			"phase":    "Bound",
			"capacity": map[string]any{"storage": "10Gi"},
		},
	}}

	row := table.Row(obj)
	if got := cellText(t, row, table, "ACCESS MODES"); got != "RWO,ROX" {
		t.Fatalf("ACCESS MODES = %q, want %q", got, "RWO,ROX")
	}
	if got := cellText(t, row, table, "CAPACITY"); got != "10Gi" {
		t.Fatalf("CAPACITY = %q, want %q", got, "10Gi")
	}
	if got := cellText(t, row, table, "STATUS"); got != "Bound" {
		t.Fatalf("STATUS = %q, want %q", got, "Bound")
	}
}

func TestPodMetricsRowSumsContainerUsage(t *testing.T) {
	table, _ := Lookup("podmetrics")
	obj := &unstructured.Unstructured{Object: map[string]any{
		"metadata": map[string]any{"namespace": "default", "name": "web-0"},
		"containers": []any{
			map[string]any{"name": "app", "usage": map[string]any{"cpu": "250m", "memory": "128Mi"}},
			map[string]any{"name": "sidecar", "usage": map[string]any{"cpu": "50m", "memory": "64Mi"}},
		},
	}}

	row := table.Row(obj)
	if got := cellText(t, row, table, "CPU"); got != "300m" {
		t.Fatalf("CPU = %q, want %q", got, "300m")
	}
	if got := cellText(t, row, table, "MEMORY"); got != "192Mi" {
		t.Fatalf("MEMORY = %q, want %q", got, "192Mi")
	}
}

func TestDaemonSetRowCounts(t *testing.T) {
	table, _ := Lookup("daemonsets")
	obj := &unstructured.Unstructured{Object: map[string]any{
		"metadata": map[string]any{"namespace": "kube-system", "name": "proxy"},
		"status": map[string]any{
			"desiredNumberScheduled": int64(3),
			"currentNumberScheduled": int64(3),
			"numberReady":            int64(2),
			"updatedNumberScheduled": int64(3),
			"numberAvailable":        int64(2),
		},
	}}

	row := table.Row(obj)
	if got := cellText(t, row, table, "DESIRED"); got != "3" {
		t.Fatalf("DESIRED = %q, want %q", got, "3")
	}
	if got := cellText(t, row, table, "READY"); got != "2" {
		t.Fatalf("READY = %q, want %q", got, "2")
	}
}
