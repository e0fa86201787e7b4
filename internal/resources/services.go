// services.go renders the service table including the joined port list and
// any load balancer ingress addresses.
package resources

import (
	"fmt"
	"strings"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/example/kdash/internal/agetrack"
)

type serviceTable struct{}

func (serviceTable) Kind() string { return "services" }

func (serviceTable) GVR() schema.GroupVersionResource {
	return schema.GroupVersionResource{Version: "v1", Resource: "services"}
}

func (serviceTable) Namespaced() bool { return true }

func (serviceTable) Columns() []ColumnSpec {
	return []ColumnSpec{
		{Title: "NAMESPACE"},
		{Title: "NAME"},
		{Title: "TYPE"},
		{Title: "CLUSTER-IP"},
		{Title: "EXTERNAL-IP"},
		{Title: "PORTS"},
		{Title: "AGE", Mode: agetrack.ModeAge},
	}
}

func (serviceTable) Row(obj *unstructured.Unstructured) Row {
	return Row{
		ID: rowID(obj),
		Cells: []Cell{
			{Text: obj.GetNamespace()},
			{Text: obj.GetName()},
			{Text: serviceType(obj)},
			{Text: orDash(str(obj, "spec", "clusterIP"))},
			{Text: externalAddresses(obj)},
			{Text: servicePorts(obj)},
			ageCell(obj),
		},
	}
}

// serviceType falls back to ClusterIP when the field is unset, which the API
// server defaults anyway.
func serviceType(obj *unstructured.Unstructured) string {
	if kind := str(obj, "spec", "type"); kind != "" {
		return kind
	}
	return string(corev1.ServiceTypeClusterIP)
}

func externalAddresses(obj *unstructured.Unstructured) string {
	var addrs []string
	for _, raw := range slice(obj, "status", "loadBalancer", "ingress") {
		ingress, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if ip, _ := ingress["ip"].(string); ip != "" {
			addrs = append(addrs, ip)
		} else if host, _ := ingress["hostname"].(string); host != "" {
			addrs = append(addrs, host)
		}
	}
	if len(addrs) == 0 {
		return "-"
	}
	return strings.Join(addrs, ",")
}

func servicePorts(obj *unstructured.Unstructured) string {
	var ports []string
	for _, raw := range slice(obj, "spec", "ports") {
		port, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		number, _ := port["port"].(int64)
		protocol, _ := port["protocol"].(string)
		if protocol == "" {
			protocol = string(corev1.ProtocolTCP)
		}
		if nodePort, ok := port["nodePort"].(int64); ok && nodePort != 0 {
			ports = append(ports, fmt.Sprintf("%d:%d/%s", number, nodePort, protocol))
			continue
		}
		ports = append(ports, fmt.Sprintf("%d/%s", number, protocol))
	}
	if len(ports) == 0 {
		return "-"
	}
	return strings.Join(ports, ",")
}
