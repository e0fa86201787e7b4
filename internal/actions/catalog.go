// Package actions declares the per-kind action catalog: the ordered menu of
// operations a consumer can offer for a selected row. Descriptors are built at
// compile time; running the commands is the consumer's business.
package actions

import (
	"sort"
	"strings"

	shellwords "github.com/mattn/go-shellwords"
)

// Spec describes one action. Command is an argv template where {namespace}
// and {name} expand per target through Expand.
type Spec struct {
	ID      string
	Label   string
	Command []string
	Confirm bool
}

// mustArgs validates a command template while the catalog is constructed, so
// a malformed entry fails at startup rather than when a user picks it.
func mustArgs(command string) []string {
	args, err := shellwords.Parse(command)
	if err != nil || len(args) == 0 {
		panic("actions: bad command template: " + command)
	}
	return args
}

var catalog = map[string][]Spec{
	"pods": {
		{ID: "logs", Label: "Tail logs", Command: mustArgs("kubectl logs -f -n {namespace} {name}")},
		{ID: "shell", Label: "Open shell", Command: mustArgs("kubectl exec -it -n {namespace} {name} -- /bin/sh")},
		{ID: "describe", Label: "Describe", Command: mustArgs("kubectl describe pods -n {namespace} {name}")},
		{ID: "edit", Label: "Edit", Command: mustArgs("kubectl edit pods -n {namespace} {name}")},
		{ID: "delete", Label: "Delete", Command: mustArgs("kubectl delete pods -n {namespace} {name}"), Confirm: true},
	},
	"deployments": {
		{ID: "describe", Label: "Describe", Command: mustArgs("kubectl describe deployments -n {namespace} {name}")},
		{ID: "restart", Label: "Rollout restart", Command: mustArgs("kubectl rollout restart deployments/{name} -n {namespace}"), Confirm: true},
		{ID: "edit", Label: "Edit", Command: mustArgs("kubectl edit deployments -n {namespace} {name}")},
		{ID: "delete", Label: "Delete", Command: mustArgs("kubectl delete deployments -n {namespace} {name}"), Confirm: true},
	},
	"daemonsets": {
		{ID: "describe", Label: "Describe", Command: mustArgs("kubectl describe daemonsets -n {namespace} {name}")},
		{ID: "restart", Label: "Rollout restart", Command: mustArgs("kubectl rollout restart daemonsets/{name} -n {namespace}"), Confirm: true},
		{ID: "edit", Label: "Edit", Command: mustArgs("kubectl edit daemonsets -n {namespace} {name}")},
		{ID: "delete", Label: "Delete", Command: mustArgs("kubectl delete daemonsets -n {namespace} {name}"), Confirm: true},
	},
	"statefulsets": {
		{ID: "describe", Label: "Describe", Command: mustArgs("kubectl describe statefulsets -n {namespace} {name}")},
		{ID: "restart", Label: "Rollout restart", Command: mustArgs("kubectl rollout restart statefulsets/{name} -n {namespace}"), Confirm: true},
		{ID: "edit", Label: "Edit", Command: mustArgs("kubectl edit statefulsets -n {namespace} {name}")},
		{ID: "delete", Label: "Delete", Command: mustArgs("kubectl delete statefulsets -n {namespace} {name}"), Confirm: true},
	},
	"services": {
		{ID: "describe", Label: "Describe", Command: mustArgs("kubectl describe services -n {namespace} {name}")},
		{ID: "edit", Label: "Edit", Command: mustArgs("kubectl edit services -n {namespace} {name}")},
		{ID: "delete", Label: "Delete", Command: mustArgs("kubectl delete services -n {namespace} {name}"), Confirm: true},
	},
	"persistentvolumeclaims": {
		{ID: "describe", Label: "Describe", Command: mustArgs("kubectl describe persistentvolumeclaims -n {namespace} {name}")},
		{ID: "delete", Label: "Delete", Command: mustArgs("kubectl delete persistentvolumeclaims -n {namespace} {name}"), Confirm: true},
	},
	"namespaces": {
		{ID: "describe", Label: "Describe", Command: mustArgs("kubectl describe namespaces {name}")},
		{ID: "delete", Label: "Delete", Command: mustArgs("kubectl delete namespaces {name}"), Confirm: true},
	},
}

// For returns the kind's actions in menu order, or nil for kinds without any.
// The result is a copy; callers may reorder or rewrite it freely.
func For(kind string) []Spec {
	specs := catalog[kind]
	if len(specs) == 0 {
		return nil
	}
	out := make([]Spec, len(specs))
	copy(out, specs)
	for i := range out {
		out[i].Command = append([]string(nil), out[i].Command...)
	}
	return out
}

// Kinds lists the kinds carrying at least one action, sorted.
func Kinds() []string {
	out := make([]string, 0, len(catalog))
	for kind := range catalog {
		out = append(out, kind)
	}
	sort.Strings(out)
	return out
}

// Expand substitutes the target coordinates into a command template.
func Expand(command []string, namespace, name string) []string {
	out := make([]string, len(command))
	for i, arg := range command {
		arg = strings.ReplaceAll(arg, "{namespace}", namespace)
		arg = strings.ReplaceAll(arg, "{name}", name)
		out[i] = arg
	}
	return out
}
