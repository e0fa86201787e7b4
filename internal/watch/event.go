// Package watch is the resource synchronization engine: it mirrors cluster
// objects into an in-memory store via the list-watch protocol and fans out
// change notifications to subscribed consumers. One reconciliation loop runs
// per (kind, scope); the store is the only shared mutable state and every
// notification is delivered outside its lock.
package watch

import (
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	apiwatch "k8s.io/apimachinery/pkg/watch"
)

// Scope key values for the two non-namespace cache partitions.
const (
	ScopeAllNamespaces = "all-namespaces"
	ScopeClusterWide   = "cluster-scoped"
)

// Scope identifies the domain of one list/watch stream: a resource kind plus
// either a single namespace, every namespace, or the cluster-scoped partition.
type Scope struct {
	Kind          string
	Namespace     string
	ClusterScoped bool
}

// Key returns the cache partition the scope owns.
func (s Scope) Key() string {
	if s.ClusterScoped {
		return ScopeClusterWide
	}
	if s.Namespace == "" {
		return ScopeAllNamespaces
	}
	return s.Namespace
}

func (s Scope) String() string {
	return s.Kind + "/" + s.Key()
}

// Key identifies one stored object within a kind. Cluster-scoped objects have
// an empty namespace.
type Key struct {
	Namespace string
	Name      string
}

func (k Key) String() string {
	if k.Namespace == "" {
		return k.Name
	}
	return k.Namespace + "/" + k.Name
}

// EventType mirrors the change-stream classification of the cluster API.
type EventType string

const (
	Added    = EventType(apiwatch.Added)
	Modified = EventType(apiwatch.Modified)
	Deleted  = EventType(apiwatch.Deleted)
	Bookmark = EventType(apiwatch.Bookmark)
	Error    = EventType(apiwatch.Error)
)

// Event is one normalized change-stream entry as applied to the store.
type Event struct {
	Type   EventType
	Object *unstructured.Unstructured
}

// identity extracts the store key from an event, rejecting payloads without
// the fields every live object must carry.
func (e Event) identity() (Key, error) {
	if e.Object == nil {
		return Key{}, fmt.Errorf("%s event without an object", e.Type)
	}
	name := e.Object.GetName()
	if name == "" {
		return Key{}, fmt.Errorf("%s event object has no name", e.Type)
	}
	return Key{Namespace: e.Object.GetNamespace(), Name: name}, nil
}
