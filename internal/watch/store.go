package watch

import (
	"sort"
	"strconv"
	"sync"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Store is the authoritative in-memory mirror of cluster objects. It maps
// kind -> partition -> name to the latest known object body and tracks the
// last accepted resource version per (kind, scope).
//
// Locking discipline: every mutation and multi-key read runs under the
// exclusive lock; no I/O happens under it, and notification fan-out always
// happens after it is released so listeners may call back into the store.
type Store struct {
	log      logr.Logger
	registry *Registry

	mu       sync.Mutex
	objects  map[string]map[string]map[string]*unstructured.Unstructured
	versions map[string]map[string]string
	baseline map[string]map[string]string
}

// NewStore builds an empty store that reports changes through registry.
func NewStore(log logr.Logger, registry *Registry) *Store {
	return &Store{
		log:      log.WithName("store"),
		registry: registry,
		objects:  make(map[string]map[string]map[string]*unstructured.Unstructured),
		versions: make(map[string]map[string]string),
		baseline: make(map[string]map[string]string),
	}
}

// partitionFor buckets cluster-scoped objects separately from namespaced ones.
func partitionFor(obj *unstructured.Unstructured) string {
	if ns := obj.GetNamespace(); ns != "" {
		return ns
	}
	return ScopeClusterWide
}

// ReplaceList atomically swaps out the subset of the cache owned by scopeKey
// with items, records resourceVersion for the scope, and emits one full
// refresh notification. Used after the initial list and after every re-list.
func (s *Store) ReplaceList(kind, scopeKey string, items []*unstructured.Unstructured, resourceVersion string) {
	fresh := make(map[string]map[string]*unstructured.Unstructured)
	skipped := 0
	for _, item := range items {
		if item == nil || item.GetName() == "" {
			skipped++
			continue
		}
		part := partitionFor(item)
		if scopeKey != ScopeAllNamespaces && scopeKey != ScopeClusterWide && part != scopeKey {
			// A single-namespace scope never owns objects from elsewhere.
			skipped++
			continue
		}
		bucket, ok := fresh[part]
		if !ok {
			bucket = make(map[string]*unstructured.Unstructured)
			fresh[part] = bucket
		}
		bucket[item.GetName()] = item.DeepCopy()
	}

	s.mu.Lock()
	switch scopeKey {
	case ScopeAllNamespaces:
		s.objects[kind] = fresh
	default:
		// One partition only (a namespace, or the cluster-scoped bucket).
		kindObjects, ok := s.objects[kind]
		if !ok {
			kindObjects = make(map[string]map[string]*unstructured.Unstructured)
			s.objects[kind] = kindObjects
		}
		bucket := fresh[scopeKey]
		if bucket == nil {
			bucket = make(map[string]*unstructured.Unstructured)
		}
		kindObjects[scopeKey] = bucket
	}
	// A re-list may legitimately land below versions advanced by interim
	// watch events, but never below the previous full-refresh baseline.
	effective := resourceVersion
	if prev := s.baseline[kind][scopeKey]; prev != "" && olderThan(resourceVersion, prev) {
		effective = prev
	}
	versions, ok := s.versions[kind]
	if !ok {
		versions = make(map[string]string)
		s.versions[kind] = versions
	}
	versions[scopeKey] = effective
	baselines, ok := s.baseline[kind]
	if !ok {
		baselines = make(map[string]string)
		s.baseline[kind] = baselines
	}
	baselines[scopeKey] = effective
	s.mu.Unlock()

	if skipped > 0 {
		s.log.V(1).Info("skipped items outside the replaced scope",
			"kind", kind, "scope", scopeKey, "skipped", skipped)
	}
	s.registry.notifyFullRefresh(kind, effective)
}

// UpdateFromEvent applies one watch event to the cache and emits the matching
// notification. It returns the resource version recorded for the scope and
// whether the event was applied; malformed payloads are dropped with a
// warning and never disturb existing entries.
func (s *Store) UpdateFromEvent(kind, scopeKey string, evt Event) (string, bool) {
	key, err := evt.identity()
	if err != nil {
		s.log.Info("dropping malformed watch event", "kind", kind, "scope", scopeKey, "reason", err.Error())
		return "", false
	}
	resourceVersion := evt.Object.GetResourceVersion()
	part := partitionFor(evt.Object)

	notify := true
	s.mu.Lock()
	switch evt.Type {
	case Deleted:
		bucket := s.objects[kind][part]
		if _, present := bucket[key.Name]; present {
			delete(bucket, key.Name)
		} else {
			notify = false
		}
	case Added:
		s.insertLocked(kind, part, key.Name, evt.Object.DeepCopy())
	case Modified:
		existing := s.objects[kind][part][key.Name]
		if existing == nil {
			s.insertLocked(kind, part, key.Name, evt.Object.DeepCopy())
		} else {
			mergeMaps(existing.Object, evt.Object.DeepCopy().Object)
		}
	default:
		s.mu.Unlock()
		s.log.Info("dropping watch event with unexpected type", "kind", kind, "type", string(evt.Type))
		return "", false
	}
	s.recordVersionLocked(kind, scopeKey, resourceVersion)
	s.mu.Unlock()

	if notify {
		s.registry.notifyEvent(kind, evt.Type, key)
	}
	return resourceVersion, true
}

func (s *Store) insertLocked(kind, part, name string, obj *unstructured.Unstructured) {
	kindObjects, ok := s.objects[kind]
	if !ok {
		kindObjects = make(map[string]map[string]*unstructured.Unstructured)
		s.objects[kind] = kindObjects
	}
	bucket, ok := kindObjects[part]
	if !ok {
		bucket = make(map[string]*unstructured.Unstructured)
		kindObjects[part] = bucket
	}
	bucket[name] = obj
}

// recordVersionLocked keeps the scope version monotonic while a watch is
// live: numeric versions never move backwards here. Re-lists reset the
// version through ReplaceList instead.
func (s *Store) recordVersionLocked(kind, scopeKey, resourceVersion string) {
	if resourceVersion == "" {
		return
	}
	versions, ok := s.versions[kind]
	if !ok {
		versions = make(map[string]string)
		s.versions[kind] = versions
	}
	if current := versions[scopeKey]; current != "" && olderThan(resourceVersion, current) {
		return
	}
	versions[scopeKey] = resourceVersion
}

// olderThan reports whether version a precedes b. Versions are opaque tokens,
// so only values numeric on both sides are ever compared.
func olderThan(a, b string) bool {
	av, errA := strconv.ParseUint(a, 10, 64)
	bv, errB := strconv.ParseUint(b, 10, 64)
	return errA == nil && errB == nil && av < bv
}

// CurrentList returns deep copies of the kind's objects, restricted to one
// namespace when given, together with the scope's resource version. The
// result is sorted by namespace then name so consumers render stably.
func (s *Store) CurrentList(kind, namespace string) ([]*unstructured.Unstructured, string) {
	s.mu.Lock()
	var out []*unstructured.Unstructured
	if namespace == "" {
		for _, bucket := range s.objects[kind] {
			for _, obj := range bucket {
				out = append(out, obj.DeepCopy())
			}
		}
	} else {
		for _, obj := range s.objects[kind][namespace] {
			out = append(out, obj.DeepCopy())
		}
	}
	version := s.versionLocked(kind, namespace)
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].GetNamespace() != out[j].GetNamespace() {
			return out[i].GetNamespace() < out[j].GetNamespace()
		}
		return out[i].GetName() < out[j].GetName()
	})
	return out, version
}

func (s *Store) versionLocked(kind, namespace string) string {
	versions := s.versions[kind]
	if versions == nil {
		return ""
	}
	if namespace != "" {
		if v, ok := versions[namespace]; ok {
			return v
		}
	}
	if v, ok := versions[ScopeAllNamespaces]; ok {
		return v
	}
	return versions[ScopeClusterWide]
}

// Get returns a deep copy of one object. An empty namespace addresses the
// cluster-scoped partition.
func (s *Store) Get(kind, namespace, name string) (*unstructured.Unstructured, bool) {
	part := namespace
	if part == "" {
		part = ScopeClusterWide
	}
	s.mu.Lock()
	obj := s.objects[kind][part][name]
	if obj != nil {
		obj = obj.DeepCopy()
	}
	s.mu.Unlock()
	return obj, obj != nil
}

// Version returns the resource version recorded for a (kind, scope) pair.
func (s *Store) Version(kind, scopeKey string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.versions[kind][scopeKey]
}
