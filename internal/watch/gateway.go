package watch

import (
	"context"
	"fmt"
	"math/rand"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	apiwatch "k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/dynamic"
)

// Gateway is the pure I/O boundary to the cluster's list/watch protocol for
// one resource kind. It performs no caching; a watch stream cannot be resumed
// mid-flight and must be reopened with a fresh version after any break.
type Gateway interface {
	// List returns the current collection for the scope together with the
	// collection's resource version.
	List(ctx context.Context, scope Scope) ([]*unstructured.Unstructured, string, error)

	// Watch opens a change stream for the scope starting after fromVersion.
	// The server may end the stream after a bounded duration; that is normal
	// termination, not an error.
	Watch(ctx context.Context, scope Scope, fromVersion string) (apiwatch.Interface, error)
}

// Watch timeouts are jittered so streams for many kinds do not all expire on
// the same second after startup.
const (
	watchTimeoutFloorSeconds  = 240
	watchTimeoutJitterSeconds = 120
)

type dynamicGateway struct {
	client     dynamic.Interface
	gvr        schema.GroupVersionResource
	namespaced bool
}

// NewGateway wraps a dynamic client for the given resource.
func NewGateway(client dynamic.Interface, gvr schema.GroupVersionResource, namespaced bool) Gateway {
	return &dynamicGateway{client: client, gvr: gvr, namespaced: namespaced}
}

func (g *dynamicGateway) resource(scope Scope) dynamic.ResourceInterface {
	if !g.namespaced || scope.ClusterScoped {
		return g.client.Resource(g.gvr)
	}
	if scope.Namespace == "" {
		return g.client.Resource(g.gvr).Namespace(metav1.NamespaceAll)
	}
	return g.client.Resource(g.gvr).Namespace(scope.Namespace)
}

func (g *dynamicGateway) List(ctx context.Context, scope Scope) ([]*unstructured.Unstructured, string, error) {
	list, err := g.resource(scope).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("list %s: %w", scope, err)
	}
	items := make([]*unstructured.Unstructured, 0, len(list.Items))
	for i := range list.Items {
		items = append(items, &list.Items[i])
	}
	return items, list.GetResourceVersion(), nil
}

func (g *dynamicGateway) Watch(ctx context.Context, scope Scope, fromVersion string) (apiwatch.Interface, error) {
	timeout := int64(watchTimeoutFloorSeconds + rand.Intn(watchTimeoutJitterSeconds))
	opts := metav1.ListOptions{
		ResourceVersion:     fromVersion,
		AllowWatchBookmarks: true,
		TimeoutSeconds:      &timeout,
	}
	w, err := g.resource(scope).Watch(ctx, opts)
	if err != nil {
		return nil, err
	}
	return w, nil
}
