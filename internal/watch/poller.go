package watch

import (
	"context"
	"strconv"
	"time"

	"github.com/go-logr/logr"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	metricsclient "k8s.io/metrics/pkg/client/clientset/versioned"
)

// PodMetricsKind is the synthetic kind fed by the poller. The metrics API has
// no watch support, so its objects enter the store through periodic full
// replacements instead of a reconciliation loop.
const PodMetricsKind = "podmetrics"

// PollerOptions tunes the metrics poller. Zero values select defaults. An
// empty Namespace polls every namespace.
type PollerOptions struct {
	Interval  time.Duration
	Namespace string
}

func (o PollerOptions) withDefaults() PollerOptions {
	if o.Interval <= 0 {
		o.Interval = 30 * time.Second
	}
	return o
}

// Poller periodically lists pod metrics across all namespaces and replaces
// the synthetic podmetrics kind in the store. A cluster without the metrics
// API is tolerated: the failure is logged once and polling continues quietly
// until the API comes back.
type Poller struct {
	log      logr.Logger
	client   metricsclient.Interface
	store    *Store
	opts     PollerOptions
	degraded bool
}

// NewPoller builds a poller over the given metrics client.
func NewPoller(log logr.Logger, client metricsclient.Interface, store *Store, opts PollerOptions) *Poller {
	return &Poller{
		log:    log.WithName("metricspoller"),
		client: client,
		store:  store,
		opts:   opts.withDefaults(),
	}
}

// Run polls until ctx is cancelled. It always returns nil.
func (p *Poller) Run(ctx context.Context) error {
	p.poll(ctx)
	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	namespace := p.opts.Namespace
	if namespace == "" {
		namespace = metav1.NamespaceAll
	}
	list, err := p.client.MetricsV1beta1().PodMetricses(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if !p.degraded {
			p.log.Error(err, "pod metrics unavailable; will keep polling")
			p.degraded = true
		}
		return
	}
	if p.degraded {
		p.log.Info("pod metrics available again")
		p.degraded = false
	}

	items := make([]*unstructured.Unstructured, 0, len(list.Items))
	for i := range list.Items {
		content, err := runtime.DefaultUnstructuredConverter.ToUnstructured(&list.Items[i])
		if err != nil {
			p.log.Error(err, "skipping unconvertible pod metrics item", "name", list.Items[i].Name)
			continue
		}
		obj := &unstructured.Unstructured{Object: content}
		obj.SetAPIVersion("metrics.k8s.io/v1beta1")
		obj.SetKind("PodMetrics")
		items = append(items, obj)
	}

	version := list.ResourceVersion
	if version == "" {
		// The metrics API often returns lists without a version. Stamp the
		// poll time so the scope version still moves forward.
		version = strconv.FormatInt(time.Now().Unix(), 10)
	}
	p.store.ReplaceList(PodMetricsKind, p.scopeKey(), items, version)
}

func (p *Poller) scopeKey() string {
	if p.opts.Namespace == "" {
		return ScopeAllNamespaces
	}
	return p.opts.Namespace
}
