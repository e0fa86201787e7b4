// client.go builds the Kubernetes client bundle the dashboard runs on.
package kube

import (
	"fmt"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/tools/clientcmd/api"
	metricsclient "k8s.io/metrics/pkg/client/clientset/versioned"
)

// Client bundles the clients the dashboard needs: dynamic access for the watch
// engine, the metrics clientset for the pod metrics poller, and discovery for
// the startup reachability check.
type Client struct {
	RESTConfig *rest.Config
	Dynamic    dynamic.Interface
	Metrics    metricsclient.Interface
	Discovery  discovery.DiscoveryInterface
	Namespace  string
	APIStats   *APIRequestStats
}

// New resolves the kubeconfig and builds the bundle. Every request issued
// through it is measured by stats when given.
func New(kubeconfigPath, contextName string, stats *APIRequestStats) (*Client, error) {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfigPath != "" {
		expanded, err := homedir.Expand(kubeconfigPath)
		if err != nil {
			return nil, fmt.Errorf("expand kubeconfig path: %w", err)
		}
		loadingRules.Precedence = []string{filepath.Clean(expanded)}
	}

	overrides := &clientcmd.ConfigOverrides{ClusterInfo: api.Cluster{Server: ""}}
	if contextName != "" {
		overrides.CurrentContext = contextName
	}
	clientConfig := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides)
	namespace, _, err := clientConfig.Namespace()
	if err != nil {
		return nil, fmt.Errorf("resolve default namespace: %w", err)
	}
	restConfig, err := clientConfig.ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("build rest config: %w", err)
	}
	rest.SetDefaultWarningHandler(rest.NoWarnings{})

	// No client-wide timeout: watch streams are long-lived and bounded by
	// their own per-request TimeoutSeconds.
	restConfig.QPS = 50
	restConfig.Burst = 100
	AttachAPITelemetry(restConfig, stats)

	dyn, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("create dynamic client: %w", err)
	}
	metrics, err := metricsclient.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("create metrics client: %w", err)
	}
	discoveryClient, err := discovery.NewDiscoveryClientForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("create discovery client: %w", err)
	}

	return &Client{
		RESTConfig: restConfig,
		Dynamic:    dyn,
		Metrics:    metrics,
		Discovery:  discoveryClient,
		Namespace:  namespace,
		APIStats:   stats,
	}, nil
}

// ServerVersion asks the API server for its version. The dashboard runs it
// once at startup as a reachability probe before any watch starts.
func (c *Client) ServerVersion() (string, error) {
	info, err := c.Discovery.ServerVersion()
	if err != nil {
		return "", fmt.Errorf("server version: %w", err)
	}
	return info.GitVersion, nil
}
