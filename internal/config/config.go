// Package config defines the flag plumbing and runtime options for the
// dashboard, translating Cobra/Viper flag values into a strongly typed struct
// the synchronization engine and console consume.
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/example/kdash/internal/resources"
)

// Options holds all CLI configuration used by the dashboard.
type Options struct {
	KubeConfigPath  string
	Context         string
	Namespace       string
	Kinds           []string
	LogLevel        string
	ListenAddr      string
	JournalPath     string
	JournalMaxRows  int
	MetricsInterval time.Duration
	Tick            time.Duration
}

// NewOptions returns Options with defaults applied.
func NewOptions() *Options {
	return &Options{
		LogLevel:        "info",
		MetricsInterval: 30 * time.Second,
		Tick:            2 * time.Second,
		JournalMaxRows:  50000,
	}
}

// AddFlags binds configuration flags to the provided Cobra command.
func (o *Options) AddFlags(cmd *cobra.Command) {
	o.BindFlags(cmd.Flags())
}

// BindFlags attaches dashboard flags to an arbitrary FlagSet and returns the
// flag names for further customization.
func (o *Options) BindFlags(fs *pflag.FlagSet) []string {
	var names []string
	fs.StringVarP(&o.KubeConfigPath, "kubeconfig", "k", "", "Path to the kubeconfig file (defaults to KUBECONFIG or ~/.kube/config)")
	names = append(names, "kubeconfig")
	fs.StringVarP(&o.Context, "context", "K", "", "Kubeconfig context to use instead of current-context")
	names = append(names, "context")
	fs.StringVarP(&o.Namespace, "namespace", "n", "", "Namespace to watch; empty watches every namespace")
	names = append(names, "namespace")
	fs.StringSliceVar(&o.Kinds, "kinds", nil, "Resource kinds to watch (comma-separated); defaults to the full catalog")
	names = append(names, "kinds")
	fs.StringVar(&o.LogLevel, "log-level", o.LogLevel, "Log verbosity: debug, info, warn, or error")
	names = append(names, "log-level")
	fs.StringVar(&o.ListenAddr, "listen", "", "Serve a WebSocket event feed at this address (e.g. :9090); empty disables it")
	names = append(names, "listen")
	fs.StringVar(&o.JournalPath, "journal", "", "Record applied events into this SQLite file; empty disables the journal")
	names = append(names, "journal")
	fs.IntVar(&o.JournalMaxRows, "journal-max-rows", o.JournalMaxRows, "Cap on journal rows before old entries are pruned; 0 keeps everything")
	names = append(names, "journal-max-rows")
	fs.DurationVar(&o.MetricsInterval, "metrics-interval", o.MetricsInterval, "Pod metrics poll interval; 0 disables metrics")
	names = append(names, "metrics-interval")
	fs.DurationVar(&o.Tick, "tick", o.Tick, "Minimum delay between console redraws")
	names = append(names, "tick")
	return names
}

// Validate ensures provided options are coherent and normalizes kind names.
func (o *Options) Validate() error {
	o.Namespace = strings.TrimSpace(o.Namespace)
	o.ListenAddr = strings.TrimSpace(o.ListenAddr)
	o.JournalPath = strings.TrimSpace(o.JournalPath)

	switch strings.ToLower(strings.TrimSpace(o.LogLevel)) {
	case "":
		o.LogLevel = "info"
	case "debug", "info", "warn", "warning", "error":
		o.LogLevel = strings.ToLower(strings.TrimSpace(o.LogLevel))
	default:
		return fmt.Errorf("invalid --log-level value %q (allowed: debug, info, warn, error)", o.LogLevel)
	}

	if len(o.Kinds) > 0 {
		known := make(map[string]struct{})
		for _, kind := range resources.Kinds() {
			known[kind] = struct{}{}
		}
		seen := make(map[string]struct{}, len(o.Kinds))
		clean := make([]string, 0, len(o.Kinds))
		for _, kind := range o.Kinds {
			k := strings.ToLower(strings.TrimSpace(kind))
			if k == "" {
				continue
			}
			if _, ok := known[k]; !ok {
				return fmt.Errorf("unknown kind %q (known: %s)", kind, strings.Join(resources.Kinds(), ", "))
			}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			clean = append(clean, k)
		}
		sort.Strings(clean)
		o.Kinds = clean
	}

	if o.MetricsInterval < 0 {
		return fmt.Errorf("--metrics-interval cannot be negative")
	}
	if o.MetricsInterval > 0 && o.MetricsInterval < 5*time.Second {
		return fmt.Errorf("--metrics-interval %s is too aggressive (minimum 5s)", o.MetricsInterval)
	}
	if o.Tick <= 0 {
		return fmt.Errorf("--tick must be positive")
	}
	if o.JournalMaxRows < 0 {
		return fmt.Errorf("--journal-max-rows cannot be negative")
	}
	return nil
}

// WatchKinds resolves the kinds to synchronize, falling back to the full
// catalog when none were selected.
func (o *Options) WatchKinds() []string {
	if len(o.Kinds) > 0 {
		return o.Kinds
	}
	return resources.Kinds()
}
