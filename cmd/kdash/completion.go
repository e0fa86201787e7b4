// completion.go registers the 'kdash completion' command and the dynamic flag
// completion helpers shared by the root command.
package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/example/kdash/internal/kube"
	"github.com/example/kdash/internal/resources"
)

func newCompletionCommand(root *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate autocompletion scripts for your shell. Source the output or save it to
one of the completion directories supported by your shell.`,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return root.GenBashCompletion(cmd.OutOrStdout())
			case "zsh":
				return root.GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				return root.GenFishCompletion(cmd.OutOrStdout(), true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
			default:
				return fmt.Errorf("unsupported shell %q", args[0])
			}
		},
	}
}

func registerNamespaceCompletion(cmd *cobra.Command, flagName string, kubeconfig *string, kubeContext *string) {
	if cmd.Flags().Lookup(flagName) == nil {
		return
	}
	namespacesGVR := schema.GroupVersionResource{Version: "v1", Resource: "namespaces"}
	cmd.RegisterFlagCompletionFunc(flagName, func(c *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		client, err := kube.New(*kubeconfig, *kubeContext, nil)
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		list, err := client.Dynamic.Resource(namespacesGVR).List(ctx, metav1.ListOptions{})
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		var completions []string
		for _, item := range list.Items {
			if toComplete == "" || strings.HasPrefix(item.GetName(), toComplete) {
				completions = append(completions, item.GetName())
			}
		}
		return completions, cobra.ShellCompDirectiveNoFileComp
	})
}

func registerKindCompletion(cmd *cobra.Command, flagName string) {
	if cmd.Flags().Lookup(flagName) == nil {
		return
	}
	cmd.RegisterFlagCompletionFunc(flagName, func(c *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var completions []string
		for _, kind := range resources.Kinds() {
			if toComplete == "" || strings.HasPrefix(kind, toComplete) {
				completions = append(completions, kind)
			}
		}
		return completions, cobra.ShellCompDirectiveNoFileComp
	})
}
