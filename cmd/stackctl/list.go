// File: cmd/stackctl/list.go
// Brief: CLI command wiring and implementation for 'list'.

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/labels"

	"github.com/example/stackctl/internal/kube"
	"github.com/example/stackctl/internal/reconcile"
)

func newListCommand(kubeconfig *string, kubeContext *string, logLevel *string) *cobra.Command {
	var filePath string
	cmd := &cobra.Command{
		Use:   "list [STACK_NAME]",
		Short: "List the live resources tagged with a stack's label",
		Long:  "list shows every live resource carrying the stack label, scoped to the kinds the stack declares. The manifest source is needed to know which kinds to query.",
		Args:  cobra.MaximumNArgs(1),
		Example: `  # Show what the shop stack currently owns in the cluster
  stackctl list shop --filename ./manifests`,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := loadStack(args, filePath)
			if err != nil {
				return err
			}
			_, client, err := buildDriver(*kubeconfig, *kubeContext, *logLevel)
			if err != nil {
				return err
			}
			access := kube.NewAccess(client.Dynamic, client.RESTMapper, client.Namespace)
			selector := labels.Set{reconcile.DefaultStackLabel: st.Name}.String()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KIND\tNAMESPACE\tNAME")
			total := 0
			for _, gvk := range st.Kinds() {
				items, err := access.List(cmd.Context(), gvk, "", selector)
				if err != nil {
					return err
				}
				for _, item := range items {
					total++
					fmt.Fprintf(tw, "%s\t%s\t%s\n", gvk.Kind, displayNamespace(item.GetNamespace()), item.GetName())
				}
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if total == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No live resources tagged %s=%s\n", reconcile.DefaultStackLabel, st.Name)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&filePath, "filename", "f", "", "Manifest file or directory declaring the stack (required)")
	if err := cmd.MarkFlagRequired("filename"); err != nil {
		cobra.CheckErr(err)
	}
	return cmd
}
