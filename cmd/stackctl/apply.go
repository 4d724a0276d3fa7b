// File: cmd/stackctl/apply.go
// Brief: CLI command wiring and implementation for 'apply'.

package main

import (
	"github.com/spf13/cobra"

	"github.com/example/stackctl/internal/reconcile"
)

func newApplyCommand(kubeconfig *string, kubeContext *string, logLevel *string) *cobra.Command {
	var filePath string
	var prune bool
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "apply [STACK_NAME]",
		Short: "Create or patch the declared resources of a stack",
		Long:  "apply fetches each declared resource, creates it when absent, and otherwise converges it with a minimal JSON patch. With --prune, resources tagged to the stack but no longer declared are deleted after all creates and updates complete.",
		Args:  cobra.MaximumNArgs(1),
		Example: `  # Converge the shop stack and prune undeclared resources
  stackctl apply shop --filename ./manifests --prune

  # Show the pending actions without mutating the cluster
  stackctl apply shop --filename ./manifests --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := loadStack(args, filePath)
			if err != nil {
				return err
			}
			driver, _, err := buildDriver(*kubeconfig, *kubeContext, *logLevel)
			if err != nil {
				return err
			}
			if dryRun {
				entries, err := driver.Plan(cmd.Context(), st)
				if err != nil {
					return err
				}
				printPlanSummary(cmd.OutOrStdout(), st.Name, entries, prune)
				return nil
			}
			result, err := driver.Apply(cmd.Context(), st, reconcile.ApplyOptions{Prune: prune})
			if result != nil {
				printResult(cmd.OutOrStdout(), result)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&filePath, "filename", "f", "", "Manifest file or directory declaring the stack (required)")
	cmd.Flags().BoolVar(&prune, "prune", false, "Delete resources tagged to the stack that are no longer declared")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview the pending actions without mutating the cluster")
	if err := cmd.MarkFlagRequired("filename"); err != nil {
		cobra.CheckErr(err)
	}
	return cmd
}
