// File: cmd/stackctl/delete.go
// Brief: CLI command wiring and implementation for 'delete'.

package main

import (
	"github.com/spf13/cobra"
)

func newDeleteCommand(kubeconfig *string, kubeContext *string, logLevel *string) *cobra.Command {
	var filePath string
	cmd := &cobra.Command{
		Use:   "delete [STACK_NAME]",
		Short: "Delete every live resource belonging to a stack",
		Long:  "delete removes the live resources tagged with the stack label, plus any declared resource the tag listing missed. Resources that are already gone are logged and skipped, not treated as failures.",
		Args:  cobra.MaximumNArgs(1),
		Example: `  # Tear down the shop stack
  stackctl delete shop --filename ./manifests`,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := loadStack(args, filePath)
			if err != nil {
				return err
			}
			driver, _, err := buildDriver(*kubeconfig, *kubeContext, *logLevel)
			if err != nil {
				return err
			}
			result, err := driver.Delete(cmd.Context(), st)
			if result != nil {
				printResult(cmd.OutOrStdout(), result)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&filePath, "filename", "f", "", "Manifest file or directory declaring the stack (required)")
	if err := cmd.MarkFlagRequired("filename"); err != nil {
		cobra.CheckErr(err)
	}
	return cmd
}
