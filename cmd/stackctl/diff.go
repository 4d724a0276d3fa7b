// File: cmd/stackctl/diff.go
// Brief: CLI command wiring and implementation for 'diff'.

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/example/stackctl/internal/reconcile"
)

func newDiffCommand(kubeconfig *string, kubeContext *string, logLevel *string) *cobra.Command {
	var filePath string
	var showPatch bool
	cmd := &cobra.Command{
		Use:   "diff [STACK_NAME]",
		Short: "Show what apply would change, without mutating anything",
		Long:  "diff fetches the live state of every declared resource and prints the pending JSON patch and a unified YAML diff per drifted resource, plus the resources a pruning apply would create or remove.",
		Args:  cobra.MaximumNArgs(1),
		Example: `  # Inspect pending drift for the shop stack
  stackctl diff shop --filename ./manifests

  # Include the raw JSON patch bodies
  stackctl diff shop --filename ./manifests --show-patch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := loadStack(args, filePath)
			if err != nil {
				return err
			}
			driver, _, err := buildDriver(*kubeconfig, *kubeContext, *logLevel)
			if err != nil {
				return err
			}
			entries, err := driver.Plan(cmd.Context(), st)
			if err != nil {
				return err
			}
			return printDiff(cmd.OutOrStdout(), entries, showPatch)
		},
	}
	cmd.Flags().StringVarP(&filePath, "filename", "f", "", "Manifest file or directory declaring the stack (required)")
	cmd.Flags().BoolVar(&showPatch, "show-patch", false, "Print the JSON patch body for each drifted resource")
	if err := cmd.MarkFlagRequired("filename"); err != nil {
		cobra.CheckErr(err)
	}
	return cmd
}

var (
	diffCreateHeader = color.New(color.FgGreen).SprintfFunc()
	diffChangeHeader = color.New(color.FgYellow).SprintfFunc()
	diffPruneHeader  = color.New(color.FgRed).SprintfFunc()
)

func printDiff(w io.Writer, entries []reconcile.PlanEntry, showPatch bool) error {
	pending := 0
	for _, entry := range entries {
		switch entry.Action {
		case reconcile.ActionCreated:
			pending++
			fmt.Fprintln(w, diffCreateHeader("+ %s %s/%s (create)", entry.GVK.Kind, displayNamespace(entry.Namespace), entry.Name))
		case reconcile.ActionConfigured:
			pending++
			fmt.Fprintln(w, diffChangeHeader("~ %s %s/%s (%d operations)", entry.GVK.Kind, displayNamespace(entry.Namespace), entry.Name, len(entry.Patch)))
			if err := printUnifiedDiff(w, entry); err != nil {
				return err
			}
			if showPatch {
				body, err := json.MarshalIndent(entry.Patch, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal patch: %w", err)
				}
				fmt.Fprintf(w, "%s\n", body)
			}
		case reconcile.ActionPruned:
			pending++
			fmt.Fprintln(w, diffPruneHeader("- %s %s/%s (prune)", entry.GVK.Kind, displayNamespace(entry.Namespace), entry.Name))
		}
	}
	if pending == 0 {
		fmt.Fprintln(w, "No changes. The stack is converged.")
	}
	return nil
}

func printUnifiedDiff(w io.Writer, entry reconcile.PlanEntry) error {
	liveYAML, err := yaml.Marshal(entry.Live.Object)
	if err != nil {
		return fmt.Errorf("render live document: %w", err)
	}
	desiredYAML, err := yaml.Marshal(entry.Desired.Object)
	if err != nil {
		return fmt.Errorf("render declared document: %w", err)
	}
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(liveYAML)),
		B:        difflib.SplitLines(string(desiredYAML)),
		FromFile: "live",
		ToFile:   "declared",
		Context:  3,
	})
	if err != nil {
		return fmt.Errorf("render diff: %w", err)
	}
	fmt.Fprint(w, text)
	return nil
}

func displayNamespace(namespace string) string {
	if namespace == "" {
		return "-"
	}
	return namespace
}
