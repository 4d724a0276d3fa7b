// File: cmd/stackctl/output.go
// Brief: Human-readable rendering of reconciliation results.

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/example/stackctl/internal/reconcile"
)

var actionColors = map[reconcile.Action]func(a ...interface{}) string{
	reconcile.ActionCreated:    color.New(color.FgGreen).SprintFunc(),
	reconcile.ActionConfigured: color.New(color.FgYellow).SprintFunc(),
	reconcile.ActionPruned:     color.New(color.FgRed).SprintFunc(),
	reconcile.ActionDeleted:    color.New(color.FgRed).SprintFunc(),
}

func colorizeAction(action reconcile.Action) string {
	if sprint, ok := actionColors[action]; ok {
		return sprint(string(action))
	}
	return string(action)
}

func printResult(w io.Writer, result *reconcile.Result) {
	for _, res := range result.Resources {
		fmt.Fprintf(w, "%s/%s %s\n", strings.ToLower(res.GVK.Kind), res.Name, colorizeAction(res.Action))
	}
	fmt.Fprintf(w, "stack %s: %d created, %d configured, %d unchanged, %d pruned, %d deleted, %d skipped\n",
		result.Stack,
		result.Count(reconcile.ActionCreated),
		result.Count(reconcile.ActionConfigured),
		result.Count(reconcile.ActionUnchanged),
		result.Count(reconcile.ActionPruned),
		result.Count(reconcile.ActionDeleted),
		result.Count(reconcile.ActionSkipped),
	)
}

// printPlanSummary renders dry-run output: every pending action, one line
// per resource, prune candidates included only when pruning was requested.
func printPlanSummary(w io.Writer, stackName string, entries []reconcile.PlanEntry, prune bool) {
	pending := 0
	for _, entry := range entries {
		if entry.Action == reconcile.ActionPruned && !prune {
			continue
		}
		if entry.Action == reconcile.ActionUnchanged {
			continue
		}
		pending++
		fmt.Fprintf(w, "%s/%s would be %s\n", strings.ToLower(entry.GVK.Kind), entry.Name, colorizeAction(entry.Action))
	}
	if pending == 0 {
		fmt.Fprintf(w, "stack %s is converged, nothing to do\n", stackName)
		return
	}
	fmt.Fprintf(w, "stack %s: %d pending actions (dry run, nothing applied)\n", stackName, pending)
}
