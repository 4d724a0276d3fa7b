// File: cmd/stackctl/output_test.go
// Brief: Result and diff rendering.

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/example/stackctl/internal/jsonpatch"
	"github.com/example/stackctl/internal/reconcile"
)

func init() {
	color.NoColor = true
}

var testServiceGVK = schema.GroupVersionKind{Version: "v1", Kind: "Service"}

func TestPrintResult(t *testing.T) {
	result := &reconcile.Result{Stack: "demo", Resources: []reconcile.ResourceResult{
		{GVK: testServiceGVK, Namespace: "default", Name: "web", Action: reconcile.ActionCreated},
		{GVK: testServiceGVK, Namespace: "default", Name: "api", Action: reconcile.ActionUnchanged},
	}}
	buf := &bytes.Buffer{}
	printResult(buf, result)
	out := buf.String()
	if !strings.Contains(out, "service/web created") {
		t.Fatalf("missing created line: %q", out)
	}
	if !strings.Contains(out, "1 created, 0 configured, 1 unchanged") {
		t.Fatalf("missing summary counts: %q", out)
	}
}

func TestPrintPlanSummarySkipsPruneUnlessRequested(t *testing.T) {
	entries := []reconcile.PlanEntry{
		{GVK: testServiceGVK, Name: "web", Action: reconcile.ActionCreated},
		{GVK: testServiceGVK, Name: "old", Action: reconcile.ActionPruned},
	}
	buf := &bytes.Buffer{}
	printPlanSummary(buf, "demo", entries, false)
	if strings.Contains(buf.String(), "old") {
		t.Fatalf("prune candidate leaked into non-prune dry run: %q", buf.String())
	}

	buf.Reset()
	printPlanSummary(buf, "demo", entries, true)
	if !strings.Contains(buf.String(), "service/old would be pruned") {
		t.Fatalf("expected prune candidate in pruning dry run: %q", buf.String())
	}
}

func TestPrintDiffRendersUnifiedDiff(t *testing.T) {
	live := &unstructured.Unstructured{Object: map[string]any{
		"apiVersion": "v1",
		"kind":       "Service",
		"metadata":   map[string]any{"name": "web", "namespace": "default"},
		"spec":       map[string]any{"ports": []any{map[string]any{"port": int64(8080)}}},
	}}
	desired := live.DeepCopy()
	desired.Object["spec"] = map[string]any{"ports": []any{map[string]any{"port": int64(80)}}}
	entry := reconcile.PlanEntry{
		GVK:       testServiceGVK,
		Namespace: "default",
		Name:      "web",
		Action:    reconcile.ActionConfigured,
		Patch: jsonpatch.Patch{
			{Op: jsonpatch.OpReplace, Path: "/spec/ports/0/port", Value: int64(80)},
		},
		Live:    live,
		Desired: desired,
	}
	buf := &bytes.Buffer{}
	if err := printDiff(buf, []reconcile.PlanEntry{entry}, true); err != nil {
		t.Fatalf("print diff: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "-  - port: 8080\n") || !strings.Contains(out, "+  - port: 80\n") {
		t.Fatalf("expected unified diff lines, got %q", out)
	}
	if !strings.Contains(out, `"path": "/spec/ports/0/port"`) {
		t.Fatalf("expected patch body with --show-patch, got %q", out)
	}
}

func TestPrintDiffConverged(t *testing.T) {
	buf := &bytes.Buffer{}
	entries := []reconcile.PlanEntry{
		{GVK: testServiceGVK, Name: "web", Action: reconcile.ActionUnchanged},
	}
	if err := printDiff(buf, entries, false); err != nil {
		t.Fatalf("print diff: %v", err)
	}
	if !strings.Contains(buf.String(), "No changes") {
		t.Fatalf("expected converged message, got %q", buf.String())
	}
}
