// File: internal/reconcile/result.go
// Brief: Per-run reconciliation outcome reporting.

package reconcile

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/example/stackctl/internal/jsonpatch"
)

// Action is what the driver did (or would do, for a plan) to one resource.
type Action string

const (
	ActionCreated    Action = "created"
	ActionConfigured Action = "configured"
	ActionUnchanged  Action = "unchanged"
	ActionPruned     Action = "pruned"
	ActionDeleted    Action = "deleted"
	// ActionSkipped marks a tolerated NotFound: the resource was already
	// gone when the driver tried to delete it.
	ActionSkipped Action = "skipped"
)

// ResourceResult records the outcome for a single resource. Patch is set
// only for configured (and planned) resources.
type ResourceResult struct {
	GVK       schema.GroupVersionKind
	Namespace string
	Name      string
	Action    Action
	Patch     jsonpatch.Patch
}

// Result is the outcome of one apply or delete run. When a run aborts on an
// error, Result still holds everything reconciled before the failure so
// callers can see how far convergence got.
type Result struct {
	Stack     string
	Resources []ResourceResult
}

func (r *Result) record(obj *unstructured.Unstructured, action Action, patch jsonpatch.Patch) {
	r.Resources = append(r.Resources, ResourceResult{
		GVK:       obj.GroupVersionKind(),
		Namespace: obj.GetNamespace(),
		Name:      obj.GetName(),
		Action:    action,
		Patch:     patch,
	})
}

// Count returns how many resources ended in the given action.
func (r *Result) Count(action Action) int {
	n := 0
	for _, res := range r.Resources {
		if res.Action == action {
			n++
		}
	}
	return n
}
