// File: internal/reconcile/plan.go
// Brief: Read-only reconciliation preview.

package reconcile

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/example/stackctl/internal/jsonpatch"
	"github.com/example/stackctl/internal/stack"
)

// PlanEntry is one resource's pending action. Live holds the normalized
// comparison form of the fetched object (nil when the resource would be
// created); Desired holds the tagged declared document.
type PlanEntry struct {
	GVK       schema.GroupVersionKind
	Namespace string
	Name      string
	Action    Action
	Patch     jsonpatch.Patch
	Live      *unstructured.Unstructured
	Desired   *unstructured.Unstructured
}

// Plan computes what Apply would do without mutating anything: pending
// creates and patches for the declared resources, plus the tagged live
// resources a pruning apply would remove.
func (d *Driver) Plan(ctx context.Context, st *stack.Stack) ([]PlanEntry, error) {
	if err := d.validateStackName(st.Name); err != nil {
		return nil, err
	}
	entries := make([]PlanEntry, 0, len(st.Resources))
	planned := make(map[identity]struct{}, len(st.Resources))

	for _, doc := range st.Resources {
		desired := doc.DeepCopy()
		d.tag(desired, st.Name)
		gvk := desired.GroupVersionKind()

		live, err := d.access.Get(ctx, gvk, desired.GetNamespace(), desired.GetName())
		switch {
		case apierrors.IsNotFound(err):
			entries = append(entries, PlanEntry{
				GVK:       gvk,
				Namespace: desired.GetNamespace(),
				Name:      desired.GetName(),
				Action:    ActionCreated,
				Desired:   desired,
			})
			d.markPlanned(planned, desired)
		case err != nil:
			return nil, fmt.Errorf("get %s %s: %w", gvk.Kind, desired.GetName(), err)
		default:
			patch, diffErr := d.pendingPatch(live, desired)
			if diffErr != nil {
				return nil, diffErr
			}
			action := ActionUnchanged
			if len(patch) > 0 {
				action = ActionConfigured
			}
			entries = append(entries, PlanEntry{
				GVK:       gvk,
				Namespace: live.GetNamespace(),
				Name:      live.GetName(),
				Action:    action,
				Patch:     patch,
				Live:      &unstructured.Unstructured{Object: normalizeLive(live)},
				Desired:   desired,
			})
			d.markPlanned(planned, live)
		}
	}

	selector := d.selector(st.Name)
	for _, gvk := range st.Kinds() {
		items, err := d.access.List(ctx, gvk, "", selector)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", gvk.Kind, err)
		}
		for _, item := range items {
			if _, ok := planned[identityOf(item)]; ok {
				continue
			}
			entries = append(entries, PlanEntry{
				GVK:       gvk,
				Namespace: item.GetNamespace(),
				Name:      item.GetName(),
				Action:    ActionPruned,
				Live:      item,
			})
		}
	}
	return entries, nil
}

// markPlanned records a resource identity, including the default-namespace
// variant for declared documents that omit theirs, so the prune preview can
// match live objects that always carry a concrete namespace.
func (d *Driver) markPlanned(planned map[identity]struct{}, obj *unstructured.Unstructured) {
	id := identityOf(obj)
	planned[id] = struct{}{}
	if id.namespace == "" {
		id.namespace = d.defaultNamespace
		planned[id] = struct{}{}
	}
}
