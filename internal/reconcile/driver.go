// File: internal/reconcile/driver.go
// Brief: Apply/prune/delete orchestration for a stack.

// Package reconcile converges live cluster state onto a stack's declared
// documents. Resources are processed synchronously in declaration order:
// fetch, then create or JSON-patch, with optional pruning of tagged
// resources no longer declared. Pruning runs strictly after every
// create/update, so a resource renamed within the stack always has its
// replacement in place before the old name is removed. There is no retry
// loop and no checkpointing: an error aborts the run and the partial
// convergence is visible in the returned Result.
package reconcile

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/util/validation"

	"github.com/example/stackctl/internal/diff"
	"github.com/example/stackctl/internal/jsonpatch"
	"github.com/example/stackctl/internal/kube"
	"github.com/example/stackctl/internal/stack"
)

// DefaultStackLabel tags every resource a stack creates so prune and delete
// can find it later.
const DefaultStackLabel = "stackctl.dev/stack"

// Options configure a Driver.
type Options struct {
	// LabelKey overrides DefaultStackLabel.
	LabelKey string
	// DefaultNamespace is used to match declared documents that omit a
	// namespace against live objects, which always carry one.
	DefaultNamespace string
}

// ApplyOptions control a single apply run.
type ApplyOptions struct {
	Prune bool
}

// Driver reconciles stacks through a ResourceAccess. It holds no mutable
// state across runs.
type Driver struct {
	access           kube.ResourceAccess
	log              logr.Logger
	labelKey         string
	defaultNamespace string
}

// New returns a Driver using the given resource access and logger.
func New(access kube.ResourceAccess, log logr.Logger, opts Options) *Driver {
	labelKey := opts.LabelKey
	if labelKey == "" {
		labelKey = DefaultStackLabel
	}
	defaultNamespace := opts.DefaultNamespace
	if defaultNamespace == "" {
		defaultNamespace = "default"
	}
	return &Driver{access: access, log: log, labelKey: labelKey, defaultNamespace: defaultNamespace}
}

type identity struct {
	group     string
	kind      string
	namespace string
	name      string
}

func identityOf(obj *unstructured.Unstructured) identity {
	gvk := obj.GroupVersionKind()
	return identity{group: gvk.Group, kind: gvk.Kind, namespace: obj.GetNamespace(), name: obj.GetName()}
}

// Apply converges every declared resource, then optionally prunes tagged
// resources that are no longer declared. The returned Result covers
// everything processed before any error.
func (d *Driver) Apply(ctx context.Context, st *stack.Stack, opts ApplyOptions) (*Result, error) {
	if err := d.validateStackName(st.Name); err != nil {
		return nil, err
	}
	result := &Result{Stack: st.Name}
	applied := make(map[identity]struct{}, len(st.Resources))

	for _, doc := range st.Resources {
		desired := doc.DeepCopy()
		d.tag(desired, st.Name)
		gvk := desired.GroupVersionKind()

		live, err := d.access.Get(ctx, gvk, desired.GetNamespace(), desired.GetName())
		switch {
		case apierrors.IsNotFound(err):
			created, createErr := d.access.Create(ctx, desired)
			if createErr != nil {
				return result, fmt.Errorf("create %s %s: %w", gvk.Kind, desired.GetName(), createErr)
			}
			applied[identityOf(created)] = struct{}{}
			result.record(created, ActionCreated, nil)
			d.log.Info("created resource", "kind", gvk.Kind, "namespace", created.GetNamespace(), "name", created.GetName())
		case err != nil:
			return result, fmt.Errorf("get %s %s: %w", gvk.Kind, desired.GetName(), err)
		default:
			patch, diffErr := d.pendingPatch(live, desired)
			if diffErr != nil {
				return result, diffErr
			}
			applied[identityOf(live)] = struct{}{}
			if len(patch) == 0 {
				result.record(live, ActionUnchanged, nil)
				d.log.V(1).Info("resource unchanged", "kind", gvk.Kind, "namespace", live.GetNamespace(), "name", live.GetName())
				continue
			}
			updated, patchErr := d.access.Patch(ctx, gvk, live.GetNamespace(), live.GetName(), patch)
			if patchErr != nil {
				return result, fmt.Errorf("patch %s %s: %w", gvk.Kind, live.GetName(), patchErr)
			}
			result.record(updated, ActionConfigured, patch)
			d.log.Info("configured resource", "kind", gvk.Kind, "namespace", updated.GetNamespace(), "name", updated.GetName(), "operations", len(patch))
		}
	}

	if opts.Prune {
		if err := d.prune(ctx, st, applied, result); err != nil {
			return result, err
		}
	}
	return result, nil
}

// pendingPatch diffs the normalized live object against the desired one.
// The desired copy inherits the live namespace when it declared none, so
// the diff never tries to strip the server-assigned namespace.
func (d *Driver) pendingPatch(live, desired *unstructured.Unstructured) (jsonpatch.Patch, error) {
	if desired.GetNamespace() == "" && live.GetNamespace() != "" {
		desired.SetNamespace(live.GetNamespace())
	}
	changes := diff.Compute(normalizeLive(live), desired.Object)
	patch, err := jsonpatch.Build(changes)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", desired.GetKind(), desired.GetName(), err)
	}
	return patch, nil
}

// prune deletes live tagged resources whose identity is not in the applied
// set. It runs only after all creates and updates have completed.
func (d *Driver) prune(ctx context.Context, st *stack.Stack, applied map[identity]struct{}, result *Result) error {
	selector := d.selector(st.Name)
	for _, gvk := range st.Kinds() {
		items, err := d.access.List(ctx, gvk, "", selector)
		if err != nil {
			return fmt.Errorf("list %s for prune: %w", gvk.Kind, err)
		}
		for _, item := range items {
			if _, ok := applied[identityOf(item)]; ok {
				continue
			}
			if err := d.access.Delete(ctx, gvk, item.GetNamespace(), item.GetName()); err != nil {
				if apierrors.IsNotFound(err) {
					result.record(item, ActionSkipped, nil)
					d.log.Info("prune target already gone", "kind", gvk.Kind, "namespace", item.GetNamespace(), "name", item.GetName())
					continue
				}
				return fmt.Errorf("prune %s %s: %w", gvk.Kind, item.GetName(), err)
			}
			result.record(item, ActionPruned, nil)
			d.log.Info("pruned resource", "kind", gvk.Kind, "namespace", item.GetNamespace(), "name", item.GetName())
		}
	}
	return nil
}

// Delete removes every live resource belonging to the stack: first the
// resources found under the stack label, then any declared resource the
// listing missed. A NotFound on an individual delete is tolerated and
// recorded as skipped; the stack being already gone is a clean outcome.
func (d *Driver) Delete(ctx context.Context, st *stack.Stack) (*Result, error) {
	if err := d.validateStackName(st.Name); err != nil {
		return nil, err
	}
	result := &Result{Stack: st.Name}
	removed := make(map[identity]struct{})
	selector := d.selector(st.Name)

	for _, gvk := range st.Kinds() {
		items, err := d.access.List(ctx, gvk, "", selector)
		if err != nil {
			return result, fmt.Errorf("list %s: %w", gvk.Kind, err)
		}
		for _, item := range items {
			removed[identityOf(item)] = struct{}{}
			if err := d.access.Delete(ctx, gvk, item.GetNamespace(), item.GetName()); err != nil {
				if apierrors.IsNotFound(err) {
					result.record(item, ActionSkipped, nil)
					d.log.Info("skipping delete, resource already absent", "kind", gvk.Kind, "namespace", item.GetNamespace(), "name", item.GetName())
					continue
				}
				return result, fmt.Errorf("delete %s %s: %w", gvk.Kind, item.GetName(), err)
			}
			result.record(item, ActionDeleted, nil)
			d.log.Info("deleted resource", "kind", gvk.Kind, "namespace", item.GetNamespace(), "name", item.GetName())
		}
	}

	for _, doc := range st.Resources {
		if d.alreadyRemoved(removed, doc) {
			continue
		}
		gvk := doc.GroupVersionKind()
		if err := d.access.Delete(ctx, gvk, doc.GetNamespace(), doc.GetName()); err != nil {
			if apierrors.IsNotFound(err) {
				result.record(doc, ActionSkipped, nil)
				d.log.Info("skipping delete, resource already absent", "kind", gvk.Kind, "namespace", doc.GetNamespace(), "name", doc.GetName())
				continue
			}
			return result, fmt.Errorf("delete %s %s: %w", gvk.Kind, doc.GetName(), err)
		}
		result.record(doc, ActionDeleted, nil)
		d.log.Info("deleted resource", "kind", gvk.Kind, "namespace", doc.GetNamespace(), "name", doc.GetName())
	}
	return result, nil
}

// alreadyRemoved matches a declared document against identities collected
// from live listings. Declared documents may omit the namespace the server
// reports, so the default namespace is tried as a fallback.
func (d *Driver) alreadyRemoved(removed map[identity]struct{}, doc *unstructured.Unstructured) bool {
	id := identityOf(doc)
	if _, ok := removed[id]; ok {
		return true
	}
	if id.namespace == "" {
		id.namespace = d.defaultNamespace
		if _, ok := removed[id]; ok {
			return true
		}
	}
	return false
}

func (d *Driver) tag(obj *unstructured.Unstructured, stackName string) {
	objLabels := obj.GetLabels()
	if objLabels == nil {
		objLabels = make(map[string]string, 1)
	}
	objLabels[d.labelKey] = stackName
	obj.SetLabels(objLabels)
}

func (d *Driver) selector(stackName string) string {
	return labels.Set{d.labelKey: stackName}.String()
}

func (d *Driver) validateStackName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("stack name is required")
	}
	if errs := validation.IsValidLabelValue(name); len(errs) > 0 {
		return fmt.Errorf("stack name %q is not usable as a label value: %s", name, strings.Join(errs, "; "))
	}
	return nil
}
