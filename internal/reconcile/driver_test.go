// File: internal/reconcile/driver_test.go
// Brief: Apply/prune/delete lifecycle against an in-memory resource store.

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/example/stackctl/internal/jsonpatch"
	"github.com/example/stackctl/internal/stack"
)

// fakeAccess is an in-memory ResourceAccess. Every kind behaves as
// namespaced with "default" as the fallback namespace. Patches are recorded,
// not applied; tests that need post-patch state seed it directly.
type fakeAccess struct {
	objects map[string]*unstructured.Unstructured
	patches map[string]jsonpatch.Patch
	ops     []string
	getErr  map[string]error
	listErr error
}

func newFakeAccess() *fakeAccess {
	return &fakeAccess{
		objects: map[string]*unstructured.Unstructured{},
		patches: map[string]jsonpatch.Patch{},
		getErr:  map[string]error{},
	}
}

func storeKey(gvk schema.GroupVersionKind, namespace, name string) string {
	if namespace == "" {
		namespace = "default"
	}
	return fmt.Sprintf("%s|%s|%s", gvk.GroupKind(), namespace, name)
}

func (f *fakeAccess) Get(ctx context.Context, gvk schema.GroupVersionKind, namespace, name string) (*unstructured.Unstructured, error) {
	key := storeKey(gvk, namespace, name)
	if err, ok := f.getErr[key]; ok {
		return nil, err
	}
	obj, ok := f.objects[key]
	if !ok {
		return nil, apierrors.NewNotFound(schema.GroupResource{Group: gvk.Group, Resource: strings.ToLower(gvk.Kind) + "s"}, name)
	}
	return obj.DeepCopy(), nil
}

func (f *fakeAccess) List(ctx context.Context, gvk schema.GroupVersionKind, namespace, labelSelector string) ([]*unstructured.Unstructured, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	selector, err := labels.Parse(labelSelector)
	if err != nil {
		return nil, err
	}
	var items []*unstructured.Unstructured
	for _, obj := range f.objects {
		if obj.GroupVersionKind() != gvk {
			continue
		}
		if namespace != "" && obj.GetNamespace() != namespace {
			continue
		}
		if !selector.Matches(labels.Set(obj.GetLabels())) {
			continue
		}
		items = append(items, obj.DeepCopy())
	}
	return items, nil
}

func (f *fakeAccess) Create(ctx context.Context, obj *unstructured.Unstructured) (*unstructured.Unstructured, error) {
	stored := obj.DeepCopy()
	if stored.GetNamespace() == "" {
		stored.SetNamespace("default")
	}
	key := storeKey(stored.GroupVersionKind(), stored.GetNamespace(), stored.GetName())
	f.objects[key] = stored
	f.ops = append(f.ops, "create "+key)
	return stored.DeepCopy(), nil
}

func (f *fakeAccess) Patch(ctx context.Context, gvk schema.GroupVersionKind, namespace, name string, patch jsonpatch.Patch) (*unstructured.Unstructured, error) {
	key := storeKey(gvk, namespace, name)
	obj, ok := f.objects[key]
	if !ok {
		return nil, apierrors.NewNotFound(schema.GroupResource{Group: gvk.Group, Resource: strings.ToLower(gvk.Kind) + "s"}, name)
	}
	f.patches[key] = patch
	f.ops = append(f.ops, "patch "+key)
	return obj.DeepCopy(), nil
}

func (f *fakeAccess) Delete(ctx context.Context, gvk schema.GroupVersionKind, namespace, name string) error {
	key := storeKey(gvk, namespace, name)
	if _, ok := f.objects[key]; !ok {
		return apierrors.NewNotFound(schema.GroupResource{Group: gvk.Group, Resource: strings.ToLower(gvk.Kind) + "s"}, name)
	}
	delete(f.objects, key)
	f.ops = append(f.ops, "delete "+key)
	return nil
}

func (f *fakeAccess) DeleteCollection(ctx context.Context, gvk schema.GroupVersionKind, namespace, labelSelector string) ([]*unstructured.Unstructured, error) {
	items, err := f.List(ctx, gvk, namespace, labelSelector)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if err := f.Delete(ctx, gvk, item.GetNamespace(), item.GetName()); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (f *fakeAccess) opCount(verb string) int {
	n := 0
	for _, op := range f.ops {
		if strings.HasPrefix(op, verb+" ") {
			n++
		}
	}
	return n
}

func serviceDoc(name string, port int64, extraLabels map[string]string) *unstructured.Unstructured {
	obj := &unstructured.Unstructured{Object: map[string]any{
		"apiVersion": "v1",
		"kind":       "Service",
		"metadata": map[string]any{
			"name": name,
		},
		"spec": map[string]any{
			"ports": []any{map[string]any{"port": port}},
		},
	}}
	if len(extraLabels) > 0 {
		obj.SetLabels(extraLabels)
	}
	return obj
}

func taggedLive(name string, port int64, stackName string) *unstructured.Unstructured {
	obj := serviceDoc(name, port, map[string]string{DefaultStackLabel: stackName})
	obj.SetNamespace("default")
	return obj
}

func testStack(name string, docs ...*unstructured.Unstructured) *stack.Stack {
	return &stack.Stack{Name: name, SourcePath: "/tmp/" + name, Resources: docs}
}

func newTestDriver(access *fakeAccess) *Driver {
	return New(access, logr.Discard(), Options{})
}

func TestApplyCreatesAndTags(t *testing.T) {
	access := newFakeAccess()
	driver := newTestDriver(access)
	st := testStack("demo", serviceDoc("web", 80, nil), serviceDoc("api", 8080, nil))

	result, err := driver.Apply(context.Background(), st, ApplyOptions{})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.Count(ActionCreated) != 2 {
		t.Fatalf("expected 2 creates, got %+v", result.Resources)
	}
	created := access.objects[storeKey(serviceGVK(), "default", "web")]
	if created == nil {
		t.Fatal("web service not stored")
	}
	if created.GetLabels()[DefaultStackLabel] != "demo" {
		t.Fatalf("expected stack label on created resource, got %v", created.GetLabels())
	}
}

func serviceGVK() schema.GroupVersionKind {
	return schema.GroupVersionKind{Version: "v1", Kind: "Service"}
}

func TestApplyIdempotent(t *testing.T) {
	access := newFakeAccess()
	driver := newTestDriver(access)
	st := testStack("demo", serviceDoc("web", 80, nil))

	if _, err := driver.Apply(context.Background(), st, ApplyOptions{}); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	result, err := driver.Apply(context.Background(), st, ApplyOptions{})
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if result.Count(ActionUnchanged) != 1 {
		t.Fatalf("expected unchanged on second run, got %+v", result.Resources)
	}
	if access.opCount("patch") != 0 {
		t.Fatalf("expected no patch calls on idempotent apply, ops: %v", access.ops)
	}
	if access.opCount("create") != 1 {
		t.Fatalf("expected a single create overall, ops: %v", access.ops)
	}
}

func TestApplyPatchesDrift(t *testing.T) {
	access := newFakeAccess()
	live := taggedLive("web", 8080, "demo")
	// Server-owned fields must not leak into the patch.
	live.Object["status"] = map[string]any{"loadBalancer": map[string]any{}}
	live.SetResourceVersion("42")
	live.SetUID("abc-123")
	access.objects[storeKey(serviceGVK(), "default", "web")] = live

	driver := newTestDriver(access)
	st := testStack("demo", serviceDoc("web", 80, nil))
	result, err := driver.Apply(context.Background(), st, ApplyOptions{})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.Count(ActionConfigured) != 1 {
		t.Fatalf("expected one configured resource, got %+v", result.Resources)
	}
	patch := access.patches[storeKey(serviceGVK(), "default", "web")]
	if len(patch) != 1 {
		t.Fatalf("expected exactly one operation, got %+v", patch)
	}
	op := patch[0]
	if op.Op != jsonpatch.OpReplace || op.Path != "/spec/ports/0/port" || op.Value != int64(80) {
		t.Fatalf("unexpected operation: %+v", op)
	}
}

func TestApplyPruneRemovesUndeclaredOnly(t *testing.T) {
	access := newFakeAccess()
	access.objects[storeKey(serviceGVK(), "default", "old")] = taggedLive("old", 80, "demo")
	access.objects[storeKey(serviceGVK(), "default", "foreign")] = taggedLive("foreign", 80, "other-stack")

	driver := newTestDriver(access)
	st := testStack("demo", serviceDoc("web", 80, nil))
	result, err := driver.Apply(context.Background(), st, ApplyOptions{Prune: true})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.Count(ActionPruned) != 1 {
		t.Fatalf("expected exactly one pruned resource, got %+v", result.Resources)
	}
	if _, ok := access.objects[storeKey(serviceGVK(), "default", "old")]; ok {
		t.Fatal("expected old to be pruned")
	}
	if _, ok := access.objects[storeKey(serviceGVK(), "default", "web")]; !ok {
		t.Fatal("declared resource must survive prune")
	}
	if _, ok := access.objects[storeKey(serviceGVK(), "default", "foreign")]; !ok {
		t.Fatal("resources of other stacks must survive prune")
	}
}

func TestApplyPrunesAfterCreates(t *testing.T) {
	access := newFakeAccess()
	access.objects[storeKey(serviceGVK(), "default", "web-v1")] = taggedLive("web-v1", 80, "demo")

	driver := newTestDriver(access)
	// Rename within the stack: web-v1 becomes web-v2.
	st := testStack("demo", serviceDoc("web-v2", 80, nil))
	if _, err := driver.Apply(context.Background(), st, ApplyOptions{Prune: true}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(access.ops) < 2 {
		t.Fatalf("expected create then delete, ops: %v", access.ops)
	}
	if !strings.HasPrefix(access.ops[0], "create ") || !strings.Contains(access.ops[0], "web-v2") {
		t.Fatalf("expected replacement created first, ops: %v", access.ops)
	}
	last := access.ops[len(access.ops)-1]
	if !strings.HasPrefix(last, "delete ") || !strings.Contains(last, "web-v1") {
		t.Fatalf("expected old name pruned last, ops: %v", access.ops)
	}
	if _, ok := access.objects[storeKey(serviceGVK(), "default", "web-v2")]; !ok {
		t.Fatal("replacement must exist after prune")
	}
}

func TestApplyPropagatesTransportError(t *testing.T) {
	access := newFakeAccess()
	boom := errors.New("connection refused")
	access.getErr[storeKey(serviceGVK(), "default", "api")] = boom

	driver := newTestDriver(access)
	st := testStack("demo", serviceDoc("web", 80, nil), serviceDoc("api", 8080, nil))
	result, err := driver.Apply(context.Background(), st, ApplyOptions{})
	if err == nil || !errors.Is(err, boom) {
		t.Fatalf("expected transport error to propagate, got %v", err)
	}
	// Partial convergence stays visible.
	if result.Count(ActionCreated) != 1 {
		t.Fatalf("expected the first resource recorded before the failure, got %+v", result.Resources)
	}
}

func TestApplyRejectsInvalidStackName(t *testing.T) {
	driver := newTestDriver(newFakeAccess())
	st := testStack("not a label!", serviceDoc("web", 80, nil))
	if _, err := driver.Apply(context.Background(), st, ApplyOptions{}); err == nil {
		t.Fatal("expected invalid stack name to be rejected")
	}
}

func TestDeleteRemovesTaggedAndStray(t *testing.T) {
	access := newFakeAccess()
	access.objects[storeKey(serviceGVK(), "default", "web")] = taggedLive("web", 80, "demo")
	access.objects[storeKey(serviceGVK(), "default", "stray")] = taggedLive("stray", 80, "demo")
	access.objects[storeKey(serviceGVK(), "default", "foreign")] = taggedLive("foreign", 80, "other-stack")

	driver := newTestDriver(access)
	st := testStack("demo", serviceDoc("web", 80, nil))
	result, err := driver.Delete(context.Background(), st)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if result.Count(ActionDeleted) != 2 {
		t.Fatalf("expected web and stray deleted, got %+v", result.Resources)
	}
	if _, ok := access.objects[storeKey(serviceGVK(), "default", "foreign")]; !ok {
		t.Fatal("other stacks' resources must survive delete")
	}
}

func TestDeleteAlreadyGoneIsClean(t *testing.T) {
	access := newFakeAccess()
	driver := newTestDriver(access)
	st := testStack("demo", serviceDoc("web", 80, nil), serviceDoc("api", 8080, nil))

	result, err := driver.Delete(context.Background(), st)
	if err != nil {
		t.Fatalf("expected clean delete of an absent stack, got %v", err)
	}
	if result.Count(ActionSkipped) != 2 {
		t.Fatalf("expected a skip per missing declared resource, got %+v", result.Resources)
	}
	if result.Count(ActionDeleted) != 0 {
		t.Fatalf("nothing should have been deleted, got %+v", result.Resources)
	}
}

func TestPlanIsReadOnly(t *testing.T) {
	access := newFakeAccess()
	access.objects[storeKey(serviceGVK(), "default", "web")] = taggedLive("web", 8080, "demo")
	access.objects[storeKey(serviceGVK(), "default", "old")] = taggedLive("old", 80, "demo")

	driver := newTestDriver(access)
	st := testStack("demo", serviceDoc("web", 80, nil), serviceDoc("new", 80, nil))
	entries, err := driver.Plan(context.Background(), st)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(access.ops) != 0 {
		t.Fatalf("plan must not mutate, ops: %v", access.ops)
	}

	actions := map[string]Action{}
	for _, entry := range entries {
		actions[entry.Name] = entry.Action
	}
	if actions["web"] != ActionConfigured {
		t.Fatalf("expected web to be configured, got %v", actions)
	}
	if actions["new"] != ActionCreated {
		t.Fatalf("expected new to be created, got %v", actions)
	}
	if actions["old"] != ActionPruned {
		t.Fatalf("expected old to be prune candidate, got %v", actions)
	}
	for _, entry := range entries {
		if entry.Name == "web" && len(entry.Patch) == 0 {
			t.Fatalf("expected pending patch for web, got %+v", entry)
		}
	}
}
