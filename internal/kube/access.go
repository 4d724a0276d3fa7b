// File: internal/kube/access.go
// Brief: Resource access surface over the dynamic client.

// Package kube wraps client-go so the reconciler can fetch and mutate
// arbitrary resources by GroupVersionKind without compiled-in types.
package kube

import (
	"context"
	"fmt"

	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/dynamic"

	"github.com/example/stackctl/internal/jsonpatch"
)

// ResourceAccess is the narrow capability the reconciler consumes. NotFound
// conditions surface as apierrors-compatible errors so callers classify
// them with apierrors.IsNotFound.
type ResourceAccess interface {
	Get(ctx context.Context, gvk schema.GroupVersionKind, namespace, name string) (*unstructured.Unstructured, error)
	List(ctx context.Context, gvk schema.GroupVersionKind, namespace, labelSelector string) ([]*unstructured.Unstructured, error)
	Create(ctx context.Context, obj *unstructured.Unstructured) (*unstructured.Unstructured, error)
	Patch(ctx context.Context, gvk schema.GroupVersionKind, namespace, name string, patch jsonpatch.Patch) (*unstructured.Unstructured, error)
	Delete(ctx context.Context, gvk schema.GroupVersionKind, namespace, name string) error
	DeleteCollection(ctx context.Context, gvk schema.GroupVersionKind, namespace, labelSelector string) ([]*unstructured.Unstructured, error)
}

// Access implements ResourceAccess on a dynamic client plus a REST mapper.
type Access struct {
	dynamic          dynamic.Interface
	mapper           meta.RESTMapper
	defaultNamespace string
}

var _ ResourceAccess = (*Access)(nil)

// NewAccess wires a dynamic client and mapper into a ResourceAccess. The
// default namespace applies to namespaced resources that omit one.
func NewAccess(dyn dynamic.Interface, mapper meta.RESTMapper, defaultNamespace string) *Access {
	if defaultNamespace == "" {
		defaultNamespace = metav1.NamespaceDefault
	}
	return &Access{dynamic: dyn, mapper: mapper, defaultNamespace: defaultNamespace}
}

// resourceFor resolves a GVK to a namespaced (or cluster-scoped) resource
// client. An empty namespace falls back to the default namespace.
func (a *Access) resourceFor(gvk schema.GroupVersionKind, namespace string) (dynamic.ResourceInterface, error) {
	mapping, err := a.mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
	if err != nil {
		return nil, fmt.Errorf("map kind %s: %w", gvk, err)
	}
	if mapping.Scope.Name() != meta.RESTScopeNameNamespace {
		return a.dynamic.Resource(mapping.Resource), nil
	}
	if namespace == "" {
		namespace = a.defaultNamespace
	}
	return a.dynamic.Resource(mapping.Resource).Namespace(namespace), nil
}

// collectionFor is resourceFor for listing: an empty namespace means all
// namespaces, not the default one.
func (a *Access) collectionFor(gvk schema.GroupVersionKind, namespace string) (dynamic.ResourceInterface, error) {
	mapping, err := a.mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
	if err != nil {
		return nil, fmt.Errorf("map kind %s: %w", gvk, err)
	}
	if mapping.Scope.Name() != meta.RESTScopeNameNamespace {
		return a.dynamic.Resource(mapping.Resource), nil
	}
	return a.dynamic.Resource(mapping.Resource).Namespace(namespace), nil
}

func (a *Access) Get(ctx context.Context, gvk schema.GroupVersionKind, namespace, name string) (*unstructured.Unstructured, error) {
	client, err := a.resourceFor(gvk, namespace)
	if err != nil {
		return nil, err
	}
	return client.Get(ctx, name, metav1.GetOptions{})
}

func (a *Access) List(ctx context.Context, gvk schema.GroupVersionKind, namespace, labelSelector string) ([]*unstructured.Unstructured, error) {
	client, err := a.collectionFor(gvk, namespace)
	if err != nil {
		return nil, err
	}
	list, err := client.List(ctx, metav1.ListOptions{LabelSelector: labelSelector})
	if err != nil {
		return nil, err
	}
	items := make([]*unstructured.Unstructured, 0, len(list.Items))
	for i := range list.Items {
		items = append(items, &list.Items[i])
	}
	return items, nil
}

func (a *Access) Create(ctx context.Context, obj *unstructured.Unstructured) (*unstructured.Unstructured, error) {
	client, err := a.resourceFor(obj.GroupVersionKind(), obj.GetNamespace())
	if err != nil {
		return nil, err
	}
	return client.Create(ctx, obj, metav1.CreateOptions{})
}

func (a *Access) Patch(ctx context.Context, gvk schema.GroupVersionKind, namespace, name string, patch jsonpatch.Patch) (*unstructured.Unstructured, error) {
	client, err := a.resourceFor(gvk, namespace)
	if err != nil {
		return nil, err
	}
	data, err := patch.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal patch: %w", err)
	}
	return client.Patch(ctx, name, types.JSONPatchType, data, metav1.PatchOptions{})
}

func (a *Access) Delete(ctx context.Context, gvk schema.GroupVersionKind, namespace, name string) error {
	client, err := a.resourceFor(gvk, namespace)
	if err != nil {
		return err
	}
	return client.Delete(ctx, name, metav1.DeleteOptions{})
}

// DeleteCollection lists the matching resources and deletes them one by one,
// returning the documents it removed. The per-item loop (rather than the
// server-side collection delete) keeps behavior uniform across kinds that
// do not support collection deletion.
func (a *Access) DeleteCollection(ctx context.Context, gvk schema.GroupVersionKind, namespace, labelSelector string) ([]*unstructured.Unstructured, error) {
	items, err := a.List(ctx, gvk, namespace, labelSelector)
	if err != nil {
		return nil, err
	}
	deleted := make([]*unstructured.Unstructured, 0, len(items))
	for _, item := range items {
		if err := a.Delete(ctx, gvk, item.GetNamespace(), item.GetName()); err != nil {
			return deleted, err
		}
		deleted = append(deleted, item)
	}
	return deleted, nil
}
