// File: internal/stack/types.go
// Brief: Stack model: a named, ordered set of declared resource documents.

// Package stack loads the declared side of a reconciliation: one or more
// Kubernetes manifests read from a file or directory, bound to a stack name
// that tags every resource the reconciler creates.
package stack

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// Stack is immutable after Load: reconciliation never mutates the declared
// documents, it deep-copies them before tagging.
type Stack struct {
	Name       string
	SourcePath string
	Resources  []*unstructured.Unstructured
}

// Kinds returns the unique GroupVersionKinds declared by the stack, in
// declaration order. Prune and delete scope their listing to these kinds.
func (s *Stack) Kinds() []schema.GroupVersionKind {
	seen := make(map[schema.GroupVersionKind]struct{}, len(s.Resources))
	kinds := make([]schema.GroupVersionKind, 0, len(s.Resources))
	for _, res := range s.Resources {
		gvk := res.GroupVersionKind()
		if _, ok := seen[gvk]; ok {
			continue
		}
		seen[gvk] = struct{}{}
		kinds = append(kinds, gvk)
	}
	return kinds
}

// Stackfile is an optional stack.yaml at the root of a source directory. It
// can pin the stack name and restrict/order the manifests to load; without
// it every manifest under the directory is loaded in lexical path order.
type Stackfile struct {
	Name      string   `yaml:"name,omitempty"`
	Manifests []string `yaml:"manifests,omitempty"`
}
