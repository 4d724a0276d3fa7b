// File: internal/reconcile/normalize.go
// Brief: Live-object projection applied before diffing.

package reconcile

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Metadata fields the API server owns. Declared manifests never carry them,
// so they must not show up as removals in the computed patch.
var serverMetadataFields = []string{
	"creationTimestamp",
	"generation",
	"managedFields",
	"resourceVersion",
	"uid",
	"selfLink",
}

var ignoredAnnotationKeys = []string{
	"kubectl.kubernetes.io/last-applied-configuration",
}

// normalizeLive returns the live object's content reduced to the fields a
// declared manifest competes for: status and server-generated metadata are
// stripped. The returned map is a deep copy; patch paths computed against it
// remain valid against the unmodified live object.
func normalizeLive(obj *unstructured.Unstructured) map[string]any {
	clone := obj.DeepCopy()
	unstructured.RemoveNestedField(clone.Object, "status")

	meta, ok := clone.Object["metadata"].(map[string]any)
	if !ok {
		return clone.Object
	}
	for _, field := range serverMetadataFields {
		delete(meta, field)
	}
	if annotations, ok := meta["annotations"].(map[string]any); ok {
		for _, key := range ignoredAnnotationKeys {
			delete(annotations, key)
		}
		if len(annotations) == 0 {
			delete(meta, "annotations")
		}
	}
	return clone.Object
}
