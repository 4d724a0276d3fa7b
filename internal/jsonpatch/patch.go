// File: internal/jsonpatch/patch.go
// Brief: RFC 6902 patch operations built from structural diff changes.

// Package jsonpatch encodes structural diff output as a JSON Patch: an
// ordered list of add/remove/replace operations addressed by JSON Pointer
// paths. The serialized patch is the only wire artifact the reconciler
// produces; it is sent verbatim as an application/json-patch+json body.
package jsonpatch

import (
	"encoding/json"
	"fmt"

	"github.com/example/stackctl/internal/diff"
)

// Op is a JSON Patch operation type.
type Op string

const (
	OpAdd     Op = "add"
	OpRemove  Op = "remove"
	OpReplace Op = "replace"
)

// Operation is a single RFC 6902 patch entry.
type Operation struct {
	Op    Op     `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// MarshalJSON keeps the value member for add/replace even when it is a JSON
// zero value (false, 0, "", null); omitempty would silently drop it.
func (o Operation) MarshalJSON() ([]byte, error) {
	fields := map[string]any{
		"op":   o.Op,
		"path": o.Path,
	}
	if o.Op != OpRemove {
		fields["value"] = o.Value
	}
	return json.Marshal(fields)
}

// Patch is an ordered sequence of operations.
type Patch []Operation

// Marshal renders the patch in its wire format.
func (p Patch) Marshal() ([]byte, error) {
	return json.Marshal([]Operation(p))
}

// Build maps diff changes onto patch operations, preserving discovery order.
// A change op outside add/remove/replace indicates a bug in the diff
// computer and is returned as an error rather than silently skipped.
func Build(changes []diff.Change) (Patch, error) {
	if len(changes) == 0 {
		return nil, nil
	}
	patch := make(Patch, 0, len(changes))
	for _, change := range changes {
		path := EncodePointer(change.Path)
		switch change.Op {
		case diff.OpAdd:
			patch = append(patch, Operation{Op: OpAdd, Path: path, Value: change.New})
		case diff.OpRemove:
			patch = append(patch, Operation{Op: OpRemove, Path: path})
		case diff.OpReplace:
			patch = append(patch, Operation{Op: OpReplace, Path: path, Value: change.New})
		default:
			return nil, fmt.Errorf("internal diff error: unknown change op %q at %s", change.Op, path)
		}
	}
	return patch, nil
}
