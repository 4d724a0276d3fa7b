// File: internal/diff/diff.go
// Brief: Structural diff over unstructured resource documents.

// Package diff computes the ordered change set that converges a live
// document onto a desired one. Documents are the unstructured values the
// Kubernetes dynamic client hands back: map[string]interface{},
// []interface{}, and JSON scalars.
package diff

import (
	"reflect"
	"sort"
)

// Op classifies a single change.
type Op string

const (
	OpAdd     Op = "add"
	OpRemove  Op = "remove"
	OpReplace Op = "replace"
)

// Change is one difference between the live and desired documents. Path
// holds raw tokens (string keys and int indices) from the document root.
type Change struct {
	Op   Op
	Path []any
	Old  any
	New  any
}

// Compute walks live and desired depth-first and returns the changes that
// would turn live into desired. Mapping keys are visited in sorted order so
// output is deterministic; sequences are compared positionally by index
// with no content-based matching, so a reorder surfaces as per-index
// replaces.
func Compute(live, desired map[string]any) []Change {
	return diffMaps(nil, live, desired)
}

func diffMaps(path []any, live, desired map[string]any) []Change {
	keys := make([]string, 0, len(live)+len(desired))
	seen := make(map[string]struct{}, len(live)+len(desired))
	for k := range desired {
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	for k := range live {
		if _, ok := seen[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var changes []Change
	for _, k := range keys {
		p := childPath(path, k)
		desiredVal, inDesired := desired[k]
		liveVal, inLive := live[k]
		switch {
		case !inLive:
			changes = append(changes, Change{Op: OpAdd, Path: p, New: desiredVal})
		case !inDesired:
			changes = append(changes, Change{Op: OpRemove, Path: p, Old: liveVal})
		default:
			changes = append(changes, diffValues(p, liveVal, desiredVal)...)
		}
	}
	return changes
}

func diffSequences(path []any, live, desired []any) []Change {
	longest := len(live)
	if len(desired) > longest {
		longest = len(desired)
	}
	var changes []Change
	for i := 0; i < longest; i++ {
		p := childPath(path, i)
		switch {
		case i >= len(live):
			changes = append(changes, Change{Op: OpAdd, Path: p, New: desired[i]})
		case i >= len(desired):
			changes = append(changes, Change{Op: OpRemove, Path: p, Old: live[i]})
		default:
			changes = append(changes, diffValues(p, live[i], desired[i])...)
		}
	}
	return changes
}

// diffValues handles a position present on both sides. Matching container
// types recurse; everything else (scalars, container/scalar mismatches,
// mapping vs sequence) is a single replace. A nil value is an ordinary
// scalar here: a key flipping to null is a replace, never a remove.
func diffValues(path []any, live, desired any) []Change {
	if liveMap, ok := live.(map[string]any); ok {
		if desiredMap, ok := desired.(map[string]any); ok {
			return diffMaps(path, liveMap, desiredMap)
		}
	}
	if liveSeq, ok := live.([]any); ok {
		if desiredSeq, ok := desired.([]any); ok {
			return diffSequences(path, liveSeq, desiredSeq)
		}
	}
	if valueEqual(live, desired) {
		return nil
	}
	return []Change{{Op: OpReplace, Path: path, Old: live, New: desired}}
}

func valueEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	return reflect.DeepEqual(a, b)
}

func childPath(path []any, token any) []any {
	p := make([]any, len(path)+1)
	copy(p, path)
	p[len(path)] = token
	return p
}
