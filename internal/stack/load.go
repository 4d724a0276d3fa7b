// File: internal/stack/load.go
// Brief: Filesystem loading of stack manifests.

package stack

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	yamlutil "k8s.io/apimachinery/pkg/util/yaml"
)

const stackfileName = "stack.yaml"

// MalformedDocumentError reports a declared document missing the identity
// fields reconciliation needs. It aborts the load: a stack with an
// unaddressable resource cannot be applied safely.
type MalformedDocumentError struct {
	Source string
	Index  int
	Reason string
}

func (e *MalformedDocumentError) Error() string {
	return fmt.Sprintf("malformed document %d in %s: %s", e.Index, e.Source, e.Reason)
}

// Load reads the declared documents for a stack from a single manifest file
// or a directory of manifests. Directory loads are deterministic: lexical
// path order, unless a stack.yaml pins an explicit manifest list. No cluster
// access happens here.
func Load(name, sourcePath string) (*Stack, error) {
	absPath, err := filepath.Abs(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("resolve source path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat source path: %w", err)
	}

	var files []string
	if info.IsDir() {
		stackfile, err := readStackfile(absPath)
		if err != nil {
			return nil, err
		}
		if stackfile != nil && strings.TrimSpace(stackfile.Name) != "" && name == "" {
			name = stackfile.Name
		}
		if stackfile != nil && len(stackfile.Manifests) > 0 {
			files, err = resolveManifests(absPath, stackfile.Manifests)
		} else {
			files, err = discoverManifests(absPath)
		}
		if err != nil {
			return nil, err
		}
	} else {
		files = []string{absPath}
	}

	if strings.TrimSpace(name) == "" {
		return nil, errors.New("stack name is required (pass one or set it in stack.yaml)")
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no manifests found under %s", absPath)
	}

	st := &Stack{Name: name, SourcePath: absPath}
	for _, file := range files {
		docs, err := readManifest(file)
		if err != nil {
			return nil, err
		}
		st.Resources = append(st.Resources, docs...)
	}
	if len(st.Resources) == 0 {
		return nil, fmt.Errorf("no resource documents found under %s", absPath)
	}
	return st, nil
}

func readStackfile(dir string) (*Stackfile, error) {
	path := filepath.Join(dir, stackfileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var sf Stackfile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &sf, nil
}

func resolveManifests(dir string, entries []string) ([]string, error) {
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		path := entry
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("stack.yaml manifest entry %q: %w", entry, err)
		}
		files = append(files, path)
	}
	return files, nil
}

func discoverManifests(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if name := d.Name(); name == ".git" || name == "bin" || name == "dist" {
				return fs.SkipDir
			}
			return nil
		}
		if filepath.Base(path) == stackfileName && filepath.Dir(path) == dir {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml", ".json":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	return files, nil
}

func readManifest(path string) ([]*unstructured.Unstructured, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	var docs []*unstructured.Unstructured
	decoder := yamlutil.NewYAMLOrJSONDecoder(bufio.NewReader(f), 4096)
	for index := 0; ; index++ {
		obj := &unstructured.Unstructured{}
		if err := decoder.Decode(obj); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		if len(obj.Object) == 0 {
			continue
		}
		if err := validateIdentity(obj, path, index); err != nil {
			return nil, err
		}
		docs = append(docs, obj)
	}
	return docs, nil
}

func validateIdentity(obj *unstructured.Unstructured, source string, index int) error {
	if strings.TrimSpace(obj.GetAPIVersion()) == "" {
		return &MalformedDocumentError{Source: source, Index: index, Reason: "missing apiVersion"}
	}
	if strings.TrimSpace(obj.GetKind()) == "" {
		return &MalformedDocumentError{Source: source, Index: index, Reason: "missing kind"}
	}
	if strings.TrimSpace(obj.GetName()) == "" {
		return &MalformedDocumentError{Source: source, Index: index, Reason: "missing metadata.name"}
	}
	return nil
}
