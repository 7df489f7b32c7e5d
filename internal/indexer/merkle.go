package indexer

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/continuedev/continueindex/internal/observability"
)

// preTree accumulates a directory's children while the builder's stack is
// still open on it; it becomes a Tree once every entry under it has been
// seen.
type preTree struct {
	path     string
	children []Object
}

func (p *preTree) finalize() *Tree {
	hashes := make([]ObjectHash, len(p.children))
	for i, c := range p.children {
		hashes[i] = c.Hash()
	}
	return &Tree{
		Children:     p.children,
		TreeHash:     treeHash(hashes),
		RelativePath: p.path,
	}
}

// isUnder reports whether path is dir itself or nested under it.
func isUnder(path, dir string) bool {
	if dir == "" {
		return true
	}
	return path == dir || strings.HasPrefix(path, dir+"/")
}

// buildTree builds the Tree/Blob object graph for dir via the
// ignore-respecting walker. Maintains a stack of pre-trees: the walker
// yields the root first, then every subsequent entry in pre-order. Each
// entry first pops and finalizes any stack frames it is no longer nested
// under, then either pushes a new frame (directory) or appends a Blob
// (file, when readable as UTF-8).
func buildTree(ctx context.Context, dir string, indexRoot string, logger *observability.Logger, metrics *observability.MetricsCollector) (*Tree, error) {
	entries, err := walkDir(dir, indexRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: walk %s: %v", ErrIoFailure, dir, err)
	}
	if metrics != nil {
		metrics.RecordFilesWalked(len(entries))
	}
	if len(entries) == 0 {
		root := (&preTree{path: ""}).finalize()
		return root, nil
	}

	stack := []*preTree{{path: entries[0].relPath}}

	for _, e := range entries[1:] {
		for len(stack) > 1 && !isUnder(e.relPath, stack[len(stack)-1].path) {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			finalized := top.finalize()
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, finalized)
		}

		if e.isDir {
			stack = append(stack, &preTree{path: e.relPath})
			continue
		}

		content, err := os.ReadFile(e.abs)
		if err != nil {
			// IoFailure reading an individual file is treated the same as
			// non-UTF-8: silently skipped, matching the original's
			// fallible read-as-UTF-8 step.
			if logger != nil {
				logger.LogWalkSkip(ctx, e.relPath, "io_failure")
			}
			if metrics != nil {
				metrics.RecordFilesSkippedBinary(1)
			}
			continue
		}
		if !utf8.Valid(content) {
			if logger != nil {
				logger.LogWalkSkip(ctx, e.relPath, "not_valid_utf8")
			}
			if metrics != nil {
				metrics.RecordFilesSkippedBinary(1)
			}
			continue
		}

		ext := strings.TrimPrefix(filepath.Ext(e.relPath), ".")
		blob := &Blob{BlobHash: blobHash(content, ext), RelativePath: e.relPath}
		top := stack[len(stack)-1]
		top.children = append(top.children, blob)
	}

	for len(stack) > 1 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		finalized := top.finalize()
		parent := stack[len(stack)-1]
		parent.children = append(parent.children, finalized)
	}

	root := stack[0].finalize()
	setChildrensParent(root)
	return root, nil
}

// jsonNode is the JSONL record shape from spec §6: parent/hash as 20-byte
// arrays (Go arrays, not slices, so encoding/json renders them as number
// arrays rather than base64), children present (possibly empty) for a
// Tree and nil for a Blob.
type jsonNode struct {
	Parent   *ObjectHash   `json:"parent"`
	Children *[]ObjectHash `json:"children"`
	Hash     ObjectHash    `json:"hash"`
	Path     string        `json:"path"`
}

func toJSONNode(o Object) jsonNode {
	var parentPtr *ObjectHash
	if p, ok := o.parent(); ok {
		parentPtr = &p
	}
	node := jsonNode{Parent: parentPtr, Hash: o.Hash(), Path: o.Path()}
	if t, ok := o.(*Tree); ok {
		hashes := make([]ObjectHash, len(t.Children))
		for i, c := range t.Children {
			hashes[i] = c.Hash()
		}
		node.Children = &hashes
	}
	return node
}

// writeJSONL serializes o in pre-order: o's own line first, then the
// recursive serialization of each child in children order.
func writeJSONL(w *bufio.Writer, o Object) error {
	data, err := json.Marshal(toJSONNode(o))
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if err := w.WriteByte('\n'); err != nil {
		return err
	}
	if t, ok := o.(*Tree); ok {
		for _, child := range t.Children {
			if err := writeJSONL(w, child); err != nil {
				return err
			}
		}
	}
	return nil
}

// persistTree writes t to path as newline-delimited JSON, creating parent
// directories as needed.
func persistTree(t *Tree, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: create tree dir: %v", ErrIoFailure, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create tree file: %v", ErrIoFailure, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := writeJSONL(w, t); err != nil {
		return fmt.Errorf("%w: write tree: %v", ErrIoFailure, err)
	}
	return w.Flush()
}

// loadTree reads the tree persisted at path. A missing file yields the
// default empty tree (not an error); a file that fails to parse is
// treated the same way (CorruptSerialization, silently recovered).
func loadTree(ctx context.Context, path string, logger *observability.Logger) *Tree {
	data, err := os.ReadFile(path)
	if err != nil {
		return defaultTree()
	}
	if len(data) == 0 {
		return defaultTree()
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	idx := 0
	obj, err := objFromJSONL(lines, &idx)
	if err != nil {
		if logger != nil {
			logger.LogCacheCorruption(ctx, path, err)
		}
		return defaultTree()
	}
	tree, ok := obj.(*Tree)
	if !ok {
		if logger != nil {
			logger.LogCacheCorruption(ctx, path, fmt.Errorf("%w: root record is not a tree", ErrCorruptSerialization))
		}
		return defaultTree()
	}
	return tree
}

// objFromJSONL parses one object starting at lines[*idx], advancing *idx
// past it and, recursively, past every descendant line it owns.
func objFromJSONL(lines []string, idx *int) (Object, error) {
	if *idx >= len(lines) {
		return nil, fmt.Errorf("%w: unexpected end of tree", ErrCorruptSerialization)
	}
	var node jsonNode
	if err := json.Unmarshal([]byte(lines[*idx]), &node); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSerialization, err)
	}
	*idx++

	if node.Children == nil {
		b := &Blob{BlobHash: node.Hash, RelativePath: node.Path}
		if node.Parent != nil {
			b.ParentHash = *node.Parent
			b.HasParent = true
		}
		return b, nil
	}

	children := make([]Object, len(*node.Children))
	for i := range *node.Children {
		child, err := objFromJSONL(lines, idx)
		if err != nil {
			return nil, err
		}
		children[i] = child
	}

	t := &Tree{Children: children, TreeHash: node.Hash, RelativePath: node.Path}
	if node.Parent != nil {
		t.ParentHash = *node.Parent
		t.HasParent = true
	}
	return t, nil
}
