package indexer

// Diff compares two trees and produces the flattened add/remove
// description lists per spec §4.E. Matching between a directory's children
// is by path only; rename detection is explicitly out of scope.
func Diff(oldTree, newTree *Tree) (added, removed []ObjDescription) {
	diffObjects(oldTree, newTree, &added, &removed)
	return added, removed
}

// diffObjects applies the recursive classification rules to one matched
// pair of nodes (old may be nil meaning "added", new may be nil meaning
// "removed" — though at the top level both are always present).
func diffObjects(old, new_ Object, added, removed *[]ObjDescription) {
	if old == nil && new_ == nil {
		return
	}
	if old == nil {
		flatten(new_, added)
		return
	}
	if new_ == nil {
		flatten(old, removed)
		return
	}

	if old.Hash() == new_.Hash() {
		return
	}

	oldTree, oldIsTree := old.(*Tree)
	newTree, newIsTree := new_.(*Tree)

	if oldIsTree != newIsTree {
		// Type flip: file <-> directory at the same path. Flatten both
		// sides entirely rather than attempting to match children.
		flatten(old, removed)
		flatten(new_, added)
		return
	}

	if !oldIsTree {
		// Both Blobs, different hashes.
		*removed = append(*removed, describe(old))
		*added = append(*added, describe(new_))
		return
	}

	// Both Trees, different hashes: record this level, then recurse into
	// children matched by path.
	*added = append(*added, describe(newTree))
	*removed = append(*removed, describe(oldTree))
	diffChildren(oldTree, newTree, added, removed)
}

// diffChildren matches old's and new's children by path. A new child with
// no matching old path is flattened wholesale into added; any old path
// left unmatched after all new children are processed is flattened into
// removed.
func diffChildren(old, new_ *Tree, added, removed *[]ObjDescription) {
	oldByPath := make(map[string]Object, len(old.Children))
	for _, c := range old.Children {
		oldByPath[c.Path()] = c
	}

	matched := make(map[string]bool, len(new_.Children))
	for _, newChild := range new_.Children {
		if oldChild, ok := oldByPath[newChild.Path()]; ok {
			matched[newChild.Path()] = true
			diffObjects(oldChild, newChild, added, removed)
			continue
		}
		flatten(newChild, added)
	}

	for path, oldChild := range oldByPath {
		if !matched[path] {
			flatten(oldChild, removed)
		}
	}
}
