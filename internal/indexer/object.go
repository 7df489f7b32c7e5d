package indexer

// Object is the tagged union of Blob and Tree nodes that make up a Merkle
// tree. Every non-root node has a parent hash; the root's parent is absent.
type Object interface {
	// Hash returns the object's content-addressed identity.
	Hash() ObjectHash
	// Path returns the walker-relative path of this node.
	Path() string
	// IsBlob reports whether this object is a leaf (file) rather than a
	// directory.
	IsBlob() bool
	// setParent records the hash of the Tree that directly contains this
	// object. Called only during the post-construction parent-fixup pass.
	setParent(h ObjectHash)
	// parent returns the recorded parent hash and whether one is set.
	parent() (ObjectHash, bool)
}

// Blob is a leaf node: one regular text file's content-addressed identity.
type Blob struct {
	ParentHash   ObjectHash
	HasParent    bool
	BlobHash     ObjectHash
	RelativePath string
}

func (b *Blob) Hash() ObjectHash { return b.BlobHash }
func (b *Blob) Path() string     { return b.RelativePath }
func (b *Blob) IsBlob() bool     { return true }

func (b *Blob) setParent(h ObjectHash) {
	b.ParentHash = h
	b.HasParent = true
}

func (b *Blob) parent() (ObjectHash, bool) { return b.ParentHash, b.HasParent }

// Tree is an internal node: one directory, hashed over its children's
// hashes in the walker's deterministic order.
type Tree struct {
	ParentHash   ObjectHash
	HasParent    bool
	Children     []Object
	TreeHash     ObjectHash
	RelativePath string
}

func (t *Tree) Hash() ObjectHash { return t.TreeHash }
func (t *Tree) Path() string     { return t.RelativePath }
func (t *Tree) IsBlob() bool     { return false }

func (t *Tree) setParent(h ObjectHash) {
	t.ParentHash = h
	t.HasParent = true
}

func (t *Tree) parent() (ObjectHash, bool) { return t.ParentHash, t.HasParent }

// ObjDescription is the flattened view used in diff output and cache
// operations.
type ObjDescription struct {
	Hash   ObjectHash
	Path   string
	IsBlob bool
}

func describe(o Object) ObjDescription {
	return ObjDescription{Hash: o.Hash(), Path: o.Path(), IsBlob: o.IsBlob()}
}

// setChildrensParent traverses a tree in pre-order, stamping each child's
// parent field with the hash of the Tree directly containing it. The
// parent's hash is only known once its own children have been hashed, so
// this runs as a pass separate from tree construction.
func setChildrensParent(t *Tree) {
	for _, child := range t.Children {
		child.setParent(t.Hash())
		if childTree, ok := child.(*Tree); ok {
			setChildrensParent(childTree)
		}
	}
}

// flatten performs a pre-order walk of o, emitting one ObjDescription per
// node (trees and blobs alike).
func flatten(o Object, out *[]ObjDescription) {
	*out = append(*out, describe(o))
	if t, ok := o.(*Tree); ok {
		for _, child := range t.Children {
			flatten(child, out)
		}
	}
}

// defaultTree is substituted when no prior tree file exists, or the
// persisted tree cannot be parsed: parent=none, children=[], hash=[0;20],
// path="". This is distinct from a genuinely empty directory, whose hash
// is computed as sha1("tree") by the builder (see treeHash(nil)).
func defaultTree() *Tree {
	return &Tree{
		Children:     nil,
		TreeHash:     ObjectHash{},
		RelativePath: "",
	}
}
