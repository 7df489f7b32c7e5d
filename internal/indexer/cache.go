package indexer

import "path/filepath"

// IndexCache composes a provider-wide global DiskSet, a per-tag DiskSet,
// and access to the provider's RevTags store. It implements the four
// primitive operations the sync orchestrator drives: add, global_remove,
// local_remove, global_contains.
type IndexCache struct {
	tagStr      string
	providerDir string
	global      *DiskSet
	tag         *DiskSet
}

// providerDirPath returns <index_root>/providers/<provider_id>.
func providerDirPath(indexRoot, providerID string) string {
	return filepath.Join(indexRoot, "providers", providerID)
}

// NewIndexCache opens the global and tag-local DiskSets for the given tag.
func NewIndexCache(indexRoot string, tag Tag) (*IndexCache, error) {
	pd := providerDirPath(indexRoot, tag.ProviderID)

	global, err := NewDiskSet(filepath.Join(pd, ".index_cache"))
	if err != nil {
		return nil, err
	}

	tagDir := pathForTag(indexRoot, tag)
	tagCache, err := NewDiskSet(filepath.Join(tagDir, ".index_cache"))
	if err != nil {
		return nil, err
	}

	return &IndexCache{
		tagStr:      tag.String(),
		providerDir: pd,
		global:      global,
		tag:         tagCache,
	}, nil
}

// GlobalContains reports whether any tag has ever computed this blob.
func (c *IndexCache) GlobalContains(hash ObjectHash) (bool, error) {
	return c.global.Contains(hash)
}

// Add records d as known both globally and to this tag, and appends this
// tag's label to the hash's rev_tags entry.
func (c *IndexCache) Add(d ObjDescription) error {
	if err := c.global.Add(d.Hash); err != nil {
		return err
	}
	if err := c.tag.Add(d.Hash); err != nil {
		return err
	}
	return revTagsAdd(c.providerDir, d.Hash, c.tagStr)
}

// GlobalRemove evicts d from both DiskSets and deletes the hash's entire
// rev_tags entry, not just this tag's label (literal per spec §4.H/§9).
func (c *IndexCache) GlobalRemove(d ObjDescription) error {
	if err := c.global.Remove(d.Hash); err != nil {
		return err
	}
	if err := c.tag.Remove(d.Hash); err != nil {
		return err
	}
	return revTagsDeleteKey(c.providerDir, d.Hash)
}

// LocalRemove drops this tag's claim on d: removes it from the tag-local
// DiskSet only, and drops this tag's label from rev_tags (dropping the
// key entirely if no tag remains).
func (c *IndexCache) LocalRemove(d ObjDescription) error {
	if err := c.tag.Remove(d.Hash); err != nil {
		return err
	}
	return revTagsRemoveTag(c.providerDir, d.Hash, c.tagStr)
}

// RevTags returns the tags currently claiming hash.
func (c *IndexCache) RevTags(hash ObjectHash) []string {
	return revTagsGet(c.providerDir, hash)
}
