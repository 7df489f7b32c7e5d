package indexer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// revTagsDir returns <provider_dir>/rev_tags.
func revTagsDir(providerDir string) string {
	return filepath.Join(providerDir, "rev_tags")
}

// revTagsShardPath returns the shard file for hash: the first two hex
// characters of the hash select the shard.
func revTagsShardPath(providerDir string, hash ObjectHash) string {
	hex := hash.Hex()
	return filepath.Join(revTagsDir(providerDir), hex[:2])
}

// readRevTagsShard reads a shard file as a whole, deserializing to an
// empty map when the file is missing, empty, or unparsable
// (CorruptSerialization, recovered silently per §7).
func readRevTagsShard(path string) map[string][]string {
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return map[string][]string{}
	}

	var shard map[string][]string
	if err := json.Unmarshal(data, &shard); err != nil {
		return map[string][]string{}
	}
	if shard == nil {
		shard = map[string][]string{}
	}
	return shard
}

// writeRevTagsShard persists shard as a whole-file JSON object.
func writeRevTagsShard(path string, shard map[string][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: create rev_tags dir: %v", ErrIoFailure, err)
	}
	data, err := json.Marshal(shard)
	if err != nil {
		return fmt.Errorf("%w: marshal rev_tags shard: %v", ErrIoFailure, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: write rev_tags shard %s: %v", ErrIoFailure, path, err)
	}
	return nil
}

// revTagsAdd appends tagStr to hash's tag list in the provider's rev_tags
// store, creating the list if needed.
func revTagsAdd(providerDir string, hash ObjectHash, tagStr string) error {
	path := revTagsShardPath(providerDir, hash)
	shard := readRevTagsShard(path)
	key := hash.Hex()

	for _, t := range shard[key] {
		if t == tagStr {
			return nil
		}
	}
	shard[key] = append(shard[key], tagStr)
	return writeRevTagsShard(path, shard)
}

// revTagsDeleteKey removes hash's entire entry from rev_tags, regardless
// of how many tags it lists. This is the literal behavior specified for
// global_remove (§4.H, §9): it is not scoped to the caller's own tag.
func revTagsDeleteKey(providerDir string, hash ObjectHash) error {
	path := revTagsShardPath(providerDir, hash)
	shard := readRevTagsShard(path)
	key := hash.Hex()
	if _, ok := shard[key]; !ok {
		return nil
	}
	delete(shard, key)
	return writeRevTagsShard(path, shard)
}

// revTagsRemoveTag removes tagStr from hash's tag list; if the list
// becomes empty, the key itself is dropped.
func revTagsRemoveTag(providerDir string, hash ObjectHash, tagStr string) error {
	path := revTagsShardPath(providerDir, hash)
	shard := readRevTagsShard(path)
	key := hash.Hex()

	tags, ok := shard[key]
	if !ok {
		return nil
	}

	filtered := tags[:0]
	for _, t := range tags {
		if t != tagStr {
			filtered = append(filtered, t)
		}
	}
	if len(filtered) == 0 {
		delete(shard, key)
	} else {
		shard[key] = filtered
	}
	return writeRevTagsShard(path, shard)
}

// revTagsGet returns the tag list currently stored for hash; empty if
// absent. A pure read: it does not mutate the store as a side effect (see
// SPEC_FULL.md §12 on original_source's get_rev_tags).
func revTagsGet(providerDir string, hash ObjectHash) []string {
	shard := readRevTagsShard(revTagsShardPath(providerDir, hash))
	return shard[hash.Hex()]
}
