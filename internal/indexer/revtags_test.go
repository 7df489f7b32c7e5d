package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevTags_AddAndGet(t *testing.T) {
	providerDir := t.TempDir()
	h := hashOf(11)

	require.NoError(t, revTagsAdd(providerDir, h, "tagA"))
	require.NoError(t, revTagsAdd(providerDir, h, "tagB"))

	assert.ElementsMatch(t, []string{"tagA", "tagB"}, revTagsGet(providerDir, h))
}

func TestRevTags_AddIsIdempotentPerTag(t *testing.T) {
	providerDir := t.TempDir()
	h := hashOf(12)

	require.NoError(t, revTagsAdd(providerDir, h, "tagA"))
	require.NoError(t, revTagsAdd(providerDir, h, "tagA"))

	assert.Equal(t, []string{"tagA"}, revTagsGet(providerDir, h))
}

func TestRevTags_DeleteKeyDropsEveryTag(t *testing.T) {
	providerDir := t.TempDir()
	h := hashOf(13)

	require.NoError(t, revTagsAdd(providerDir, h, "tagA"))
	require.NoError(t, revTagsAdd(providerDir, h, "tagB"))

	require.NoError(t, revTagsDeleteKey(providerDir, h))

	assert.Empty(t, revTagsGet(providerDir, h))
}

func TestRevTags_RemoveTagDropsOnlyThatLabel(t *testing.T) {
	providerDir := t.TempDir()
	h := hashOf(14)

	require.NoError(t, revTagsAdd(providerDir, h, "tagA"))
	require.NoError(t, revTagsAdd(providerDir, h, "tagB"))

	require.NoError(t, revTagsRemoveTag(providerDir, h, "tagA"))

	assert.Equal(t, []string{"tagB"}, revTagsGet(providerDir, h))
}

func TestRevTags_RemoveLastTagDropsKeyEntirely(t *testing.T) {
	providerDir := t.TempDir()
	h := hashOf(15)

	require.NoError(t, revTagsAdd(providerDir, h, "tagA"))
	require.NoError(t, revTagsRemoveTag(providerDir, h, "tagA"))

	shard := readRevTagsShard(revTagsShardPath(providerDir, h))
	_, present := shard[h.Hex()]
	assert.False(t, present)
}

func TestRevTags_GetOnUnknownHashIsEmpty(t *testing.T) {
	providerDir := t.TempDir()
	assert.Empty(t, revTagsGet(providerDir, hashOf(99)))
}

func TestRevTags_ShardsByFirstTwoHexChars(t *testing.T) {
	providerDir := t.TempDir()
	h := hashOf(0xab)

	require.NoError(t, revTagsAdd(providerDir, h, "tagA"))

	path := revTagsShardPath(providerDir, h)
	assert.Contains(t, path, h.Hex()[:2])
}
