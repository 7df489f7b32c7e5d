package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/continuedev/continueindex/internal/observability"
)

// Tag identifies one (directory, branch, provider) sync target. Its
// string form doubles as the label recorded against shared blobs in the
// provider's rev_tags store.
type Tag struct {
	Dir        string
	Branch     string
	ProviderID string
}

// String renders the tag as the label rev_tags records: "<dir>::<branch>::<provider_id>".
func (t Tag) String() string {
	return t.Dir + "::" + t.Branch + "::" + t.ProviderID
}

// removeSepsFromPath elides path separators and any leading separator,
// producing the directory component of a tag's on-disk path (§6).
func removeSepsFromPath(dir string) string {
	return strings.ReplaceAll(strings.TrimPrefix(dir, string(filepath.Separator)), string(filepath.Separator), "")
}

// pathForTag returns <index_root>/tags/<dir_without_separators>/<branch>/<provider_id>.
func pathForTag(indexRoot string, tag Tag) string {
	return filepath.Join(indexRoot, "tags", removeSepsFromPath(tag.Dir), tag.Branch, tag.ProviderID)
}

func lastSyncPath(tagDir string) string   { return filepath.Join(tagDir, ".last_sync") }
func merkleTreePath(tagDir string) string { return filepath.Join(tagDir, "merkle_tree") }

// writeSyncTime records the current Unix second count into .last_sync.
func writeSyncTime(tagDir string, now time.Time) error {
	if err := os.MkdirAll(tagDir, 0o755); err != nil {
		return fmt.Errorf("%w: create tag dir %s: %v", ErrIoFailure, tagDir, err)
	}
	content := strconv.FormatInt(now.Unix(), 10)
	if err := os.WriteFile(lastSyncPath(tagDir), []byte(content), 0o644); err != nil {
		return fmt.Errorf("%w: write .last_sync %s: %v", ErrIoFailure, tagDir, err)
	}
	return nil
}

// getLastSyncTime reads .last_sync, returning the zero time if the file
// is missing or unparsable.
func getLastSyncTime(tagDir string) time.Time {
	data, err := os.ReadFile(lastSyncPath(tagDir))
	if err != nil {
		return time.Time{}
	}
	secs, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(secs, 0)
}

// SyncResult bundles the four disjoint action buckets a sync call
// produces. Only Blob changes appear here; Tree descriptions are
// filtered out (§4.I).
type SyncResult struct {
	Compute     []ObjDescription
	Delete      []ObjDescription
	AddLabel    []ObjDescription
	RemoveLabel []ObjDescription
}

// Syncer runs sync calls for one provider, wired to logging, metrics, and
// tracing.
type Syncer struct {
	IndexRoot string
	Logger    *observability.Logger
	Metrics   *observability.MetricsCollector
	Tracer    trace.Tracer
}

// NewSyncer constructs a Syncer. logger/metrics/tracer may be nil; each
// call site guards against that to keep the sync engine usable without
// observability wired up (e.g. in unit tests).
func NewSyncer(indexRoot string, logger *observability.Logger, metrics *observability.MetricsCollector, tracer trace.Tracer) *Syncer {
	return &Syncer{IndexRoot: indexRoot, Logger: logger, Metrics: metrics, Tracer: tracer}
}

// Sync runs the 9-step procedure from §4.I for tag, returning the four
// action buckets.
func (s *Syncer) Sync(ctx context.Context, tag Tag) (*SyncResult, error) {
	tagStr := tag.String()
	start := time.Now()

	if s.Tracer != nil {
		var span trace.Span
		ctx, span = observability.InstrumentSyncOperation(ctx, s.Tracer, tagStr)
		defer span.End()
	}
	if s.Logger != nil {
		s.Logger.LogSyncStart(ctx, tagStr)
	}

	result, err := s.sync(ctx, tag)

	duration := time.Since(start)
	if s.Metrics != nil {
		s.Metrics.RecordSyncDuration(tag.ProviderID, duration)
	}

	if err != nil {
		if s.Metrics != nil {
			s.Metrics.RecordSyncError(tag.ProviderID, "io_failure")
		}
		return nil, err
	}

	if s.Logger != nil {
		s.Logger.LogSyncResult(ctx, tagStr, len(result.Compute), len(result.Delete), len(result.AddLabel), len(result.RemoveLabel), duration)
	}
	if s.Metrics != nil {
		s.Metrics.RecordSyncAction(tag.ProviderID, "compute", len(result.Compute))
		s.Metrics.RecordSyncAction(tag.ProviderID, "delete", len(result.Delete))
		s.Metrics.RecordSyncAction(tag.ProviderID, "add_label", len(result.AddLabel))
		s.Metrics.RecordSyncAction(tag.ProviderID, "remove_label", len(result.RemoveLabel))
	}

	return result, nil
}

// LastSyncTime returns when tag was last synced, or the zero time if it
// has never been synced.
func (s *Syncer) LastSyncTime(tag Tag) time.Time {
	return getLastSyncTime(pathForTag(s.IndexRoot, tag))
}

// buildTreeTraced wraps buildTree in a child span when tracing is enabled.
func (s *Syncer) buildTreeTraced(ctx context.Context, dir string) (*Tree, error) {
	if s.Tracer != nil {
		_, span := observability.InstrumentWalk(ctx, s.Tracer, dir)
		defer span.End()
	}
	return buildTree(ctx, dir, s.IndexRoot, s.Logger, s.Metrics)
}

// sync implements the steps themselves, free of observability concerns.
func (s *Syncer) sync(ctx context.Context, tag Tag) (*SyncResult, error) {
	tagStr := tag.String()
	tagDir := pathForTag(s.IndexRoot, tag)
	providerDir := providerDirPath(s.IndexRoot, tag.ProviderID)

	// Step 1: ensure <tag_dir> and <provider_dir>/rev_tags exist.
	if err := os.MkdirAll(tagDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create tag dir %s: %v", ErrIoFailure, tagDir, err)
	}
	if err := os.MkdirAll(revTagsDir(providerDir), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create rev_tags dir %s: %v", ErrIoFailure, providerDir, err)
	}

	// Step 2: load prior tree, defaulting to the empty tree.
	oldTree := loadTree(ctx, merkleTreePath(tagDir), s.Logger)

	// Step 3: build the new tree.
	newTree, err := s.buildTreeTraced(ctx, tag.Dir)
	if err != nil {
		return nil, err
	}

	// Step 4: record the sync time.
	if err := writeSyncTime(tagDir, time.Now()); err != nil {
		return nil, err
	}

	// Step 5: persist the new tree, overwriting.
	if err := persistTree(newTree, merkleTreePath(tagDir)); err != nil {
		return nil, err
	}

	// Step 6: diff.
	added, removed := Diff(oldTree, newTree)

	cache, err := NewIndexCache(s.IndexRoot, tag)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{}

	// Step 7: classify added blobs.
	for _, d := range added {
		if !d.IsBlob {
			continue
		}
		globalKnown, err := cache.GlobalContains(d.Hash)
		if err != nil {
			return nil, err
		}
		if globalKnown {
			result.AddLabel = append(result.AddLabel, d)
		} else {
			result.Compute = append(result.Compute, d)
		}
		if err := cache.Add(d); err != nil {
			return nil, err
		}
	}

	// Step 8: classify removed blobs.
	for _, d := range removed {
		if !d.IsBlob {
			continue
		}
		globalKnown, err := cache.GlobalContains(d.Hash)
		if err != nil {
			return nil, err
		}
		if !globalKnown {
			if s.Logger != nil {
				s.Logger.LogInvariantViolation(ctx, tagStr, d.Hash.Hex())
			}
			continue
		}

		tags := cache.RevTags(d.Hash)
		if len(tags) <= 1 {
			result.Delete = append(result.Delete, d)
			if err := cache.GlobalRemove(d); err != nil {
				return nil, err
			}
		} else {
			result.RemoveLabel = append(result.RemoveLabel, d)
			if err := cache.LocalRemove(d); err != nil {
				return nil, err
			}
		}
	}

	return result, nil
}
