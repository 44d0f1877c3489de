package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/shaunnez/diamond-opus-sub001/internal/logging"
	"github.com/shaunnez/diamond-opus-sub001/types"
)

// casAttempts bounds how many times a conditional update re-reads after
// losing a revision race before reporting the transition as rejected.
const casAttempts = 3

// KVConfig configures the NATS JetStream KV buckets used by the store.
type KVConfig struct {
	// ProgressBucket is the bucket name for partition progress rows.
	ProgressBucket string `yaml:"progressBucket"`

	// HistoryBucket is the bucket name for scan history entries.
	HistoryBucket string `yaml:"historyBucket"`

	// Replicas is the JetStream replica count for both buckets.
	Replicas int `yaml:"replicas"`

	// HistoryTTL is how long scan history entries remain in KV
	// (0 = no expiration). Progress rows never expire: garbage collection of
	// old runs is an external concern.
	HistoryTTL time.Duration `yaml:"historyTtl"`
}

// DefaultKVConfig returns a KVConfig with production defaults.
//
// Returns:
//   - KVConfig: Configuration with default bucket names
func DefaultKVConfig() KVConfig {
	return KVConfig{
		ProgressBucket: "feedscan-progress",
		HistoryBucket:  "feedscan-history",
		Replicas:       1,
		HistoryTTL:     0,
	}
}

// NATSKV is a ProgressStore and ScanHistoryStore backed by NATS JetStream KV.
//
// Idempotent creation maps to KV Create (atomic, first writer wins) and
// conditional updates map to revision-conditioned KV Update: the row is read
// with its revision, the predicate checked, and the write applied only if the
// revision is unchanged. Losing the revision race means another caller
// performed a transition first; the update is re-checked against the fresh
// row and rejected if the predicate no longer holds.
type NATSKV struct {
	progress jetstream.KeyValue
	history  jetstream.KeyValue
	logger   types.Logger
}

// Compile-time assertions that NATSKV implements both store interfaces.
var (
	_ types.ProgressStore    = (*NATSKV)(nil)
	_ types.ScanHistoryStore = (*NATSKV)(nil)
)

// NewNATSKV creates a store over the configured KV buckets, creating them if
// they do not exist.
//
// Bucket creation handles the race where multiple workers start concurrently:
// creation failures retry with exponential backoff, and "already exists" is
// resolved by opening the existing bucket.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - js: JetStream context
//   - cfg: Bucket configuration
//   - logger: Logger for debug output (nil for no logging)
//
// Returns:
//   - *NATSKV: Initialized store
//   - error: Bucket creation/open failure
//
// Example:
//
//	js, _ := jetstream.New(nc)
//	st, err := store.NewNATSKV(ctx, js, store.DefaultKVConfig(), logger)
func NewNATSKV(ctx context.Context, js jetstream.JetStream, cfg KVConfig, logger types.Logger) (*NATSKV, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	progress, err := ensureBucket(ctx, js, jetstream.KeyValueConfig{
		Bucket:      cfg.ProgressBucket,
		Description: "partition progress rows, one per (run, partition)",
		Replicas:    cfg.Replicas,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure progress bucket: %w", err)
	}

	history, err := ensureBucket(ctx, js, jetstream.KeyValueConfig{
		Bucket:      cfg.HistoryBucket,
		Description: "latest scan result per (feed, scan type)",
		Replicas:    cfg.Replicas,
		TTL:         cfg.HistoryTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure history bucket: %w", err)
	}

	return &NATSKV{progress: progress, history: history, logger: logger}, nil
}

// CreateProgress creates the row if absent via atomic KV Create. If the key
// already exists the stored row is returned unchanged; progress is never
// reset by a duplicate create.
func (s *NATSKV) CreateProgress(ctx context.Context, p types.PartitionProgress) (types.PartitionProgress, error) {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}

	key := progressKVKey(p.RunID, p.PartitionID)

	data, err := json.Marshal(p)
	if err != nil {
		return types.PartitionProgress{}, fmt.Errorf("failed to encode progress: %w", err)
	}

	_, err = s.progress.Create(ctx, key, data)
	if err == nil {
		return p, nil
	}

	if !errors.Is(err, jetstream.ErrKeyExists) {
		return types.PartitionProgress{}, fmt.Errorf("failed to create progress %s: %w", key, err)
	}

	// Duplicate create: return the existing row untouched.
	s.logger.Debug("progress row already exists, returning stored row", "key", key)

	return s.GetProgress(ctx, p.RunID, p.PartitionID)
}

// GetProgress returns the row for (runID, partitionID).
func (s *NATSKV) GetProgress(ctx context.Context, runID string, partitionID int) (types.PartitionProgress, error) {
	key := progressKVKey(runID, partitionID)

	entry, err := s.progress.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return types.PartitionProgress{}, fmt.Errorf("%w: %s", types.ErrProgressNotFound, key)
		}

		return types.PartitionProgress{}, fmt.Errorf("failed to get progress %s: %w", key, err)
	}

	return decodeProgress(entry.Value())
}

// ConditionalUpdate applies mutate iff the stored NextOffset equals
// expectedOffset and the row is not completed, using the entry revision as
// the compare-and-swap token.
func (s *NATSKV) ConditionalUpdate(ctx context.Context, runID string, partitionID int, expectedOffset int64, mutate func(p *types.PartitionProgress)) (bool, error) {
	key := progressKVKey(runID, partitionID)

	for attempt := 0; attempt < casAttempts; attempt++ {
		entry, err := s.progress.Get(ctx, key)
		if err != nil {
			if errors.Is(err, jetstream.ErrKeyNotFound) {
				return false, fmt.Errorf("%w: %s", types.ErrProgressNotFound, key)
			}

			return false, fmt.Errorf("failed to get progress %s: %w", key, err)
		}

		stored, err := decodeProgress(entry.Value())
		if err != nil {
			return false, err
		}

		if stored.Completed || stored.NextOffset != expectedOffset {
			return false, nil
		}

		updated := stored
		mutate(&updated)
		updated.UpdatedAt = time.Now().UTC()

		data, err := json.Marshal(updated)
		if err != nil {
			return false, fmt.Errorf("failed to encode progress: %w", err)
		}

		_, err = s.progress.Update(ctx, key, data, entry.Revision())
		if err == nil {
			return true, nil
		}

		if !isRevisionConflict(err) {
			return false, fmt.Errorf("failed to update progress %s: %w", key, err)
		}

		// Lost the revision race: another caller transitioned first.
		// Re-read and re-check the predicate against the fresh row.
		s.logger.Debug("progress update lost revision race, re-checking",
			"key", key, "expected_offset", expectedOffset, "attempt", attempt+1)
	}

	// Still racing after re-checks; report rejection. The caller re-reads via
	// Get and retries, which is the normal at-least-once flow.
	return false, nil
}

// SaveScan records result under (feed, scanType), last-write-wins.
func (s *NATSKV) SaveScan(ctx context.Context, feed string, scanType types.ScanType, result types.ScanResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode scan result: %w", err)
	}

	if _, err := s.history.Put(ctx, historyKey(feed, scanType), data); err != nil {
		return fmt.Errorf("failed to save scan history: %w", err)
	}

	return nil
}

// LoadScan returns the latest recorded scan for (feed, scanType).
func (s *NATSKV) LoadScan(ctx context.Context, feed string, scanType types.ScanType) (types.ScanResult, error) {
	entry, err := s.history.Get(ctx, historyKey(feed, scanType))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return types.ScanResult{}, fmt.Errorf("%w: feed %q type %q", types.ErrScanNotFound, feed, scanType)
		}

		return types.ScanResult{}, fmt.Errorf("failed to load scan history: %w", err)
	}

	var result types.ScanResult
	if err := json.Unmarshal(entry.Value(), &result); err != nil {
		return types.ScanResult{}, fmt.Errorf("failed to decode scan result: %w", err)
	}

	return result, nil
}

// progressKVKey converts a (runID, partitionID) pair to a KV key. The colon
// in the canonical key is not a valid KV key character, so a dot is used.
func progressKVKey(runID string, partitionID int) string {
	return fmt.Sprintf("%s.%d", runID, partitionID)
}

// decodeProgress unmarshals a stored progress row.
func decodeProgress(data []byte) (types.PartitionProgress, error) {
	var p types.PartitionProgress
	if err := json.Unmarshal(data, &p); err != nil {
		return types.PartitionProgress{}, fmt.Errorf("failed to decode progress: %w", err)
	}

	return p, nil
}

// isRevisionConflict checks if an error indicates a KV revision mismatch.
//
// The mismatch surfaces as a JetStream "wrong last sequence" API error, which
// may arrive wrapped; match on the message the same way "no keys found" is
// matched elsewhere.
func isRevisionConflict(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *jetstream.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence {
		return true
	}

	return strings.Contains(err.Error(), "wrong last sequence")
}

// ensureBucket creates or opens a KV bucket, retrying transient failures.
//
// Handles the race where multiple workers create the same bucket
// concurrently: "already exists" resolves to opening the existing bucket,
// other failures back off exponentially before retrying.
func ensureBucket(ctx context.Context, js jetstream.JetStream, cfg jetstream.KeyValueConfig) (jetstream.KeyValue, error) {
	const maxRetries = 3

	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		kv, err := js.CreateKeyValue(ctx, cfg)
		if err == nil {
			return kv, nil
		}

		if errors.Is(err, jetstream.ErrBucketExists) {
			kv, err := js.KeyValue(ctx, cfg.Bucket)
			if err == nil {
				return kv, nil
			}
			lastErr = fmt.Errorf("bucket exists but failed to open: %w", err)
		} else {
			lastErr = err
		}

		if ctx.Err() != nil {
			return nil, fmt.Errorf("context cancelled during KV bucket creation: %w", ctx.Err())
		}

		if attempt < maxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * 10 * time.Millisecond //nolint:gosec // attempt is bounded by maxRetries, no overflow risk
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return nil, fmt.Errorf("failed to create/open KV bucket %s after %d attempts: %w", cfg.Bucket, maxRetries, lastErr)
}
