package store

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Keys of the shared snapshots the matching windows persist between mounts.
const (
	KeyFilters     = "dataMatchingFilters"
	KeyMatchFilter = "dataMatchingMatchFilter"
	KeyBookmarks   = "columnBookmarks"
)

type sharedEntry struct {
	raw      json.RawMessage
	revision uint64
}

// SharedState is the durable key-value snapshot store the windows fall back
// on for eventual consistency. Every write bumps a per-key revision so
// replicas can apply-if-newer instead of last-writer-wins.
type SharedState struct {
	mu      sync.RWMutex
	entries map[string]sharedEntry
	logger  *zap.Logger
}

// NewSharedState builds an empty store.
func NewSharedState(logger *zap.Logger) *SharedState {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SharedState{
		entries: make(map[string]sharedEntry),
		logger:  logger,
	}
}

// Put marshals v under key and returns the new revision.
func (s *SharedState) Put(key string, v any) (uint64, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rev := s.entries[key].revision + 1
	s.entries[key] = sharedEntry{raw: raw, revision: rev}
	return rev, nil
}

// PutRaw stores bytes verbatim. Callers that sync snapshots from elsewhere
// use it; corrupt payloads surface on the next Load, not here.
func (s *SharedState) PutRaw(key string, raw []byte) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	rev := s.entries[key].revision + 1
	s.entries[key] = sharedEntry{raw: append([]byte(nil), raw...), revision: rev}
	return rev
}

// PutIfNewer installs the snapshot only when revision is ahead of the
// stored one. Returns whether the write was applied.
func (s *SharedState) PutIfNewer(key string, raw []byte, revision uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if revision <= s.entries[key].revision {
		return false
	}
	s.entries[key] = sharedEntry{raw: append([]byte(nil), raw...), revision: revision}
	return true
}

// Load unmarshals the snapshot under key into dst and returns its revision.
// A missing key returns ok=false. A corrupt snapshot is logged and treated
// as missing so callers keep their defaults.
func (s *SharedState) Load(key string, dst any) (uint64, bool) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return 0, false
	}
	if err := json.Unmarshal(entry.raw, dst); err != nil {
		s.logger.Warn("corrupt shared snapshot, keeping defaults",
			zap.String("key", key), zap.Error(err))
		return 0, false
	}
	return entry.revision, true
}

// Revision returns the current revision of key (0 when absent).
func (s *SharedState) Revision(key string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[key].revision
}
