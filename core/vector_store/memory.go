package vector_store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/gogf/gf/v2/frame/g"

	"github.com/edugo/edugen/core/common"
	"github.com/edugo/edugen/core/errors"
)

// MemoryStore process-lifetime in-memory vector store. Owned state behind an
// explicit constructor so isolated instances can coexist in tests.
type MemoryStore struct {
	mu         sync.RWMutex
	indexes    map[string]*memoryIndex
	defaultDim int
}

type memoryIndex struct {
	name      string
	dimension int
	metric    string
	records   []*Record // insertion order, the tie-break for ranking
	byID      map[string]int
}

// NewMemoryStore creates an empty in-memory store. defaultDim is used when an
// index is auto-created by a write or query; zero falls back to the default
// embedding size.
func NewMemoryStore(defaultDim int) *MemoryStore {
	if defaultDim <= 0 {
		defaultDim = common.DefaultDimension
	}
	return &MemoryStore{
		indexes:    make(map[string]*memoryIndex),
		defaultDim: defaultDim,
	}
}

func (m *MemoryStore) CreateIndex(ctx context.Context, name string, dimension int, metric string) error {
	if name == "" {
		return errors.New(errors.ErrInvalidParameter, "index name cannot be empty")
	}
	if dimension <= 0 {
		return errors.Newf(errors.ErrInvalidParameter, "index dimension must be positive, got %d", dimension)
	}
	if metric == "" {
		metric = common.MetricCosine
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.indexes[name]; ok {
		return nil
	}
	m.indexes[name] = &memoryIndex{
		name:      name,
		dimension: dimension,
		metric:    metric,
		byID:      make(map[string]int),
	}
	g.Log().Infof(ctx, "Index '%s' created with dimension %d, metric %s", name, dimension, metric)
	return nil
}

func (m *MemoryStore) IndexExists(ctx context.Context, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.indexes[name]
	return ok, nil
}

func (m *MemoryStore) DropIndex(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.indexes[name]; !ok {
		return errors.Newf(errors.ErrIndexNotFound, "index '%s' does not exist", name)
	}
	delete(m.indexes, name)
	g.Log().Infof(ctx, "Index '%s' dropped", name)
	return nil
}

func (m *MemoryStore) Upsert(ctx context.Context, name string, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.getOrCreateLocked(ctx, name)
	for i := range records {
		rec := records[i]
		if rec.ID == "" {
			return errors.New(errors.ErrInvalidParameter, "record id cannot be empty")
		}
		if len(rec.Values) != idx.dimension {
			return errors.Newf(errors.ErrDimensionMismatch,
				"record %s has dimension %d, index '%s' expects %d", rec.ID, len(rec.Values), name, idx.dimension)
		}
		if pos, ok := idx.byID[rec.ID]; ok {
			// replace in place, keeping the original insertion position
			idx.records[pos] = &rec
			continue
		}
		idx.byID[rec.ID] = len(idx.records)
		idx.records = append(idx.records, &rec)
	}
	return nil
}

func (m *MemoryStore) Query(ctx context.Context, name string, vector []float32, topK int, filter map[string]any, includeMetadata bool) ([]Match, error) {
	if topK <= 0 {
		return nil, errors.Newf(errors.ErrInvalidParameter, "topK must be positive, got %d", topK)
	}

	m.mu.Lock()
	idx := m.getOrCreateLocked(ctx, name)
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(vector) != idx.dimension {
		return nil, errors.Newf(errors.ErrDimensionMismatch,
			"query vector has dimension %d, index '%s' expects %d", len(vector), name, idx.dimension)
	}

	matches := make([]Match, 0, len(idx.records))
	for _, rec := range idx.records {
		if !matchesFilter(rec.Metadata, filter) {
			continue
		}
		match := Match{
			ID:    rec.ID,
			Score: cosineSimilarity(vector, rec.Values),
		}
		if includeMetadata {
			match.Metadata = rec.Metadata
		}
		matches = append(matches, match)
	}

	// stable sort keeps insertion order on ties for deterministic results
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *MemoryStore) Delete(ctx context.Context, name string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx, ok := m.indexes[name]
	if !ok {
		return errors.Newf(errors.ErrIndexNotFound, "index '%s' does not exist", name)
	}

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	kept := idx.records[:0]
	byID := make(map[string]int, len(idx.records))
	for _, rec := range idx.records {
		if drop[rec.ID] {
			continue
		}
		byID[rec.ID] = len(kept)
		kept = append(kept, rec)
	}
	idx.records = kept
	idx.byID = byID
	return nil
}

// getOrCreateLocked implements the auto-create policy: referencing a missing
// index creates it with the default dimension and cosine metric.
// Caller must hold the write lock.
func (m *MemoryStore) getOrCreateLocked(ctx context.Context, name string) *memoryIndex {
	if idx, ok := m.indexes[name]; ok {
		return idx
	}
	g.Log().Warningf(ctx, "Index '%s' does not exist, auto-creating with dimension %d and cosine metric", name, m.defaultDim)
	idx := &memoryIndex{
		name:      name,
		dimension: m.defaultDim,
		metric:    common.MetricCosine,
		byID:      make(map[string]int),
	}
	m.indexes[name] = idx
	return idx
}

// matchesFilter reports whether metadata satisfies the exact-match AND filter.
func matchesFilter(metadata, filter map[string]any) bool {
	for key, want := range filter {
		got, ok := metadata[key]
		if !ok {
			return false
		}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

// cosineSimilarity between two equal-length vectors, in [-1, 1].
func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
