package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/landtruth/registry/internal/registry/model"
)

// Memory is an in-memory, thread-safe Gateway implementation. It mirrors the
// compare-and-persist semantics of the Postgres gateway and is used for tests
// and single-process deployments without durable storage.
type Memory struct {
	mu       sync.RWMutex
	assets   map[string]*model.Asset
	versions map[string][]*model.Version // keyed by asset id, ordered by sequence
	evidence map[string][]*model.Evidence
}

// NewMemory creates an empty in-memory gateway.
func NewMemory() *Memory {
	return &Memory{
		assets:   make(map[string]*model.Asset),
		versions: make(map[string][]*model.Version),
		evidence: make(map[string][]*model.Evidence),
	}
}

// CreateAsset implements Gateway.
func (m *Memory) CreateAsset(_ context.Context, asset *model.Asset, genesis *model.Version) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.assets[asset.ID]; exists {
		return model.ErrDuplicateAsset
	}
	a := *asset
	g := *genesis
	m.assets[asset.ID] = &a
	m.versions[asset.ID] = []*model.Version{&g}
	return nil
}

// GetAsset implements Gateway.
func (m *Memory) GetAsset(_ context.Context, id string) (*model.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.assets[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// ListAssets implements Gateway.
func (m *Memory) ListAssets(_ context.Context, limit, offset int) ([]*model.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*model.Asset, 0, len(m.assets))
	for _, a := range m.assets {
		cp := *a
		all = append(all, &cp)
	}
	// Newest first, id tie-break, matching the postgres ordering.
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// GetVersion implements Gateway.
func (m *Memory) GetVersion(_ context.Context, assetID string, sequence int) (*model.Version, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	chain := m.versions[assetID]
	if sequence < 0 || sequence >= len(chain) {
		return nil, model.ErrNotFound
	}
	cp := *chain[sequence]
	return &cp, nil
}

// ListVersions implements Gateway.
func (m *Memory) ListVersions(_ context.Context, assetID string) ([]*model.Version, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	chain := m.versions[assetID]
	out := make([]*model.Version, len(chain))
	for i, v := range chain {
		cp := *v
		out[i] = &cp
	}
	return out, nil
}

// AppendVersion implements Gateway. The expected-sequence check and the
// append happen under one lock, giving the same all-or-nothing guarantee as
// the postgres transaction.
func (m *Memory) AppendVersion(_ context.Context, assetID string, expectedSequence int, v *model.Version) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.assets[assetID]
	if !ok {
		return model.ErrConflict
	}
	if a.CurrentSequence != expectedSequence {
		return model.ErrConflict
	}

	cp := *v
	m.versions[assetID] = append(m.versions[assetID], &cp)
	a.CurrentSequence = v.Sequence
	return nil
}

// AppendEvidence implements Gateway.
func (m *Memory) AppendEvidence(_ context.Context, e *model.Evidence) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *e
	m.evidence[e.AssetID] = append(m.evidence[e.AssetID], &cp)
	return nil
}

// ListEvidence implements Gateway.
func (m *Memory) ListEvidence(_ context.Context, assetID string, sequence *int) ([]*model.Evidence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.Evidence
	for _, e := range m.evidence[assetID] {
		if sequence != nil && e.VersionSequence != *sequence {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.Before(out[j].SubmittedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}
