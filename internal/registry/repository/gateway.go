package repository

import (
	"context"

	"github.com/landtruth/registry/internal/registry/model"
)

// Gateway is the persistence boundary for assets, versions, and evidence.
// Both Postgres and Memory implement this interface. Persistence of each
// record is atomic: no partially written version or evidence is ever visible
// to readers.
type Gateway interface {
	// CreateAsset atomically persists an asset together with its genesis
	// version. Returns model.ErrDuplicateAsset when the id is taken.
	CreateAsset(ctx context.Context, asset *model.Asset, genesis *model.Version) error

	// GetAsset returns the asset record, or model.ErrNotFound.
	GetAsset(ctx context.Context, id string) (*model.Asset, error)

	// ListAssets returns assets ordered by creation time, newest first.
	ListAssets(ctx context.Context, limit, offset int) ([]*model.Asset, error)

	// GetVersion returns one version, or model.ErrNotFound.
	GetVersion(ctx context.Context, assetID string, sequence int) (*model.Version, error)

	// ListVersions returns all versions of an asset ordered by sequence.
	ListVersions(ctx context.Context, assetID string) ([]*model.Version, error)

	// AppendVersion is the compare-and-persist operation: it persists v and
	// advances the asset's current-version pointer only if the pointer still
	// equals expectedSequence at commit time. Returns model.ErrConflict
	// otherwise; no partial effect remains.
	AppendVersion(ctx context.Context, assetID string, expectedSequence int, v *model.Version) error

	// AppendEvidence persists an immutable evidence record.
	AppendEvidence(ctx context.Context, e *model.Evidence) error

	// ListEvidence returns evidence for an asset in submission-timestamp
	// order, optionally filtered to one version sequence.
	ListEvidence(ctx context.Context, assetID string, sequence *int) ([]*model.Evidence, error)
}
