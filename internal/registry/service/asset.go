package service

import (
	"context"
	"fmt"
	"time"

	"github.com/landtruth/registry/internal/registry/model"
	"github.com/landtruth/registry/internal/versionchain"
	"go.uber.org/zap"
)

// assetGateway is the persistence interface for the asset service.
// *repository.Postgres and *repository.Memory satisfy this interface.
type assetGateway interface {
	CreateAsset(ctx context.Context, asset *model.Asset, genesis *model.Version) error
	GetAsset(ctx context.Context, id string) (*model.Asset, error)
	ListAssets(ctx context.Context, limit, offset int) ([]*model.Asset, error)
	GetVersion(ctx context.Context, assetID string, sequence int) (*model.Version, error)
	ListVersions(ctx context.Context, assetID string) ([]*model.Version, error)
	AppendVersion(ctx context.Context, assetID string, expectedSequence int, v *model.Version) error
}

// AssetService owns the set of assets: it creates genesis versions and
// dispatches validated append requests to the gateway's compare-and-persist
// operation. Appends either commit or fail immediately; retry responsibility
// stays with the caller.
type AssetService struct {
	gw     assetGateway
	logger *zap.Logger
}

// NewAssetService creates a new AssetService.
func NewAssetService(gw assetGateway, logger *zap.Logger) *AssetService {
	return &AssetService{gw: gw, logger: logger}
}

// CreateAsset registers a new asset and atomically persists it together with
// its genesis version (sequence 0, sentinel previous hash). This is the only
// operation that creates an asset.
func (s *AssetService) CreateAsset(ctx context.Context, assetID string, payload model.Payload) (*model.Asset, *model.Version, error) {
	if assetID == "" {
		return nil, nil, &model.ErrValidation{Msg: "asset_id is required"}
	}
	if err := model.ValidateGenesisPayload(payload); err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	genesis := versionchain.Genesis(assetID, payload, now)
	asset := &model.Asset{
		ID:              assetID,
		CurrentSequence: 0,
		CreatedAt:       now,
	}

	if err := s.gw.CreateAsset(ctx, asset, &genesis); err != nil {
		return nil, nil, err
	}

	s.logger.Info("asset created",
		zap.String("asset_id", assetID),
		zap.String("owner", payload.Owner),
		zap.String("genesis_hash", genesis.Hash),
	)
	return asset, &genesis, nil
}

// AppendVersion appends a new immutable version on top of expectedSequence.
// A stale expectedSequence, or any append on a voided asset, fails with
// model.ErrConflict; an illegal payload fails with model.ErrValidation; in
// both cases no state is mutated.
func (s *AssetService) AppendVersion(ctx context.Context, assetID string, expectedSequence int, payload model.Payload) (*model.Version, error) {
	asset, err := s.gw.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}

	current, err := s.gw.GetVersion(ctx, assetID, asset.CurrentSequence)
	if err != nil {
		return nil, fmt.Errorf("load current version: %w", err)
	}

	// Voided assets are terminal regardless of the supplied sequence.
	if current.Payload.Status == model.StatusVoided {
		return nil, model.ErrConflict
	}
	if expectedSequence != asset.CurrentSequence {
		return nil, model.ErrConflict
	}

	if err := model.ValidatePayload(payload); err != nil {
		return nil, err
	}
	if err := model.ValidateTransition(current.Payload.Status, payload); err != nil {
		return nil, err
	}

	next := versionchain.Next(*current, payload, time.Now())

	// The gateway's compare-and-persist is the authoritative check: the
	// expectedSequence comparison above is only a fast path and another
	// writer may still win the race between read and commit.
	if err := s.gw.AppendVersion(ctx, assetID, expectedSequence, &next); err != nil {
		return nil, err
	}

	s.logger.Info("version appended",
		zap.String("asset_id", assetID),
		zap.Int("sequence", next.Sequence),
		zap.String("status", string(payload.Status)),
	)
	return &next, nil
}

// GetAsset returns the asset record.
func (s *AssetService) GetAsset(ctx context.Context, assetID string) (*model.Asset, error) {
	return s.gw.GetAsset(ctx, assetID)
}

// ListAssets returns a paginated list of registered assets.
func (s *AssetService) ListAssets(ctx context.Context, limit, offset int) ([]*model.Asset, error) {
	return s.gw.ListAssets(ctx, limit, offset)
}

// ListVersions returns an asset's full version history ordered by sequence.
func (s *AssetService) ListVersions(ctx context.Context, assetID string) ([]*model.Version, error) {
	if _, err := s.gw.GetAsset(ctx, assetID); err != nil {
		return nil, err
	}
	return s.gw.ListVersions(ctx, assetID)
}

// VerifyAsset walks an asset's stored chain and checks hash-chain integrity.
// A failure is a *model.ErrIntegrity: store corruption requiring operator
// intervention, never repaired automatically.
func (s *AssetService) VerifyAsset(ctx context.Context, assetID string) error {
	asset, err := s.gw.GetAsset(ctx, assetID)
	if err != nil {
		return err
	}
	versions, err := s.gw.ListVersions(ctx, assetID)
	if err != nil {
		return fmt.Errorf("load versions: %w", err)
	}

	chain := make([]model.Version, len(versions))
	for i, v := range versions {
		chain[i] = *v
	}
	if err := versionchain.Verify(assetID, chain); err != nil {
		s.logger.Error("chain verification failed", zap.String("asset_id", assetID), zap.Error(err))
		return err
	}

	if asset.CurrentSequence != len(versions)-1 {
		err := &model.ErrIntegrity{
			AssetID:  assetID,
			Sequence: asset.CurrentSequence,
			Reason:   fmt.Sprintf("current-version pointer does not match chain tip %d", len(versions)-1),
		}
		s.logger.Error("chain verification failed", zap.String("asset_id", assetID), zap.Error(err))
		return err
	}
	return nil
}
