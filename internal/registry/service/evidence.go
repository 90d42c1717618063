package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/landtruth/registry/internal/registry/model"
	"go.uber.org/zap"
)

// evidenceGateway is the persistence interface for the evidence service.
type evidenceGateway interface {
	GetAsset(ctx context.Context, id string) (*model.Asset, error)
	AppendEvidence(ctx context.Context, e *model.Evidence) error
	ListEvidence(ctx context.Context, assetID string, sequence *int) ([]*model.Evidence, error)
}

// EvidenceService validates and stores evidence records bound to existing
// asset versions. Records are immutable: logging evidence never alters any
// version or the asset's current-version pointer.
type EvidenceService struct {
	gw     evidenceGateway
	logger *zap.Logger
}

// NewEvidenceService creates a new EvidenceService.
func NewEvidenceService(gw evidenceGateway, logger *zap.Logger) *EvidenceService {
	return &EvidenceService{gw: gw, logger: logger}
}

// LogEvidence binds a new evidence record to the version at (assetID,
// sequence). The referenced version must exist at call time; a sequence that
// was never created fails with model.ErrNotFound. Multiple evidence records
// may reference the same version.
//
// Evidence logged concurrently with an in-flight append may observe a stale
// current sequence and fail; the caller retries once the append has
// committed.
func (s *EvidenceService) LogEvidence(ctx context.Context, req model.LogEvidenceRequest) (*model.Evidence, error) {
	if !model.ValidEvidenceKind(req.Kind) {
		return nil, &model.ErrValidation{Msg: "unknown evidence kind " + string(req.Kind)}
	}
	if req.PayloadRef == "" {
		return nil, &model.ErrValidation{Msg: "payload_ref is required"}
	}
	if req.Submitter == "" {
		return nil, &model.ErrValidation{Msg: "submitter is required"}
	}
	if req.VersionSequence == nil {
		return nil, &model.ErrValidation{Msg: "version_sequence is required"}
	}
	seq := *req.VersionSequence

	asset, err := s.gw.GetAsset(ctx, req.AssetID)
	if err != nil {
		return nil, err
	}
	if seq < 0 || seq > asset.CurrentSequence {
		return nil, model.ErrNotFound
	}

	e := &model.Evidence{
		ID:              uuid.New(),
		AssetID:         req.AssetID,
		VersionSequence: seq,
		Kind:            req.Kind,
		PayloadRef:      req.PayloadRef,
		Description:     req.Description,
		GPSLat:          req.GPSLat,
		GPSLon:          req.GPSLon,
		Submitter:       req.Submitter,
		SubmittedAt:     time.Now().UTC(),
	}

	if err := s.gw.AppendEvidence(ctx, e); err != nil {
		return nil, err
	}

	s.logger.Info("evidence logged",
		zap.String("evidence_id", e.ID.String()),
		zap.String("asset_id", e.AssetID),
		zap.Int("version_sequence", e.VersionSequence),
		zap.String("kind", string(e.Kind)),
	)
	return e, nil
}

// ListEvidence returns an asset's evidence in submission-timestamp order,
// optionally filtered to one version sequence.
func (s *EvidenceService) ListEvidence(ctx context.Context, assetID string, sequence *int) ([]*model.Evidence, error) {
	if _, err := s.gw.GetAsset(ctx, assetID); err != nil {
		return nil, err
	}
	return s.gw.ListEvidence(ctx, assetID, sequence)
}
