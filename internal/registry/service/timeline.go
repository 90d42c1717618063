package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/landtruth/registry/internal/registry/model"
	"github.com/landtruth/registry/internal/versionchain"
	"go.uber.org/zap"
)

// timelineGateway is the persistence interface for timeline projection.
type timelineGateway interface {
	GetAsset(ctx context.Context, id string) (*model.Asset, error)
	ListVersions(ctx context.Context, assetID string) ([]*model.Version, error)
	ListEvidence(ctx context.Context, assetID string, sequence *int) ([]*model.Evidence, error)
}

// TimelineService is the read-only projector that merges an asset's version
// chain and its bound evidence into one chronologically ordered view. The
// view is recomputed fresh on every call.
type TimelineService struct {
	gw     timelineGateway
	logger *zap.Logger
}

// NewTimelineService creates a new TimelineService.
func NewTimelineService(gw timelineGateway, logger *zap.Logger) *TimelineService {
	return &TimelineService{gw: gw, logger: logger}
}

// GetTimeline returns the merged event sequence for an asset, ordered by
// timestamp ascending. When timestamps are equal, a version event sorts
// before any evidence event at the same instant, and among equal-timestamp
// events of the same kind, lower sequence (versions) or lower evidence id
// sorts first — the ordering is deterministic and independent of storage
// iteration order.
//
// The chain is verified before projecting: on an integrity fault the whole
// timeline is refused rather than served as a best-effort partial view.
func (s *TimelineService) GetTimeline(ctx context.Context, assetID string) ([]model.TimelineEvent, error) {
	if _, err := s.gw.GetAsset(ctx, assetID); err != nil {
		return nil, err
	}

	versions, err := s.gw.ListVersions(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("load versions: %w", err)
	}

	chain := make([]model.Version, len(versions))
	for i, v := range versions {
		chain[i] = *v
	}
	if err := versionchain.Verify(assetID, chain); err != nil {
		s.logger.Error("refusing timeline for corrupted chain",
			zap.String("asset_id", assetID),
			zap.Error(err),
		)
		return nil, err
	}

	records, err := s.gw.ListEvidence(ctx, assetID, nil)
	if err != nil {
		return nil, fmt.Errorf("load evidence: %w", err)
	}

	events := make([]model.TimelineEvent, 0, len(versions)+len(records))
	for _, v := range versions {
		v := v
		events = append(events, model.TimelineEvent{
			Type:      model.EventVersionCreated,
			Timestamp: v.CreatedAt,
			Sequence:  &v.Sequence,
			Payload:   &v.Payload,
		})
	}
	for _, e := range records {
		e := e
		events = append(events, model.TimelineEvent{
			Type:            model.EventEvidenceLogged,
			Timestamp:       e.SubmittedAt,
			EvidenceID:      &e.ID,
			VersionSequence: &e.VersionSequence,
			Kind:            e.Kind,
			Description:     e.Description,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		// Version events win timestamp ties against evidence events.
		if a.Type != b.Type {
			return a.Type == model.EventVersionCreated
		}
		if a.Type == model.EventVersionCreated {
			return *a.Sequence < *b.Sequence
		}
		return a.EvidenceID.String() < b.EvidenceID.String()
	})

	return events, nil
}
