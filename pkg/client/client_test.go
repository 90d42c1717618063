package client

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/landtruth/registry/internal/registry/handler"
	"github.com/landtruth/registry/internal/registry/repository"
	"github.com/landtruth/registry/internal/registry/service"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *Client {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mem := repository.NewMemory()
	logger := zap.NewNop()
	assets := service.NewAssetService(mem, logger)
	evidence := service.NewEvidenceService(mem, logger)
	timeline := service.NewTimelineService(mem, logger)

	router := gin.New()
	v1 := router.Group("/api/v1")
	handler.NewAssetHandler(assets, timeline, logger).Register(v1)
	handler.NewEvidenceHandler(evidence, logger).Register(v1)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func samplePayload() Payload {
	return Payload{
		Status:       "active",
		Owner:        "Tendai Moyo",
		Name:         "Mashonaland Plot 4",
		LocationLat:  -17.8252,
		LocationLon:  31.0335,
		SizeHectares: 12.5,
		ChangeReason: "Genesis Creation",
	}
}

func TestClient_fullLifecycle(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()

	created, err := c.CreateAsset(ctx, "plot-1", samplePayload())
	if err != nil {
		t.Fatalf("CreateAsset: %v", err)
	}
	if created.Genesis.Sequence != 0 {
		t.Errorf("genesis sequence = %d, want 0", created.Genesis.Sequence)
	}

	transfer := samplePayload()
	transfer.Status = "transferred"
	transfer.Owner = "Rudo Moyo"
	v1, err := c.AppendVersion(ctx, "plot-1", 0, transfer)
	if err != nil {
		t.Fatalf("AppendVersion: %v", err)
	}
	if v1.Sequence != 1 {
		t.Errorf("sequence = %d, want 1", v1.Sequence)
	}
	if v1.PrevHash != created.Genesis.Hash {
		t.Error("appended version does not link to genesis")
	}

	seq := 1
	ev, err := c.LogEvidence(ctx, LogEvidenceRequest{
		AssetID:         "plot-1",
		VersionSequence: &seq,
		Kind:            "attestation",
		PayloadRef:      "attest://chief/2025/88",
		Description:     "Transfer witnessed",
		Submitter:       "chief-mashonaland",
	})
	if err != nil {
		t.Fatalf("LogEvidence: %v", err)
	}
	if ev.VersionSequence != 1 {
		t.Errorf("evidence sequence = %d, want 1", ev.VersionSequence)
	}

	versions, err := c.ListVersions(ctx, "plot-1")
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 2 {
		t.Errorf("len(versions) = %d, want 2", len(versions))
	}

	records, err := c.ListEvidence(ctx, "plot-1", &seq)
	if err != nil {
		t.Fatalf("ListEvidence: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("len(evidence) = %d, want 1", len(records))
	}

	events, err := c.GetTimeline(ctx, "plot-1")
	if err != nil {
		t.Fatalf("GetTimeline: %v", err)
	}
	if len(events) != 3 {
		t.Errorf("len(events) = %d, want 3", len(events))
	}

	verify, err := c.VerifyAsset(ctx, "plot-1")
	if err != nil {
		t.Fatalf("VerifyAsset: %v", err)
	}
	if !verify.Valid {
		t.Errorf("valid = false (%s), want true", verify.Error)
	}
}

func TestClient_errorMapping(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()

	if _, err := c.GetAsset(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetAsset(missing) = %v, want ErrNotFound", err)
	}

	if _, err := c.CreateAsset(ctx, "plot-1", samplePayload()); err != nil {
		t.Fatalf("CreateAsset: %v", err)
	}
	if _, err := c.CreateAsset(ctx, "plot-1", samplePayload()); !errors.Is(err, ErrDuplicateAsset) {
		t.Errorf("duplicate create = %v, want ErrDuplicateAsset", err)
	}

	if _, err := c.AppendVersion(ctx, "plot-1", 5, samplePayload()); !errors.Is(err, ErrConflict) {
		t.Errorf("stale append = %v, want ErrConflict", err)
	}

	bad := samplePayload()
	bad.SizeHectares = -1
	_, err := c.AppendVersion(ctx, "plot-1", 0, bad)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("invalid payload = %v, want *APIError", err)
	}
	if apiErr.Status != 400 {
		t.Errorf("status = %d, want 400", apiErr.Status)
	}
}

func TestClient_listAssetsPagination(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if _, err := c.CreateAsset(ctx, id, samplePayload()); err != nil {
			t.Fatalf("CreateAsset(%s): %v", id, err)
		}
	}

	page, err := c.ListAssets(ctx, 2, 0)
	if err != nil {
		t.Fatalf("ListAssets: %v", err)
	}
	if len(page) != 2 {
		t.Errorf("len(page) = %d, want 2", len(page))
	}

	rest, err := c.ListAssets(ctx, 10, 2)
	if err != nil {
		t.Fatalf("ListAssets offset: %v", err)
	}
	if len(rest) != 1 {
		t.Errorf("len(rest) = %d, want 1", len(rest))
	}
}
