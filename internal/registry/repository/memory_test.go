package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/landtruth/registry/internal/registry/model"
	"github.com/landtruth/registry/internal/versionchain"
)

func seedAsset(t *testing.T, m *Memory, id string) *model.Version {
	t.Helper()
	payload := model.Payload{
		Status: model.StatusActive, Owner: "alice", Name: "Parcel " + id,
		LocationLat: -17.8, LocationLon: 31.0, SizeHectares: 10,
	}
	genesis := versionchain.Genesis(id, payload, time.Now())
	asset := &model.Asset{ID: id, CurrentSequence: 0, CreatedAt: time.Now()}
	if err := m.CreateAsset(context.Background(), asset, &genesis); err != nil {
		t.Fatalf("CreateAsset(%s): %v", id, err)
	}
	return &genesis
}

func TestCreateAsset_duplicateID(t *testing.T) {
	m := NewMemory()
	seedAsset(t, m, "plot-1")

	asset := &model.Asset{ID: "plot-1"}
	genesis := versionchain.Genesis("plot-1", model.Payload{Status: model.StatusActive}, time.Now())
	err := m.CreateAsset(context.Background(), asset, &genesis)
	if !errors.Is(err, model.ErrDuplicateAsset) {
		t.Errorf("CreateAsset(duplicate) = %v, want ErrDuplicateAsset", err)
	}
}

func TestGetAsset_missing(t *testing.T) {
	m := NewMemory()
	_, err := m.GetAsset(context.Background(), "nope")
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("GetAsset(missing) = %v, want ErrNotFound", err)
	}
}

func TestAppendVersion_advancesSequence(t *testing.T) {
	m := NewMemory()
	genesis := seedAsset(t, m, "plot-1")
	ctx := context.Background()

	next := versionchain.Next(*genesis, model.Payload{
		Status: model.StatusTransferred, Owner: "bob", Name: "Parcel plot-1",
		LocationLat: -17.8, LocationLon: 31.0, SizeHectares: 10,
	}, time.Now())

	if err := m.AppendVersion(ctx, "plot-1", 0, &next); err != nil {
		t.Fatalf("AppendVersion: %v", err)
	}

	a, err := m.GetAsset(ctx, "plot-1")
	if err != nil {
		t.Fatalf("GetAsset: %v", err)
	}
	if a.CurrentSequence != 1 {
		t.Errorf("current sequence = %d, want 1", a.CurrentSequence)
	}

	versions, _ := m.ListVersions(ctx, "plot-1")
	if len(versions) != 2 {
		t.Fatalf("len(versions) = %d, want 2", len(versions))
	}
	for i, v := range versions {
		if v.Sequence != i {
			t.Errorf("versions[%d].Sequence = %d, want %d", i, v.Sequence, i)
		}
	}
}

func TestAppendVersion_staleSequence(t *testing.T) {
	m := NewMemory()
	genesis := seedAsset(t, m, "plot-1")
	ctx := context.Background()

	next := versionchain.Next(*genesis, model.Payload{
		Status: model.StatusActive, Owner: "bob", Name: "x",
		SizeHectares: 10,
	}, time.Now())
	if err := m.AppendVersion(ctx, "plot-1", 0, &next); err != nil {
		t.Fatalf("first append: %v", err)
	}

	// Same expected sequence again: stale.
	again := versionchain.Next(*genesis, model.Payload{
		Status: model.StatusActive, Owner: "carol", Name: "x",
		SizeHectares: 10,
	}, time.Now())
	err := m.AppendVersion(ctx, "plot-1", 0, &again)
	if !errors.Is(err, model.ErrConflict) {
		t.Errorf("stale append = %v, want ErrConflict", err)
	}

	// Nothing was persisted by the losing append.
	versions, _ := m.ListVersions(ctx, "plot-1")
	if len(versions) != 2 {
		t.Errorf("len(versions) = %d, want 2", len(versions))
	}
}

func TestAppendVersion_missingAsset(t *testing.T) {
	m := NewMemory()
	v := &model.Version{AssetID: "ghost", Sequence: 1}
	err := m.AppendVersion(context.Background(), "ghost", 0, v)
	if !errors.Is(err, model.ErrConflict) {
		t.Errorf("append to missing asset = %v, want ErrConflict", err)
	}
}

func TestAppendVersion_concurrentWritersOneWinner(t *testing.T) {
	m := NewMemory()
	genesis := seedAsset(t, m, "plot-1")
	ctx := context.Background()

	const writers = 16
	var wg sync.WaitGroup
	results := make(chan error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			next := versionchain.Next(*genesis, model.Payload{
				Status: model.StatusActive, Owner: "racer", Name: "x",
				SizeHectares: 10,
			}, time.Now())
			results <- m.AppendVersion(ctx, "plot-1", 0, &next)
		}()
	}
	wg.Wait()
	close(results)

	wins, conflicts := 0, 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, model.ErrConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("winners = %d, want exactly 1", wins)
	}
	if conflicts != writers-1 {
		t.Errorf("conflicts = %d, want %d", conflicts, writers-1)
	}

	a, _ := m.GetAsset(ctx, "plot-1")
	if a.CurrentSequence != 1 {
		t.Errorf("current sequence = %d, want 1", a.CurrentSequence)
	}
}

func TestGetVersion_outOfRange(t *testing.T) {
	m := NewMemory()
	seedAsset(t, m, "plot-1")

	if _, err := m.GetVersion(context.Background(), "plot-1", 5); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("GetVersion(5) = %v, want ErrNotFound", err)
	}
	if _, err := m.GetVersion(context.Background(), "plot-1", -1); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("GetVersion(-1) = %v, want ErrNotFound", err)
	}
}

func TestListAssets_pagination(t *testing.T) {
	m := NewMemory()
	for _, id := range []string{"a", "b", "c", "d"} {
		seedAsset(t, m, id)
	}
	ctx := context.Background()

	page, err := m.ListAssets(ctx, 2, 0)
	if err != nil {
		t.Fatalf("ListAssets: %v", err)
	}
	if len(page) != 2 {
		t.Errorf("len(page) = %d, want 2", len(page))
	}

	rest, _ := m.ListAssets(ctx, 10, 2)
	if len(rest) != 2 {
		t.Errorf("len(rest) = %d, want 2", len(rest))
	}

	beyond, _ := m.ListAssets(ctx, 10, 100)
	if len(beyond) != 0 {
		t.Errorf("len(beyond) = %d, want 0", len(beyond))
	}
}

func TestListEvidence_filtersAndOrders(t *testing.T) {
	m := NewMemory()
	seedAsset(t, m, "plot-1")
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	records := []*model.Evidence{
		{ID: uuid.New(), AssetID: "plot-1", VersionSequence: 0, Kind: model.EvidenceAttestation, PayloadRef: "r3", Submitter: "s", SubmittedAt: base.Add(2 * time.Hour)},
		{ID: uuid.New(), AssetID: "plot-1", VersionSequence: 0, Kind: model.EvidenceSurveyData, PayloadRef: "r1", Submitter: "s", SubmittedAt: base},
		{ID: uuid.New(), AssetID: "plot-1", VersionSequence: 1, Kind: model.EvidenceDocumentHash, PayloadRef: "r2", Submitter: "s", SubmittedAt: base.Add(time.Hour)},
	}
	for _, e := range records {
		if err := m.AppendEvidence(ctx, e); err != nil {
			t.Fatalf("AppendEvidence: %v", err)
		}
	}

	all, err := m.ListEvidence(ctx, "plot-1", nil)
	if err != nil {
		t.Fatalf("ListEvidence: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(all) = %d, want 3", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].SubmittedAt.Before(all[i-1].SubmittedAt) {
			t.Errorf("evidence not in submission order at index %d", i)
		}
	}

	seq := 0
	only, _ := m.ListEvidence(ctx, "plot-1", &seq)
	if len(only) != 2 {
		t.Errorf("len(filtered) = %d, want 2", len(only))
	}
	for _, e := range only {
		if e.VersionSequence != 0 {
			t.Errorf("filtered record has sequence %d, want 0", e.VersionSequence)
		}
	}
}
