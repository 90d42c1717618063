package health

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/landtruth/registry/internal/registry/model"
	"github.com/landtruth/registry/internal/registry/repository"
	"github.com/landtruth/registry/internal/registry/service"
	"go.uber.org/zap"
)

// ── Stubs ────────────────────────────────────────────────────────────────

type stubLister struct {
	assets []*model.Asset
}

func (s *stubLister) ListAssets(_ context.Context, limit, offset int) ([]*model.Asset, error) {
	if offset >= len(s.assets) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.assets) {
		end = len(s.assets)
	}
	return s.assets[offset:end], nil
}

type stubVerifier struct {
	mu     sync.Mutex
	bad    map[string]bool
	called map[string]int
}

func (s *stubVerifier) VerifyAsset(_ context.Context, assetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.called == nil {
		s.called = make(map[string]int)
	}
	s.called[assetID]++
	if s.bad[assetID] {
		return errors.New("hash mismatch")
	}
	return nil
}

// ── Tests ────────────────────────────────────────────────────────────────

func TestSweepAll_cleanStore(t *testing.T) {
	lister := &stubLister{assets: []*model.Asset{
		{ID: "plot-1"}, {ID: "plot-2"}, {ID: "plot-3"},
	}}
	verifier := &stubVerifier{}

	m := New(lister, verifier, Config{}, zap.NewNop())
	checked, faults := m.SweepAll(context.Background())

	if checked != 3 {
		t.Errorf("checked = %d, want 3", checked)
	}
	if faults != 0 {
		t.Errorf("faults = %d, want 0", faults)
	}
}

func TestSweepAll_countsFaults(t *testing.T) {
	lister := &stubLister{assets: []*model.Asset{
		{ID: "plot-1"}, {ID: "plot-2"}, {ID: "plot-3"},
	}}
	verifier := &stubVerifier{bad: map[string]bool{"plot-2": true}}

	m := New(lister, verifier, Config{}, zap.NewNop())
	checked, faults := m.SweepAll(context.Background())

	if checked != 3 {
		t.Errorf("checked = %d, want 3", checked)
	}
	if faults != 1 {
		t.Errorf("faults = %d, want 1", faults)
	}
}

func TestSweepAll_pagesThroughAllAssets(t *testing.T) {
	var assets []*model.Asset
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		assets = append(assets, &model.Asset{ID: id})
	}
	lister := &stubLister{assets: assets}
	verifier := &stubVerifier{}

	m := New(lister, verifier, Config{PageSize: 2}, zap.NewNop())
	checked, _ := m.SweepAll(context.Background())

	if checked != 5 {
		t.Errorf("checked = %d, want 5", checked)
	}
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		if verifier.called[id] != 1 {
			t.Errorf("asset %q verified %d times, want 1", id, verifier.called[id])
		}
	}
}

func TestSweepAll_reportsToMetricsCallback(t *testing.T) {
	lister := &stubLister{assets: []*model.Asset{
		{ID: "plot-1"}, {ID: "plot-2"},
	}}
	verifier := &stubVerifier{bad: map[string]bool{"plot-1": true}}

	var mu sync.Mutex
	valid, invalid := 0, 0

	m := New(lister, verifier, Config{}, zap.NewNop())
	m.SetMetricsRecord(func(ok bool) {
		mu.Lock()
		defer mu.Unlock()
		if ok {
			valid++
		} else {
			invalid++
		}
	})
	m.SweepAll(context.Background())

	if valid != 1 || invalid != 1 {
		t.Errorf("callback saw valid=%d invalid=%d, want 1 and 1", valid, invalid)
	}
}

func TestSweepAll_acceptsAssetService(t *testing.T) {
	svc := service.NewAssetService(repository.NewMemory(), zap.NewNop())
	ctx := context.Background()

	for _, id := range []string{"plot-1", "plot-2"} {
		_, _, err := svc.CreateAsset(ctx, id, model.Payload{
			Status:       model.StatusActive,
			Owner:        "Tendai Moyo",
			Name:         "Mashonaland Plot",
			LocationLat:  -17.8252,
			LocationLon:  31.0335,
			SizeHectares: 12.5,
			ChangeReason: "Genesis Creation",
		})
		if err != nil {
			t.Fatalf("CreateAsset(%s): %v", id, err)
		}
	}

	m := New(svc, svc, Config{}, zap.NewNop())
	checked, faults := m.SweepAll(ctx)

	if checked != 2 {
		t.Errorf("checked = %d, want 2", checked)
	}
	if faults != 0 {
		t.Errorf("faults = %d, want 0", faults)
	}
}

func TestStart_stopsWhenChannelCloses(t *testing.T) {
	m := New(&stubLister{}, &stubVerifier{}, Config{SweepInterval: time.Hour}, zap.NewNop())

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		m.Start(stop)
		close(done)
	}()

	close(stop)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after stop channel closed")
	}
}
