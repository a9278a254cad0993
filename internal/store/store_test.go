package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/opengrove/groupfeed/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "snapshots.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLoadSnapshot(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	posts := []*types.Post{
		{
			ID:        1,
			Kind:      types.KindText,
			Author:    types.Author{ID: 7, Name: "Ada"},
			CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
			Metrics:   types.Metrics{Likes: 3, Comments: 1, Shares: 2},
		},
		{
			ID:         2,
			Kind:       types.KindPoll,
			CreatedAt:  time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC),
			Moderation: types.Moderation{Status: types.ModerationRemoved},
		},
	}

	if err := s.SaveSnapshot(5, posts); err != nil {
		t.Fatal(err)
	}

	got, fetchedAt, err := s.LatestSnapshot(5)
	if err != nil {
		t.Fatal(err)
	}
	if fetchedAt.IsZero() {
		t.Error("fetched_at not recorded")
	}
	if len(got) != 2 {
		t.Fatalf("got %d rows", len(got))
	}
	// Rows come back newest-first.
	if got[0].PostID != 2 || got[1].PostID != 1 {
		t.Errorf("order = %d, %d", got[0].PostID, got[1].PostID)
	}
	if got[1].AuthorName != "Ada" || got[1].Likes != 3 {
		t.Errorf("row = %+v", got[1])
	}
	if got[0].ModerationStatus != "removed" {
		t.Errorf("moderation status = %q", got[0].ModerationStatus)
	}
}

func TestLatestSnapshotPicksNewest(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	if err := s.SaveSnapshot(5, []*types.Post{{ID: 1, Kind: types.KindText}}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := s.SaveSnapshot(5, []*types.Post{{ID: 2, Kind: types.KindText}}); err != nil {
		t.Fatal(err)
	}

	got, _, err := s.LatestSnapshot(5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].PostID != 2 {
		t.Fatalf("got %+v, want the newer snapshot", got)
	}
}

func TestLatestSnapshotScopedToGroup(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	if err := s.SaveSnapshot(5, []*types.Post{{ID: 1, Kind: types.KindText}}); err != nil {
		t.Fatal(err)
	}

	if _, _, err := s.LatestSnapshot(6); err == nil {
		t.Error("expected no snapshot for group 6")
	}
}

func TestPruneSnapshots(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	if err := s.SaveSnapshot(5, []*types.Post{{ID: 1, Kind: types.KindText}}); err != nil {
		t.Fatal(err)
	}

	if err := s.PruneSnapshots(time.Now().UTC().Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.LatestSnapshot(5); err == nil {
		t.Error("pruned snapshot still readable")
	}
}
