package history_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tubegate/tubegate/internal/history"
	"github.com/tubegate/tubegate/internal/testutil"
)

func openTestStore(t *testing.T) *history.Store {
	t.Helper()
	db, err := sql.Open("sqlite", "file::memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	t.Cleanup(func() { db.Close() })

	store, err := history.NewStore(db, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestStore_AddAndList(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	clock := testutil.NewFakeClock(time.Unix(1700000000, 0))
	store.SetClock(clock.Now)

	first, err := store.Add(ctx, history.Record{
		Title:     "First Clip",
		SourceURL: "https://youtu.be/dQw4w9WgXcQ",
		Format:    "mp4",
		Quality:   "1080p",
		FileSize:  "12.5 MB",
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if first.ID == "" || first.CreatedAt != 1700000000 {
		t.Fatalf("bad stored record: %+v", first)
	}
	if first.Status != history.StatusCompleted {
		t.Fatalf("empty status should default to completed, got %q", first.Status)
	}

	clock.Advance(time.Minute)
	if _, err := store.Add(ctx, history.Record{Title: "Second", SourceURL: "u", Status: history.StatusFailed}); err != nil {
		t.Fatalf("Add second: %v", err)
	}

	records, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Title != "Second" {
		t.Fatalf("newest first ordering violated: %+v", records)
	}
	if records[1].Quality != "1080p" || records[1].FileSize != "12.5 MB" {
		t.Fatalf("fields not round-tripped: %+v", records[1])
	}
}

func TestStore_ListLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	clock := testutil.NewFakeClock(time.Unix(1700000000, 0))
	store.SetClock(clock.Now)

	for i := 0; i < 5; i++ {
		if _, err := store.Add(ctx, history.Record{Title: "t", SourceURL: "u"}); err != nil {
			t.Fatalf("Add: %v", err)
		}
		clock.Advance(time.Second)
	}
	records, err := store.List(ctx, 3)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
}

func TestStore_Delete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	rec, err := store.Add(ctx, history.Record{Title: "t", SourceURL: "u"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := store.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, rec.ID); !errors.Is(err, history.ErrRecordNotFound) {
		t.Fatalf("second delete: got %v, want RecordNotFound", err)
	}
}

func TestStore_Clear(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.Add(ctx, history.Record{Title: "t", SourceURL: "u"}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	records, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("store not empty after clear: %d records", len(records))
	}
}
