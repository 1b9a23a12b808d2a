package queue_test

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"fetchd/internal/queue"
	"fetchd/internal/testsupport"
)

func TestStoreRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	started := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	completed := started.Add(90 * time.Second)
	items := []*queue.Item{
		{
			ID:            "item-cut",
			RequesterID:   42,
			RequesterName: "Alice",
			SourceURL:     "https://example.com/clip",
			Kind:          queue.KindVideoCut,
			Priority:      queue.PriorityHigh,
			Status:        queue.StatusCompleted,
			CreatedAt:     started.Add(-time.Minute),
			StartedAt:     &started,
			CompletedAt:   &completed,
			Progress:      100,
			RetryCount:    1,
			MaxRetries:    3,
			Params:        queue.CutParams{Start: "00:00:10", End: "00:01:40"},
		},
		{
			ID:          "item-plain",
			RequesterID: 42,
			SourceURL:   "https://example.com/video",
			Kind:        queue.KindVideo,
			Priority:    queue.PriorityNormal,
			Status:      queue.StatusPending,
			CreatedAt:   started,
			MaxRetries:  3,
			Params:      queue.VideoParams{},
		},
	}

	if err := store.Save(ctx, items); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 items, got %d", len(loaded))
	}
	if loaded[0].ID != "item-cut" || loaded[1].ID != "item-plain" {
		t.Fatalf("snapshot order not preserved: %s, %s", loaded[0].ID, loaded[1].ID)
	}

	got := loaded[0]
	if got.RequesterName != "Alice" || got.RetryCount != 1 || got.Progress != 100 {
		t.Fatalf("fields not preserved: %+v", got)
	}
	if got.StartedAt == nil || !got.StartedAt.Equal(started) {
		t.Fatalf("started_at not preserved: %v", got.StartedAt)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(completed) {
		t.Fatalf("completed_at not preserved: %v", got.CompletedAt)
	}
	cut, ok := got.Params.(queue.CutParams)
	if !ok {
		t.Fatalf("expected CutParams, got %T", got.Params)
	}
	if cut.Start != "00:00:10" || cut.End != "00:01:40" {
		t.Fatalf("cut params not preserved: %+v", cut)
	}

	if loaded[1].StartedAt != nil || loaded[1].CompletedAt != nil {
		t.Fatal("nullable timestamps should stay nil")
	}
	if _, ok := loaded[1].Params.(queue.VideoParams); !ok {
		t.Fatalf("expected VideoParams, got %T", loaded[1].Params)
	}
}

func TestStoreSaveReplacesSnapshot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := []*queue.Item{{
		ID:          "one",
		RequesterID: 1,
		SourceURL:   "https://example.com/1",
		Kind:        queue.KindAudio,
		Priority:    queue.PriorityNormal,
		Status:      queue.StatusPending,
		CreatedAt:   time.Now().UTC(),
		Params:      queue.AudioParams{},
	}}
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := store.Save(ctx, nil); err != nil {
		t.Fatalf("empty save: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected empty snapshot, got %d items", len(loaded))
	}
}

func TestStoreRecoversFromBackup(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	store := testsupport.MustOpenStore(t, cfg)
	items := []*queue.Item{{
		ID:          "survivor",
		RequesterID: 1,
		SourceURL:   "https://example.com/1",
		Kind:        queue.KindVideo,
		Priority:    queue.PriorityNormal,
		Status:      queue.StatusPending,
		CreatedAt:   time.Now().UTC(),
		Params:      queue.VideoParams{},
	}}
	if err := store.Save(ctx, items); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Backup(ctx); err != nil {
		t.Fatalf("backup: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if err := os.WriteFile(cfg.QueueDBPath(), []byte("not a database"), 0o644); err != nil {
		t.Fatalf("corrupt primary: %v", err)
	}

	restored := testsupport.MustOpenStore(t, cfg)
	loaded, err := restored.Load(ctx)
	if err != nil {
		t.Fatalf("load after restore: %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != "survivor" {
		t.Fatalf("expected backup contents restored, got %+v", loaded)
	}
}

func TestStoreQuarantinesUnknownSchemaVersion(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	store := testsupport.MustOpenStore(t, cfg)
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db, err := sql.Open("sqlite", cfg.QueueDBPath())
	if err != nil {
		t.Fatalf("reopen raw: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close raw: %v", err)
	}

	fresh := testsupport.MustOpenStore(t, cfg)
	loaded, err := fresh.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected an empty queue after quarantine, got %d items", len(loaded))
	}
	if _, err := os.Stat(cfg.QueueDBPath() + ".corrupt"); err != nil {
		t.Fatalf("expected the mismatched database moved aside: %v", err)
	}
}

func TestStoreStartsEmptyWithoutUsableBackup(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	store := testsupport.MustOpenStore(t, cfg)
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := os.WriteFile(cfg.QueueDBPath(), []byte("not a database"), 0o644); err != nil {
		t.Fatalf("corrupt primary: %v", err)
	}

	fresh := testsupport.MustOpenStore(t, cfg)
	loaded, err := fresh.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected an empty queue, got %d items", len(loaded))
	}
}
