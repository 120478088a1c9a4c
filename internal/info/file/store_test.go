package file

import (
	"context"
	"errors"
	"testing"
	"time"

	"tuslite/internal/info"
)

func TestStore_SaveAndGet(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	upload := &info.Upload{
		ID:             "abc123",
		Filename:       "report.pdf",
		DeclaredLength: 42,
		StoragePath:    "/data/abc123",
		Metadata:       map[string]string{"owner": "tester"},
		CreatedAt:      time.Now().UTC().Truncate(time.Second),
	}

	if err := store.Save(context.Background(), upload); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	got, err := store.Get(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Filename != upload.Filename {
		t.Fatalf("expected filename %q, got %q", upload.Filename, got.Filename)
	}
	if got.StoragePath != upload.StoragePath {
		t.Fatalf("expected storage path %q, got %q", upload.StoragePath, got.StoragePath)
	}
	if got.Metadata["owner"] != "tester" {
		t.Fatalf("metadata not preserved: %+v", got.Metadata)
	}
}

func TestStore_GetMissing(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	_, err = store.Get(context.Background(), "missing")
	if !errors.Is(err, info.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Delete(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	upload := &info.Upload{ID: "del1", StoragePath: "/data/del1"}
	if err := store.Save(context.Background(), upload); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	if err := store.Delete(context.Background(), "del1"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if err := store.Delete(context.Background(), "del1"); !errors.Is(err, info.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
