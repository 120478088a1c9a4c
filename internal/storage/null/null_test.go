package null

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"tuslite/internal/info"
	"tuslite/internal/storage"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b := New(t.TempDir(), "{year}/{month}/{day}")
	if err := b.Prepare(context.Background()); err != nil {
		t.Fatalf("Prepare returned error: %v", err)
	}
	return b
}

func TestDiscardRoundTrip(t *testing.T) {
	b := newTestBackend(t)
	upload := &info.Upload{ID: "drop1", Filename: "video.mp4"}

	path, err := b.Create(context.Background(), upload)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	upload.StoragePath = path

	if err := b.Append(context.Background(), upload, []byte("payload that vanishes")); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}

	delivery, err := b.Get(context.Background(), upload)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	defer delivery.Close()

	// 丢弃型后端允许静默丢弃字节：单元存在但内容不可取回。
	if delivery.Body != nil {
		t.Fatal("expected empty-body delivery from discard backend")
	}
	if delivery.Disposition() != `attachment; filename="video.mp4"` {
		t.Fatalf("unexpected disposition: %s", delivery.Disposition())
	}

	stat, err := os.Stat(path)
	if err != nil {
		t.Fatalf("bookkeeping file missing: %v", err)
	}
	if stat.Size() != 0 {
		t.Fatalf("discard backend persisted %d bytes", stat.Size())
	}
}

func TestCreate_Conflict(t *testing.T) {
	b := newTestBackend(t)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := b.Create(context.Background(), &info.Upload{ID: "dup"})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, conflicts int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, storage.ErrExists):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 || conflicts != 1 {
		t.Fatalf("expected 1 success and 1 conflict, got %d/%d", successes, conflicts)
	}
}

func TestPreconditionErrors(t *testing.T) {
	b := newTestBackend(t)
	upload := &info.Upload{ID: "no-unit"}

	if err := b.Append(context.Background(), upload, []byte("x")); !errors.Is(err, storage.ErrNotCreated) {
		t.Fatalf("Append: expected ErrNotCreated, got %v", err)
	}
	if err := b.Concat(context.Background(), upload, nil); !errors.Is(err, storage.ErrNotCreated) {
		t.Fatalf("Concat: expected ErrNotCreated, got %v", err)
	}
	if _, err := b.Get(context.Background(), upload); !errors.Is(err, storage.ErrNotCreated) {
		t.Fatalf("Get: expected ErrNotCreated, got %v", err)
	}
	if err := b.Remove(context.Background(), upload); !errors.Is(err, storage.ErrNotCreated) {
		t.Fatalf("Remove: expected ErrNotCreated, got %v", err)
	}
}

func TestRemove_MissingBackingFile(t *testing.T) {
	b := newTestBackend(t)
	upload := &info.Upload{ID: "gone"}

	path, err := b.Create(context.Background(), upload)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	upload.StoragePath = path

	if err := os.Remove(path); err != nil {
		t.Fatalf("setup remove: %v", err)
	}
	if err := b.Remove(context.Background(), upload); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
