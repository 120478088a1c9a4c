package local

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"

	"tuslite/internal/info"
	"tuslite/internal/storage"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b := New(t.TempDir(), "{year}/{month}")
	if err := b.Prepare(context.Background()); err != nil {
		t.Fatalf("Prepare returned error: %v", err)
	}
	return b
}

func createUpload(t *testing.T, b *Backend, id string) *info.Upload {
	t.Helper()
	upload := &info.Upload{ID: id, Filename: id + ".bin"}
	path, err := b.Create(context.Background(), upload)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	upload.StoragePath = path
	return upload
}

func TestCreate_AtomicConflict(t *testing.T) {
	b := newTestBackend(t)

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := b.Create(context.Background(), &info.Upload{ID: "same-id"})
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
	if successes != 1 {
		t.Fatalf("expected exactly 1 successful create, got %d", successes)
	}
	if conflicts != workers-1 {
		t.Fatalf("expected %d conflicts, got %d", workers-1, conflicts)
	}
}

func TestPreconditionErrors(t *testing.T) {
	b := newTestBackend(t)
	upload := &info.Upload{ID: "never-created"}

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

func TestAppendAndGet(t *testing.T) {
	b := newTestBackend(t)
	upload := createUpload(t, b, "append-me")

	if err := b.Append(context.Background(), upload, []byte("hello ")); err != nil {
		t.Fatalf("first Append returned error: %v", err)
	}
	if err := b.Append(context.Background(), upload, []byte("world")); err != nil {
		t.Fatalf("second Append returned error: %v", err)
	}

	delivery, err := b.Get(context.Background(), upload)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	defer delivery.Close()

	if delivery.Size != int64(len("hello world")) {
		t.Fatalf("expected size %d, got %d", len("hello world"), delivery.Size)
	}
	body, err := io.ReadAll(delivery.Body)
	if err != nil {
		t.Fatalf("read delivery body: %v", err)
	}
	if string(body) != "hello world" {
		t.Fatalf("expected %q, got %q", "hello world", body)
	}
	if delivery.Disposition() != `attachment; filename="append-me.bin"` {
		t.Fatalf("unexpected disposition: %s", delivery.Disposition())
	}
}

func TestConcat_OrderPreserved(t *testing.T) {
	b := newTestBackend(t)

	chunks := [][]byte{[]byte("AAA"), []byte("bb"), []byte("cccc")}
	parts := make([]info.Upload, 0, len(chunks))
	for i, chunk := range chunks {
		part := createUpload(t, b, "part-"+string(rune('a'+i)))
		if err := b.Append(context.Background(), part, chunk); err != nil {
			t.Fatalf("append part %d: %v", i, err)
		}
		parts = append(parts, *part)
	}

	final := createUpload(t, b, "final")
	if err := b.Concat(context.Background(), final, parts); err != nil {
		t.Fatalf("Concat returned error: %v", err)
	}

	delivery, err := b.Get(context.Background(), final)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	defer delivery.Close()

	body, err := io.ReadAll(delivery.Body)
	if err != nil {
		t.Fatalf("read final body: %v", err)
	}
	want := bytes.Join(chunks, nil)
	if !bytes.Equal(body, want) {
		t.Fatalf("expected %q, got %q", want, body)
	}

	// 分片文件拼装成功后应被清理。
	for _, part := range parts {
		if _, err := os.Stat(part.StoragePath); !os.IsNotExist(err) {
			t.Fatalf("expected part %s to be cleaned up", part.ID)
		}
	}
}

func TestConcat_MissingPartLeavesTargetIntact(t *testing.T) {
	b := newTestBackend(t)

	final := createUpload(t, b, "final")
	if err := b.Append(context.Background(), final, []byte("original")); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}

	ghost := info.Upload{ID: "ghost", StoragePath: final.StoragePath + ".nope"}
	err := b.Concat(context.Background(), final, []info.Upload{ghost})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	delivery, err := b.Get(context.Background(), final)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	defer delivery.Close()
	body, _ := io.ReadAll(delivery.Body)
	if string(body) != "original" {
		t.Fatalf("target was modified by failed concat: %q", body)
	}
}

func TestRemoveSemantics(t *testing.T) {
	b := newTestBackend(t)
	upload := createUpload(t, b, "doomed")

	if err := b.Remove(context.Background(), upload); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}

	if _, err := b.Get(context.Background(), upload); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Get after remove: expected ErrNotFound, got %v", err)
	}
	if err := b.Remove(context.Background(), upload); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("second Remove: expected ErrNotFound, got %v", err)
	}
}

func TestRemove_MissingBackingFile(t *testing.T) {
	b := newTestBackend(t)
	upload := createUpload(t, b, "tampered")

	// 模拟外部删除：记录仍声称已创建，但文件不在了。
	if err := os.Remove(upload.StoragePath); err != nil {
		t.Fatalf("setup remove: %v", err)
	}

	if err := b.Remove(context.Background(), upload); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
