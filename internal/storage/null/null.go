package null

import (
	"context"
	"fmt"
	"os"
	"time"

	"tuslite/internal/info"
	"tuslite/internal/storage"
)

// Backend 是丢弃型参考后端：目录与文件簿记是真实的
// （独占创建、删除前存在性检查都会落到文件系统），
// 但 Append 直接丢弃字节。用于契约验证和吞吐压测。
type Backend struct {
	dataDir   string
	dirStruct string
}

// New 创建丢弃型后端。dirStruct 为目录结构模板，见 pathgen。
func New(dataDir, dirStruct string) *Backend {
	return &Backend{dataDir: dataDir, dirStruct: dirStruct}
}

func (b *Backend) Name() string {
	return "null"
}

// Prepare 确保数据目录存在，可重复调用。
func (b *Backend) Prepare(ctx context.Context) error {
	if err := os.MkdirAll(b.dataDir, 0o755); err != nil {
		return fmt.Errorf("prepare data dir %q: %w", b.dataDir, err)
	}
	return nil
}

// Create 用 O_EXCL 独占创建一个零长度文件，同一 id 并发创建只有一方成功。
func (b *Backend) Create(ctx context.Context, upload *info.Upload) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	path, err := storage.ResolveUnitPath(b.dataDir, b.dirStruct, upload.ID, time.Now())
	if err != nil {
		return "", err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return "", fmt.Errorf("unit for %s: %w", upload.ID, storage.ErrExists)
		}
		return "", fmt.Errorf("create unit %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close unit %q: %w", path, err)
	}
	return path, nil
}

// Append 消费并丢弃字节。成功返回不代表字节随后可读。
func (b *Backend) Append(ctx context.Context, upload *info.Upload, data []byte) error {
	if !upload.Created() {
		return storage.ErrNotCreated
	}
	return nil
}

// Concat 只校验目标已创建，不搬运任何字节。
func (b *Backend) Concat(ctx context.Context, upload *info.Upload, parts []info.Upload) error {
	if !upload.Created() {
		return storage.ErrNotCreated
	}
	return nil
}

// Get 返回空体交付，仅携带用于 content-disposition 的文件名。
func (b *Backend) Get(ctx context.Context, upload *info.Upload) (*storage.Delivery, error) {
	if !upload.Created() {
		return nil, storage.ErrNotCreated
	}
	return &storage.Delivery{
		Filename:    upload.DisplayName(),
		ContentType: "application/octet-stream",
	}, nil
}

// Remove 删除簿记文件。文件已不在时返回 ErrNotFound，不按成功处理。
func (b *Backend) Remove(ctx context.Context, upload *info.Upload) error {
	if !upload.Created() {
		return storage.ErrNotCreated
	}
	if _, err := os.Stat(upload.StoragePath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("unit %q: %w", upload.StoragePath, storage.ErrNotFound)
		}
		return fmt.Errorf("stat unit %q: %w", upload.StoragePath, err)
	}
	if err := os.Remove(upload.StoragePath); err != nil {
		return fmt.Errorf("remove unit %q: %w", upload.StoragePath, err)
	}
	return nil
}

func (b *Backend) Capabilities() storage.Capabilities {
	return storage.Capabilities{Concatenation: true, Termination: true}
}
