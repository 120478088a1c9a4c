package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"tuslite/internal/info"
	"tuslite/internal/storage"
)

// Backend 把上传单元保存在本地文件系统，每个 id 对应一个文件，
// 目录按需创建，布局为 {base}/{模板分片}/{id}。
type Backend struct {
	dataDir   string
	dirStruct string
}

// New 创建本地文件系统后端。
func New(dataDir, dirStruct string) *Backend {
	return &Backend{dataDir: dataDir, dirStruct: dirStruct}
}

func (b *Backend) Name() string {
	return "file"
}

// Prepare 确保数据目录存在，可重复调用。
func (b *Backend) Prepare(ctx context.Context) error {
	if err := os.MkdirAll(b.dataDir, 0o755); err != nil {
		return fmt.Errorf("prepare data dir %q: %w", b.dataDir, err)
	}
	return nil
}

// Create 用 O_EXCL 独占创建空文件，并发创建同一 id 时恰好一方成功。
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

// Append 以追加方式写入字节。多次 Append 的交错由调用方串行化。
func (b *Backend) Append(ctx context.Context, upload *info.Upload, data []byte) error {
	if !upload.Created() {
		return storage.ErrNotCreated
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	f, err := os.OpenFile(upload.StoragePath, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("unit %q: %w", upload.StoragePath, storage.ErrNotFound)
		}
		return fmt.Errorf("open unit %q: %w", upload.StoragePath, err)
	}

	_, werr := f.Write(data)
	cerr := f.Close()
	if werr != nil {
		return fmt.Errorf("append to %q: %w", upload.StoragePath, werr)
	}
	if cerr != nil {
		return fmt.Errorf("flush %q: %w", upload.StoragePath, cerr)
	}
	return nil
}

// Concat 把各分片按给定顺序拼入临时文件，成功后整体重命名到目标，
// 避免任一分片失败时留下看似完整的截断文件。拼装成功后删除分片文件。
func (b *Backend) Concat(ctx context.Context, upload *info.Upload, parts []info.Upload) error {
	if !upload.Created() {
		return storage.ErrNotCreated
	}

	tmp := upload.StoragePath + ".concat"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create concat tmp %q: %w", tmp, err)
	}

	copyParts := func() error {
		for i := range parts {
			part := &parts[i]
			if !part.Created() {
				return fmt.Errorf("part %s: %w", part.ID, storage.ErrNotCreated)
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			src, err := os.Open(part.StoragePath)
			if err != nil {
				if os.IsNotExist(err) {
					return fmt.Errorf("part %q: %w", part.StoragePath, storage.ErrNotFound)
				}
				return fmt.Errorf("open part %q: %w", part.StoragePath, err)
			}
			_, cpErr := io.Copy(out, src)
			src.Close()
			if cpErr != nil {
				return fmt.Errorf("copy part %q: %w", part.StoragePath, cpErr)
			}
		}
		return nil
	}

	if err := copyParts(); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}

	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync concat tmp: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close concat tmp: %w", err)
	}
	if err := os.Rename(tmp, upload.StoragePath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("finalize concat: %w", err)
	}

	// 分片文件已并入目标，事后清理。
	for i := range parts {
		os.Remove(parts[i].StoragePath)
	}
	return nil
}

// Get 打开单元文件并返回可流式读取的交付描述，调用方负责关闭。
func (b *Backend) Get(ctx context.Context, upload *info.Upload) (*storage.Delivery, error) {
	if !upload.Created() {
		return nil, storage.ErrNotCreated
	}

	f, err := os.Open(upload.StoragePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("unit %q: %w", upload.StoragePath, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("open unit %q: %w", upload.StoragePath, err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat unit %q: %w", upload.StoragePath, err)
	}

	return &storage.Delivery{
		Filename:    upload.DisplayName(),
		ContentType: "application/octet-stream",
		Size:        stat.Size(),
		Body:        f,
	}, nil
}

// Remove 删除单元文件。文件已不在时返回 ErrNotFound。
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
