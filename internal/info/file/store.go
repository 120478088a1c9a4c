package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"tuslite/internal/info"
)

// Store 把上传元数据以 JSON 文件形式保存在本地目录，
// 每条记录一个 <id>.info 文件。
type Store struct {
	dir string
}

// New 创建基于文件的元数据存储，目录不存在时自动创建。
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create info dir %q: %w", dir, err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve info dir: %w", err)
	}
	return &Store{dir: abs}, nil
}

func (s *Store) infoPath(id string) string {
	return filepath.Join(s.dir, filepath.Base(id)+".info")
}

// Save 原子写入元数据：先写临时文件再重命名。
func (s *Store) Save(ctx context.Context, upload *info.Upload) error {
	if upload == nil || upload.ID == "" {
		return fmt.Errorf("upload id is required")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	data, err := json.Marshal(upload)
	if err != nil {
		return fmt.Errorf("encode upload info: %w", err)
	}

	target := s.infoPath(upload.ID)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write info file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename info file: %w", err)
	}
	return nil
}

// Get 读取并解析指定 id 的元数据。
func (s *Store) Get(ctx context.Context, id string) (*info.Upload, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	data, err := os.ReadFile(s.infoPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, info.ErrNotFound
		}
		return nil, fmt.Errorf("read info file: %w", err)
	}

	var upload info.Upload
	if err := json.Unmarshal(data, &upload); err != nil {
		return nil, fmt.Errorf("decode info file: %w", err)
	}
	return &upload, nil
}

// Delete 删除指定 id 的元数据文件。
func (s *Store) Delete(ctx context.Context, id string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := os.Remove(s.infoPath(id)); err != nil {
		if os.IsNotExist(err) {
			return info.ErrNotFound
		}
		return fmt.Errorf("remove info file: %w", err)
	}
	return nil
}
