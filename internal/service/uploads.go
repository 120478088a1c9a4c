package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tuslite/internal/info"
	"tuslite/internal/storage"

	"github.com/google/uuid"
)

var (
	// ErrLengthExceeded 表示追加会使上传超过声明的总长度。
	ErrLengthExceeded = errors.New("service: upload exceeds declared length")

	// ErrPartNotPartial 表示拼接引用了非分片上传。
	ErrPartNotPartial = errors.New("service: referenced upload is not a partial upload")
)

// UploadService 封装上传生命周期：协议层解析出上传记录后，
// 由它协调元数据存储与存储后端。
type UploadService struct {
	infos   info.Store
	backend storage.Backend
}

func NewUploadService(infos info.Store, backend storage.Backend) *UploadService {
	return &UploadService{infos: infos, backend: backend}
}

// CreateUploadInput 描述创建一次上传所需的信息。
type CreateUploadInput struct {
	ID             string // 为空时自动分配
	Filename       string
	DeclaredLength int64 // info.LengthDeferred 表示暂不声明
	Metadata       map[string]string
	IsPartial      bool
}

// CreateUpload 分配 id、在后端创建存储单元并持久化元数据。
// 同一 id 的重复创建由后端的原子创建语义拒绝（storage.ErrExists）。
func (s *UploadService) CreateUpload(ctx context.Context, input CreateUploadInput) (*info.Upload, error) {
	if s == nil || s.infos == nil || s.backend == nil {
		return nil, errors.New("upload service not initialized")
	}

	id := input.ID
	if id == "" {
		id = uuid.NewString()
	}

	upload := &info.Upload{
		ID:             id,
		Filename:       input.Filename,
		DeclaredLength: input.DeclaredLength,
		Metadata:       input.Metadata,
		IsPartial:      input.IsPartial,
		CreatedAt:      time.Now().UTC(),
	}

	path, err := s.backend.Create(ctx, upload)
	if err != nil {
		return nil, err
	}
	upload.StoragePath = path

	if err := s.infos.Save(ctx, upload); err != nil {
		return nil, fmt.Errorf("save upload info: %w", err)
	}
	return upload, nil
}

// AppendChunk 向上传追加一段字节并推进偏移量。
// checksumHeader 非空时先做完整性校验（格式 "<算法> <base64摘要>"）。
// 同一 id 的并发追加由调用方串行化，服务层不加锁。
func (s *UploadService) AppendChunk(ctx context.Context, id string, data []byte, checksumHeader string) (*info.Upload, error) {
	upload, err := s.infos.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if checksumHeader != "" {
		if err := verifyChecksum(checksumHeader, data); err != nil {
			return nil, err
		}
	}

	if upload.DeclaredLength >= 0 && upload.Offset+int64(len(data)) > upload.DeclaredLength {
		return nil, ErrLengthExceeded
	}

	if err := s.backend.Append(ctx, upload, data); err != nil {
		return nil, err
	}

	upload.Offset += int64(len(data))
	if err := s.infos.Save(ctx, upload); err != nil {
		return nil, fmt.Errorf("save upload info: %w", err)
	}
	return upload, nil
}

// ConcatInput 描述一次拼接请求：按 PartIDs 的顺序组装最终上传。
type ConcatInput struct {
	ID       string
	Filename string
	PartIDs  []string
	Metadata map[string]string
}

// ConcatUploads 从既有分片组装最终上传。顺序严格跟随 PartIDs。
// 成功后分片的元数据随底层分片文件一并清理。
func (s *UploadService) ConcatUploads(ctx context.Context, input ConcatInput) (*info.Upload, error) {
	if !s.backend.Capabilities().Concatenation {
		return nil, fmt.Errorf("concat: %w", storage.ErrUnsupported)
	}
	if len(input.PartIDs) == 0 {
		return nil, errors.New("concat requires at least one part")
	}

	parts := make([]info.Upload, 0, len(input.PartIDs))
	var total int64
	for _, partID := range input.PartIDs {
		part, err := s.infos.Get(ctx, partID)
		if err != nil {
			return nil, fmt.Errorf("part %s: %w", partID, err)
		}
		if !part.IsPartial {
			return nil, fmt.Errorf("part %s: %w", partID, ErrPartNotPartial)
		}
		total += part.Offset
		parts = append(parts, *part)
	}

	final := &info.Upload{
		ID:             input.ID,
		Filename:       input.Filename,
		DeclaredLength: total,
		Metadata:       input.Metadata,
		IsFinal:        true,
		PartIDs:        input.PartIDs,
		CreatedAt:      time.Now().UTC(),
	}
	if final.ID == "" {
		final.ID = uuid.NewString()
	}

	path, err := s.backend.Create(ctx, final)
	if err != nil {
		return nil, err
	}
	final.StoragePath = path

	if err := s.backend.Concat(ctx, final, parts); err != nil {
		// 拼接失败时回收刚分配的目标单元，避免留下空壳。
		s.backend.Remove(ctx, final)
		return nil, err
	}
	final.Offset = total

	if err := s.infos.Save(ctx, final); err != nil {
		return nil, fmt.Errorf("save upload info: %w", err)
	}

	for _, partID := range input.PartIDs {
		if err := s.infos.Delete(ctx, partID); err != nil && !errors.Is(err, info.ErrNotFound) {
			return final, fmt.Errorf("cleanup part %s info: %w", partID, err)
		}
	}
	return final, nil
}

// GetUpload 返回上传元数据。
func (s *UploadService) GetUpload(ctx context.Context, id string) (*info.Upload, error) {
	return s.infos.Get(ctx, id)
}

// Download 取回上传的交付描述，调用方负责关闭 Delivery。
func (s *UploadService) Download(ctx context.Context, id string) (*info.Upload, *storage.Delivery, error) {
	upload, err := s.infos.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	delivery, err := s.backend.Get(ctx, upload)
	if err != nil {
		return nil, nil, err
	}
	return upload, delivery, nil
}

// Terminate 删除存储单元及其元数据。
func (s *UploadService) Terminate(ctx context.Context, id string) error {
	if !s.backend.Capabilities().Termination {
		return fmt.Errorf("terminate: %w", storage.ErrUnsupported)
	}

	upload, err := s.infos.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.backend.Remove(ctx, upload); err != nil {
		return err
	}
	return s.infos.Delete(ctx, id)
}
