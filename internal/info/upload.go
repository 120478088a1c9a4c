package info

import (
	"context"
	"time"
)

// Upload 代表一次可续传上传的元数据。
// 存储层不维护任何内存注册表，持久化由 Store 实现负责。
type Upload struct {
	ID             string            `json:"id"`
	Filename       string            `json:"filename"`
	DeclaredLength int64             `json:"declared_length"`
	Offset         int64             `json:"offset"`
	StoragePath    string            `json:"storage_path"`
	IsPartial      bool              `json:"is_partial"`
	IsFinal        bool              `json:"is_final"`
	PartIDs        []string          `json:"part_ids,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// Created 报告后端是否已为该上传分配存储单元。
// StoragePath 只能由一次成功的 Create 设置，设置后不可变。
func (u *Upload) Created() bool {
	return u != nil && u.StoragePath != ""
}

// DisplayName 返回用于 content-disposition 的逻辑文件名。
func (u *Upload) DisplayName() string {
	if u.Filename != "" {
		return u.Filename
	}
	return u.ID
}

// LengthDeferred 表示创建时未声明总长度。
const LengthDeferred int64 = -1

// Store 统一上传元数据的持久层接口。
type Store interface {
	Save(ctx context.Context, upload *Upload) error
	Get(ctx context.Context, id string) (*Upload, error)
	Delete(ctx context.Context, id string) error
}
