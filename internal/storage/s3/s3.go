package s3

import (
	"context"
	"fmt"
	"log"
	"os"

	"tuslite/internal/info"
	"tuslite/internal/storage"
	"tuslite/internal/storage/local"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config 包含 S3/MinIO 存储所需的配置。
type Config struct {
	Endpoint  string // 不含协议，如 "localhost:9000" 或 "s3.amazonaws.com"
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool // 是否使用 HTTPS
	KeyPrefix string
}

// Backend 是混合型 S3 后端：追加先落到本地暂存后端，
// 当暂存大小达到声明长度时整体推送到对象存储并清理暂存文件。
// Create 委托给暂存后端，因此保留了原子创建语义。
// 对象存储无法就地追加，该后端不支持 concatenation 能力。
type Backend struct {
	client  *minio.Client
	bucket  string
	prefix  string
	staging *local.Backend
	logger  *log.Logger
}

// New 创建 S3 混合后端，staging 为本地暂存后端。
func New(cfg Config, staging *local.Backend, logger *log.Logger) (*Backend, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Backend{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  cfg.KeyPrefix,
		staging: staging,
		logger:  logger,
	}, nil
}

func (b *Backend) Name() string {
	return "s3"
}

func (b *Backend) objectKey(id string) string {
	if b.prefix == "" {
		return id
	}
	return b.prefix + "/" + id
}

// Prepare 初始化暂存目录并确保 bucket 存在。
func (b *Backend) Prepare(ctx context.Context) error {
	if err := b.staging.Prepare(ctx); err != nil {
		return err
	}

	exists, err := b.client.BucketExists(ctx, b.bucket)
	if err != nil {
		return fmt.Errorf("check bucket exists: %w", err)
	}
	if !exists {
		if err := b.client.MakeBucket(ctx, b.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
	}
	return nil
}

// Create 委托给本地暂存后端，沿用其独占创建语义。
func (b *Backend) Create(ctx context.Context, upload *info.Upload) (string, error) {
	return b.staging.Create(ctx, upload)
}

// Append 把字节追加到暂存文件；当本次追加使暂存达到声明长度时，
// 将完整对象推送到 S3 并删除暂存文件。
func (b *Backend) Append(ctx context.Context, upload *info.Upload, data []byte) error {
	if !upload.Created() {
		return storage.ErrNotCreated
	}
	if err := b.staging.Append(ctx, upload, data); err != nil {
		return err
	}

	if upload.DeclaredLength > 0 && upload.Offset+int64(len(data)) >= upload.DeclaredLength {
		if err := b.pushObject(ctx, upload); err != nil {
			return err
		}
	}
	return nil
}

func (b *Backend) pushObject(ctx context.Context, upload *info.Upload) error {
	f, err := os.Open(upload.StoragePath)
	if err != nil {
		return fmt.Errorf("open staging file %q: %w", upload.StoragePath, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat staging file %q: %w", upload.StoragePath, err)
	}

	key := b.objectKey(upload.ID)
	if _, err := b.client.PutObject(ctx, b.bucket, key, f, stat.Size(), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	}); err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}

	if err := os.Remove(upload.StoragePath); err != nil && b.logger != nil {
		b.logger.Printf("remove staging file %s: %v", upload.StoragePath, err)
	}
	return nil
}

// Concat 对象存储不支持就地拼接。
func (b *Backend) Concat(ctx context.Context, upload *info.Upload, parts []info.Upload) error {
	if !upload.Created() {
		return storage.ErrNotCreated
	}
	return fmt.Errorf("concat on s3 backend: %w", storage.ErrUnsupported)
}

// Get 优先从对象存储取回；对象尚未推送（仍在暂存）时退回本地暂存文件。
func (b *Backend) Get(ctx context.Context, upload *info.Upload) (*storage.Delivery, error) {
	if !upload.Created() {
		return nil, storage.ErrNotCreated
	}

	key := b.objectKey(upload.ID)
	obj, err := b.client.GetObject(ctx, b.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %q: %w", key, err)
	}

	stat, err := obj.Stat()
	if err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return b.staging.Get(ctx, upload)
		}
		return nil, fmt.Errorf("stat object %q: %w", key, err)
	}

	return &storage.Delivery{
		Filename:    upload.DisplayName(),
		ContentType: "application/octet-stream",
		Size:        stat.Size,
		Body:        obj,
	}, nil
}

// Remove 同时清理暂存文件与对象。两处都不存在时返回 ErrNotFound。
func (b *Backend) Remove(ctx context.Context, upload *info.Upload) error {
	if !upload.Created() {
		return storage.ErrNotCreated
	}

	key := b.objectKey(upload.ID)
	_, statErr := b.client.StatObject(ctx, b.bucket, key, minio.StatObjectOptions{})
	objectExists := statErr == nil

	stagingErr := b.staging.Remove(ctx, upload)
	stagingMissing := stagingErr != nil

	if !objectExists && stagingMissing {
		if minio.ToErrorResponse(statErr).Code == "NoSuchKey" {
			return fmt.Errorf("object %q: %w", key, storage.ErrNotFound)
		}
		return stagingErr
	}

	if objectExists {
		if err := b.client.RemoveObject(ctx, b.bucket, key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("remove object %q: %w", key, err)
		}
	}
	return nil
}

func (b *Backend) Capabilities() storage.Capabilities {
	return storage.Capabilities{Concatenation: false, Termination: true}
}
