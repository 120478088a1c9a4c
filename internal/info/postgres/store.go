package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"tuslite/internal/info"
)

// Store 实现 info.Store，把上传元数据保存在 PostgreSQL。
type Store struct {
	db *sql.DB
}

// New 返回基于 *sql.DB 的 Postgres 实现。
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

var uploadColumns = []string{
	"id",
	"filename",
	"declared_length",
	"byte_offset",
	"storage_path",
	"is_partial",
	"is_final",
	"part_ids",
	"metadata",
	"created_at",
}

// Save 以 upsert 方式写入元数据，同一 id 重复保存会覆盖可变字段。
func (s *Store) Save(ctx context.Context, upload *info.Upload) error {
	if upload == nil || upload.ID == "" {
		return fmt.Errorf("upload id is required")
	}

	partIDs, err := json.Marshal(upload.PartIDs)
	if err != nil {
		return fmt.Errorf("encode part ids: %w", err)
	}
	metadata, err := encodeMetadata(upload.Metadata)
	if err != nil {
		return err
	}

	placeholders := make([]string, len(uploadColumns))
	for i := range uploadColumns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(`INSERT INTO uploads (%s)
	VALUES (%s)
	ON CONFLICT (id) DO UPDATE SET
		byte_offset = EXCLUDED.byte_offset,
		storage_path = EXCLUDED.storage_path,
		declared_length = EXCLUDED.declared_length,
		is_final = EXCLUDED.is_final,
		part_ids = EXCLUDED.part_ids,
		metadata = EXCLUDED.metadata`,
		strings.Join(uploadColumns, ","),
		strings.Join(placeholders, ","),
	)

	createdAt := upload.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(
		ctx,
		query,
		upload.ID,
		upload.Filename,
		upload.DeclaredLength,
		upload.Offset,
		upload.StoragePath,
		upload.IsPartial,
		upload.IsFinal,
		partIDs,
		metadata,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("save upload info: %w", err)
	}
	return nil
}

// Get 通过主键查询上传元数据。
func (s *Store) Get(ctx context.Context, id string) (*info.Upload, error) {
	query := fmt.Sprintf(`SELECT %s FROM uploads WHERE id = $1`, strings.Join(uploadColumns, ","))
	row := s.db.QueryRowContext(ctx, query, id)
	upload, err := scanUpload(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, info.ErrNotFound
		}
		return nil, err
	}
	return upload, nil
}

// Delete 删除上传元数据。
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM uploads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete upload info: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return info.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUpload(rs rowScanner) (*info.Upload, error) {
	var (
		upload   info.Upload
		partIDs  []byte
		metadata []byte
	)

	if err := rs.Scan(
		&upload.ID,
		&upload.Filename,
		&upload.DeclaredLength,
		&upload.Offset,
		&upload.StoragePath,
		&upload.IsPartial,
		&upload.IsFinal,
		&partIDs,
		&metadata,
		&upload.CreatedAt,
	); err != nil {
		return nil, err
	}

	if len(partIDs) > 0 {
		if err := json.Unmarshal(partIDs, &upload.PartIDs); err != nil {
			return nil, err
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &upload.Metadata); err != nil {
			return nil, err
		}
	}
	if upload.Metadata == nil {
		upload.Metadata = map[string]string{}
	}

	return &upload, nil
}

func encodeMetadata(meta map[string]string) ([]byte, error) {
	if meta == nil {
		meta = map[string]string{}
	}
	return json.Marshal(meta)
}
