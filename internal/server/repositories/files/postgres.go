package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/dropzone/internal/common"
	"github.com/dmitrijs2005/dropzone/internal/dbx"
	"github.com/dmitrijs2005/dropzone/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, f *models.FileContent) error {
	query := `INSERT INTO files (record_id, attribute, file_name, content_type, size, storage_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (record_id, attribute) DO UPDATE SET
			file_name = EXCLUDED.file_name,
			content_type = EXCLUDED.content_type,
			size = EXCLUDED.size,
			storage_key = EXCLUDED.storage_key,
			uploaded_at = now()
		RETURNING uploaded_at`

	err := r.db.QueryRowContext(ctx, query, f.RecordID, f.Attribute, f.FileName, f.ContentType, f.Size, f.StorageKey).
		Scan(&f.UploadedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert file: %w", err)
	}
	return nil
}

const fileColumns = `record_id, attribute, file_name, content_type, size, storage_key, uploaded_at`

func (r *PostgresRepository) Get(ctx context.Context, recordID, attribute string) (*models.FileContent, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE record_id = $1 AND attribute = $2`

	f := &models.FileContent{}
	err := r.db.QueryRowContext(ctx, query, recordID, attribute).
		Scan(&f.RecordID, &f.Attribute, &f.FileName, &f.ContentType, &f.Size, &f.StorageKey, &f.UploadedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, err
	}
	return f, nil
}

func (r *PostgresRepository) ListByRecord(ctx context.Context, recordID string) ([]*models.FileContent, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE record_id = $1 ORDER BY attribute`

	rows, err := r.db.QueryContext(ctx, query, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	result := []*models.FileContent{}
	for rows.Next() {
		f := &models.FileContent{}
		if err := rows.Scan(&f.RecordID, &f.Attribute, &f.FileName, &f.ContentType, &f.Size, &f.StorageKey, &f.UploadedAt); err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
