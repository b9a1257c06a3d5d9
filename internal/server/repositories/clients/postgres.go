package clients

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

func (r *PostgresRepository) Get(ctx context.Context, clientID string) (*models.APIClient, error) {
	query := `SELECT client_id, secret_salt, secret_hash, created_at FROM api_clients WHERE client_id = $1`

	c := &models.APIClient{}
	err := r.db.QueryRowContext(ctx, query, clientID).Scan(&c.ClientID, &c.SecretSalt, &c.SecretHash, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, c *models.APIClient) error {
	query := `INSERT INTO api_clients (client_id, secret_salt, secret_hash) VALUES ($1, $2, $3)
		ON CONFLICT (client_id) DO UPDATE SET secret_salt = EXCLUDED.secret_salt, secret_hash = EXCLUDED.secret_hash
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query, c.ClientID, c.SecretSalt, c.SecretHash).Scan(&c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert client: %w", err)
	}
	return nil
}
