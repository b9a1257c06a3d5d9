package clients

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/dropzone/internal/common"
	"github.com/dmitrijs2005/dropzone/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestGet(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	at := time.Now().UTC()
	mock.ExpectQuery(`SELECT client_id, secret_salt, secret_hash, created_at FROM api_clients WHERE client_id = \$1`).
		WithArgs("cli").
		WillReturnRows(sqlmock.NewRows([]string{"client_id", "secret_salt", "secret_hash", "created_at"}).
			AddRow("cli", []byte("salt"), []byte("hash"), at))

	c, err := repo.Get(context.Background(), "cli")
	require.NoError(t, err)
	assert.Equal(t, []byte("hash"), c.SecretHash)
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM api_clients`).WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "cli")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUpsert(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	at := time.Now().UTC()
	mock.ExpectQuery(`(?s)INSERT INTO api_clients .* ON CONFLICT \(client_id\) DO UPDATE`).
		WithArgs("cli", []byte("s"), []byte("h")).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(at))

	c := &models.APIClient{ClientID: "cli", SecretSalt: []byte("s"), SecretHash: []byte("h")}
	require.NoError(t, repo.Upsert(context.Background(), c))
	assert.Equal(t, at, c.CreatedAt)
}
