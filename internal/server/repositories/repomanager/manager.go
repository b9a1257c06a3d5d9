package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/dropzone/internal/dbx"
	"github.com/dmitrijs2005/dropzone/internal/server/repositories/clients"
	"github.com/dmitrijs2005/dropzone/internal/server/repositories/files"
	"github.com/dmitrijs2005/dropzone/internal/server/repositories/metadata"
	"github.com/dmitrijs2005/dropzone/internal/server/repositories/records"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Metadata(db dbx.DBTX) metadata.Repository
	Records(db dbx.DBTX) records.Repository
	Files(db dbx.DBTX) files.Repository
	Clients(db dbx.DBTX) clients.Repository
}
