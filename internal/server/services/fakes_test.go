package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/dropzone/internal/common"
	"github.com/dmitrijs2005/dropzone/internal/dbx"
	"github.com/dmitrijs2005/dropzone/internal/server/models"
	"github.com/dmitrijs2005/dropzone/internal/server/repositories/clients"
	"github.com/dmitrijs2005/dropzone/internal/server/repositories/files"
	"github.com/dmitrijs2005/dropzone/internal/server/repositories/metadata"
	"github.com/dmitrijs2005/dropzone/internal/server/repositories/records"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

const (
	projectID = "00000000-0000-0000-0000-000000000001"
	missingID = "00000000-0000-0000-0000-00000000dead"
)

func seedEntities() []*models.Entity {
	return []*models.Entity{
		{
			LogicalName: "project", EntitySetName: "projects",
			PrimaryIdAttribute: "projectid", PrimaryNameAttribute: "name",
			Attributes: []models.Attribute{{Entity: "project", LogicalName: "name", Type: models.AttrString}},
		},
		{
			LogicalName: "attachment", EntitySetName: "attachments",
			PrimaryIdAttribute: "attachmentid", PrimaryNameAttribute: "name",
			Attributes: []models.Attribute{
				{Entity: "attachment", LogicalName: "name", Type: models.AttrString},
				{Entity: "attachment", LogicalName: "filesize", Type: models.AttrInteger},
				{Entity: "attachment", LogicalName: "file", Type: models.AttrFile},
				{Entity: "attachment", LogicalName: "project", Type: models.AttrLookup, Target: "project"},
			},
		},
	}
}

// --- metadata ---

type fakeMetadataRepo struct {
	entities []*models.Entity
	rels     []common.RelationshipDefinition
}

func (f *fakeMetadataRepo) GetEntity(ctx context.Context, logicalName string) (*models.Entity, error) {
	for _, e := range f.entities {
		if e.LogicalName == logicalName {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", common.ErrUnknownEntity, logicalName)
}

func (f *fakeMetadataRepo) GetEntityBySet(ctx context.Context, set string) (*models.Entity, error) {
	for _, e := range f.entities {
		if e.EntitySetName == set {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", common.ErrUnknownEntity, set)
}

func (f *fakeMetadataRepo) ListOneToMany(ctx context.Context, referenced string) ([]common.RelationshipDefinition, error) {
	out := []common.RelationshipDefinition{}
	for _, r := range f.rels {
		if r.ReferencedEntity == referenced {
			out = append(out, r)
		}
	}
	return out, nil
}

// --- records ---

type fakeRecordsRepo struct {
	mu      sync.Mutex
	rows    map[string]*models.Record
	clock   time.Time
	listErr error
}

func newFakeRecordsRepo() *fakeRecordsRepo {
	return &fakeRecordsRepo{
		rows:  map[string]*models.Record{},
		clock: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeRecordsRepo) put(rec *models.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock = f.clock.Add(time.Second)
	if rec.CreatedOn.IsZero() {
		rec.CreatedOn = f.clock
		rec.ModifiedOn = f.clock
	}
	f.rows[rec.ID] = rec
}

func (f *fakeRecordsRepo) Create(ctx context.Context, rec *models.Record) error {
	f.put(rec)
	return nil
}

func (f *fakeRecordsRepo) Get(ctx context.Context, entity, id string) (*models.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok || r.Entity != entity {
		return nil, common.ErrorNotFound
	}
	return r, nil
}

func (f *fakeRecordsRepo) List(ctx context.Context, q records.ListQuery) ([]*models.Record, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []*models.Record{}
next:
	for _, r := range f.rows {
		if r.Entity != q.Entity {
			continue
		}
		for _, c := range q.Filters {
			var got any
			if c.Column == records.ColumnID {
				got = r.ID
			} else {
				got = r.Data[c.Attribute]
			}
			if c.Null {
				if got != nil {
					continue next
				}
				continue
			}
			if got == nil || fmt.Sprint(got) != c.Value {
				continue next
			}
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedOn.After(out[j].CreatedOn) })
	return out, nil
}

func (f *fakeRecordsRepo) SetField(ctx context.Context, entity, id, attribute string, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok || r.Entity != entity {
		return common.ErrorNotFound
	}
	r.Data[attribute] = value
	return nil
}

func (f *fakeRecordsRepo) Delete(ctx context.Context, entity, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok || r.Entity != entity {
		return common.ErrorNotFound
	}
	delete(f.rows, id)
	return nil
}

// --- files ---

type fakeFilesRepo struct {
	mu        sync.Mutex
	rows      map[string]*models.FileContent
	upsertErr error
}

func newFakeFilesRepo() *fakeFilesRepo {
	return &fakeFilesRepo{rows: map[string]*models.FileContent{}}
}

func (f *fakeFilesRepo) Upsert(ctx context.Context, fc *models.FileContent) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *fc
	f.rows[fc.RecordID+"/"+fc.Attribute] = &cp
	return nil
}

func (f *fakeFilesRepo) Get(ctx context.Context, recordID, attribute string) (*models.FileContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fc, ok := f.rows[recordID+"/"+attribute]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return fc, nil
}

func (f *fakeFilesRepo) ListByRecord(ctx context.Context, recordID string) ([]*models.FileContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.FileContent{}
	for k, fc := range f.rows {
		if strings.HasPrefix(k, recordID+"/") {
			out = append(out, fc)
		}
	}
	return out, nil
}

// --- clients ---

type fakeClientsRepo struct {
	rows map[string]*models.APIClient
}

func (f *fakeClientsRepo) Get(ctx context.Context, id string) (*models.APIClient, error) {
	c, ok := f.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return c, nil
}

func (f *fakeClientsRepo) Upsert(ctx context.Context, c *models.APIClient) error {
	f.rows[c.ClientID] = c
	return nil
}

// --- manager ---

type fakeRepoManager struct {
	md  *fakeMetadataRepo
	rec *fakeRecordsRepo
	fs  *fakeFilesRepo
	cl  *fakeClientsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	m := &fakeRepoManager{
		md: &fakeMetadataRepo{
			entities: seedEntities(),
			rels: []common.RelationshipDefinition{{
				SchemaName: "project_attachments", ReferencedEntity: "project", ReferencedAttribute: "projectid",
				ReferencedEntityNavigationPropertyName: "project_attachments", ReferencingEntity: "attachment",
				ReferencingAttribute: "project", ReferencingEntityNavigationPropertyName: "project",
			}},
		},
		rec: newFakeRecordsRepo(),
		fs:  newFakeFilesRepo(),
		cl:  &fakeClientsRepo{rows: map[string]*models.APIClient{}},
	}
	m.rec.put(&models.Record{ID: projectID, Entity: "project", Data: map[string]any{"name": "Sample"}})
	return m
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Metadata(db dbx.DBTX) metadata.Repository   { return m.md }
func (m *fakeRepoManager) Records(db dbx.DBTX) records.Repository     { return m.rec }
func (m *fakeRepoManager) Files(db dbx.DBTX) files.Repository         { return m.fs }
func (m *fakeRepoManager) Clients(db dbx.DBTX) clients.Repository     { return m.cl }
