package services

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/dropzone/internal/client/models"
	"github.com/dmitrijs2005/dropzone/internal/netx"
)

// fakeStore records calls and delegates to optional hooks.
type fakeStore struct {
	FileStore

	mu    sync.Mutex
	calls []string

	listFn   func(ctx context.Context) ([]models.FileRecord, error)
	createFn func(name string) (string, error)
	uploadFn func(id string, p netx.ProgressFunc) error
	deleteFn func(id string) error
}

func (f *fakeStore) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeStore) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeStore) List(ctx context.Context, b *models.RelationshipBinding, parentID string, opts models.AttachmentOptions) ([]models.FileRecord, error) {
	f.record("list")
	if f.listFn == nil {
		return []models.FileRecord{}, nil
	}
	return f.listFn(ctx)
}

func (f *fakeStore) CreateChild(ctx context.Context, b *models.RelationshipBinding, parentID, name string, size int64, opts models.AttachmentOptions) (string, error) {
	f.record("create:" + name)
	return f.createFn(name)
}

func (f *fakeStore) UploadBinary(ctx context.Context, b *models.RelationshipBinding, id, col string, content []byte, name string, p netx.ProgressFunc) error {
	f.record("upload:" + id)
	if f.uploadFn == nil {
		p(0)
		p(100)
		return nil
	}
	return f.uploadFn(id, p)
}

func (f *fakeStore) DeleteChild(ctx context.Context, b *models.RelationshipBinding, id string) error {
	f.record("delete:" + id)
	if f.deleteFn == nil {
		return nil
	}
	return f.deleteFn(id)
}

// fakeConn implements Connection.
type fakeConn struct {
	authErr, pingErr, closeErr error
	authCalls                  int
}

func (f *fakeConn) Authenticate(ctx context.Context) error { f.authCalls++; return f.authErr }
func (f *fakeConn) Ping(ctx context.Context) error         { return f.pingErr }
func (f *fakeConn) Close() error                           { return f.closeErr }
