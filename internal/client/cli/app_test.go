package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/dropzone/internal/client/config"
	"github.com/dmitrijs2005/dropzone/internal/client/models"
	"github.com/dmitrijs2005/dropzone/internal/client/remotestore"
	"github.com/dmitrijs2005/dropzone/internal/client/services"
	"github.com/dmitrijs2005/dropzone/internal/netx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	services.FileStore

	mu        sync.Mutex
	files     []models.FileRecord
	created   []string
	deleted   []string
	deleteErr error
	failIDs   map[string]error
	uploadErr map[string]error
	nextID    int

	// When set, UploadBinary closes uploadStarted and waits for releaseUpload.
	uploadStarted chan struct{}
	releaseUpload chan struct{}
}

func (f *fakeStore) List(ctx context.Context, b *models.RelationshipBinding, parentID string, opts models.AttachmentOptions) ([]models.FileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.files), nil
}

func (f *fakeStore) CreateChild(ctx context.Context, b *models.RelationshipBinding, parentID, fileName string, size int64, opts models.AttachmentOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("new-%d", f.nextID)
	f.created = append(f.created, fileName)
	if f.uploadErr[fileName] == nil {
		f.files = append([]models.FileRecord{{DisplayName: fileName, SizeBytes: size, RemoteID: id, State: models.StatePersisted}}, f.files...)
	}
	return id, nil
}

func (f *fakeStore) UploadBinary(ctx context.Context, b *models.RelationshipBinding, childID, fileColumn string, content []byte, fileName string, onProgress netx.ProgressFunc) error {
	onProgress(0)
	if f.uploadStarted != nil {
		close(f.uploadStarted)
		<-f.releaseUpload
	}
	if err := f.uploadErr[fileName]; err != nil {
		return err
	}
	onProgress(100)
	return nil
}

func (f *fakeStore) DeleteChild(ctx context.Context, b *models.RelationshipBinding, childID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if err := f.failIDs[childID]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, childID)
	f.files = slices.DeleteFunc(f.files, func(r models.FileRecord) bool { return r.RemoteID == childID })
	return nil
}

type fakeSession struct {
	loginErr error
	pingErr  error
	closed   bool
}

func (s *fakeSession) Login(ctx context.Context) error { return s.loginErr }
func (s *fakeSession) Ping(ctx context.Context) error  { return s.pingErr }
func (s *fakeSession) Close(ctx context.Context) error { s.closed = true; return nil }

var testBinding = &models.RelationshipBinding{
	ParentEntity:              "project",
	ChildEntity:               "attachment",
	ParentLookupAttribute:     "project",
	ChildEntityCollectionName: "attachments",
}

func persisted(names ...string) []models.FileRecord {
	out := make([]models.FileRecord, len(names))
	for i, n := range names {
		out[i] = models.FileRecord{DisplayName: n, SizeBytes: int64(100 * (i + 1)), RemoteID: "id-" + n, State: models.StatePersisted}
	}
	return out
}

func newTestApp(t *testing.T, store *fakeStore, bound bool) *App {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.ParentID = "p1"
	resolve := func(context.Context) *models.RelationshipBinding {
		if bound {
			return testBinding
		}
		return nil
	}
	return newApp(cfg, &fakeSession{}, store, resolve, services.FailurePolicyReport, nil)
}

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, content, 0o600))
	return p
}

func TestList_NotBound(t *testing.T) {
	out := silence(t)
	a := newTestApp(t, &fakeStore{}, false)

	err := a.List(context.Background(), nil)
	require.ErrorIs(t, err, errNotBound)
	assert.Contains(t, strings.Join(*out, "\n"), remotestore.MsgBindingMissing)
}

func TestList_ParentRequired(t *testing.T) {
	silence(t)
	a := newTestApp(t, &fakeStore{}, true)
	a.config.ParentID = ""

	require.ErrorIs(t, a.List(context.Background(), nil), errParentRequired)
}

func TestList_EmptyState(t *testing.T) {
	out := silence(t)
	a := newTestApp(t, &fakeStore{}, true)

	require.NoError(t, a.List(context.Background(), nil))
	joined := strings.Join(*out, "\n")
	assert.Contains(t, joined, "Upload files")
	assert.Contains(t, joined, "less than 128.00KB")
}

func TestRefresh_RendersFiles(t *testing.T) {
	out := silence(t)
	a := newTestApp(t, &fakeStore{files: persisted("report.pdf", "notes.txt")}, true)

	require.NoError(t, a.Refresh(context.Background(), nil))
	joined := strings.Join(*out, "\n")
	assert.Contains(t, joined, "report.pdf")
	assert.Contains(t, joined, "notes.txt")
}

func TestUpload_ValidatesAndSubmits(t *testing.T) {
	out := silence(t)
	store := &fakeStore{}
	a := newTestApp(t, store, true)

	dir := t.TempDir()
	ok := writeFile(t, dir, "a.txt", []byte("hello"))
	big := writeFile(t, dir, "big.txt", make([]byte, 131073))
	img := writeFile(t, dir, "pic.png", []byte("\x89PNG\r\n\x1a\n0000"))

	require.NoError(t, a.Upload(context.Background(), []string{ok, big, img, filepath.Join(dir, "missing.pdf")}))

	assert.Equal(t, []string{"a.txt"}, store.created)
	joined := strings.Join(*out, "\n")
	assert.Contains(t, joined, "File is larger than 131072 bytes")
	assert.Contains(t, joined, "File type must be one of")
	assert.Contains(t, joined, "missing.pdf")
	assert.Contains(t, joined, "Uploaded 1 of 1 file(s)")

	files := a.controller.Files()
	require.Len(t, files, 1)
	assert.Equal(t, "new-1", files[0].RemoteID)
}

func TestUpload_ReportsFailures(t *testing.T) {
	out := silence(t)
	store := &fakeStore{uploadErr: map[string]error{"b.txt": errors.New("Upload failed: 500")}}
	a := newTestApp(t, store, true)

	dir := t.TempDir()
	p1 := writeFile(t, dir, "a.txt", []byte("a"))
	p2 := writeFile(t, dir, "b.txt", []byte("b"))

	require.NoError(t, a.Upload(context.Background(), []string{p1, p2}))
	joined := strings.Join(*out, "\n")
	assert.Contains(t, joined, "Uploaded 1 of 2 file(s)")
	assert.Contains(t, joined, "b.txt: Upload failed: 500")

	*out = nil
	require.NoError(t, a.List(context.Background(), nil))
	assert.Contains(t, strings.Join(*out, "\n"), "b.txt: Upload failed: 500")
}

func TestUpload_Usage(t *testing.T) {
	out := silence(t)
	a := newTestApp(t, &fakeStore{}, true)

	require.NoError(t, a.Upload(context.Background(), nil))
	assert.Contains(t, strings.Join(*out, "\n"), "Usage: upload")
}

func TestDelete(t *testing.T) {
	out := silence(t)
	store := &fakeStore{files: persisted("a.pdf", "b.pdf", "c.pdf")}
	a := newTestApp(t, store, true)
	ctx := context.Background()
	require.NoError(t, a.Refresh(ctx, nil))

	require.NoError(t, a.Delete(ctx, []string{"1"}))
	assert.Equal(t, []string{"id-b.pdf"}, store.deleted)
	assert.Contains(t, strings.Join(*out, "\n"), "Deleted 1 file(s)")

	*out = nil
	require.NoError(t, a.Delete(ctx, []string{"0", "1"}))
	assert.Equal(t, []string{"id-b.pdf", "id-c.pdf", "id-a.pdf"}, store.deleted)
	assert.Empty(t, a.controller.Files())
	assert.Contains(t, strings.Join(*out, "\n"), "Deleted 2 file(s)")
}

func TestDelete_PendingRowIsNotReportedAsDeleted(t *testing.T) {
	out := silence(t)
	store := &fakeStore{uploadStarted: make(chan struct{}), releaseUpload: make(chan struct{})}
	a := newTestApp(t, store, true)
	ctx := context.Background()
	p := writeFile(t, t.TempDir(), "a.txt", []byte("a"))

	done := make(chan error, 1)
	go func() { done <- a.Upload(ctx, []string{p}) }()
	<-store.uploadStarted

	require.NoError(t, a.Delete(ctx, []string{"0"}))
	close(store.releaseUpload)
	require.NoError(t, <-done)

	joined := strings.Join(*out, "\n")
	assert.Contains(t, joined, "Nothing deleted")
	assert.NotContains(t, joined, "Deleted")
	assert.Empty(t, store.deleted)
}

func TestDelete_Errors(t *testing.T) {
	silence(t)
	store := &fakeStore{files: persisted("a.pdf"), deleteErr: errors.New("Failed to delete file: locked")}
	a := newTestApp(t, store, true)
	ctx := context.Background()
	require.NoError(t, a.Refresh(ctx, nil))

	require.Error(t, a.Delete(ctx, []string{"x"}))
	require.ErrorIs(t, a.Delete(ctx, []string{"5"}), services.ErrIndexOutOfRange)
	require.EqualError(t, a.Delete(ctx, []string{"0"}), "Failed to delete file: locked")
	assert.Len(t, a.controller.Files(), 1)
}

func TestDeleteSelected_ReportsOnlyRemoved(t *testing.T) {
	out := silence(t)
	store := &fakeStore{
		files:   persisted("a.pdf", "b.pdf", "c.pdf"),
		failIDs: map[string]error{"id-b.pdf": errors.New("Failed to delete file: locked")},
	}
	a := newTestApp(t, store, true)
	ctx := context.Background()
	require.NoError(t, a.Refresh(ctx, nil))
	require.NoError(t, a.Select(ctx, []string{"0", "1", "2"}))

	*out = nil
	require.EqualError(t, a.DeleteSelected(ctx, nil), "Failed to delete file: locked")

	joined := strings.Join(*out, "\n")
	assert.Contains(t, joined, "Deleted 2 file(s)")
	assert.NotContains(t, joined, "Deleted 3 file(s)")
	files := a.controller.Files()
	require.Len(t, files, 1)
	assert.Equal(t, "id-b.pdf", files[0].RemoteID)
}

func TestSelectAndDeleteSelected(t *testing.T) {
	out := silence(t)
	store := &fakeStore{files: persisted("a.pdf", "b.pdf", "c.pdf")}
	a := newTestApp(t, store, true)
	ctx := context.Background()
	require.NoError(t, a.Refresh(ctx, nil))

	require.NoError(t, a.Select(ctx, []string{"0", "2", "1"}))
	require.NoError(t, a.Select(ctx, []string{"1"}))
	assert.Contains(t, strings.Join(*out, "\n"), "Unselected b.pdf")

	require.NoError(t, a.DeleteSelected(ctx, nil))
	assert.Equal(t, []string{"id-c.pdf", "id-a.pdf"}, store.deleted)
	assert.Empty(t, a.view.SelectedIndices(a.controller.Files()))

	*out = nil
	require.NoError(t, a.DeleteSelected(ctx, nil))
	assert.Contains(t, strings.Join(*out, "\n"), "Nothing selected")
}

func TestFilterAndSort(t *testing.T) {
	out := silence(t)
	a := newTestApp(t, &fakeStore{files: persisted("alpha.pdf", "beta.pdf")}, true)
	ctx := context.Background()
	require.NoError(t, a.Refresh(ctx, nil))

	*out = nil
	require.NoError(t, a.Filter(ctx, []string{"ALP"}))
	joined := strings.Join(*out, "\n")
	assert.Contains(t, joined, "alpha.pdf")
	assert.NotContains(t, joined, "beta.pdf")

	*out = nil
	require.NoError(t, a.Filter(ctx, []string{"zzz"}))
	assert.Contains(t, strings.Join(*out, "\n"), `No files match "zzz"`)

	require.NoError(t, a.Filter(ctx, nil))
	require.NoError(t, a.Sort(ctx, []string{"size", "desc"}))
	assert.Equal(t, "size", string(a.view.SortBy))
	assert.True(t, a.view.Desc)

	require.Error(t, a.Sort(ctx, []string{"color"}))
	require.Error(t, a.Sort(ctx, []string{"name", "sideways"}))
}

func TestHandleDrop_ReturnsUploadedPaths(t *testing.T) {
	silence(t)
	store := &fakeStore{uploadErr: map[string]error{"b.txt": errors.New("boom")}}
	a := newTestApp(t, store, true)

	dir := t.TempDir()
	pa := writeFile(t, dir, "a.txt", []byte("a"))
	pb := writeFile(t, dir, "b.txt", []byte("b"))
	pc := writeFile(t, dir, "c.png", []byte("\x89PNG\r\n\x1a\n0000"))

	done := a.handleDrop(context.Background(), []string{pa, pb, pc})
	assert.Equal(t, []string{pa}, done)
	assert.Equal(t, []string{"a.txt", "b.txt"}, store.created)
}

func TestHandleDrop_NotBound(t *testing.T) {
	silence(t)
	a := newTestApp(t, &fakeStore{}, false)
	assert.Nil(t, a.handleDrop(context.Background(), []string{"/tmp/x.pdf"}))
}

func TestWatch_StartStop(t *testing.T) {
	out := silence(t)
	a := newTestApp(t, &fakeStore{}, true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := filepath.Join(t.TempDir(), "inbox")
	require.NoError(t, a.Watch(ctx, []string{dir}))
	assert.NotEmpty(t, a.watching())
	assert.DirExists(t, filepath.Join(dir, "uploaded"))

	require.NoError(t, a.Watch(ctx, []string{"stop"}))
	assert.Empty(t, a.watching())
	require.NoError(t, a.Watch(ctx, []string{"stop"}))
	assert.Contains(t, strings.Join(*out, "\n"), "Not watching")
}

func TestStatus(t *testing.T) {
	out := silence(t)
	a := newTestApp(t, &fakeStore{files: persisted("a.pdf")}, true)
	ctx := context.Background()

	require.NoError(t, a.Status(ctx, nil))
	assert.Contains(t, strings.Join(*out, "\n"), "not resolved")

	require.NoError(t, a.Refresh(ctx, nil))
	*out = nil
	require.NoError(t, a.Status(ctx, nil))
	joined := strings.Join(*out, "\n")
	assert.Contains(t, joined, "attachment (attachments)")
	assert.Contains(t, joined, "Files:        1")
}

func TestProgressPrinter(t *testing.T) {
	out := silence(t)
	p := newProgressPrinter()
	files := []models.FileRecord{{DisplayName: "a.pdf", UploadKey: "k/0"}}

	for _, pct := range []int{0, 10, 30, 40, 99, 100} {
		p.observe(services.Snapshot{Files: files, Progress: map[string]int{"k/0": pct}})
	}
	p.observe(services.Snapshot{Progress: map[string]int{}})

	assert.Equal(t, []string{"  a.pdf: 0%", "  a.pdf: 30%", "  a.pdf: 99%", "  a.pdf: 100%"}, *out)
	assert.Empty(t, p.last)
}

func TestStartOnlineStatusWatcher(t *testing.T) {
	a := newTestApp(t, &fakeStore{}, true)
	sess := &fakeSession{}
	a.session = sess

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.StartOnlineStatusWatcher(ctx, 5*time.Millisecond)

	require.Eventually(t, func() bool { return a.getMode() == ModeOnline }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "online project(p1)", a.getStatus())
}
