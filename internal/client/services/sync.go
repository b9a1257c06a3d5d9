// Package services contains the client-side attachment engine: the
// SyncController that owns the local file list and the UploadOrchestrator
// that drives batch uploads.
package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/dmitrijs2005/dropzone/internal/client/models"
	"github.com/dmitrijs2005/dropzone/internal/logging"
	"github.com/dmitrijs2005/dropzone/internal/netx"
)

var ErrIndexOutOfRange = errors.New("file index out of range")

// FileStore is the remote attachment store used by the engine.
type FileStore interface {
	List(ctx context.Context, b *models.RelationshipBinding, parentID string, opts models.AttachmentOptions) ([]models.FileRecord, error)
	CreateChild(ctx context.Context, b *models.RelationshipBinding, parentID, fileName string, size int64, opts models.AttachmentOptions) (string, error)
	UploadBinary(ctx context.Context, b *models.RelationshipBinding, childID, fileColumn string, content []byte, fileName string, onProgress netx.ProgressFunc) error
	DeleteChild(ctx context.Context, b *models.RelationshipBinding, childID string) error
}

// UploadFailure describes one file of a batch that did not make it.
type UploadFailure struct {
	FileName string
	Message  string
}

// Snapshot is a read-only copy of controller state for presentation.
type Snapshot struct {
	Files    []models.FileRecord
	Progress map[string]int
	Failures []UploadFailure
}

// SyncController owns the authoritative local list of attachments for one
// parent record, the upload progress map and the set of ids being deleted.
// It is safe for concurrent use.
//
// Refreshes are sequenced: a refresh result is applied only if no refresh
// that started later has already been applied, and ids whose delete
// succeeded after a refresh started are dropped from that refresh's result.
type SyncController struct {
	store    FileStore
	binding  *models.RelationshipBinding
	parentID string
	opts     models.AttachmentOptions
	log      logging.Logger

	mu         sync.Mutex
	files      []models.FileRecord
	progress   map[string]int
	deleting   map[string]struct{}
	failures   []UploadFailure
	startedSeq uint64
	appliedSeq uint64
	// tombstones maps a deleted id to the last refresh sequence started
	// before its delete was confirmed.
	tombstones map[string]uint64
	onChange   func(Snapshot)
}

func NewSyncController(store FileStore, b *models.RelationshipBinding, parentID string, opts models.AttachmentOptions, log logging.Logger) *SyncController {
	if log == nil {
		log = logging.Nop()
	}
	return &SyncController{
		store:      store,
		binding:    b,
		parentID:   parentID,
		opts:       opts,
		log:        log.With("module", "sync"),
		files:      []models.FileRecord{},
		progress:   map[string]int{},
		deleting:   map[string]struct{}{},
		tombstones: map[string]uint64{},
	}
}

// OnChange registers fn to receive a snapshot after every state change.
// fn is called without the controller lock held.
func (c *SyncController) OnChange(fn func(Snapshot)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

func (c *SyncController) Binding() *models.RelationshipBinding { return c.binding }
func (c *SyncController) ParentID() string                      { return c.parentID }

// snapshotLocked must be called with c.mu held.
func (c *SyncController) snapshotLocked() Snapshot {
	files := make([]models.FileRecord, len(c.files))
	for i, f := range c.files {
		if f.RemoteID != "" {
			if _, ok := c.deleting[f.RemoteID]; ok {
				f.State = models.StateDeleting
			}
		}
		if f.UploadKey != "" {
			if p, ok := c.progress[f.UploadKey]; ok {
				f.UploadProgressPercent = &p
			}
		}
		files[i] = f
	}
	return Snapshot{
		Files:    files,
		Progress: maps.Clone(c.progress),
		Failures: slices.Clone(c.failures),
	}
}

func (c *SyncController) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Files returns the current list, deleting and progress state overlaid.
func (c *SyncController) Files() []models.FileRecord {
	return c.Snapshot().Files
}

func (c *SyncController) IsDeleting(remoteID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.deleting[remoteID]
	return ok
}

// notify must be called without c.mu held.
func (c *SyncController) notify() {
	c.mu.Lock()
	fn := c.onChange
	var snap Snapshot
	if fn != nil {
		snap = c.snapshotLocked()
	}
	c.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

// Refresh replaces the list with the store's current children of the parent.
// On failure the list is left untouched and the error returned.
func (c *SyncController) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.startedSeq++
	seq := c.startedSeq
	c.mu.Unlock()

	recs, err := c.store.List(ctx, c.binding, c.parentID, c.opts)
	if err != nil {
		c.log.Error(ctx, "refresh failed", "error", err)
		return err
	}

	c.mu.Lock()
	if seq < c.appliedSeq {
		c.mu.Unlock()
		c.log.Debug(ctx, "discarding stale refresh", "seq", seq, "applied", c.appliedSeq)
		return nil
	}

	fresh := make([]models.FileRecord, 0, len(recs))
	for _, r := range recs {
		if at, ok := c.tombstones[r.RemoteID]; ok && seq <= at {
			continue
		}
		fresh = append(fresh, r)
	}
	c.files = fresh
	c.appliedSeq = seq
	for id, at := range c.tombstones {
		if at < seq {
			delete(c.tombstones, id)
		}
	}
	c.mu.Unlock()

	c.log.Debug(ctx, "list refreshed", "count", len(fresh))
	c.notify()
	return nil
}

// RequestDelete deletes the record at index. Records without a remote id,
// and records already being deleted, are left alone. On success the record
// is removed; on failure it stays and the error is returned. The deleting
// mark is always cleared last.
func (c *SyncController) RequestDelete(ctx context.Context, index int) error {
	_, err := c.deleteAt(ctx, index)
	return err
}

// deleteAt reports whether the record at index was actually removed.
func (c *SyncController) deleteAt(ctx context.Context, index int) (bool, error) {
	c.mu.Lock()
	if index < 0 || index >= len(c.files) {
		c.mu.Unlock()
		return false, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	id := c.files[index].RemoteID
	if id == "" {
		c.mu.Unlock()
		return false, nil
	}
	if _, busy := c.deleting[id]; busy {
		c.mu.Unlock()
		return false, nil
	}
	c.deleting[id] = struct{}{}
	c.mu.Unlock()
	c.notify()

	defer func() {
		c.mu.Lock()
		delete(c.deleting, id)
		c.mu.Unlock()
		c.notify()
	}()

	if err := c.store.DeleteChild(ctx, c.binding, id); err != nil {
		c.log.Error(ctx, "delete failed", "record_id", id, "error", err)
		return false, err
	}

	c.mu.Lock()
	c.files = slices.DeleteFunc(c.files, func(f models.FileRecord) bool { return f.RemoteID == id })
	c.tombstones[id] = c.startedSeq
	c.mu.Unlock()

	c.log.Info(ctx, "file deleted", "record_id", id)
	return true, nil
}

// DeleteMany deletes the records at the given indices one after another,
// from the highest index to the lowest so earlier indices stay valid. It
// returns how many records were removed and the joined failures.
func (c *SyncController) DeleteMany(ctx context.Context, indices []int) (int, error) {
	idx := slices.Clone(indices)
	slices.Sort(idx)
	idx = slices.Compact(idx)
	slices.Reverse(idx)

	removed := 0
	var errs []error
	for _, i := range idx {
		ok, err := c.deleteAt(ctx, i)
		if err != nil {
			errs = append(errs, err)
		}
		if ok {
			removed++
		}
	}
	return removed, errors.Join(errs...)
}

// addPending puts optimistic rows for an upload batch at the head of the list.
func (c *SyncController) addPending(recs []models.FileRecord) {
	c.mu.Lock()
	c.files = append(slices.Clone(recs), c.files...)
	c.mu.Unlock()
	c.notify()
}

// dropPending removes the optimistic rows with the given upload keys.
func (c *SyncController) dropPending(keys ...string) {
	c.mu.Lock()
	c.files = slices.DeleteFunc(c.files, func(f models.FileRecord) bool {
		return f.RemoteID == "" && slices.Contains(keys, f.UploadKey)
	})
	c.mu.Unlock()
	c.notify()
}

func (c *SyncController) startProgress(key string) {
	c.mu.Lock()
	c.progress[key] = 0
	c.mu.Unlock()
	c.notify()
}

// setProgress records p for key if the entry still exists and p does not
// move backwards.
func (c *SyncController) setProgress(key string, p int) {
	c.mu.Lock()
	cur, ok := c.progress[key]
	if !ok || p <= cur {
		c.mu.Unlock()
		return
	}
	c.progress[key] = p
	c.mu.Unlock()
	c.notify()
}

func (c *SyncController) endProgress(key string) {
	c.mu.Lock()
	delete(c.progress, key)
	c.mu.Unlock()
	c.notify()
}

func (c *SyncController) reportFailure(f UploadFailure) {
	c.mu.Lock()
	c.failures = append(c.failures, f)
	c.mu.Unlock()
	c.notify()
}

func (c *SyncController) clearFailures() {
	c.mu.Lock()
	c.failures = nil
	c.mu.Unlock()
}
