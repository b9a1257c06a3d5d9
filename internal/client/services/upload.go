package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/dropzone/internal/client/models"
	"github.com/dmitrijs2005/dropzone/internal/logging"
	"github.com/google/uuid"
)

// FailurePolicy decides how per-file upload failures reach the user.
type FailurePolicy string

const (
	// FailurePolicyLog only logs failed files; they are simply absent
	// from the refreshed list.
	FailurePolicyLog FailurePolicy = "log"
	// FailurePolicyReport additionally records failures on the controller
	// until the next batch starts.
	FailurePolicyReport FailurePolicy = "report"
)

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(s) {
	case "", FailurePolicyLog:
		return FailurePolicyLog, nil
	case FailurePolicyReport:
		return FailurePolicyReport, nil
	}
	return "", fmt.Errorf("unknown upload failure policy %q", s)
}

// BatchResult summarises one Submit call.
type BatchResult struct {
	// Uploaded holds the remote ids of files whose create and upload succeeded.
	Uploaded []string
	Failed   []UploadFailure
	// RefreshErr is the error of the final refresh, if any.
	RefreshErr error
}

// UploadOrchestrator uploads batches of files one file at a time and lets
// the controller's refresh establish the persisted state afterwards.
// Batches submitted concurrently run one after another in arrival order.
type UploadOrchestrator struct {
	// Ticket queue: a batch runs, final refresh included, only when
	// serving reaches its ticket.
	queueMu sync.Mutex
	queued  *sync.Cond
	next    uint64
	serving uint64

	store      FileStore
	controller *SyncController
	policy     FailurePolicy
	log        logging.Logger

	// newBatchID is a test seam.
	newBatchID func() string
}

func NewUploadOrchestrator(store FileStore, controller *SyncController, policy FailurePolicy, log logging.Logger) *UploadOrchestrator {
	if log == nil {
		log = logging.Nop()
	}
	if policy == "" {
		policy = FailurePolicyLog
	}
	o := &UploadOrchestrator{
		store:      store,
		controller: controller,
		policy:     policy,
		log:        log.With("module", "upload"),
		newBatchID: uuid.NewString,
	}
	o.queued = sync.NewCond(&o.queueMu)
	return o
}

func (o *UploadOrchestrator) enter() {
	o.queueMu.Lock()
	ticket := o.next
	o.next++
	for ticket != o.serving {
		o.queued.Wait()
	}
	o.queueMu.Unlock()
}

func (o *UploadOrchestrator) leave() {
	o.queueMu.Lock()
	o.serving++
	o.queued.Broadcast()
	o.queueMu.Unlock()
}

// UploadKey returns the correlation key of the i-th file of a batch.
func UploadKey(batchID string, i int) string {
	return fmt.Sprintf("%s/%d", batchID, i)
}

// Submit creates and uploads files strictly in order. A failing file does
// not stop the batch. Every file gets a progress entry at 0 up front and
// loses it once its own create+upload settles. One refresh follows the batch.
// A Submit issued while another batch is running waits for it to finish.
func (o *UploadOrchestrator) Submit(ctx context.Context, b *models.RelationshipBinding, parentID string, files []models.RawFile, opts models.AttachmentOptions) BatchResult {
	var res BatchResult
	if len(files) == 0 {
		return res
	}

	o.enter()
	defer o.leave()

	o.controller.clearFailures()

	batchID := o.newBatchID()
	keys := make([]string, len(files))
	pending := make([]models.FileRecord, len(files))
	for i, f := range files {
		keys[i] = UploadKey(batchID, i)
		pending[i] = models.FileRecord{
			DisplayName: f.Name,
			SizeBytes:   f.Size,
			UploadKey:   keys[i],
			State:       models.StatePending,
		}
	}

	for _, k := range keys {
		o.controller.startProgress(k)
	}
	o.controller.addPending(pending)

	o.log.Info(ctx, "upload batch started", "batch", batchID, "files", len(files))

	for i, f := range files {
		key := keys[i]
		id, err := o.uploadOne(ctx, b, parentID, f, opts, key)
		o.controller.endProgress(key)

		if err != nil {
			o.log.Error(ctx, "upload failed", "file", f.Name, "key", key, "error", err)
			fail := UploadFailure{FileName: f.Name, Message: err.Error()}
			res.Failed = append(res.Failed, fail)
			o.controller.dropPending(key)
			if o.policy == FailurePolicyReport {
				o.controller.reportFailure(fail)
			}
			continue
		}

		o.log.Info(ctx, "file uploaded", "file", f.Name, "record_id", id)
		res.Uploaded = append(res.Uploaded, id)
	}

	if err := o.controller.Refresh(ctx); err != nil {
		res.RefreshErr = err
		o.controller.dropPending(keys...)
	}

	o.log.Info(ctx, "upload batch finished", "batch", batchID,
		"uploaded", len(res.Uploaded), "failed", len(res.Failed))
	return res
}

func (o *UploadOrchestrator) uploadOne(ctx context.Context, b *models.RelationshipBinding, parentID string, f models.RawFile, opts models.AttachmentOptions, key string) (string, error) {
	id, err := o.store.CreateChild(ctx, b, parentID, f.Name, f.Size, opts)
	if err != nil {
		return "", err
	}

	err = o.store.UploadBinary(ctx, b, id, opts.FileColumn, f.Content, f.Name, func(p int) {
		o.controller.setProgress(key, p)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}
