package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/dropzone/internal/client/models"
	"github.com/dmitrijs2005/dropzone/internal/logging"
	"github.com/dmitrijs2005/dropzone/internal/netx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawFiles(names ...string) []models.RawFile {
	out := make([]models.RawFile, len(names))
	for i, n := range names {
		out[i] = models.RawFile{Name: n, Size: int64(len(n)), Content: []byte(n)}
	}
	return out
}

// progressRecorder collects every progress value observed per key.
type progressRecorder struct {
	mu   sync.Mutex
	seen map[string][]int
}

func (r *progressRecorder) observe(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range s.Progress {
		vals := r.seen[k]
		if len(vals) == 0 || vals[len(vals)-1] != v {
			r.seen[k] = append(vals, v)
		}
	}
}

func newOrchestrator(st *fakeStore, policy FailurePolicy) (*UploadOrchestrator, *SyncController, *progressRecorder) {
	c := newController(st)
	rec := &progressRecorder{seen: map[string][]int{}}
	c.OnChange(rec.observe)

	o := NewUploadOrchestrator(st, c, policy, logging.Nop())
	o.newBatchID = func() string { return "batch" }
	return o, c, rec
}

func TestSubmit_SequentialAndSingleRefresh(t *testing.T) {
	st := &fakeStore{
		createFn: func(name string) (string, error) { return "id-" + name, nil },
		listFn:   remoteList(rec("id-b", 2), rec("id-a", 1)),
	}
	o, c, _ := newOrchestrator(st, FailurePolicyLog)

	res := o.Submit(context.Background(), testBinding, "P1", rawFiles("a", "b"), testOpts)

	assert.Equal(t, []string{"create:a", "upload:id-a", "create:b", "upload:id-b", "list"}, st.Calls())
	assert.Equal(t, []string{"id-a", "id-b"}, res.Uploaded)
	assert.Empty(t, res.Failed)
	require.NoError(t, res.RefreshErr)

	assert.Equal(t, []string{"id-b", "id-a"}, ids(c.Files()))
	assert.Empty(t, c.Snapshot().Progress)
}

func TestSubmit_ProgressEntriesCreatedAndRemoved(t *testing.T) {
	st := &fakeStore{
		createFn: func(name string) (string, error) {
			if name == "bad" {
				return "", errors.New("create failed")
			}
			return "id-" + name, nil
		},
		uploadFn: func(id string, p netx.ProgressFunc) error {
			p(0)
			p(30)
			p(70)
			p(100)
			return nil
		},
	}
	o, c, recorder := newOrchestrator(st, FailurePolicyLog)

	o.Submit(context.Background(), testBinding, "P1", rawFiles("a", "bad", "c"), testOpts)

	recorder.mu.Lock()
	defer recorder.mu.Unlock()

	assert.Len(t, recorder.seen, 3)
	for _, k := range []string{"batch/0", "batch/1", "batch/2"} {
		require.Contains(t, recorder.seen, k)
		assert.Equal(t, 0, recorder.seen[k][0], "entry %s must start at 0", k)
	}
	assert.Equal(t, []int{0, 30, 70, 100}, recorder.seen["batch/0"])
	assert.Equal(t, []int{0}, recorder.seen["batch/1"])
	assert.Equal(t, []int{0, 30, 70, 100}, recorder.seen["batch/2"])

	assert.Empty(t, c.Snapshot().Progress)
}

func TestSubmit_FailureDoesNotAbortBatch(t *testing.T) {
	st := &fakeStore{
		createFn: func(name string) (string, error) { return "C-" + name, nil },
		uploadFn: func(id string, p netx.ProgressFunc) error {
			p(0)
			if id == "C-a" {
				return errors.New("Upload failed: 500 Internal Server Error")
			}
			p(100)
			return nil
		},
		listFn: remoteList(rec("C-b", 2)),
	}
	o, c, _ := newOrchestrator(st, FailurePolicyLog)

	res := o.Submit(context.Background(), testBinding, "P1", rawFiles("a", "b"), testOpts)

	assert.Equal(t, []string{"C-b"}, res.Uploaded)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "a", res.Failed[0].FileName)
	assert.Contains(t, res.Failed[0].Message, "500")

	assert.Equal(t, []string{"C-b"}, ids(c.Files()))
	assert.Empty(t, c.Snapshot().Failures, "log policy must not surface failures")
}

func TestSubmit_ReportPolicyRecordsFailures(t *testing.T) {
	st := &fakeStore{
		createFn: func(name string) (string, error) { return "", errors.New("create failed") },
	}
	o, c, _ := newOrchestrator(st, FailurePolicyReport)

	o.Submit(context.Background(), testBinding, "P1", rawFiles("a"), testOpts)
	failures := c.Snapshot().Failures
	require.Len(t, failures, 1)
	assert.Equal(t, "a", failures[0].FileName)

	st.createFn = func(name string) (string, error) { return "ok", nil }
	o.Submit(context.Background(), testBinding, "P1", rawFiles("b"), testOpts)
	assert.Empty(t, c.Snapshot().Failures, "failures are cleared when the next batch starts")
}

func TestSubmit_PendingRowsShownDuringUpload(t *testing.T) {
	var c *SyncController
	st := &fakeStore{
		createFn: func(name string) (string, error) { return "id-" + name, nil },
	}
	st.uploadFn = func(id string, p netx.ProgressFunc) error {
		files := c.Files()
		require.Len(t, files, 2)
		for _, f := range files {
			assert.Equal(t, models.StatePending, f.State)
			assert.False(t, f.IsPersisted())
			if "id-"+f.DisplayName == id {
				require.NotNil(t, f.UploadProgressPercent)
			}
		}
		p(100)
		return nil
	}

	var o *UploadOrchestrator
	o, c, _ = newOrchestrator(st, FailurePolicyLog)
	o.Submit(context.Background(), testBinding, "P1", rawFiles("a", "b"), testOpts)

	assert.Empty(t, c.Files(), "final refresh replaces optimistic rows")
}

func TestSubmit_RefreshFailureDropsPendingRows(t *testing.T) {
	st := &fakeStore{
		createFn: func(name string) (string, error) { return "id-" + name, nil },
		listFn: func(context.Context) ([]models.FileRecord, error) {
			return nil, errors.New("list failed")
		},
	}
	o, c, _ := newOrchestrator(st, FailurePolicyLog)

	res := o.Submit(context.Background(), testBinding, "P1", rawFiles("a"), testOpts)
	require.Error(t, res.RefreshErr)
	assert.Empty(t, c.Files())
}

func TestSubmit_OverlappingBatchesRunOneAfterAnother(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	var mu sync.Mutex
	inFlight, maxInFlight := 0, 0

	st := &fakeStore{
		createFn: func(name string) (string, error) { return "id-" + name, nil },
	}
	st.uploadFn = func(id string, p netx.ProgressFunc) error {
		mu.Lock()
		inFlight++
		maxInFlight = max(maxInFlight, inFlight)
		mu.Unlock()
		defer func() {
			mu.Lock()
			inFlight--
			mu.Unlock()
		}()

		if id == "id-a" {
			close(started)
			<-release
		}
		p(100)
		return nil
	}
	o, _, _ := newOrchestrator(st, FailurePolicyLog)
	var seq atomic.Int32
	o.newBatchID = func() string { return fmt.Sprintf("batch%d", seq.Add(1)) }

	ctx := context.Background()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		o.Submit(ctx, testBinding, "P1", rawFiles("a"), testOpts)
	}()
	<-started
	go func() {
		defer wg.Done()
		o.Submit(ctx, testBinding, "P1", rawFiles("b"), testOpts)
	}()

	require.Eventually(t, func() bool {
		o.queueMu.Lock()
		defer o.queueMu.Unlock()
		return o.next == 2
	}, time.Second, time.Millisecond, "second batch must be queued")
	assert.Equal(t, []string{"create:a", "upload:id-a"}, st.Calls())

	close(release)
	wg.Wait()

	assert.Equal(t, []string{
		"create:a", "upload:id-a", "list",
		"create:b", "upload:id-b", "list",
	}, st.Calls())
	assert.Equal(t, 1, maxInFlight)
}

func TestSubmit_ReportedFailuresSurviveQueuedBatch(t *testing.T) {
	release := make(chan struct{})
	refreshed := make(chan struct{})
	var once sync.Once

	st := &fakeStore{
		createFn: func(name string) (string, error) {
			if name == "bad" {
				return "", errors.New("create failed")
			}
			return "id-" + name, nil
		},
		listFn: func(context.Context) ([]models.FileRecord, error) {
			once.Do(func() {
				close(refreshed)
				<-release
			})
			return []models.FileRecord{}, nil
		},
	}
	o, c, _ := newOrchestrator(st, FailurePolicyReport)

	ctx := context.Background()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		o.Submit(ctx, testBinding, "P1", rawFiles("bad"), testOpts)
	}()
	<-refreshed
	go func() {
		defer wg.Done()
		o.Submit(ctx, testBinding, "P1", rawFiles("b"), testOpts)
	}()

	require.Eventually(t, func() bool {
		o.queueMu.Lock()
		defer o.queueMu.Unlock()
		return o.next == 2
	}, time.Second, time.Millisecond)
	require.Len(t, c.Snapshot().Failures, 1, "queued batch must not clear failures of the running one")

	close(release)
	wg.Wait()
	assert.Empty(t, c.Snapshot().Failures)
}

func TestSubmit_EmptyBatch(t *testing.T) {
	st := &fakeStore{}
	o, _, _ := newOrchestrator(st, "")
	res := o.Submit(context.Background(), testBinding, "P1", nil, testOpts)
	assert.Empty(t, res.Uploaded)
	assert.Empty(t, st.Calls())
}

func TestParseFailurePolicy(t *testing.T) {
	p, err := ParseFailurePolicy("")
	require.NoError(t, err)
	assert.Equal(t, FailurePolicyLog, p)

	p, err = ParseFailurePolicy("report")
	require.NoError(t, err)
	assert.Equal(t, FailurePolicyReport, p)

	_, err = ParseFailurePolicy("shout")
	require.Error(t, err)
}

func TestUploadKey(t *testing.T) {
	assert.Equal(t, "b1/3", UploadKey("b1", 3))
}
