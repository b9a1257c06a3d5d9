package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dmitrijs2005/dropzone/internal/client/dropfolder"
)

func (a *App) watching() string {
	a.watchMu.Lock()
	defer a.watchMu.Unlock()
	return a.watchDir
}

func (a *App) stopWatch() bool {
	a.watchMu.Lock()
	defer a.watchMu.Unlock()
	if a.watchCancel == nil {
		return false
	}
	a.watchCancel()
	a.watchCancel = nil
	a.watchDir = ""
	return true
}

// Watch starts uploading files that appear in a directory, or stops the
// current watch with "watch stop". Only one directory is watched at a time.
func (a *App) Watch(ctx context.Context, args []string) error {
	if len(args) != 1 {
		printlnFn("Usage: watch <dir> | watch stop")
		return nil
	}
	if args[0] == "stop" {
		if a.stopWatch() {
			printlnFn("Stopped watching")
		} else {
			printlnFn("Not watching")
		}
		return nil
	}

	if _, err := a.bound(ctx); err != nil {
		return a.fail(err)
	}

	w, err := dropfolder.New(args[0], a.config.WatchDebounce, a.handleDrop, a.log)
	if err != nil {
		return a.fail(err)
	}

	a.stopWatch()

	wctx, cancel := context.WithCancel(ctx)
	a.watchMu.Lock()
	a.watchDir = w.Dir()
	a.watchCancel = cancel
	a.watchMu.Unlock()

	go func() {
		if err := w.Run(wctx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Error(wctx, "folder watch stopped", "dir", w.Dir(), "error", err)
			printlnFn(fmt.Sprintf("Watching %s stopped: %v", w.Dir(), err))
		}
	}()

	printlnFn(fmt.Sprintf("Watching %s", w.Dir()))
	return nil
}

// handleDrop uploads one batch from the watched folder and returns the
// paths whose upload succeeded.
func (a *App) handleDrop(ctx context.Context, paths []string) []string {
	c, err := a.bound(ctx)
	if err != nil {
		a.log.Error(ctx, "drop ignored", "error", err)
		return nil
	}

	files := a.prepare(paths)
	if len(files) == 0 {
		return nil
	}

	res := a.submit(ctx, c, files)
	a.reportBatch(res, len(files))

	failed := make(map[string]struct{}, len(res.Failed))
	for _, f := range res.Failed {
		failed[f.FileName] = struct{}{}
	}
	sent := make(map[string]struct{}, len(files))
	for _, f := range files {
		sent[f.Name] = struct{}{}
	}

	done := make([]string, 0, len(files))
	for _, p := range paths {
		name := filepath.Base(p)
		if _, ok := sent[name]; !ok {
			continue
		}
		if _, ok := failed[name]; ok {
			continue
		}
		done = append(done, p)
	}
	return done
}
