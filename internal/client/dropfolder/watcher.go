// Package dropfolder turns a directory into a capture surface: files placed
// in it are collected into batches and handed to a callback.
package dropfolder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/dropzone/internal/filex"
	"github.com/dmitrijs2005/dropzone/internal/logging"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period that closes a batch.
const DefaultDebounce = 500 * time.Millisecond

// UploadedDirName is the subdirectory files are moved to once handled.
const UploadedDirName = "uploaded"

// BatchFunc receives the absolute paths of one batch, sorted. It returns
// the paths that were processed successfully and can be moved out of the
// way; the rest stay in place.
type BatchFunc func(ctx context.Context, paths []string) []string

type Watcher struct {
	dir      string
	done     string
	debounce time.Duration
	handle   BatchFunc
	log      logging.Logger
}

// New prepares dir (creating it and its uploaded/ subdirectory if needed).
func New(dir string, debounce time.Duration, handle BatchFunc, log logging.Logger) (*Watcher, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, err
	}
	done, err := filex.EnsureDir(filepath.Join(abs, UploadedDirName))
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Watcher{
		dir:      abs,
		done:     done,
		debounce: debounce,
		handle:   handle,
		log:      log.With("module", "dropfolder", "dir", abs),
	}, nil
}

func (w *Watcher) Dir() string { return w.dir }

// Run watches the directory until ctx is done. Files already present when
// Run starts form the first batch.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	pending := map[string]struct{}{}
	for _, p := range w.existing() {
		pending[p] = struct{}{}
	}

	timer := time.NewTimer(w.debounce)
	if len(pending) == 0 {
		timer.Stop()
	}
	defer timer.Stop()

	w.log.Info(ctx, "watching drop folder")

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !w.candidate(ev.Name) {
				continue
			}
			pending[ev.Name] = struct{}{}
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn(ctx, "watch error", "error", err)

		case <-timer.C:
			batch := make([]string, 0, len(pending))
			for p := range pending {
				if w.candidate(p) {
					batch = append(batch, p)
				}
			}
			clear(pending)
			if len(batch) == 0 {
				continue
			}
			slices.Sort(batch)
			w.dispatch(ctx, batch)
		}
	}
}

func (w *Watcher) dispatch(ctx context.Context, batch []string) {
	w.log.Info(ctx, "batch collected", "files", len(batch))
	for _, p := range w.handle(ctx, batch) {
		if _, err := filex.MoveInto(w.done, p); err != nil {
			w.log.Warn(ctx, "failed to move processed file", "path", p, "error", err)
		}
	}
}

func (w *Watcher) existing() []string {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		p := filepath.Join(w.dir, e.Name())
		if w.candidate(p) {
			out = append(out, p)
		}
	}
	return out
}

// candidate reports whether p is a regular, non-hidden file directly
// inside the watched directory.
func (w *Watcher) candidate(p string) bool {
	if filepath.Dir(p) != w.dir {
		return false
	}
	name := filepath.Base(p)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") {
		return false
	}
	fi, err := os.Stat(p)
	if err != nil {
		return false
	}
	return fi.Mode().IsRegular()
}
