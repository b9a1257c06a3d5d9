package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/dropzone/internal/client/intake"
	"github.com/dmitrijs2005/dropzone/internal/client/models"
	"github.com/dmitrijs2005/dropzone/internal/client/services"
	"github.com/dmitrijs2005/dropzone/internal/client/view"
)

// fail shows err to the user and returns it.
func (a *App) fail(err error) error {
	printlnFn(view.RenderErrors([]string{err.Error()}))
	return err
}

func (a *App) Help(ctx context.Context, _ []string) error {
	printlnFn(helpText)
	return nil
}

func (a *App) List(ctx context.Context, _ []string) error {
	c, err := a.bound(ctx)
	if err != nil {
		return a.fail(err)
	}

	snap := c.Snapshot()
	if len(snap.Files) == 0 {
		r := a.validator.Rules()
		printlnFn(view.RenderEmpty(r.MaxFiles, r.MinSize, r.MaxSize, a.validator.AcceptedExtensions()))
	} else {
		rows := view.Project(snap.Files, &a.view)
		if len(rows) == 0 {
			printlnFn(fmt.Sprintf("No files match %q", a.view.Filter))
		} else {
			printlnFn(view.RenderTable(rows))
		}
	}

	if len(snap.Failures) > 0 {
		msgs := make([]string, len(snap.Failures))
		for i, f := range snap.Failures {
			msgs[i] = fmt.Sprintf("%s: %s", f.FileName, f.Message)
		}
		printlnFn(view.RenderErrors(msgs))
	}
	return nil
}

func (a *App) Refresh(ctx context.Context, args []string) error {
	c, err := a.bound(ctx)
	if err != nil {
		return a.fail(err)
	}
	if err := c.Refresh(ctx); err != nil {
		return a.fail(err)
	}
	return a.List(ctx, args)
}

// prepare reads and validates paths. Rejections are shown to the user and
// the accepted files returned.
func (a *App) prepare(paths []string) []models.RawFile {
	files, rejected := intake.ReadFiles(paths, a.validator.Rules().MaxSize)
	accepted, invalid := a.validator.Validate(files)
	rejected = append(rejected, invalid...)

	if len(rejected) > 0 {
		msgs := make([]string, len(rejected))
		for i, r := range rejected {
			msgs[i] = r.Error()
		}
		printlnFn(view.RenderErrors(msgs))
	}
	return accepted
}

func (a *App) Upload(ctx context.Context, args []string) error {
	if len(args) == 0 {
		printlnFn("Usage: upload <path...>")
		return nil
	}
	c, err := a.bound(ctx)
	if err != nil {
		return a.fail(err)
	}

	files := a.prepare(args)
	if len(files) == 0 {
		return nil
	}

	res := a.submit(ctx, c, files)
	a.reportBatch(res, len(files))
	return nil
}

func (a *App) reportBatch(res services.BatchResult, total int) {
	printlnFn(fmt.Sprintf("Uploaded %d of %d file(s)", len(res.Uploaded), total))
	if len(res.Failed) > 0 {
		msgs := make([]string, len(res.Failed))
		for i, f := range res.Failed {
			msgs[i] = fmt.Sprintf("%s: %s", f.FileName, f.Message)
		}
		printlnFn(view.RenderErrors(msgs))
	}
	if res.RefreshErr != nil {
		_ = a.fail(res.RefreshErr)
	}
}

func parseIndices(args []string) ([]int, error) {
	out := make([]int, 0, len(args))
	for _, s := range args {
		i, err := strconv.Atoi(s)
		if err != nil || i < 0 {
			return nil, fmt.Errorf("invalid index %q", s)
		}
		out = append(out, i)
	}
	return out, nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	if len(args) == 0 {
		printlnFn("Usage: delete <index...>")
		return nil
	}
	idx, err := parseIndices(args)
	if err != nil {
		return a.fail(err)
	}
	c, err := a.bound(ctx)
	if err != nil {
		return a.fail(err)
	}

	n, err := c.DeleteMany(ctx, idx)
	reportDeleted(n)
	if err != nil {
		return a.fail(err)
	}
	return nil
}

// reportDeleted prints how many records were actually removed. Pending
// uploads and records already being deleted are skipped by the controller.
func reportDeleted(n int) {
	if n == 0 {
		printlnFn("Nothing deleted")
		return
	}
	printlnFn(fmt.Sprintf("Deleted %d file(s)", n))
}

func (a *App) Select(ctx context.Context, args []string) error {
	if len(args) == 0 {
		printlnFn("Usage: select <index...>")
		return nil
	}
	idx, err := parseIndices(args)
	if err != nil {
		return a.fail(err)
	}
	c, err := a.bound(ctx)
	if err != nil {
		return a.fail(err)
	}

	rows := view.Project(c.Files(), &view.State{})
	for _, i := range idx {
		if i >= len(rows) {
			_ = a.fail(fmt.Errorf("%w: %d", services.ErrIndexOutOfRange, i))
			continue
		}
		r := rows[i]
		if r.Pending() {
			printlnFn(fmt.Sprintf("%s is still uploading", r.Name))
			continue
		}
		if a.view.Toggle(r) {
			printlnFn(fmt.Sprintf("Selected %s", r.Name))
		} else {
			printlnFn(fmt.Sprintf("Unselected %s", r.Name))
		}
	}
	return nil
}

func (a *App) DeleteSelected(ctx context.Context, _ []string) error {
	c, err := a.bound(ctx)
	if err != nil {
		return a.fail(err)
	}

	idx := a.view.SelectedIndices(c.Files())
	if len(idx) == 0 {
		printlnFn("Nothing selected")
		return nil
	}

	n, err := c.DeleteMany(ctx, idx)
	a.view.ClearSelection()
	reportDeleted(n)
	if err != nil {
		return a.fail(err)
	}
	return nil
}

func (a *App) Filter(ctx context.Context, args []string) error {
	a.view.Filter = strings.Join(args, " ")
	return a.List(ctx, nil)
}

func (a *App) Sort(ctx context.Context, args []string) error {
	if len(args) == 0 {
		printlnFn("Usage: sort <name|size|none> [asc|desc]")
		return nil
	}
	key, err := view.ParseSortKey(args[0])
	if err != nil {
		return a.fail(err)
	}
	desc := false
	if len(args) > 1 {
		switch strings.ToLower(args[1]) {
		case "asc":
		case "desc":
			desc = true
		default:
			return a.fail(fmt.Errorf("unknown sort direction %q", args[1]))
		}
	}
	a.view.SortBy, a.view.Desc = key, desc
	return a.List(ctx, nil)
}

func (a *App) Status(ctx context.Context, _ []string) error {
	lines := []string{
		fmt.Sprintf("Mode:         %s", a.getMode()),
		fmt.Sprintf("Store:        %s", a.config.ServerURL),
		fmt.Sprintf("Parent:       %s(%s)", a.config.ParentEntity, a.config.ParentID),
		fmt.Sprintf("Relationship: %s", a.config.Relationship),
	}

	a.mu.Lock()
	c := a.controller
	a.mu.Unlock()
	if c != nil {
		b := c.Binding()
		lines = append(lines,
			fmt.Sprintf("Child entity: %s (%s)", b.ChildEntity, b.ChildEntityCollectionName),
			fmt.Sprintf("Lookup:       %s", b.ParentLookupAttribute),
			fmt.Sprintf("Files:        %d", len(c.Files())))
	} else {
		lines = append(lines, "Binding:      not resolved")
	}

	if dir := a.watching(); dir != "" {
		lines = append(lines, fmt.Sprintf("Watching:     %s", dir))
	}

	printlnFn(strings.Join(lines, "\n"))
	return nil
}
