package view

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/dropzone/internal/client/models"
)

type SortKey string

const (
	SortNone SortKey = ""
	SortName SortKey = "name"
	SortSize SortKey = "size"
)

func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(strings.ToLower(s)) {
	case SortName:
		return SortName, nil
	case SortSize:
		return SortSize, nil
	case "none", "":
		return SortNone, nil
	}
	return "", fmt.Errorf("unknown sort column %q", s)
}

// Row is the display model of one file.
type Row struct {
	// Index is the position in the controller's list, used for deletes.
	Index     int
	Name      string
	Kind      string
	SizeBytes int64
	RemoteID  string
	CreatedAt time.Time
	// Progress is set while an upload is tracked for the row.
	Progress *int
	Deleting bool
	Selected bool
}

func (r Row) Pending() bool { return r.RemoteID == "" }

// State holds presentation-only choices: filter, sort and selection.
// Selection is kept by remote id so it survives refreshes.
type State struct {
	Filter   string
	SortBy   SortKey
	Desc     bool
	selected map[string]struct{}
}

// Toggle flips selection of the row. Pending rows cannot be selected.
func (s *State) Toggle(r Row) bool {
	if r.RemoteID == "" {
		return false
	}
	if s.selected == nil {
		s.selected = map[string]struct{}{}
	}
	if _, ok := s.selected[r.RemoteID]; ok {
		delete(s.selected, r.RemoteID)
		return false
	}
	s.selected[r.RemoteID] = struct{}{}
	return true
}

func (s *State) IsSelected(remoteID string) bool {
	_, ok := s.selected[remoteID]
	return ok
}

func (s *State) ClearSelection() { s.selected = nil }

// SelectedIndices maps the selection onto current list positions. Ids no
// longer in the list are dropped from the selection.
func (s *State) SelectedIndices(files []models.FileRecord) []int {
	var out []int
	present := map[string]struct{}{}
	for i, f := range files {
		if f.RemoteID == "" {
			continue
		}
		present[f.RemoteID] = struct{}{}
		if s.IsSelected(f.RemoteID) {
			out = append(out, i)
		}
	}
	for id := range s.selected {
		if _, ok := present[id]; !ok {
			delete(s.selected, id)
		}
	}
	return out
}

// Project builds the rows to display from the controller's list.
func Project(files []models.FileRecord, st *State) []Row {
	filter := strings.ToLower(strings.TrimSpace(st.Filter))

	rows := make([]Row, 0, len(files))
	for i, f := range files {
		if filter != "" && !strings.Contains(strings.ToLower(f.DisplayName), filter) {
			continue
		}
		rows = append(rows, Row{
			Index:     i,
			Name:      f.DisplayName,
			Kind:      FileKind(f.DisplayName),
			SizeBytes: f.SizeBytes,
			RemoteID:  f.RemoteID,
			CreatedAt: f.CreatedAt,
			Progress:  f.UploadProgressPercent,
			Deleting:  f.IsDeleting(),
			Selected:  f.RemoteID != "" && st.IsSelected(f.RemoteID),
		})
	}

	var less func(a, b Row) int
	switch st.SortBy {
	case SortName:
		less = func(a, b Row) int { return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)) }
	case SortSize:
		less = func(a, b Row) int { return cmp.Compare(a.SizeBytes, b.SizeBytes) }
	}
	if less != nil {
		slices.SortStableFunc(rows, func(a, b Row) int {
			if st.Desc {
				return less(b, a)
			}
			return less(a, b)
		})
	}
	return rows
}
