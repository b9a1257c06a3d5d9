package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	styleHeader   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	styleCell     = lipgloss.NewStyle().Padding(0, 1)
	styleDeleting = styleCell.Foreground(lipgloss.Color("8")).Strikethrough(true)
	stylePending  = styleCell.Foreground(lipgloss.Color("11"))
	styleSelected = styleCell.Foreground(lipgloss.Color("14"))
	styleMuted    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleError    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

func status(r Row) string {
	switch {
	case r.Deleting:
		return "deleting"
	case r.Progress != nil:
		return fmt.Sprintf("%d%%", *r.Progress)
	case r.Pending():
		return "pending"
	}
	return ""
}

// RenderTable renders rows as a bordered table. Columns: selection mark,
// index, name, type, size, created, status.
func RenderTable(rows []Row) string {
	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		mark := " "
		if r.Selected {
			mark = "x"
		}
		created := ""
		if !r.CreatedAt.IsZero() {
			created = r.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		data = append(data, []string{
			mark,
			fmt.Sprint(r.Index),
			r.Name,
			r.Kind,
			SizeMB(r.SizeBytes),
			created,
			status(r),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("", "#", "Name", "Type", "Size", "Created", "Status").
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			if row < 0 || row >= len(rows) {
				return styleCell
			}
			r := rows[row]
			switch {
			case r.Deleting:
				return styleDeleting
			case r.Pending():
				return stylePending
			case r.Selected:
				return styleSelected
			}
			return styleCell
		})

	return t.String()
}

// RenderEmpty renders the empty-state hint for a drop with the given limits.
func RenderEmpty(maxFiles int, minSize, maxSize int64, exts []string) string {
	var b strings.Builder
	b.WriteString(Heading(maxFiles))
	b.WriteString("\n")
	b.WriteString(styleMuted.Render("Use 'upload <path...>' or drop files into a watched folder"))
	if c := SizeCaption(minSize, maxSize); c != "" {
		b.WriteString("\n")
		b.WriteString(styleMuted.Render(c + "."))
	}
	if len(exts) > 0 {
		b.WriteString("\n")
		b.WriteString(styleMuted.Render("Accepted: " + FormatList(exts) + "."))
	}
	return b.String()
}

// RenderErrors renders messages in the error style, one per line.
func RenderErrors(msgs []string) string {
	lines := make([]string, len(msgs))
	for i, m := range msgs {
		lines[i] = styleError.Render(m)
	}
	return strings.Join(lines, "\n")
}
