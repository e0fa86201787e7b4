package ui

import (
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/example/kdash/internal/agetrack"
	"github.com/example/kdash/internal/resources"
)

const columnGap = 2

// renderKindTable lays out one kind's rows: a header line, then one line per
// row. Column widths follow content and are squeezed to fit the terminal.
func renderKindTable(table resources.Table, rows []resources.Row, width int, now time.Time) []string {
	cols := table.Columns()
	display := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, len(cols))
		for i := range cols {
			if i < len(row.Cells) {
				cells[i] = displayCell(row.Cells[i], cols[i].Mode, now)
			} else {
				cells[i] = "-"
			}
		}
		display = append(display, cells)
	}

	widths := columnWidths(cols, display, width)
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, tableLine(cols, headerCells(cols), widths, false))
	for _, cells := range display {
		lines = append(lines, tableLine(cols, cells, widths, true))
	}
	return lines
}

func displayCell(cell resources.Cell, mode agetrack.Mode, now time.Time) string {
	if !cell.Stamp.IsZero() {
		return agetrack.Format(mode, cell.Stamp, now)
	}
	if cell.Text == "" {
		return "-"
	}
	return cell.Text
}

func headerCells(cols []resources.ColumnSpec) []string {
	out := make([]string, len(cols))
	for i, col := range cols {
		out[i] = col.Title
	}
	return out
}

// columnWidths sizes each column to its widest cell, then shrinks the widest
// columns until the whole line fits.
func columnWidths(cols []resources.ColumnSpec, display [][]string, width int) []int {
	const minColumn = 5
	widths := make([]int, len(cols))
	for i, col := range cols {
		widths[i] = runewidth.StringWidth(col.Title)
	}
	for _, cells := range display {
		for i, cell := range cells {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	if width <= 0 {
		return widths
	}
	total := func() int {
		sum := columnGap * (len(widths) - 1)
		for _, w := range widths {
			sum += w
		}
		return sum
	}
	for total() > width {
		widest := -1
		for i, w := range widths {
			if w > minColumn && (widest < 0 || w > widths[widest]) {
				widest = i
			}
		}
		if widest < 0 {
			break
		}
		over := total() - width
		room := widths[widest] - minColumn
		if room > over {
			room = over
		}
		widths[widest] -= room
	}
	return widths
}

func tableLine(cols []resources.ColumnSpec, cells []string, widths []int, colorize bool) string {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		text := trimToWidth(cell, widths[i])
		if i < len(cells)-1 {
			text = padToWidth(text, widths[i])
		}
		if colorize && cols[i].Title == "STATUS" {
			if painter := statusPainter(cell); painter != nil {
				text = painter.Sprint(text)
			}
		}
		parts[i] = text
	}
	return strings.TrimRight(strings.Join(parts, strings.Repeat(" ", columnGap)), " ")
}

func statusPainter(status string) *color.Color {
	switch status {
	case "Running", "Ready", "Bound", "Active", "Available":
		return color.New(color.FgGreen)
	case "Pending", "ContainerCreating", "PodInitializing", "Terminating", "Released":
		return color.New(color.FgYellow)
	case "Failed", "Error", "CrashLoopBackOff", "ImagePullBackOff", "ErrImagePull", "Evicted", "OOMKilled", "Lost", "Unknown":
		return color.New(color.FgRed)
	case "Succeeded", "Completed":
		return color.New(color.FgHiBlack)
	default:
		return nil
	}
}

func trimToWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 1 {
		out := []rune(s)
		if len(out) == 0 {
			return ""
		}
		return string(out[:1])
	}
	limit := width - 1
	var out []rune
	w := 0
	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if rw == 0 {
			rw = 1
		}
		if w+rw > limit {
			break
		}
		out = append(out, r)
		w += rw
	}
	return string(out) + "…"
}

func padToWidth(s string, width int) string {
	pad := width - runewidth.StringWidth(s)
	if pad <= 0 {
		return s
	}
	return s + strings.Repeat(" ", pad)
}
