package ui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

const maxCellWidth = 48

type align int

const (
	alignLeft align = iota
	alignRight
)

// table is a boxed text table. Widths are measured in terminal cells so
// names with accents or CJK characters line up.
type table struct {
	headers []string
	rows    [][]string
	align   align
}

func newTable(headers ...string) *table {
	return &table{headers: headers}
}

func (t *table) addRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) columns() int {
	n := len(t.headers)
	for _, r := range t.rows {
		if len(r) > n {
			n = len(r)
		}
	}
	return n
}

// lines renders the table without color.
func (t *table) lines() []string {
	cols := t.columns()
	if cols == 0 {
		return nil
	}
	widths := make([]int, cols)
	measure := func(cells []string) {
		for i, c := range cells {
			if w := runewidth.StringWidth(cell(c)); w > widths[i] {
				widths[i] = w
			}
		}
	}
	measure(t.headers)
	for _, r := range t.rows {
		measure(r)
	}

	out := []string{border(widths, "┌", "┬", "┐")}
	if len(t.headers) > 0 {
		out = append(out, t.row(t.headers, widths, alignLeft))
		out = append(out, border(widths, "├", "┼", "┤"))
	}
	for _, r := range t.rows {
		out = append(out, t.row(r, widths, t.align))
	}
	return append(out, border(widths, "└", "┴", "┘"))
}

func (t *table) row(cells []string, widths []int, a align) string {
	var b strings.Builder
	b.WriteString("│")
	for i, w := range widths {
		v := ""
		if i < len(cells) {
			v = cell(cells[i])
		}
		b.WriteByte(' ')
		if a == alignRight {
			b.WriteString(runewidth.FillLeft(v, w))
		} else {
			b.WriteString(runewidth.FillRight(v, w))
		}
		b.WriteString(" │")
	}
	return b.String()
}

func border(widths []int, left, mid, right string) string {
	var b strings.Builder
	b.WriteString(left)
	for i, w := range widths {
		if i > 0 {
			b.WriteString(mid)
		}
		b.WriteString(strings.Repeat("─", w+2))
	}
	b.WriteString(right)
	return b.String()
}

// cell flattens control characters and truncates long values.
func cell(v string) string {
	v = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return ' '
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, v)
	v = strings.TrimSpace(v)
	return runewidth.Truncate(v, maxCellWidth, "…")
}
