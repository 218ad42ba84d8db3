package core

import (
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"
)

// MergedRange is a rectangular merged-cell region, 1-based inclusive.
type MergedRange struct {
	MinRow, MinCol, MaxRow, MaxCol int
}

func (m MergedRange) contains(r, c int) bool {
	return m.MinRow <= r && r <= m.MaxRow && m.MinCol <= c && c <= m.MaxCol
}

// Grid is an immutable in-memory snapshot of one sheet: cell text plus merged
// range geometry. All coordinates are 1-based. Boundary heuristics run against
// a Grid so they can be tested on fixtures without a workbook behind them.
type Grid struct {
	Sheet  string
	cells  [][]string
	merges []MergedRange
	maxCol int
}

// NewGrid builds a grid from raw cell rows (possibly jagged) and merges.
func NewGrid(sheet string, cells [][]string, merges []MergedRange) *Grid {
	maxCol := 0
	for _, row := range cells {
		if len(row) > maxCol {
			maxCol = len(row)
		}
	}
	for _, m := range merges {
		if m.MaxCol > maxCol {
			maxCol = m.MaxCol
		}
	}
	return &Grid{Sheet: sheet, cells: cells, merges: merges, maxCol: maxCol}
}

// LoadGrid snapshots one sheet of an open workbook.
func LoadGrid(f ExcelFile, sheet string) (*Grid, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}

	mcs, err := f.GetMergeCells(sheet)
	if err != nil {
		return nil, err
	}
	merges := make([]MergedRange, 0, len(mcs))
	for _, mc := range mcs {
		c1, r1, err := excelize.CellNameToCoordinates(mc.GetStartAxis())
		if err != nil {
			continue
		}
		c2, r2, err := excelize.CellNameToCoordinates(mc.GetEndAxis())
		if err != nil {
			continue
		}
		merges = append(merges, MergedRange{MinRow: r1, MinCol: c1, MaxRow: r2, MaxCol: c2})
	}

	return NewGrid(sheet, rows, merges), nil
}

// MaxRow returns the last used row (rows are 1-based).
func (g *Grid) MaxRow() int { return len(g.cells) }

// MaxCol returns the last used column.
func (g *Grid) MaxCol() int { return g.maxCol }

func (g *Grid) raw(r, c int) string {
	if r < 1 || c < 1 || r > len(g.cells) {
		return ""
	}
	row := g.cells[r-1]
	if c > len(row) {
		return ""
	}
	return row[c-1]
}

// Resolve reads the effective value at (r,c): the cell itself when non-empty,
// otherwise the top-left value of the merged range covering it.
func (g *Grid) Resolve(r, c int) string {
	if v := g.raw(r, c); v != "" {
		return v
	}
	for _, m := range g.merges {
		if m.contains(r, c) {
			return g.raw(m.MinRow, m.MinCol)
		}
	}
	return ""
}

// IsEmpty reports whether the resolved, normalized cell text is empty.
func (g *Grid) IsEmpty(r, c int) bool {
	return Norm(g.Resolve(r, c)) == ""
}

// Norm collapses runs of whitespace (including full-width 空格) to single
// ASCII spaces and trims.
func Norm(s string) string {
	s = strings.ReplaceAll(s, "　", " ")
	return strings.Join(strings.Fields(s), " ")
}

// matchText prepares text for alias containment: normalize, then drop all
// whitespace and parentheses, both ASCII and full-width. Source sheets mix
// "Animal Weight（g）" and "Animal Weight (g)" freely.
func matchText(s string) string {
	s = Norm(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
		case r == '(' || r == ')' || r == '（' || r == '）':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ContainsAny reports whether text contains any of the aliases, compared with
// bracket- and space-stripped forms. Aliases are tried in list order.
func ContainsAny(text string, aliases []string) bool {
	t := matchText(text)
	if t == "" {
		return false
	}
	for _, a := range aliases {
		p := matchText(a)
		if p != "" && strings.Contains(t, p) {
			return true
		}
	}
	return false
}

// FindSheet returns the first candidate sheet name that exists in the
// workbook, or "".
func FindSheet(f ExcelFile, candidates []string) string {
	existing := f.GetSheetList()
	for _, want := range candidates {
		for _, have := range existing {
			if have == want {
				return have
			}
		}
	}
	return ""
}
