package core

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Structural failures. Each aborts extraction of the current table only; the
// pipeline reports the message and moves on to the next table.
var (
	ErrSheetNotFound    = errors.New("data sheet not found")
	ErrAnchorNotFound   = errors.New("anchor not found")
	ErrBoundaryNotFound = errors.New("boundary not found")
	ErrDayNotFound      = errors.New("day column not found")
	ErrNoGroups         = errors.New("no group rows found")
	ErrDesignHeader     = errors.New("design header row not found")
)

// FindAnchor scans rows top to bottom, columns left to right, and returns the
// first cell whose text contains any anchor alias.
func FindAnchor(g *Grid, aliases []string) (row, col int, err error) {
	for r := 1; r <= g.MaxRow(); r++ {
		for c := 1; c <= g.MaxCol(); c++ {
			if ContainsAny(g.Resolve(r, c), aliases) {
				return r, c, nil
			}
		}
	}
	return 0, 0, fmt.Errorf("%w: candidates %v", ErrAnchorNotFound, aliases)
}

// FindEndColumn walks columns rightward from c0 and returns the column before
// the first column whose slice [r0..r0+lookahead] is entirely empty. A region
// running flush to the last used column has no detectable boundary and fails.
func FindEndColumn(g *Grid, r0, c0, lookahead int) (int, error) {
	window := r0 + lookahead
	if window > g.MaxRow() {
		window = g.MaxRow()
	}
	for c := c0; c <= g.MaxCol(); c++ {
		empty := true
		for r := r0; r <= window; r++ {
			if !g.IsEmpty(r, c) {
				empty = false
				break
			}
		}
		if empty {
			if c-1 < c0 {
				return 0, fmt.Errorf("%w: region has no data columns", ErrBoundaryNotFound)
			}
			return c - 1, nil
		}
	}
	return 0, fmt.Errorf("%w: end column", ErrBoundaryNotFound)
}

// FindEndRow walks rows downward from r0 and returns the row before the first
// row whose cells [c0..endCol] are entirely empty. With fallback enabled a
// missing terminator yields the sheet's last used row instead of an error.
func FindEndRow(g *Grid, r0, c0, endCol int, fallback bool) (int, error) {
	for r := r0; r <= g.MaxRow(); r++ {
		empty := true
		for c := c0; c <= endCol; c++ {
			if !g.IsEmpty(r, c) {
				empty = false
				break
			}
		}
		if empty {
			if r-1 < r0 {
				break
			}
			return r - 1, nil
		}
	}
	if fallback {
		return g.MaxRow(), nil
	}
	return 0, fmt.Errorf("%w: end row", ErrBoundaryNotFound)
}

// dayPattern tolerates decorated day labels ("Day 7", "D14", "第7天") and
// keeps the sign attached to the number.
var dayPattern = regexp.MustCompile(`^[^\d-]*(-?\d+)\D*$`)

// MapDays locates the days header inside the region, takes the row below it
// as the day axis and maps each parseable day offset to its column. Later
// columns win on duplicate day values. Day 0 and endDay must both resolve.
func MapDays(g *Grid, r0, endRow, c0, endCol, endDay int, headerAliases []string) (map[int]int, error) {
	headerRow, headerCol := 0, 0
	for r := r0; r <= endRow && headerRow == 0; r++ {
		for c := c0; c <= endCol; c++ {
			if ContainsAny(g.Resolve(r, c), headerAliases) {
				headerRow, headerCol = r, c
				break
			}
		}
	}
	if headerRow == 0 {
		return nil, fmt.Errorf("%w: days header candidates %v", ErrDayNotFound, headerAliases)
	}

	dayRow := headerRow + 1
	days := make(map[int]int)
	for c := headerCol; c <= endCol; c++ {
		m := dayPattern.FindStringSubmatch(Norm(g.Resolve(dayRow, c)))
		if m == nil {
			continue
		}
		d, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		days[d] = c
	}

	if _, ok := days[0]; !ok {
		return nil, fmt.Errorf("%w: day 0 missing, found %v", ErrDayNotFound, sortedDays(days))
	}
	if _, ok := days[endDay]; !ok {
		return nil, fmt.Errorf("%w: day %d missing, found %v", ErrDayNotFound, endDay, sortedDays(days))
	}
	return days, nil
}

func sortedDays(days map[int]int) []int {
	out := make([]int, 0, len(days))
	for d := range days {
		out = append(out, d)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// GroupBlock is the contiguous row range of one treatment group.
type GroupBlock struct {
	Label    string
	StartRow int
	EndRow   int
}

// SegmentGroups collects the rows in [r0..endRow] whose groupCol cell matches
// the group pattern; each block runs to the row before the next start, the
// last to endRow. Rows before the first start belong to no block.
func SegmentGroups(g *Grid, r0, endRow, groupCol int, pattern *regexp.Regexp) ([]GroupBlock, error) {
	var starts []int
	for r := r0; r <= endRow; r++ {
		if pattern.MatchString(Norm(g.Resolve(r, groupCol))) {
			starts = append(starts, r)
		}
	}
	if len(starts) == 0 {
		return nil, fmt.Errorf("%w: pattern %s in column %d", ErrNoGroups, pattern, groupCol)
	}

	blocks := make([]GroupBlock, len(starts))
	for i, rs := range starts {
		end := endRow
		if i < len(starts)-1 {
			end = starts[i+1] - 1
		}
		blocks[i] = GroupBlock{
			Label:    Norm(g.Resolve(rs, groupCol)),
			StartRow: rs,
			EndRow:   end,
		}
	}
	return blocks, nil
}

// FindStatisticRow returns the first row of the block whose statCol text
// contains any label alias, or 0 when the statistic is absent. acceptBareSD
// additionally accepts a cell equal to "SD" (the export tool abbreviates the
// standard-deviation row that way on some sheets).
func FindStatisticRow(g *Grid, block GroupBlock, statCol int, aliases []string, acceptBareSD bool) int {
	for r := block.StartRow; r <= block.EndRow; r++ {
		t := Norm(g.Resolve(r, statCol))
		if ContainsAny(t, aliases) {
			return r
		}
		if acceptBareSD && strings.EqualFold(t, "SD") {
			return r
		}
	}
	return 0
}
