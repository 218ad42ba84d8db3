package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	// SupplementSourceSheet carries the project operation key/value pairs in
	// the source workbook.
	SupplementSourceSheet = "项目操作信息"
	// SupplementDestSheet is the detail sheet of the deliverable that receives
	// them.
	SupplementDestSheet = "明细"

	supplementStartKey = "实验类型"
	endPointKey        = "实验终点天"
	endDayKey          = "结束天"
	strainKey          = "实验动物品系"
)

var (
	endDaySheetPattern = regexp.MustCompile(`分组后第(\d+)天`)
	timestampPattern   = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})\s+\d{2}:\d{2}:\d{2}`)
	micePattern        = regexp.MustCompile(`(?i)\s*mice\s*`)
)

// MaxEndDay scans the workbook's sheet names for per-day measurement sheets
// ("分组后第N天") and returns the largest N, 0 when none exist.
func MaxEndDay(f ExcelFile) int {
	maxDay := 0
	for _, name := range f.GetSheetList() {
		m := endDaySheetPattern.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		if d, err := strconv.Atoi(m[1]); err == nil && d > maxDay {
			maxDay = d
		}
	}
	return maxDay
}

// asText renders a cell value as plain text: numeric values lose scientific
// notation and trailing zeros, everything else passes through trimmed.
func asText(s string) string {
	t := strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(t, 64); err == nil {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return t
}

// convertDateFormat rewrites "2025-8-3 00:00:00" style timestamps to the
// report's 2025年08月03日 form; other text passes through.
func convertDateFormat(s string) string {
	m := timestampPattern.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	month := m[2]
	if len(month) == 1 {
		month = "0" + month
	}
	day := m[3]
	if len(day) == 1 {
		day = "0" + day
	}
	return fmt.Sprintf("%s年%s月%s日", m[1], month, day)
}

// stripMice removes the redundant "mice" token from animal strain values.
func stripMice(s string) string {
	if !strings.Contains(strings.ToLower(s), "mice") {
		return s
	}
	return strings.TrimSpace(micePattern.ReplaceAllString(s, ""))
}

type kvPair struct {
	key   string
	value string
}

// UpdateSupplementInfo copies the project operation key/value block from the
// source workbook into the deliverable's detail sheet and records the
// experiment end days. The block starts at the row keyed 实验类型 and runs to
// the first fully blank pair. userEndDay overrides the sheet-derived end day
// when non-zero; the effective end day is returned.
func UpdateSupplementInfo(src, dst string, userEndDay int) (int, error) {
	srcF, err := OpenExcelFile(src)
	if err != nil {
		return 0, fmt.Errorf("failed to open source workbook: %w", err)
	}
	defer srcF.Close()

	rows, err := srcF.GetRows(SupplementSourceSheet)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrSheetNotFound, SupplementSourceSheet)
	}

	start := -1
	for r, row := range rows {
		if len(row) > 0 && strings.TrimSpace(row[0]) == supplementStartKey {
			start = r
			break
		}
	}
	if start == -1 {
		return 0, fmt.Errorf("row keyed %q not found on sheet %s", supplementStartKey, SupplementSourceSheet)
	}

	var pairs []kvPair
	for r := start; r < len(rows); r++ {
		key, value := "", ""
		if len(rows[r]) > 0 {
			key = strings.TrimSpace(rows[r][0])
		}
		if len(rows[r]) > 1 {
			value = rows[r][1]
		}
		if key == "" && strings.TrimSpace(value) == "" {
			break
		}
		if key != "" {
			pairs = append(pairs, kvPair{key: key, value: asText(value)})
		}
	}

	sheetEndDay := MaxEndDay(srcF)
	endDay := sheetEndDay
	if userEndDay != 0 {
		endDay = userEndDay
	}
	pairs = append(pairs,
		kvPair{key: endPointKey, value: strconv.Itoa(sheetEndDay)},
		kvPair{key: endDayKey, value: strconv.Itoa(endDay)},
	)

	dstF, err := OpenExcelFile(dst)
	if err != nil {
		return 0, fmt.Errorf("failed to open destination workbook: %w", err)
	}
	defer dstF.Close()

	dstRows, err := dstF.GetRows(SupplementDestSheet)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrSheetNotFound, SupplementDestSheet)
	}
	fieldRow := make(map[string]int, len(dstRows))
	for r, row := range dstRows {
		if len(row) > 0 && strings.TrimSpace(row[0]) != "" {
			fieldRow[strings.TrimSpace(row[0])] = r + 1
		}
	}

	next := len(dstRows) + 1
	for _, p := range pairs {
		row, ok := fieldRow[p.key]
		if !ok {
			row = next
			next++
			fieldRow[p.key] = row
			keyCell, _ := excelize.CoordinatesToCellName(1, row)
			if err := dstF.SetCellValue(SupplementDestSheet, keyCell, p.key); err != nil {
				return 0, err
			}
		}

		value := convertDateFormat(p.value)
		if p.key == strainKey {
			value = stripMice(value)
		}
		valueCell, _ := excelize.CoordinatesToCellName(2, row)
		if err := dstF.SetCellValue(SupplementDestSheet, valueCell, value); err != nil {
			return 0, err
		}
	}

	if err := dstF.SetColWidth(SupplementDestSheet, "A", "A", 20); err != nil {
		return 0, err
	}
	if err := dstF.SetColWidth(SupplementDestSheet, "B", "B", 40); err != nil {
		return 0, err
	}

	if err := dstF.SaveAs(dst); err != nil {
		return 0, err
	}
	return endDay, nil
}
