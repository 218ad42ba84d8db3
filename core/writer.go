package core

import (
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/samber/lo"
	"github.com/xuri/excelize/v2"
)

// RawDumpSheet collects per-group raw observations for external plotting.
// Unlike the summary sheets it is additive: every extraction appends a new
// block below the previous ones.
const RawDumpSheet = "GraphPad使用"

const (
	summaryWidthPad = 6
	summaryWidthMax = 50
	dumpWidthPad    = 3
	dumpWidthMax    = 30
)

// openDestination opens the destination workbook, creating it when allowed.
// The returned flag reports whether a brand-new workbook (still carrying the
// default Sheet1) was created.
func openDestination(path string, requireExists bool) (ExcelFile, bool, error) {
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, false, err
		}
		if requireExists {
			return nil, false, fmt.Errorf("destination workbook does not exist: %s", path)
		}
		return NewExcelFile(), true, nil
	}
	f, err := OpenExcelFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open destination workbook: %w", err)
	}
	return f, false, nil
}

// WriteSummarySheet replaces sheet with a fresh one containing the header row
// and data rows, then sizes columns to content. Full overwrite semantics: any
// prior sheet of the same name is removed first.
func WriteSummarySheet(f ExcelFile, sheet string, header []string, rows [][]string) error {
	if idx, err := f.GetSheetIndex(sheet); err == nil && idx != -1 {
		if err := f.DeleteSheet(sheet); err != nil {
			return fmt.Errorf("failed to replace sheet %s: %w", sheet, err)
		}
	}
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	for c, name := range header {
		cell, _ := excelize.CoordinatesToCellName(c+1, 1)
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return err
		}
	}
	for r, row := range rows {
		for c, value := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}

	widths := make([]int, len(header))
	for c, name := range header {
		widths[c] = utf8.RuneCountInString(name)
	}
	for _, row := range rows {
		for c, value := range row {
			if c < len(widths) {
				widths[c] = max(widths[c], utf8.RuneCountInString(value))
			}
		}
	}
	for c, w := range widths {
		name, _ := excelize.ColumnNumberToName(c + 1)
		if err := f.SetColWidth(sheet, name, name, float64(min(w+summaryWidthPad, summaryWidthMax))); err != nil {
			return err
		}
	}
	return nil
}

// AppendRawDump appends one block to the raw-value dump sheet: a title row, a
// group-name header row, then each group's observations listed down its own
// column. A blank row separates blocks; prior content is never touched.
func AppendRawDump(f ExcelFile, title string, groups []string, values map[string][]float64) error {
	startRow := 1
	if idx, err := f.GetSheetIndex(RawDumpSheet); err == nil && idx != -1 {
		rows, err := f.GetRows(RawDumpSheet)
		if err != nil {
			return err
		}
		last := 0
		for r, row := range rows {
			for _, cell := range row {
				if Norm(cell) != "" {
					last = r + 1
					break
				}
			}
		}
		startRow = last + 2
	} else if _, err := f.NewSheet(RawDumpSheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", RawDumpSheet, err)
	}

	cell, _ := excelize.CoordinatesToCellName(1, startRow)
	if err := f.SetCellValue(RawDumpSheet, cell, title); err != nil {
		return err
	}
	for c, group := range groups {
		cell, _ := excelize.CoordinatesToCellName(c+1, startRow+1)
		if err := f.SetCellValue(RawDumpSheet, cell, group); err != nil {
			return err
		}
		for r, v := range values[group] {
			cell, _ := excelize.CoordinatesToCellName(c+1, startRow+2+r)
			if err := f.SetCellValue(RawDumpSheet, cell, v); err != nil {
				return err
			}
		}
	}

	widths := lo.Map(groups, func(group string, _ int) int {
		w := utf8.RuneCountInString(group)
		for _, v := range values[group] {
			w = max(w, len(fmt.Sprintf("%v", v)))
		}
		return w
	})
	w := utf8.RuneCountInString(title)
	if len(widths) > 0 {
		widths[0] = max(widths[0], w)
	}
	for c, w := range widths {
		name, _ := excelize.ColumnNumberToName(c + 1)
		if err := f.SetColWidth(RawDumpSheet, name, name, float64(min(w+dumpWidthPad, dumpWidthMax))); err != nil {
			return err
		}
	}
	return nil
}

// dropDefaultSheet removes the placeholder sheet of a freshly created
// workbook once real sheets exist.
func dropDefaultSheet(f ExcelFile) {
	if idx, err := f.GetSheetIndex("Sheet1"); err == nil && idx != -1 {
		if len(f.GetSheetList()) > 1 {
			_ = f.DeleteSheet("Sheet1")
		}
	}
}
