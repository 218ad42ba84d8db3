package core

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/xuri/excelize/v2"
)

// Detail-sheet fields assembled from the generated report tables.
const (
	combinedTGIVolumeKey = "TGITV组合"
	combinedTGIWeightKey = "TGITW组合"
	groupingVolumeKey    = "实际分组时肿瘤体积"
	controlVolumeKey     = "对照组平均肿瘤体积"
	treatedVolumeKey     = "受试组肿瘤体积"

	// noDataValue marks a field whose source table or column is absent.
	noDataValue = "无数据"
)

var (
	groupDigitsPattern   = regexp.MustCompile(`\d+`)
	leadingNumberPattern = regexp.MustCompile(`^[+-]?\d*\.?\d+`)
)

// groupOrder sorts group labels by their numeric suffix (G2 before G10);
// labels without digits sink to the end.
func groupOrder(label string) int {
	if m := groupDigitsPattern.FindString(label); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			return n
		}
	}
	return 999999
}

// findHeaderColumn returns the 0-based index of the first header cell
// containing key, -1 when none does.
func findHeaderColumn(header []string, key string) int {
	key = strings.ToLower(key)
	for c, cell := range header {
		if strings.Contains(strings.ToLower(Norm(cell)), key) {
			return c
		}
	}
	return -1
}

func cellAt(row []string, c int) string {
	if c < 0 || c >= len(row) {
		return ""
	}
	return row[c]
}

// narrativeOptions shape one combined field: percent suffixes the values with
// "%", unit appends a measurement unit, middle replaces the default "分别为"
// connective between the group list and the values.
type narrativeOptions struct {
	percent bool
	unit    string
	middle  string
}

// groupNarrative renders one sentence from a generated report sheet: the
// treatment groups in numeric order followed by their values from the named
// column. More than four groups elide to the first three and the last. Any
// missing structure renders the no-data marker, never an error.
func groupNarrative(f ExcelFile, sheet, valueHeader, control string, opts narrativeOptions) string {
	rows, err := f.GetRows(sheet)
	if err != nil || len(rows) < 2 {
		return noDataValue
	}
	gCol := findHeaderColumn(rows[0], "组别")
	vCol := findHeaderColumn(rows[0], valueHeader)
	if gCol < 0 || vCol < 0 {
		return noDataValue
	}

	type entry struct {
		group string
		value string
	}
	var entries []entry
	for _, row := range rows[1:] {
		g := strings.TrimSpace(cellAt(row, gCol))
		v := strings.TrimSpace(cellAt(row, vCol))
		if g == "" || v == "" || g == control {
			continue
		}
		entries = append(entries, entry{group: g, value: v})
	}
	if len(entries) == 0 {
		return noDataValue
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return groupOrder(entries[i].group) < groupOrder(entries[j].group)
	})

	groups := lo.Map(entries, func(e entry, _ int) string { return e.group })
	values := lo.Map(entries, func(e entry, _ int) string { return e.value })

	display := strings.Join(groups, "、")
	if len(groups) > 4 {
		display = strings.Join(groups[:3], "、") + "......." + groups[len(groups)-1]
	}
	switch {
	case opts.percent:
		values = lo.Map(values, func(v string, _ int) string { return v + "%" })
	case opts.unit != "":
		values = lo.Map(values, func(v string, _ int) string { return v + " " + opts.unit })
	}
	joined := strings.Join(values, "、")

	if opts.middle != "" {
		return display + "组" + opts.middle + ":" + joined
	}
	return display + "组分别为:" + joined
}

// controlCellValue returns the control group's cell from the named column of
// a generated report sheet. numericPrefix reduces a compound cell like
// "152±13" to its leading number.
func controlCellValue(f ExcelFile, sheet, valueHeader, control string, numericPrefix bool) string {
	rows, err := f.GetRows(sheet)
	if err != nil || len(rows) < 2 {
		return noDataValue
	}
	gCol := findHeaderColumn(rows[0], "组别")
	vCol := findHeaderColumn(rows[0], valueHeader)
	if gCol < 0 || vCol < 0 {
		return noDataValue
	}
	for _, row := range rows[1:] {
		if strings.TrimSpace(cellAt(row, gCol)) != control {
			continue
		}
		v := strings.TrimSpace(cellAt(row, vCol))
		if v == "" {
			return noDataValue
		}
		if numericPrefix {
			if m := leadingNumberPattern.FindString(v); m != "" {
				return m
			}
			return noDataValue
		}
		return v
	}
	return noDataValue
}

// UpdateCombinedInfo assembles the narrative detail fields from the generated
// tumor-volume and tumor-weight sheets of the deliverable and upserts them
// into the detail sheet. It runs after the table extractions; tables that
// failed to generate simply yield no-data fields.
func UpdateCombinedInfo(dst, volumeSheet, weightSheet, control string) error {
	f, err := OpenExcelFile(dst)
	if err != nil {
		return fmt.Errorf("failed to open destination workbook: %w", err)
	}
	defer f.Close()

	fields := []kvPair{
		{key: combinedTGIVolumeKey, value: groupNarrative(f, volumeSheet, "TGITV", control, narrativeOptions{percent: true})},
		{key: combinedTGIWeightKey, value: groupNarrative(f, weightSheet, "TGITW", control, narrativeOptions{percent: true})},
		{key: groupingVolumeKey, value: controlCellValue(f, volumeSheet, "分组天均值", control, true)},
		{key: controlVolumeKey, value: controlCellValue(f, volumeSheet, "结束天均值", control, false)},
		{key: treatedVolumeKey, value: groupNarrative(f, volumeSheet, "结束天均值", control, narrativeOptions{unit: "mm³", middle: "的受试品在相应剂量下的平均肿瘤体积为"})},
	}

	rows, err := f.GetRows(SupplementDestSheet)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrSheetNotFound, SupplementDestSheet)
	}
	fieldRow := make(map[string]int, len(rows))
	for r, row := range rows {
		if len(row) > 0 && strings.TrimSpace(row[0]) != "" {
			fieldRow[strings.TrimSpace(row[0])] = r + 1
		}
	}

	next := len(rows) + 1
	for _, p := range fields {
		row, ok := fieldRow[p.key]
		if !ok {
			row = next
			next++
			fieldRow[p.key] = row
			keyCell, _ := excelize.CoordinatesToCellName(1, row)
			if err := f.SetCellValue(SupplementDestSheet, keyCell, p.key); err != nil {
				return err
			}
		}
		valueCell, _ := excelize.CoordinatesToCellName(2, row)
		if err := f.SetCellValue(SupplementDestSheet, valueCell, p.value); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(SupplementDestSheet, "A", "A", 20); err != nil {
		return err
	}
	if err := f.SetColWidth(SupplementDestSheet, "B", "B", 50); err != nil {
		return err
	}
	return f.SaveAs(dst)
}
