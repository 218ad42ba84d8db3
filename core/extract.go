package core

import (
	"fmt"
	"log/slog"
	"regexp"

	"oncotab/config"
	"oncotab/stats"
)

// Extractor turns one source workbook into the normalized report tables. Each
// Extract* method is independent: it locates its region, aggregates, runs the
// significance comparison and writes one summary sheet plus one raw-dump block
// into the destination workbook.
type Extractor struct {
	Tables   map[config.TableKind]config.TableConfig
	Design   config.DesignConfig
	Comparer stats.Comparer
	Log      *slog.Logger
}

// NewExtractor wires an extractor from a config bundle.
func NewExtractor(b *config.Bundle, cmp stats.Comparer, log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{Tables: b.Tables, Design: b.Design, Comparer: cmp, Log: log}
}

// groupResult carries everything extracted from one group block before the
// table rows are assembled.
type groupResult struct {
	label  string
	cells  map[string]string
	values []float64
}

// dash normalizes empty output fields to the report placeholder.
func dash(s string) string {
	if Norm(s) == "" {
		return "-"
	}
	return s
}

func parseCell(g *Grid, r, c int) *float64 {
	if r == 0 {
		return nil
	}
	if v, ok := ParseFloat(g.Resolve(r, c)); ok {
		return &v
	}
	return nil
}

// loadDataGrid opens the configured data sheet of the workbook as a grid.
func loadDataGrid(f ExcelFile, candidates []string) (*Grid, error) {
	sheet := FindSheet(f, candidates)
	if sheet == "" {
		return nil, fmt.Errorf("%w: candidates %v", ErrSheetNotFound, candidates)
	}
	return LoadGrid(f, sheet)
}

// loadDesignMapping maps group labels to treatment descriptions. A missing
// design sheet is not an error (the column renders as "-"); a present sheet
// with an unrecognizable header is.
func (e *Extractor) loadDesignMapping(f ExcelFile, candidates []string) (map[string]string, error) {
	sheet := FindSheet(f, candidates)
	if sheet == "" {
		return nil, nil
	}
	g, err := LoadGrid(f, sheet)
	if err != nil {
		return nil, err
	}
	return MapDesign(g, e.Design)
}

// significance runs the comparer over the collected observations and renders
// the annotation per group: empty for the control, the p-value alone for
// non-significant results, stars immediately followed by the p-value
// otherwise. A comparer failure marks every treatment group "-" and the table
// is still written.
func (e *Extractor) significance(results []groupResult, control string) map[string]string {
	annotated := make(map[string]string, len(results))
	var obs []stats.Observation
	for _, gr := range results {
		for _, v := range gr.values {
			obs = append(obs, stats.Observation{Group: gr.label, Value: v})
		}
	}
	if len(obs) == 0 || e.Comparer == nil {
		return annotated
	}

	comparisons, err := e.Comparer.Compare(obs, control)
	if err != nil {
		e.Log.Warn("significance comparison failed", "error", err)
		for _, gr := range results {
			if gr.label != control {
				annotated[gr.label] = "-"
			}
		}
		return annotated
	}
	for _, c := range comparisons {
		if c.Group == control {
			continue
		}
		if c.Stars == "ns" {
			annotated[c.Group] = c.PValue
		} else {
			annotated[c.Group] = c.Stars + c.PValue
		}
	}
	return annotated
}

// dayRegion is the located rectangle of a day-axis table plus its two key
// columns (group labels and statistic labels).
type dayRegion struct {
	g       *Grid
	blocks  []GroupBlock
	statCol int
	col0    int
	colN    int
}

// locateDayRegion runs the full location pipeline for the body-weight and
// tumor-volume tables: anchor, end column, end row, day map, group blocks.
func locateDayRegion(f ExcelFile, cfg config.TableConfig, endDay int) (*dayRegion, error) {
	g, err := loadDataGrid(f, cfg.DataSheets)
	if err != nil {
		return nil, err
	}
	r0, c0, err := FindAnchor(g, cfg.Anchors)
	if err != nil {
		return nil, err
	}
	endCol, err := FindEndColumn(g, r0, c0, cfg.Lookahead)
	if err != nil {
		return nil, err
	}
	endRow, err := FindEndRow(g, r0, c0, endCol, cfg.EndRowFallback)
	if err != nil {
		return nil, err
	}
	days, err := MapDays(g, r0, endRow, c0, endCol, endDay, cfg.DaysHeaders)
	if err != nil {
		return nil, err
	}
	pattern, err := regexp.Compile(cfg.GroupPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid group pattern %q: %w", cfg.GroupPattern, err)
	}
	blocks, err := SegmentGroups(g, r0, endRow, c0, pattern)
	if err != nil {
		return nil, err
	}
	return &dayRegion{
		g:       g,
		blocks:  blocks,
		statCol: c0 + 1,
		col0:    days[0],
		colN:    days[endDay],
	}, nil
}

// collectSeries gathers the individual animal values of one block at column
// col: the rows from the block start up to the row before the mean row (the
// whole block when no mean row exists). Values are rounded per the table's raw
// rounding policy before they feed the dump sheet and the comparer.
func collectSeries(g *Grid, block GroupBlock, meanRow, col int, rawDecimals *int) []float64 {
	last := block.EndRow
	if meanRow > 0 {
		last = meanRow - 1
	}
	var values []float64
	for r := block.StartRow; r <= last; r++ {
		v, ok := ParseFloat(g.Resolve(r, col))
		if !ok {
			continue
		}
		if rawDecimals != nil {
			v = RoundEps(v, *rawDecimals)
		}
		values = append(values, v)
	}
	return values
}

// writeTable writes the summary sheet and the raw-dump block and saves the
// destination workbook.
func writeTable(dst string, cfg config.TableConfig, header []string, rows [][]string, results []groupResult) error {
	f, created, err := openDestination(dst, cfg.RequireDest)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := WriteSummarySheet(f, cfg.OutSheet, header, rows); err != nil {
		return err
	}

	groups := make([]string, len(results))
	values := make(map[string][]float64, len(results))
	for i, gr := range results {
		groups[i] = gr.label
		values[gr.label] = gr.values
	}
	if err := AppendRawDump(f, cfg.RawDumpTitle, groups, values); err != nil {
		return err
	}

	if created {
		dropDefaultSheet(f)
	}
	return f.SaveAs(dst)
}

// ExtractBodyWeight builds the body-weight summary: per group the rounded
// day-0 and end-day mean±SD, the delta of the rounded means and the
// significance annotation of the end-day individual weights.
func (e *Extractor) ExtractBodyWeight(src, dst string, endDay int) error {
	cfg, ok := e.Tables[config.TableBodyWeight]
	if !ok {
		return fmt.Errorf("no table config for %s", config.TableBodyWeight)
	}
	f, err := OpenExcelFile(src)
	if err != nil {
		return fmt.Errorf("failed to open source workbook: %w", err)
	}
	defer f.Close()

	region, err := locateDayRegion(f, cfg, endDay)
	if err != nil {
		return err
	}
	mapping, err := e.loadDesignMapping(f, cfg.DesignSheets)
	if err != nil {
		return err
	}

	d := cfg.Decimals
	var results []groupResult
	for _, block := range region.blocks {
		meanRow := FindStatisticRow(region.g, block, region.statCol, cfg.MeanLabels, false)
		sdRow := FindStatisticRow(region.g, block, region.statCol, cfg.SDLabels, cfg.AcceptBareSD)

		m0 := parseCell(region.g, meanRow, region.col0)
		mN := parseCell(region.g, meanRow, region.colN)
		s0 := parseCell(region.g, sdRow, region.col0)
		sN := parseCell(region.g, sdRow, region.colN)

		// The delta compares the means as displayed, so round first.
		var delta *float64
		if m0 != nil && mN != nil {
			v := RoundEps(*mN, d) - RoundEps(*m0, d)
			delta = &v
		}

		results = append(results, groupResult{
			label: block.Label,
			cells: map[string]string{
				"分组天均值": FormatMeanSD(m0, s0, d),
				"结束天均值": FormatMeanSD(mN, sN, d),
				"差值":    FormatSigned(delta, d),
			},
			values: collectSeries(region.g, block, meanRow, region.colN, cfg.RawDecimals),
		})
	}

	pMap := e.significance(results, cfg.ControlGroup)
	header := []string{"组别", "受试品", "分组天均值", "结束天均值", "P值", "差值"}
	rows := make([][]string, len(results))
	for i, gr := range results {
		rows[i] = []string{
			dash(gr.label),
			dash(mapping[gr.label]),
			dash(gr.cells["分组天均值"]),
			dash(gr.cells["结束天均值"]),
			dash(pMap[gr.label]),
			dash(gr.cells["差值"]),
		}
	}
	return writeTable(dst, cfg, header, rows, results)
}

// ExtractTumorVolume builds the tumor-volume summary: integer mean±SD for day
// 0 and the end day, the growth-inhibition percentage from the source TGI row
// and the significance annotation of the end-day individual volumes. The
// clearance-ratio column is carried as a placeholder.
func (e *Extractor) ExtractTumorVolume(src, dst string, endDay int) error {
	cfg, ok := e.Tables[config.TableTumorVolume]
	if !ok {
		return fmt.Errorf("no table config for %s", config.TableTumorVolume)
	}
	f, err := OpenExcelFile(src)
	if err != nil {
		return fmt.Errorf("failed to open source workbook: %w", err)
	}
	defer f.Close()

	region, err := locateDayRegion(f, cfg, endDay)
	if err != nil {
		return err
	}
	mapping, err := e.loadDesignMapping(f, cfg.DesignSheets)
	if err != nil {
		return err
	}

	d := cfg.Decimals
	var results []groupResult
	for _, block := range region.blocks {
		meanRow := FindStatisticRow(region.g, block, region.statCol, cfg.MeanLabels, false)
		sdRow := FindStatisticRow(region.g, block, region.statCol, cfg.SDLabels, cfg.AcceptBareSD)
		tgiRow := FindStatisticRow(region.g, block, region.statCol, cfg.TGILabels, false)

		m0 := parseCell(region.g, meanRow, region.col0)
		mN := parseCell(region.g, meanRow, region.colN)
		s0 := parseCell(region.g, sdRow, region.col0)
		sN := parseCell(region.g, sdRow, region.colN)

		// TGI is stored as a ratio on the source sheet unless the cell is
		// percent-formatted; the report wants percent.
		tgi := ""
		if tgiRow > 0 && block.Label != cfg.ControlGroup {
			tgi = FormatTGI(region.g.Resolve(tgiRow, region.colN), cfg.TGIDecimals, false)
		}

		results = append(results, groupResult{
			label: block.Label,
			cells: map[string]string{
				"分组天均值": FormatMeanSD(m0, s0, d),
				"结束天均值": FormatMeanSD(mN, sN, d),
				"TGITV": tgi,
			},
			values: collectSeries(region.g, block, meanRow, region.colN, cfg.RawDecimals),
		})
	}

	pMap := e.significance(results, cfg.ControlGroup)
	header := []string{"组别", "受试品", "分组天均值", "结束天均值", "TGITV", "P值", "肿瘤清除比例"}
	rows := make([][]string, len(results))
	for i, gr := range results {
		rows[i] = []string{
			dash(gr.label),
			dash(mapping[gr.label]),
			dash(gr.cells["分组天均值"]),
			dash(gr.cells["结束天均值"]),
			dash(gr.cells["TGITV"]),
			dash(pMap[gr.label]),
			"-",
		}
	}
	return writeTable(dst, cfg, header, rows, results)
}

// ExtractTumorWeight builds the tumor-weight summary from the sample
// collection sheet. That sheet has no day axis: the weight column sits one
// left of the "Tumor" header (falling back to the header column itself when
// the left neighbor is not numeric), group labels in the first column and
// statistic labels in the second.
func (e *Extractor) ExtractTumorWeight(src, dst string) error {
	cfg, ok := e.Tables[config.TableTumorWeight]
	if !ok {
		return fmt.Errorf("no table config for %s", config.TableTumorWeight)
	}
	f, err := OpenExcelFile(src)
	if err != nil {
		return fmt.Errorf("failed to open source workbook: %w", err)
	}
	defer f.Close()

	g, err := loadDataGrid(f, cfg.DataSheets)
	if err != nil {
		return err
	}
	mapping, err := e.loadDesignMapping(f, cfg.DesignSheets)
	if err != nil {
		return err
	}

	dataCol, err := findWeightColumn(g, cfg.Anchors)
	if err != nil {
		return err
	}
	pattern, err := regexp.Compile(cfg.GroupPattern)
	if err != nil {
		return fmt.Errorf("invalid group pattern %q: %w", cfg.GroupPattern, err)
	}
	blocks, err := SegmentGroups(g, 1, g.MaxRow(), 1, pattern)
	if err != nil {
		return err
	}

	const statCol = 2
	var results []groupResult
	for _, block := range blocks {
		meanRow := FindStatisticRow(g, block, statCol, cfg.MeanLabels, false)
		sdRow := FindStatisticRow(g, block, statCol, cfg.SDLabels, cfg.AcceptBareSD)
		tgiRow := FindStatisticRow(g, block, statCol, cfg.TGILabels, false)

		m := parseCell(g, meanRow, dataCol)
		sd := parseCell(g, sdRow, dataCol)

		// The collection sheet mixes ratio and percent entries in the TGI row.
		tgi := ""
		if tgiRow > 0 && block.Label != cfg.ControlGroup {
			tgi = FormatTGI(g.Resolve(tgiRow, dataCol), cfg.TGIDecimals, true)
		}

		results = append(results, groupResult{
			label: block.Label,
			cells: map[string]string{
				"瘤重":    FormatMeanSD(m, sd, cfg.Decimals),
				"TGITW": tgi,
			},
			values: collectSeries(g, block, meanRow, dataCol, cfg.RawDecimals),
		})
	}

	pMap := e.significance(results, cfg.ControlGroup)
	header := []string{"组别", "受试品", "瘤重", "TGITW", "P值"}
	rows := make([][]string, len(results))
	for i, gr := range results {
		rows[i] = []string{
			dash(gr.label),
			dash(mapping[gr.label]),
			dash(gr.cells["瘤重"]),
			dash(gr.cells["TGITW"]),
			dash(pMap[gr.label]),
		}
	}
	return writeTable(dst, cfg, header, rows, results)
}

// findWeightColumn locates the tumor header inside the top-left 50x50 window
// and picks the data column next to it.
func findWeightColumn(g *Grid, anchors []string) (int, error) {
	tumorCol := 0
	maxR := min(50, g.MaxRow())
	maxC := min(50, g.MaxCol())
	for r := 1; r <= maxR && tumorCol == 0; r++ {
		for c := 1; c <= maxC; c++ {
			if ContainsAny(g.Resolve(r, c), anchors) {
				tumorCol = c
				break
			}
		}
	}
	if tumorCol == 0 {
		return 0, fmt.Errorf("%w: candidates %v", ErrAnchorNotFound, anchors)
	}

	dataCol := tumorCol
	if tumorCol > 1 {
		dataCol = tumorCol - 1
	}
	if !seemsNumericColumn(g, dataCol) && seemsNumericColumn(g, tumorCol) {
		dataCol = tumorCol
	}
	return dataCol, nil
}

// seemsNumericColumn reports whether a column holds at least three parseable
// values in its first 40 rows.
func seemsNumericColumn(g *Grid, col int) bool {
	count := 0
	last := min(40, g.MaxRow())
	for r := 1; r <= last; r++ {
		if _, ok := ParseFloat(g.Resolve(r, col)); ok {
			count++
			if count >= 3 {
				return true
			}
		}
	}
	return false
}
