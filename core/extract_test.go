package core

import (
	"errors"
	"path/filepath"
	"testing"

	"oncotab/config"
	"oncotab/stats"
)

// stubComparer returns canned comparisons so extraction tests do not depend
// on the statistics package.
type stubComparer struct {
	res []stats.Comparison
	err error
}

func (s stubComparer) Compare(obs []stats.Observation, control string) ([]stats.Comparison, error) {
	return s.res, s.err
}

func setCells(t *testing.T, f ExcelFile, sheet string, cells map[string]interface{}) {
	t.Helper()
	if _, err := f.NewSheet(sheet); err != nil {
		t.Fatalf("NewSheet %s: %v", sheet, err)
	}
	for cell, v := range cells {
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			t.Fatalf("SetCellValue %s!%s: %v", sheet, cell, err)
		}
	}
}

// buildStudyWorkbook writes a compact study workbook: the summary sheet
// carries the body-weight region (rows 1-13) and below it the tumor-volume
// region running to the last row, the collection sheet carries the
// tumor-weight table and the design sheet maps both groups.
func buildStudyWorkbook(t *testing.T, path string) {
	t.Helper()
	f := NewExcelFile()
	defer f.Close()

	setCells(t, f, "实验数据汇总", map[string]interface{}{
		// Body weight.
		"A1": "实验动物体重（克）",
		"B2": "分组后天数",
		"C3": 0, "D3": 7, "E3": 14,
		"A4": "G1", "B4": 1, "C4": 20.1, "D4": 20.3, "E4": 20.14,
		"B5": 2, "C5": 19.9, "D5": 20.0, "E5": 19.87,
		"B6": "均数", "C6": 20.05, "D6": 20.15, "E6": 20.32,
		"B7": "标准误", "C7": 0.35, "D7": 0.41, "E7": 0.52,
		"A8": "G2", "B8": 1, "C8": 19.8, "D8": 20.6, "E8": 21.52,
		"B9": 2, "C9": 19.7, "D9": 20.9, "E9": 21.68,
		"B10": "均数", "C10": 19.80, "D10": 20.75, "E10": 21.60,
		"B11": "SD", "C11": 0.41, "D11": 0.47, "E11": 0.55,
		// The remark row keeps the used range one column wider than the data,
		// giving the boundary scan an empty column to find.
		"A13": "备注", "F13": "见原始记录",
		// Tumor volume, terminated by the sheet edge instead of a blank row.
		"A15": "实验动物荷瘤体积(mm3)",
		"B16": "分组后天数",
		"C17": 0, "D17": 7, "E17": 14,
		"A18": "G1", "B18": 1, "C18": 150.2, "D18": 820.4, "E18": 1540.2,
		"B19": 2, "C19": 154.6, "D19": 845.1, "E19": 1620.8,
		"B20": "均数", "C20": 152.4, "D20": 832.8, "E20": 1580.5,
		"B21": "标准误", "C21": 12.8, "D21": 95.2, "E21": 210.3,
		"B22": "TGITV",
		"A23": "G2", "B23": 1, "C23": 148.9, "D23": 410.3, "E23": 745.5,
		"B24": 2, "C24": 150.7, "D24": 402.8, "E24": 774.9,
		"B25": "均数", "C25": 149.8, "D25": 406.6, "E25": 760.2,
		"B26": "标准误", "C26": 10.1, "D26": 88.4, "E26": 120.7,
		"B27": "TGITV", "E27": 0.519,
	})
	setCells(t, f, "样品收集方案", map[string]interface{}{
		"A1": "组别", "B1": "编号", "C1": "瘤重(g)", "D1": "肿瘤（g）",
		"A2": "G1", "B2": 1, "C2": 0.851,
		"B3": 2, "C3": 0.792,
		"B4": "均数", "C4": 0.8215,
		"B5": "标准误", "C5": 0.0417,
		"A6": "G2", "B6": 1, "C6": 0.412,
		"B7": 2, "C7": 0.388,
		"B8": "均数", "C8": 0.4,
		"B9": "标准误", "C9": 0.017,
		"B10": "TGITW", "C10": "51.3%",
	})
	setCells(t, f, "实验设计", map[string]interface{}{
		"A1": "组别", "B1": "处理方式", "C1": "剂量",
		"A2": "G1", "B2": "Vehicle",
		"A3": "G2", "B3": "DrugA", "C3": "10 mg/kg",
	})

	dropDefaultSheet(f)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save study workbook: %v", err)
	}
}

func newTestExtractor(cmp stats.Comparer) *Extractor {
	return NewExtractor(config.DefaultBundle(), cmp, nil)
}

func readSheet(t *testing.T, path, sheet string) [][]string {
	t.Helper()
	f, err := OpenExcelFile(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("GetRows %s: %v", sheet, err)
	}
	return rows
}

func assertRow(t *testing.T, got, want []string, label string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: row = %v, want %v", label, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%s: col %d = %q, want %q", label, i+1, got[i], want[i])
		}
	}
}

func TestExtractBodyWeight(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "study.xlsx")
	dst := filepath.Join(dir, "detail.xlsx")
	buildStudyWorkbook(t, src)

	df := NewExcelFile()
	if err := df.SaveAs(dst); err != nil {
		t.Fatalf("save dest: %v", err)
	}
	df.Close()

	e := newTestExtractor(stubComparer{res: []stats.Comparison{
		{Group: "G2", Stars: "*", PValue: "0.0321"},
	}})
	if err := e.ExtractBodyWeight(src, dst, 14); err != nil {
		t.Fatalf("ExtractBodyWeight: %v", err)
	}

	rows := readSheet(t, dst, "form_7_1")
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	assertRow(t, rows[0], []string{"组别", "受试品", "分组天均值", "结束天均值", "P值", "差值"}, "header")
	assertRow(t, rows[1], []string{"G1", "Vehicle", "20.1±0.4", "20.3±0.5", "-", "+ 0.2"}, "G1")
	assertRow(t, rows[2], []string{"G2", "DrugA(10 mg/kg)", "19.8±0.4", "21.6±0.6", "*0.0321", "+ 1.8"}, "G2")

	// Raw end-day values, rounded to one decimal, land in the dump sheet.
	dump := readSheet(t, dst, RawDumpSheet)
	if dump[0][0] != "7-1实验动物体重数据" {
		t.Errorf("dump title = %v", dump[0])
	}
	assertRow(t, dump[1], []string{"G1", "G2"}, "dump header")
	assertRow(t, dump[2], []string{"20.1", "21.5"}, "dump row 1")
	assertRow(t, dump[3], []string{"19.9", "21.7"}, "dump row 2")
}

func TestExtractBodyWeightRequiresDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "study.xlsx")
	buildStudyWorkbook(t, src)

	e := newTestExtractor(stubComparer{})
	err := e.ExtractBodyWeight(src, filepath.Join(dir, "missing.xlsx"), 14)
	if err == nil {
		t.Fatal("expected error for a missing destination workbook")
	}
}

func TestExtractBodyWeightMissingEndDay(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "study.xlsx")
	dst := filepath.Join(dir, "detail.xlsx")
	buildStudyWorkbook(t, src)

	df := NewExcelFile()
	if err := df.SaveAs(dst); err != nil {
		t.Fatalf("save dest: %v", err)
	}
	df.Close()

	e := newTestExtractor(stubComparer{})
	if err := e.ExtractBodyWeight(src, dst, 21); !errors.Is(err, ErrDayNotFound) {
		t.Fatalf("error = %v, want ErrDayNotFound", err)
	}
}

func TestExtractTumorVolume(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "study.xlsx")
	dst := filepath.Join(dir, "detail.xlsx")
	buildStudyWorkbook(t, src)

	e := newTestExtractor(stubComparer{res: []stats.Comparison{
		{Group: "G2", Stars: "****", PValue: "<0.0001"},
	}})
	// The destination does not exist yet; this table is allowed to create it.
	if err := e.ExtractTumorVolume(src, dst, 14); err != nil {
		t.Fatalf("ExtractTumorVolume: %v", err)
	}

	rows := readSheet(t, dst, "form_7_2")
	assertRow(t, rows[0], []string{"组别", "受试品", "分组天均值", "结束天均值", "TGITV", "P值", "肿瘤清除比例"}, "header")
	assertRow(t, rows[1], []string{"G1", "Vehicle", "152±13", "1581±210", "-", "-", "-"}, "G1")
	assertRow(t, rows[2], []string{"G2", "DrugA(10 mg/kg)", "150±10", "760±121", "51.9", "****<0.0001", "-"}, "G2")

	// Individual volumes are rounded to integers for the dump and comparer.
	dump := readSheet(t, dst, RawDumpSheet)
	assertRow(t, dump[2], []string{"1540", "746"}, "dump row 1")
	assertRow(t, dump[3], []string{"1621", "775"}, "dump row 2")
}

func TestExtractTumorWeight(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "study.xlsx")
	dst := filepath.Join(dir, "detail.xlsx")
	buildStudyWorkbook(t, src)

	e := newTestExtractor(stubComparer{res: []stats.Comparison{
		{Group: "G2", Stars: "ns", PValue: "0.0712"},
	}})
	if err := e.ExtractTumorWeight(src, dst); err != nil {
		t.Fatalf("ExtractTumorWeight: %v", err)
	}

	rows := readSheet(t, dst, "form_7_3")
	assertRow(t, rows[0], []string{"组别", "受试品", "瘤重", "TGITW", "P值"}, "header")
	assertRow(t, rows[1], []string{"G1", "Vehicle", "0.822±0.042", "-", "-"}, "G1")
	// A non-significant comparison annotates with the p-value alone.
	assertRow(t, rows[2], []string{"G2", "DrugA(10 mg/kg)", "0.400±0.017", "51.3", "0.0712"}, "G2")
}

func TestExtractComparerFailureStillWrites(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "study.xlsx")
	dst := filepath.Join(dir, "detail.xlsx")
	buildStudyWorkbook(t, src)

	e := newTestExtractor(stubComparer{err: errors.New("singular model")})
	if err := e.ExtractTumorWeight(src, dst); err != nil {
		t.Fatalf("ExtractTumorWeight: %v", err)
	}

	rows := readSheet(t, dst, "form_7_3")
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	// Control stays "-"; treatment groups mark the failed comparison.
	if rows[1][4] != "-" || rows[2][4] != "-" {
		t.Errorf("p cells = %q/%q, want dashes", rows[1][4], rows[2][4])
	}
	// The rest of the table is intact.
	if rows[2][2] != "0.400±0.017" {
		t.Errorf("mean cell = %q, want %q", rows[2][2], "0.400±0.017")
	}
}
