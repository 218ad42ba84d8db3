package core

import (
	"path/filepath"
	"testing"
)

func TestMaxEndDay(t *testing.T) {
	f := NewExcelFile()
	defer f.Close()
	for _, name := range []string{"项目操作信息", "分组后第7天", "分组后第14天", "实验设计"} {
		if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("NewSheet %s: %v", name, err)
		}
	}
	if got := MaxEndDay(f); got != 14 {
		t.Errorf("MaxEndDay = %d, want 14", got)
	}

	g := NewExcelFile()
	defer g.Close()
	if got := MaxEndDay(g); got != 0 {
		t.Errorf("MaxEndDay without day sheets = %d, want 0", got)
	}
}

func TestAsText(t *testing.T) {
	tests := []struct{ in, want string }{
		{"40.0", "40"},
		{"2.5E+07", "25000000"},
		{"1.50", "1.5"},
		{"药效", "药效"},
		{" BALB/c ", "BALB/c"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := asText(tt.in); got != tt.want {
			t.Errorf("asText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestConvertDateFormat(t *testing.T) {
	tests := []struct{ in, want string }{
		{"2025-8-3 00:00:00", "2025年08月03日"},
		{"2025-12-25 10:30:00", "2025年12月25日"},
		{"2025-8-3", "2025-8-3"}, // no time part, left alone
		{"药效", "药效"},
	}
	for _, tt := range tests {
		if got := convertDateFormat(tt.in); got != tt.want {
			t.Errorf("convertDateFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStripMice(t *testing.T) {
	tests := []struct{ in, want string }{
		{"BALB/c mice", "BALB/c"},
		{"C57BL/6 Mice (SPF)", "C57BL/6(SPF)"},
		{"BALB/c", "BALB/c"},
	}
	for _, tt := range tests {
		if got := stripMice(tt.in); got != tt.want {
			t.Errorf("stripMice(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUpdateSupplementInfo(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.xlsx")
	dst := filepath.Join(dir, "detail.xlsx")

	sf := NewExcelFile()
	if _, err := sf.NewSheet(SupplementSourceSheet); err != nil {
		t.Fatalf("NewSheet: %v", err)
	}
	srcCells := map[string]interface{}{
		"A1": "项目编号", "B1": "25P080002",
		"A2": "实验类型", "B2": "药效",
		"A3": "开始日期", "B3": "2025-8-3 00:00:00",
		"A4": "实验动物品系", "B4": "BALB/c mice",
		"A5": "动物数量", "B5": "40.0",
		"A8": "归档编号", "B8": "X-9", // below the blank pair, never copied
	}
	for cell, v := range srcCells {
		if err := sf.SetCellValue(SupplementSourceSheet, cell, v); err != nil {
			t.Fatalf("SetCellValue: %v", err)
		}
	}
	for _, name := range []string{"分组后第7天", "分组后第14天"} {
		if _, err := sf.NewSheet(name); err != nil {
			t.Fatalf("NewSheet: %v", err)
		}
	}
	if err := sf.SaveAs(src); err != nil {
		t.Fatalf("save source: %v", err)
	}
	sf.Close()

	df := NewExcelFile()
	if _, err := df.NewSheet(SupplementDestSheet); err != nil {
		t.Fatalf("NewSheet: %v", err)
	}
	if err := df.SetCellValue(SupplementDestSheet, "A1", "实验类型"); err != nil {
		t.Fatalf("SetCellValue: %v", err)
	}
	if err := df.SetCellValue(SupplementDestSheet, "B1", "待定"); err != nil {
		t.Fatalf("SetCellValue: %v", err)
	}
	if err := df.SaveAs(dst); err != nil {
		t.Fatalf("save dest: %v", err)
	}
	df.Close()

	endDay, err := UpdateSupplementInfo(src, dst, 0)
	if err != nil {
		t.Fatalf("UpdateSupplementInfo: %v", err)
	}
	if endDay != 14 {
		t.Errorf("endDay = %d, want 14 (derived from sheet names)", endDay)
	}

	out, err := OpenExcelFile(dst)
	if err != nil {
		t.Fatalf("open dest: %v", err)
	}
	defer out.Close()
	rows, err := out.GetRows(SupplementDestSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}

	got := make(map[string]string, len(rows))
	for _, row := range rows {
		if len(row) > 1 {
			got[row[0]] = row[1]
		}
	}
	want := map[string]string{
		"实验类型":   "药效", // existing row updated in place
		"开始日期":   "2025年08月03日",
		"实验动物品系": "BALB/c",
		"动物数量":   "40",
		"实验终点天":  "14",
		"结束天":    "14",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("detail[%s] = %q, want %q", k, got[k], v)
		}
	}
	if _, ok := got["归档编号"]; ok {
		t.Error("keys below the blank pair must not be copied")
	}
	if _, ok := got["项目编号"]; ok {
		t.Error("keys above the start row must not be copied")
	}
}

func TestUpdateSupplementInfoUserOverride(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.xlsx")
	dst := filepath.Join(dir, "detail.xlsx")

	sf := NewExcelFile()
	if _, err := sf.NewSheet(SupplementSourceSheet); err != nil {
		t.Fatalf("NewSheet: %v", err)
	}
	if err := sf.SetCellValue(SupplementSourceSheet, "A1", "实验类型"); err != nil {
		t.Fatalf("SetCellValue: %v", err)
	}
	if err := sf.SetCellValue(SupplementSourceSheet, "B1", "药效"); err != nil {
		t.Fatalf("SetCellValue: %v", err)
	}
	if _, err := sf.NewSheet("分组后第21天"); err != nil {
		t.Fatalf("NewSheet: %v", err)
	}
	if err := sf.SaveAs(src); err != nil {
		t.Fatalf("save source: %v", err)
	}
	sf.Close()

	df := NewExcelFile()
	if _, err := df.NewSheet(SupplementDestSheet); err != nil {
		t.Fatalf("NewSheet: %v", err)
	}
	if err := df.SaveAs(dst); err != nil {
		t.Fatalf("save dest: %v", err)
	}
	df.Close()

	endDay, err := UpdateSupplementInfo(src, dst, 10)
	if err != nil {
		t.Fatalf("UpdateSupplementInfo: %v", err)
	}
	if endDay != 10 {
		t.Errorf("endDay = %d, want the user override 10", endDay)
	}

	out, err := OpenExcelFile(dst)
	if err != nil {
		t.Fatalf("open dest: %v", err)
	}
	defer out.Close()
	if v, _ := out.GetCellValue(SupplementDestSheet, "B2"); v != "21" {
		t.Errorf("实验终点天 = %q, want %q (sheet-derived, not the override)", v, "21")
	}
	if v, _ := out.GetCellValue(SupplementDestSheet, "B3"); v != "10" {
		t.Errorf("结束天 = %q, want %q", v, "10")
	}
}
