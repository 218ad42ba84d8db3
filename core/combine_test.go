package core

import (
	"path/filepath"
	"strings"
	"testing"
)

// buildReportWorkbook writes a deliverable that already carries the generated
// tumor-volume and tumor-weight sheets plus a detail sheet with one stale
// narrative field.
func buildReportWorkbook(t *testing.T, path string) {
	t.Helper()
	f := NewExcelFile()
	defer f.Close()

	setCells(t, f, "明细", map[string]interface{}{
		"A1": "项目编号", "B1": "25P080002",
		"A2": combinedTGIVolumeKey, "B2": "旧值",
	})
	setCells(t, f, "form_7_2", map[string]interface{}{
		"A1": "组别", "B1": "受试品", "C1": "分组天均值", "D1": "结束天均值", "E1": "TGITV", "F1": "P值", "G1": "肿瘤清除比例",
		"A2": "G1", "B2": "Vehicle", "C2": "152±13", "D2": "1581±210", "E2": "-", "F2": "-", "G2": "-",
		// G10 before G2 on the sheet; the narrative must reorder numerically.
		"A3": "G10", "B3": "DrugB(20 mg/kg)", "C3": "149±11", "D3": "602±98", "E3": "63.2", "F3": "****<0.0001", "G3": "-",
		"A4": "G2", "B4": "DrugA(10 mg/kg)", "C4": "150±10", "D4": "760±121", "E4": "51.9", "F4": "****<0.0001", "G4": "-",
	})
	setCells(t, f, "form_7_3", map[string]interface{}{
		"A1": "组别", "B1": "受试品", "C1": "瘤重", "D1": "TGITW", "E1": "P值",
		"A2": "G1", "B2": "Vehicle", "C2": "0.822±0.042", "D2": "-", "E2": "-",
		"A3": "G2", "B3": "DrugA(10 mg/kg)", "C3": "0.400±0.017", "D3": "51.3", "E3": "0.0712",
	})

	dropDefaultSheet(f)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save report workbook: %v", err)
	}
}

func detailFields(t *testing.T, path string) map[string]string {
	t.Helper()
	rows := readSheet(t, path, SupplementDestSheet)
	fields := make(map[string]string, len(rows))
	for _, row := range rows {
		if len(row) > 1 {
			fields[row[0]] = row[1]
		}
	}
	return fields
}

func TestUpdateCombinedInfo(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "detail.xlsx")
	buildReportWorkbook(t, dst)

	if err := UpdateCombinedInfo(dst, "form_7_2", "form_7_3", "G1"); err != nil {
		t.Fatalf("UpdateCombinedInfo: %v", err)
	}

	fields := detailFields(t, dst)
	tests := []struct {
		key  string
		want string
	}{
		{combinedTGIVolumeKey, "G2、G10组分别为:51.9%、63.2%"},
		{combinedTGIWeightKey, "G2组分别为:51.3%"},
		{groupingVolumeKey, "152"},
		{controlVolumeKey, "1581±210"},
		{treatedVolumeKey, "G2、G10组的受试品在相应剂量下的平均肿瘤体积为:760±121 mm³、602±98 mm³"},
	}
	for _, tt := range tests {
		if fields[tt.key] != tt.want {
			t.Errorf("%s = %q, want %q", tt.key, fields[tt.key], tt.want)
		}
	}

	// The stale field updated in place, on its original row.
	rows := readSheet(t, dst, SupplementDestSheet)
	if rows[1][0] != combinedTGIVolumeKey || rows[1][1] == "旧值" {
		t.Errorf("row 2 = %v, want %s updated in place", rows[1], combinedTGIVolumeKey)
	}
}

func TestUpdateCombinedInfoMissingTables(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "detail.xlsx")

	f := NewExcelFile()
	setCells(t, f, "明细", map[string]interface{}{"A1": "项目编号", "B1": "25P080002"})
	dropDefaultSheet(f)
	if err := f.SaveAs(dst); err != nil {
		t.Fatalf("save dest: %v", err)
	}
	f.Close()

	// Absent report sheets degrade to no-data fields, not an error.
	if err := UpdateCombinedInfo(dst, "form_7_2", "form_7_3", "G1"); err != nil {
		t.Fatalf("UpdateCombinedInfo: %v", err)
	}
	fields := detailFields(t, dst)
	for _, key := range []string{combinedTGIVolumeKey, combinedTGIWeightKey, groupingVolumeKey, controlVolumeKey, treatedVolumeKey} {
		if fields[key] != noDataValue {
			t.Errorf("%s = %q, want %q", key, fields[key], noDataValue)
		}
	}
}

func TestGroupNarrativeElidesLongGroupLists(t *testing.T) {
	f := NewExcelFile()
	defer f.Close()
	setCells(t, f, "form_7_2", map[string]interface{}{
		"A1": "组别", "B1": "TGITV",
		"A2": "G1", "B2": "-",
		"A3": "G2", "B3": "41.2",
		"A4": "G3", "B4": "45.8",
		"A5": "G4", "B5": "50.1",
		"A6": "G5", "B6": "55.6",
		"A7": "G6", "B7": "60.3",
	})

	got := groupNarrative(f, "form_7_2", "TGITV", "G1", narrativeOptions{percent: true})
	if !strings.HasPrefix(got, "G2、G3、G4.......G6组分别为:") {
		t.Errorf("narrative = %q, want the first three groups elided to the last", got)
	}
	if !strings.HasSuffix(got, "41.2%、45.8%、50.1%、55.6%、60.3%") {
		t.Errorf("narrative = %q, want every value listed", got)
	}
}
