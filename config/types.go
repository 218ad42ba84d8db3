package config

// TableKind identifies one of the summary tables the engine can extract.
type TableKind string

const (
	TableBodyWeight  TableKind = "body_weight"  // 实验动物体重 / Animal Weight
	TableTumorVolume TableKind = "tumor_volume" // 实验动物荷瘤体积 / Animal Tumor Volume
	TableTumorWeight TableKind = "tumor_weight" // 瘤重 / Tumor Weight (sample collection sheet)
)

// TableConfig：per-table extraction policy. The source workbooks have no fixed
// layout, so everything the locator needs is expressed as alias lists tried in
// order (中文 first, English second).
type TableConfig struct {
	Kind TableKind `json:"kind" yaml:"kind"`

	// Sheet name candidates, first existing wins.
	DataSheets   []string `json:"dataSheets"   yaml:"dataSheets"`
	DesignSheets []string `json:"designSheets" yaml:"designSheets"`

	// Name of the normalized sheet written into the destination workbook.
	OutSheet string `json:"outSheet" yaml:"outSheet"`
	// Title row written above this table's block in the raw-value dump sheet.
	RawDumpTitle string `json:"rawDumpTitle" yaml:"rawDumpTitle"`

	// Label alias sets.
	Anchors     []string `json:"anchors"               yaml:"anchors"`
	DaysHeaders []string `json:"daysHeaders,omitempty" yaml:"daysHeaders,omitempty"`
	MeanLabels  []string `json:"meanLabels"            yaml:"meanLabels"`
	SDLabels    []string `json:"sdLabels"              yaml:"sdLabels"`
	TGILabels   []string `json:"tgiLabels,omitempty"   yaml:"tgiLabels,omitempty"`

	// GroupPattern matches the first cell of a group block (G1/G2/...).
	GroupPattern string `json:"groupPattern" yaml:"groupPattern"`
	// Lookahead is the row window below the anchor used for end-column detection.
	Lookahead int `json:"lookahead" yaml:"lookahead"`

	// Rounding policy.
	Decimals    int  `json:"decimals"              yaml:"decimals"` // mean±SD / delta
	TGIDecimals int  `json:"tgiDecimals,omitempty" yaml:"tgiDecimals,omitempty"`
	RawDecimals *int `json:"rawDecimals,omitempty" yaml:"rawDecimals,omitempty"` // nil: raw values pass through unrounded

	// EndRowFallback: when no fully-empty row terminates the region, use the
	// sheet's last used row instead of failing. The tumor volume table relies
	// on this; the body weight table fails hard. Kept as distinct per-table
	// behavior on purpose.
	EndRowFallback bool `json:"endRowFallback" yaml:"endRowFallback"`
	// AcceptBareSD: also accept a cell that equals "SD" as the SD row label.
	AcceptBareSD bool `json:"acceptBareSD" yaml:"acceptBareSD"`
	// RequireDest: fail when the destination workbook does not exist yet,
	// instead of creating it.
	RequireDest bool `json:"requireDest" yaml:"requireDest"`

	ControlGroup string `json:"controlGroup" yaml:"controlGroup"`
}

// DesignConfig：header aliases for the study-design sheet that maps groups to
// treatment/dose labels.
type DesignConfig struct {
	GroupHeaders     []string `json:"groupHeaders"     yaml:"groupHeaders"`
	TreatmentHeaders []string `json:"treatmentHeaders" yaml:"treatmentHeaders"`
	DoseHeaders      []string `json:"doseHeaders"      yaml:"doseHeaders"`
}

// QuerySheetConfig：one SQL result set exported as a sheet of the deliverable.
type QuerySheetConfig struct {
	Sheet string `json:"sheet" yaml:"sheet"`
	Query string `json:"query" yaml:"query"`
}

// File is the optional YAML bundle overriding the built-in defaults.
type File struct {
	Tables      []TableConfig      `json:"tables,omitempty"      yaml:"tables,omitempty"`
	Design      *DesignConfig      `json:"design,omitempty"      yaml:"design,omitempty"`
	QuerySheets []QuerySheetConfig `json:"querySheets,omitempty" yaml:"querySheets,omitempty"`
}

func intPtr(v int) *int { return &v }

// DefaultGroupPattern matches group start rows: optional leading whitespace,
// "G" (either case) followed by digits at a word boundary.
const DefaultGroupPattern = `(?i)^\s*G\d+\b`

// DefaultTables returns the built-in policy for the three report tables.
func DefaultTables() map[TableKind]TableConfig {
	return map[TableKind]TableConfig{
		TableBodyWeight: {
			Kind:         TableBodyWeight,
			DataSheets:   []string{"实验数据汇总", "Study Data"},
			DesignSheets: []string{"实验设计", "Study Design"},
			OutSheet:     "form_7_1",
			RawDumpTitle: "7-1实验动物体重数据",
			Anchors:      []string{"实验动物体重克", "Animal Weight（g）"},
			DaysHeaders:  []string{"分组后天数", "Days Post Grouping"},
			MeanLabels:   []string{"均数", "Average"},
			SDLabels:     []string{"标准误", "Standard Error of the Mean"},
			GroupPattern: DefaultGroupPattern,
			Lookahead:    5,
			Decimals:     1,
			RawDecimals:  intPtr(1),
			AcceptBareSD: true,
			RequireDest:  true,
			ControlGroup: "G1",
		},
		TableTumorVolume: {
			Kind:           TableTumorVolume,
			DataSheets:     []string{"实验数据汇总", "Study Data"},
			DesignSheets:   []string{"实验设计", "Study Design"},
			OutSheet:       "form_7_2",
			RawDumpTitle:   "7-2实验动物荷瘤体积数据",
			Anchors:        []string{"实验动物荷瘤体积", "Animal Tumor Volume (mm3)"},
			DaysHeaders:    []string{"分组后天数", "Days Post Grouping"},
			MeanLabels:     []string{"均数", "Average"},
			SDLabels:       []string{"标准误", "Standard Error of the Mean"},
			TGILabels:      []string{"TGITV"},
			GroupPattern:   DefaultGroupPattern,
			Lookahead:      5,
			Decimals:       0,
			TGIDecimals:    1,
			RawDecimals:    intPtr(0),
			EndRowFallback: true,
			AcceptBareSD:   true,
			ControlGroup:   "G1",
		},
		TableTumorWeight: {
			Kind:         TableTumorWeight,
			DataSheets:   []string{"样品收集方案", "Sample Collection Record"},
			DesignSheets: []string{"实验设计", "Study Design"},
			OutSheet:     "form_7_3",
			RawDumpTitle: "7-3实验动物瘤重数据",
			Anchors:      []string{"肿瘤", "Tumor"},
			MeanLabels:   []string{"均数", "Average"},
			SDLabels:     []string{"标准误", "Standard Error of the Mean"},
			TGILabels:    []string{"TGITW"},
			GroupPattern: DefaultGroupPattern,
			Decimals:     3,
			TGIDecimals:  1,
			ControlGroup: "G1",
		},
	}
}

// DefaultDesign returns the built-in study-design header aliases.
func DefaultDesign() DesignConfig {
	return DesignConfig{
		GroupHeaders:     []string{"组别", "Groups"},
		TreatmentHeaders: []string{"处理方式", "Treatment"},
		DoseHeaders:      []string{"剂量", "Dosages"},
	}
}
