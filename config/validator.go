package config

import (
	"fmt"
	"regexp"
)

// Validate checks a resolved bundle.
func Validate(b *Bundle) error {
	if len(b.Tables) == 0 {
		return fmt.Errorf("at least one table config is required")
	}

	outSheets := make(map[string]TableKind)
	for kind, t := range b.Tables {
		if err := ValidateTable(&t); err != nil {
			return fmt.Errorf("table %s: %w", kind, err)
		}
		if other, dup := outSheets[t.OutSheet]; dup {
			return fmt.Errorf("tables %s and %s share output sheet %q", other, kind, t.OutSheet)
		}
		outSheets[t.OutSheet] = kind
	}

	if err := ValidateDesign(&b.Design); err != nil {
		return err
	}

	for i, q := range b.QuerySheets {
		if q.Sheet == "" {
			return fmt.Errorf("query sheet %d: sheet name is required", i)
		}
		if q.Query == "" {
			return fmt.Errorf("query sheet %q: query is required", q.Sheet)
		}
	}
	return nil
}

// ValidateTable checks a single table policy.
func ValidateTable(t *TableConfig) error {
	switch t.Kind {
	case TableBodyWeight, TableTumorVolume, TableTumorWeight:
		// OK
	default:
		return fmt.Errorf("unknown table kind %q", t.Kind)
	}

	if len(t.DataSheets) == 0 {
		return fmt.Errorf("data sheet candidates are required")
	}
	if t.OutSheet == "" {
		return fmt.Errorf("output sheet name is required")
	}
	if len(t.Anchors) == 0 {
		return fmt.Errorf("anchor aliases are required")
	}
	if len(t.MeanLabels) == 0 || len(t.SDLabels) == 0 {
		return fmt.Errorf("mean and SD label aliases are required")
	}

	// The tumor weight table has no day axis; the others must be able to map
	// the day header row.
	if t.Kind != TableTumorWeight {
		if len(t.DaysHeaders) == 0 {
			return fmt.Errorf("days header aliases are required")
		}
		if t.Lookahead <= 0 {
			return fmt.Errorf("lookahead must be positive, got %d", t.Lookahead)
		}
	}

	if t.GroupPattern == "" {
		return fmt.Errorf("group pattern is required")
	}
	if _, err := regexp.Compile(t.GroupPattern); err != nil {
		return fmt.Errorf("invalid group pattern %q: %w", t.GroupPattern, err)
	}

	if t.Decimals < 0 || t.Decimals > 6 {
		return fmt.Errorf("decimals out of range: %d", t.Decimals)
	}
	if t.TGIDecimals < 0 || t.TGIDecimals > 6 {
		return fmt.Errorf("tgiDecimals out of range: %d", t.TGIDecimals)
	}
	if t.RawDecimals != nil && (*t.RawDecimals < 0 || *t.RawDecimals > 6) {
		return fmt.Errorf("rawDecimals out of range: %d", *t.RawDecimals)
	}

	if t.ControlGroup == "" {
		return fmt.Errorf("control group is required")
	}
	return nil
}

// ValidateDesign checks the study-design header aliases.
func ValidateDesign(d *DesignConfig) error {
	if len(d.GroupHeaders) == 0 || len(d.TreatmentHeaders) == 0 || len(d.DoseHeaders) == 0 {
		return fmt.Errorf("design sheet requires group, treatment and dose header aliases")
	}
	return nil
}
