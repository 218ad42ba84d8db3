package core

import (
	"fmt"
	"log/slog"

	"oncotab/config"
)

// Report summarizes one pipeline run. EndDay is the effective end day used
// for the day-axis tables; Failures lists the steps that did not produce
// output, in run order.
type Report struct {
	EndDay   int
	Failures []string
}

// OK reports whether every step produced output.
func (r Report) OK() bool { return len(r.Failures) == 0 }

// Pipeline runs the full deliverable build: supplement info first (it also
// resolves the end day), then the three report tables, then the combined
// narrative fields derived from them, then the optional query sheets. Tables
// are best effort: one table failing to locate never stops the others.
type Pipeline struct {
	Extractor   *Extractor
	Fetcher     DataFetcher
	QuerySheets []config.QuerySheetConfig
	Log         *slog.Logger
}

// NewPipeline wires a pipeline; fetcher may be nil when no database source is
// configured.
func NewPipeline(e *Extractor, fetcher DataFetcher, querySheets []config.QuerySheetConfig, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{Extractor: e, Fetcher: fetcher, QuerySheets: querySheets, Log: log}
}

// Run builds the deliverable at dst from the study workbook at src. endDay 0
// means "derive from the source's per-day sheets". The supplement step is the
// only fatal one: without it there is no effective end day to aggregate on.
func (p *Pipeline) Run(src, dst string, endDay int) (Report, error) {
	effective, err := UpdateSupplementInfo(src, dst, endDay)
	if err != nil {
		return Report{}, fmt.Errorf("supplement info update failed: %w", err)
	}
	report := Report{EndDay: effective}
	p.Log.Info("supplement info updated", "endDay", effective)

	steps := []struct {
		name string
		run  func() error
	}{
		{"body weight", func() error { return p.Extractor.ExtractBodyWeight(src, dst, effective) }},
		{"tumor volume", func() error { return p.Extractor.ExtractTumorVolume(src, dst, effective) }},
		{"tumor weight", func() error { return p.Extractor.ExtractTumorWeight(src, dst) }},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			p.Log.Warn("table extraction failed", "table", step.name, "error", err)
			report.Failures = append(report.Failures, fmt.Sprintf("%s: %v", step.name, err))
			continue
		}
		p.Log.Info("table extracted", "table", step.name)
	}

	// The narrative fields read the sheets the table steps just wrote; tables
	// that failed leave their fields as no-data markers.
	volumeCfg := p.Extractor.Tables[config.TableTumorVolume]
	weightCfg := p.Extractor.Tables[config.TableTumorWeight]
	if err := UpdateCombinedInfo(dst, volumeCfg.OutSheet, weightCfg.OutSheet, volumeCfg.ControlGroup); err != nil {
		p.Log.Warn("combined narrative update failed", "error", err)
		report.Failures = append(report.Failures, fmt.Sprintf("combined narrative: %v", err))
	} else {
		p.Log.Info("combined narrative fields updated")
	}

	report.Failures = append(report.Failures, ExportQuerySheets(p.Fetcher, dst, p.QuerySheets, p.Log)...)
	return report, nil
}
