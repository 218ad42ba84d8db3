package core

import (
	"fmt"
	"strings"

	"oncotab/config"
)

// MapDesign reads the study-design sheet and maps each group label to its
// "treatment(dose)" description. Multiple design rows for one group are
// joined with ", ". Row scanning stops after two consecutive blank group
// cells, which is how the design tables end (a single blank row may separate
// cohorts within one table).
func MapDesign(g *Grid, cfg config.DesignConfig) (map[string]string, error) {
	headerRow := 0
	for r := 1; r <= g.MaxRow(); r++ {
		var parts []string
		for c := 1; c <= g.MaxCol(); c++ {
			parts = append(parts, Norm(g.Resolve(r, c)))
		}
		rowText := strings.Join(parts, " ")
		if ContainsAny(rowText, cfg.GroupHeaders) &&
			ContainsAny(rowText, cfg.TreatmentHeaders) &&
			ContainsAny(rowText, cfg.DoseHeaders) {
			headerRow = r
			break
		}
	}
	if headerRow == 0 {
		return nil, fmt.Errorf("%w: need %v, %v and %v", ErrDesignHeader,
			cfg.GroupHeaders, cfg.TreatmentHeaders, cfg.DoseHeaders)
	}

	groupCol, drugCol, doseCol := 0, 0, 0
	for c := 1; c <= g.MaxCol(); c++ {
		t := Norm(g.Resolve(headerRow, c))
		if groupCol == 0 && ContainsAny(t, cfg.GroupHeaders) {
			groupCol = c
		}
		if drugCol == 0 && ContainsAny(t, cfg.TreatmentHeaders) {
			drugCol = c
		}
		if doseCol == 0 && ContainsAny(t, cfg.DoseHeaders) {
			doseCol = c
		}
	}

	combos := make(map[string][]string)
	var order []string
	blanks := 0
	for r := headerRow + 1; r <= g.MaxRow(); r++ {
		group := ""
		if groupCol > 0 {
			group = Norm(g.Resolve(r, groupCol))
		}
		if group == "" {
			blanks++
			if blanks >= 2 {
				break
			}
			continue
		}
		blanks = 0

		drug, dose := "", ""
		if drugCol > 0 {
			drug = Norm(g.Resolve(r, drugCol))
		}
		if doseCol > 0 {
			dose = Norm(g.Resolve(r, doseCol))
		}

		var combo string
		switch {
		case drug != "" && dose != "":
			combo = fmt.Sprintf("%s(%s)", drug, dose)
		case drug != "":
			combo = drug
		case dose != "":
			combo = fmt.Sprintf("(%s)", dose)
		}
		if combo == "" {
			continue
		}
		if _, seen := combos[group]; !seen {
			order = append(order, group)
		}
		combos[group] = append(combos[group], combo)
	}

	mapping := make(map[string]string, len(order))
	for _, group := range order {
		mapping[group] = strings.Join(combos[group], ", ")
	}
	return mapping, nil
}
