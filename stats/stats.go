// Package stats provides the pairwise significance service used by the table
// extraction engine: a one-way ANOVA followed by many-to-one comparisons of
// every treatment group against a single control group, with family-wise
// error control over the comparison family.
package stats

// Observation is one individual measurement attributed to a group.
type Observation struct {
	Group string
	Value float64
}

// Comparison is the outcome of comparing one treatment group against the
// control: a significance-star bucket and a formatted adjusted p-value.
type Comparison struct {
	Group  string
	Stars  string
	PValue string
}

// Comparer computes per-group significance for a flat list of observations.
// The engine injects an implementation and assumes nothing beyond this
// contract; the control group never appears in the result.
type Comparer interface {
	Compare(obs []Observation, control string) ([]Comparison, error)
}

// StarsFor buckets an adjusted p-value the way the report templates annotate
// significance.
func StarsFor(p float64) string {
	switch {
	case p < 0.0001:
		return "****"
	case p < 0.001:
		return "***"
	case p < 0.01:
		return "**"
	case p < 0.05:
		return "*"
	default:
		return "ns"
	}
}

// FormatP renders an adjusted p-value with the display boundaries the report
// templates expect.
func FormatP(p float64) string {
	switch {
	case p != p: // NaN
		return ""
	case p < 0.0001:
		return "<0.0001"
	case p > 0.9999:
		return ">0.9999"
	default:
		return formatP4(p)
	}
}
