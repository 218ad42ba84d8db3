package core

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// roundEpsilon nudges values off exact rounding boundaries before rounding,
// so that cells like 2.345 round to 2.35 the way the spreadsheet tool rounds
// them. Downstream documents are compared against the tool's output, so this
// must not be "cleaned up" into plain rounding.
const roundEpsilon = 1e-6

var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// ParseFloat extracts a numeric value from loosely formatted cell text.
// Dashes and empty text mean "absent"; thousands separators and percent signs
// are stripped; as a last resort the first signed decimal substring is used.
// Malformed text is never an error, only an absent value.
func ParseFloat(s string) (float64, bool) {
	t := Norm(s)
	switch t {
	case "", "-", "—", "–":
		return 0, false
	}
	t = strings.ReplaceAll(t, ",", "")
	t = strings.ReplaceAll(t, "%", "")
	if v, err := strconv.ParseFloat(t, 64); err == nil {
		return v, true
	}
	if m := numberPattern.FindString(t); m != "" {
		if v, err := strconv.ParseFloat(m, 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

// RoundEps rounds x to d decimals after adding the boundary epsilon.
func RoundEps(x float64, d int) float64 {
	p := math.Pow(10, float64(d))
	return math.Round((x+roundEpsilon)*p) / p
}

// FormatMeanSD renders "mean±sd" at d decimals, both operands epsilon-rounded.
// Either operand absent renders "". d=0 renders bare integers.
func FormatMeanSD(mean, sd *float64, d int) string {
	if mean == nil || sd == nil {
		return ""
	}
	if d == 0 {
		return fmt.Sprintf("%d±%d", int64(RoundEps(*mean, 0)), int64(RoundEps(*sd, 0)))
	}
	return fmt.Sprintf("%.*f±%.*f", d, RoundEps(*mean, d), d, RoundEps(*sd, d))
}

// FormatSigned renders a delta as "+ 1.2" or "- 1.2" (space after the sign).
func FormatSigned(x *float64, d int) string {
	if x == nil {
		return ""
	}
	s := fmt.Sprintf("%.*f", d, *x)
	if strings.HasPrefix(s, "-") {
		return "- " + s[1:]
	}
	return "+ " + s
}

// FormatFixed renders an epsilon-rounded value at d decimals.
func FormatFixed(x float64, d int) string {
	return fmt.Sprintf("%.*f", d, RoundEps(x, d))
}

// FormatTGI renders a growth-inhibition cell as a percentage at d decimals.
// Cells without a percent sign hold ratios and are scaled by 100. mixedScale
// restricts the scaling to values at most 1, for sheets that mix ratios with
// already-scaled percentages in the same column. Unparseable text renders "".
func FormatTGI(raw string, d int, mixedScale bool) string {
	v, ok := ParseFloat(raw)
	if !ok {
		return ""
	}
	if !strings.Contains(raw, "%") && (!mixedScale || v <= 1) {
		v *= 100
	}
	return FormatFixed(v, d)
}
