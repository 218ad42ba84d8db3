package stats

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Dunnett is the built-in Comparer: pooled-variance one-way ANOVA followed by
// two-sided Dunnett comparisons against the control, with single-step
// adjusted p-values computed by deterministic quadrature over the
// product-correlated multivariate t. No random number generation is involved,
// so repeated runs on the same data always agree.
type Dunnett struct{}

type groupSample struct {
	name string
	n    int
	mean float64
}

var groupDigits = regexp.MustCompile(`\d+`)

// Compare implements Comparer.
func (Dunnett) Compare(obs []Observation, control string) ([]Comparison, error) {
	byGroup := make(map[string][]float64)
	for _, o := range obs {
		if o.Group == "" {
			continue
		}
		byGroup[o.Group] = append(byGroup[o.Group], o.Value)
	}
	if len(byGroup) < 2 {
		return nil, fmt.Errorf("dunnett: need at least two groups, got %d", len(byGroup))
	}

	levels := make([]string, 0, len(byGroup))
	for g := range byGroup {
		levels = append(levels, g)
	}
	sort.Strings(levels)
	if _, ok := byGroup[control]; !ok {
		control = levels[0]
	}

	var samples []groupSample
	totalN := 0
	sse := 0.0
	appendSample := func(name string) error {
		values := byGroup[name]
		mean, err := mstats.Mean(mstats.Float64Data(values))
		if err != nil {
			return fmt.Errorf("dunnett: group %s: %w", name, err)
		}
		for _, v := range values {
			d := v - mean
			sse += d * d
		}
		totalN += len(values)
		samples = append(samples, groupSample{name: name, n: len(values), mean: mean})
		return nil
	}
	// Control first, remaining levels in sorted order.
	if err := appendSample(control); err != nil {
		return nil, err
	}
	for _, g := range levels {
		if g == control {
			continue
		}
		if err := appendSample(g); err != nil {
			return nil, err
		}
	}

	df := totalN - len(samples)
	if df < 1 {
		return nil, fmt.Errorf("dunnett: no residual degrees of freedom (%d observations, %d groups)", totalN, len(samples))
	}
	mse := sse / float64(df)

	ctrl := samples[0]
	treatments := samples[1:]
	lambdas := make([]float64, len(treatments))
	for i, s := range treatments {
		lambdas[i] = math.Sqrt(float64(s.n) / float64(s.n+ctrl.n))
	}

	results := make([]Comparison, len(treatments))
	for i, s := range treatments {
		se := math.Sqrt(mse * (1/float64(s.n) + 1/float64(ctrl.n)))
		var p float64
		switch {
		case se > 0:
			t := (s.mean - ctrl.mean) / se
			p = 1 - probMaxAbsBelow(math.Abs(t), lambdas, df)
		case s.mean == ctrl.mean:
			// Zero pooled variance and identical means.
			p = 1
		default:
			// Zero pooled variance with distinct means: maximally significant.
			p = 0
		}
		if p < 0 {
			p = 0
		}
		results[i] = Comparison{Group: s.name, Stars: StarsFor(p), PValue: FormatP(p)}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return groupOrdinal(results[i].Group) < groupOrdinal(results[j].Group)
	})
	return results, nil
}

func groupOrdinal(name string) int {
	if m := groupDigits.FindString(name); m != "" {
		if v, err := strconv.Atoi(m); err == nil {
			return v
		}
	}
	return math.MaxInt32
}

func formatP4(p float64) string {
	return strconv.FormatFloat(p, 'f', 4, 64)
}

// probMaxAbsBelow evaluates P(max_j |T_j| <= q) where the T_j are the Dunnett
// comparison statistics: T_j = (lambda_j Z + sqrt(1-lambda_j^2) W_j) / U with
// Z, W_j independent standard normals and df*U^2 chi-squared distributed.
// Conditioning on Z and U makes the comparisons independent, leaving a
// two-dimensional integral evaluated with Simpson's rule on fixed grids.
func probMaxAbsBelow(q float64, lambdas []float64, df int) float64 {
	if math.IsInf(q, 1) {
		return 1
	}
	if math.IsNaN(q) || q <= 0 {
		return 0
	}

	norm := distuv.UnitNormal

	inner := func(u float64) float64 {
		// Integrate the product term against the standard normal density.
		const zLim = 8.0
		const zSteps = 256
		h := 2 * zLim / zSteps
		sum := 0.0
		for i := 0; i <= zSteps; i++ {
			z := -zLim + float64(i)*h
			prod := 1.0
			for _, l := range lambdas {
				s := math.Sqrt(1 - l*l)
				if s == 0 {
					if math.Abs(l*z) > q*u {
						prod = 0
					}
					continue
				}
				prod *= norm.CDF((q*u-l*z)/s) - norm.CDF((-q*u-l*z)/s)
				if prod == 0 {
					break
				}
			}
			w := simpsonWeight(i, zSteps)
			sum += w * norm.Prob(z) * prod
		}
		return sum * h / 3
	}

	nu := float64(df)
	// Density of U where nu*U^2 ~ chi-squared(nu).
	logC := math.Ln2 + (nu/2)*math.Log(nu/2) - lgamma(nu/2)
	uDensity := func(u float64) float64 {
		if u <= 0 {
			return 0
		}
		return math.Exp(logC + (nu-1)*math.Log(u) - nu*u*u/2)
	}

	uMax := 1 + 12/math.Sqrt(nu)
	if uMax < 4 {
		uMax = 4
	}
	const uSteps = 256
	h := uMax / uSteps
	total := 0.0
	for i := 0; i <= uSteps; i++ {
		u := float64(i) * h
		d := uDensity(u)
		if d == 0 {
			continue
		}
		total += simpsonWeight(i, uSteps) * d * inner(u)
	}
	total *= h / 3

	if total > 1 {
		total = 1
	}
	return total
}

func simpsonWeight(i, n int) float64 {
	switch {
	case i == 0 || i == n:
		return 1
	case i%2 == 1:
		return 4
	default:
		return 2
	}
}

func lgamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}
