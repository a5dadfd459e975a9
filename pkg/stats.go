package yfreq

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

func Frequencies(t FrequencyTable) []float64 {
	fs := make([]float64, 0, len(t.Rows))
	for _, r := range t.Rows {
		fs = append(fs, r.Frequency)
	}
	return fs
}

// HaplogroupDiversity returns Nei's unbiased haplogroup diversity and its
// standard error. Frequencies are taken over the table's Total.
func HaplogroupDiversity(t FrequencyTable) (h, se float64, err error) {
	n := float64(t.Total)
	if t.Total < 2 {
		return 0, 0, fmt.Errorf("HaplogroupDiversity: %v: n = %v < 2", t.KeyName, t.Total)
	}
	ps := Frequencies(t)
	sum2 := floats.Dot(ps, ps)

	cubes := make(stats.Float64Data, 0, len(ps))
	for _, p := range ps {
		cubes = append(cubes, p*p*p)
	}
	sum3, e := stats.Sum(cubes)
	if e != nil {
		return 0, 0, fmt.Errorf("HaplogroupDiversity: %w", e)
	}

	h = n / (n - 1) * (1 - sum2)
	v := 2 / (n * (n - 1)) * (2*(n-2)*(sum3-sum2*sum2) + sum2 - sum2*sum2)
	return h, math.Sqrt(math.Max(v, 0)), nil
}

// WilsonInterval is the Wilson score interval for k successes out of n.
func WilsonInterval(k, n int, conf float64) (lo, hi float64, err error) {
	if n == 0 {
		return 0, 0, fmt.Errorf("WilsonInterval: %w", ErrEmptyScope)
	}
	if conf <= 0 || conf >= 1 {
		return 0, 0, fmt.Errorf("WilsonInterval: confidence %v not in (0, 1)", conf)
	}
	z := distuv.UnitNormal.Quantile(1 - (1-conf)/2)
	nf := float64(n)
	p := float64(k) / nf
	z2 := z * z
	denom := 1 + z2/nf
	center := (p + z2/(2*nf)) / denom
	half := z * math.Sqrt(p*(1-p)/nf+z2/(4*nf*nf)) / denom
	return math.Max(0, center-half), math.Min(1, center+half), nil
}

// CheckTable verifies that the rows account for the whole scope and, when no
// record was missing a key, that the frequencies sum to one.
func CheckTable(t FrequencyTable) error {
	count := t.Missing
	for _, r := range t.Rows {
		count += r.Count
	}
	if count != t.Total {
		return fmt.Errorf("CheckTable: %v: counts %v != total %v", t.KeyName, count, t.Total)
	}
	if t.Missing > 0 || len(t.Rows) == 0 {
		return nil
	}
	sum, e := stats.Sum(Frequencies(t))
	if e != nil {
		return fmt.Errorf("CheckTable: %v: %w", t.KeyName, e)
	}
	if math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("CheckTable: %v: frequencies sum to %v", t.KeyName, sum)
	}
	return nil
}
