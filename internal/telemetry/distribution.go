package telemetry

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Distribution summarises a population attribute such as age.
type Distribution struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
	P10    float64 `json:"p10"`
	P50    float64 `json:"p50"`
	P90    float64 `json:"p90"`
}

// AgeDistribution computes summary statistics for the given ages. An empty
// input yields the zero Distribution.
func AgeDistribution(ages []int) Distribution {
	if len(ages) == 0 {
		return Distribution{}
	}
	values := make([]float64, len(ages))
	for i, age := range ages {
		values[i] = float64(age)
	}
	sort.Float64s(values)

	dist := Distribution{
		Count: len(values),
		Mean:  stat.Mean(values, nil),
		P10:   stat.Quantile(0.1, stat.Empirical, values, nil),
		P50:   stat.Quantile(0.5, stat.Empirical, values, nil),
		P90:   stat.Quantile(0.9, stat.Empirical, values, nil),
	}
	if len(values) > 1 {
		dist.StdDev = stat.StdDev(values, nil)
	}
	return dist
}
