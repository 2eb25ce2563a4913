// Package stats computes descriptive statistics over observed scores and
// derives z-scores used for anomaly flagging.
package stats

import "math"

// Default anomaly thresholds.
const (
	DefaultMinSamples = 3
	DefaultZScore     = 2.0
)

// Stat describes a sample of scores for one (target, criterion) pair.
// It is derived on every read and never persisted.
type Stat struct {
	N     int     `json:"n"`
	Mean  float64 `json:"mean"`
	Stdev float64 `json:"stdev"`
}

// Compute returns the sample size, arithmetic mean and sample standard
// deviation (n-1 divisor) of values. Samples with fewer than two values have
// zero dispersion.
func Compute(values []float64) Stat {
	n := len(values)
	if n == 0 {
		return Stat{}
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)
	if n < 2 {
		return Stat{N: n, Mean: mean}
	}

	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return Stat{N: n, Mean: mean, Stdev: math.Sqrt(sumSq / float64(n-1))}
}

// ZScore returns (value-mean)/stdev. The second result is false when the
// sample is too small or has no dispersion; such values are never anomalous.
func ZScore(value float64, s Stat) (float64, bool) {
	if s.N < 2 || s.Stdev <= 0 {
		return 0, false
	}
	return (value - s.Mean) / s.Stdev, true
}

// Thresholds holds the two anomaly tunables.
type Thresholds struct {
	MinSamples int
	ZScore     float64
}

// DefaultThresholds returns the documented defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{MinSamples: DefaultMinSamples, ZScore: DefaultZScore}
}

// IsAnomaly reports whether value is anomalous against s.
func (t Thresholds) IsAnomaly(value float64, s Stat) bool {
	if s.N < t.MinSamples {
		return false
	}
	z, ok := ZScore(value, s)
	return ok && math.Abs(z) >= t.ZScore
}

// Annotation carries the per-score anomaly details shown to callers.
type Annotation struct {
	Mean    *float64 `json:"mean"`
	Stdev   *float64 `json:"stdev"`
	Z       *float64 `json:"z"`
	Delta   *float64 `json:"delta"`
	Anomaly bool     `json:"is_anomaly"`
}

// Annotate describes value against s. A nil s means no sample exists for
// the criterion.
func (t Thresholds) Annotate(value float64, s *Stat) Annotation {
	if s == nil {
		return Annotation{}
	}
	mean, stdev := s.Mean, s.Stdev
	delta := value - mean
	a := Annotation{Mean: &mean, Stdev: &stdev, Delta: &delta}
	if z, ok := ZScore(value, *s); ok {
		a.Z = &z
	}
	a.Anomaly = t.IsAnomaly(value, *s)
	return a
}
