package metrics

import "math"

// WelfordState keeps a running mean and variance using Welford's online
// algorithm, so a baseline can be updated one observation at a time without
// keeping the history.
type WelfordState struct {
	Count int     // number of observations
	Mean  float64 // running mean
	M2    float64 // sum of squared differences from the mean
}

// NewWelfordState resumes from a stored baseline. The population variance
// is M2/n, so M2 is rebuilt as stddev² · n.
func NewWelfordState(mean, stddev float64, count int) *WelfordState {
	if count <= 0 {
		return &WelfordState{}
	}
	return &WelfordState{
		Count: count,
		Mean:  mean,
		M2:    stddev * stddev * float64(count),
	}
}

// Update adds one observation.
func (w *WelfordState) Update(value float64) {
	w.Count++
	delta := value - w.Mean
	w.Mean += delta / float64(w.Count)
	w.M2 += delta * (value - w.Mean)
}

// StdDev is the population standard deviation, 0 below two observations.
func (w *WelfordState) StdDev() float64 {
	if w.Count < 2 {
		return 0
	}
	return math.Sqrt(w.M2 / float64(w.Count))
}

// ZScore is how many standard deviations value sits above the mean. It is 0
// while the spread is still 0.
func (w *WelfordState) ZScore(value float64) float64 {
	sd := w.StdDev()
	if sd == 0 {
		return 0
	}
	return (value - w.Mean) / sd
}
