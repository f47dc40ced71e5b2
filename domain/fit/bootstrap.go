package fit

import (
	"sort"
	"sync"

	"seufit/domain/weibull"
)

// BootstrapDistribution accumulates successful refit parameter vectors keyed
// by iteration index, plus a failure counter. Appends are guarded by a single
// lock; workers never block on each other mid-iteration, only at final
// aggregation. Accessors return samples in iteration order, so every
// downstream statistic is a function of the seed alone and never of worker
// completion order.
type BootstrapDistribution struct {
	mu       sync.Mutex
	draws    []draw
	failures int
	ordered  bool
}

type draw struct {
	iteration int
	theta     weibull.Vector
}

// NewBootstrapDistribution creates an empty accumulator sized for b samples.
func NewBootstrapDistribution(b int) *BootstrapDistribution {
	return &BootstrapDistribution{draws: make([]draw, 0, b)}
}

// Record appends the successful refit of one iteration.
func (d *BootstrapDistribution) Record(iteration int, theta weibull.Vector) {
	d.mu.Lock()
	d.draws = append(d.draws, draw{iteration: iteration, theta: theta})
	d.ordered = false
	d.mu.Unlock()
}

// RecordFailure counts a refit that did not converge to a usable estimate.
func (d *BootstrapDistribution) RecordFailure() {
	d.mu.Lock()
	d.failures++
	d.mu.Unlock()
}

// Successes returns the number of recorded refits.
func (d *BootstrapDistribution) Successes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.draws)
}

// Failures returns the failure counter.
func (d *BootstrapDistribution) Failures() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.failures
}

// SuccessRate returns successes / (successes + failures).
func (d *BootstrapDistribution) SuccessRate() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	total := len(d.draws) + d.failures
	if total == 0 {
		return 0
	}
	return float64(len(d.draws)) / float64(total)
}

// sortLocked orders draws by iteration index. Callers hold d.mu.
func (d *BootstrapDistribution) sortLocked() {
	if d.ordered {
		return
	}
	sort.Slice(d.draws, func(i, j int) bool {
		return d.draws[i].iteration < d.draws[j].iteration
	})
	d.ordered = true
}

// Samples returns the recorded vectors in iteration order.
func (d *BootstrapDistribution) Samples() []weibull.Vector {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sortLocked()
	out := make([]weibull.Vector, len(d.draws))
	for k, dr := range d.draws {
		out[k] = dr.theta
	}
	return out
}

// Marginal extracts the i-th parameter column across all samples, in
// iteration order.
func (d *BootstrapDistribution) Marginal(i int) []float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sortLocked()
	out := make([]float64, len(d.draws))
	for k, dr := range d.draws {
		out[k] = dr.theta[i]
	}
	return out
}

// BootstrapSummary is the report-facing digest of a finished bootstrap run.
type BootstrapSummary struct {
	Iterations       int       `json:"iterations"`
	Successes        int       `json:"successes"`
	Failures         int       `json:"failures"`
	SuccessRate      float64   `json:"success_rate"`
	Mean             []float64 `json:"mean"`
	Skewness         []float64 `json:"skewness"`
	SkewFlagged      []string  `json:"skew_flagged,omitempty"`
	CovarianceDrift  float64   `json:"covariance_drift"` // relative diff across disjoint halves
	CovarianceStable bool      `json:"covariance_stable"`
}
