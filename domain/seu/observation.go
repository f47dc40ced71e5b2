// Package seu holds the observation model for single-event-upset test
// campaigns: (LET, count, fluence) triples collected at a particle
// accelerator, one per tested LET step.
package seu

import (
	"fmt"
	"sort"
)

// Observation is a single tested LET step. Immutable once constructed.
type Observation struct {
	LET     float64 `json:"let"`     // Linear Energy Transfer, MeV·cm²/mg
	Count   int     `json:"count"`   // observed upset count
	Fluence float64 `json:"fluence"` // delivered particles per cm²
}

// NewObservation creates an observation with invariant validation
func NewObservation(let float64, count int, fluence float64) (Observation, error) {
	obs := Observation{LET: let, Count: count, Fluence: fluence}
	if err := obs.Validate(); err != nil {
		return Observation{}, err
	}
	return obs, nil
}

// Validate checks the observation invariants
func (o Observation) Validate() error {
	if !(o.LET > 0) {
		return fmt.Errorf("LET must be > 0, got %g", o.LET)
	}
	if o.Count < 0 {
		return fmt.Errorf("count must be >= 0, got %d", o.Count)
	}
	if !(o.Fluence > 0) {
		return fmt.Errorf("fluence must be > 0, got %g", o.Fluence)
	}
	return nil
}

// ObservedSigma returns the raw per-point cross-section count/fluence.
func (o Observation) ObservedSigma() float64 {
	return float64(o.Count) / o.Fluence
}

// Censored reports whether the observation carries zero events.
func (o Observation) Censored() bool {
	return o.Count == 0
}

// ValidateAll validates an ordered campaign of observations.
func ValidateAll(obs []Observation) error {
	if len(obs) == 0 {
		return fmt.Errorf("campaign contains no observations")
	}
	for i, o := range obs {
		if err := o.Validate(); err != nil {
			return fmt.Errorf("observation %d: %w", i, err)
		}
	}
	return nil
}

// Partition separates a campaign into informative and censored observations.
// Order within each half follows the campaign order.
type Partition struct {
	Informative []Observation
	Censored    []Observation
}

// Split partitions observations by count > 0.
func Split(obs []Observation) Partition {
	p := Partition{}
	for _, o := range obs {
		if o.Censored() {
			p.Censored = append(p.Censored, o)
		} else {
			p.Informative = append(p.Informative, o)
		}
	}
	return p
}

// TotalEvents returns the summed event count of the informative half.
func (p Partition) TotalEvents() int {
	n := 0
	for _, o := range p.Informative {
		n += o.Count
	}
	return n
}

// MinInformativeCount returns the smallest per-LET count among informative
// observations, or 0 when there are none.
func (p Partition) MinInformativeCount() int {
	if len(p.Informative) == 0 {
		return 0
	}
	min := p.Informative[0].Count
	for _, o := range p.Informative[1:] {
		if o.Count < min {
			min = o.Count
		}
	}
	return min
}

// AllCensored reports whether every observation in the campaign was zero-count.
func (p Partition) AllCensored() bool {
	return len(p.Informative) == 0
}

// LETRange returns (min, max) LET over the given observations.
func LETRange(obs []Observation) (float64, float64) {
	if len(obs) == 0 {
		return 0, 0
	}
	lets := make([]float64, len(obs))
	for i, o := range obs {
		lets[i] = o.LET
	}
	sort.Float64s(lets)
	return lets[0], lets[len(lets)-1]
}
