// Package testkit provides test doubles and synthetic campaign generation
// shared by the package tests.
package testkit

import (
	"context"
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/stat/distuv"

	"seufit/domain/core"
	"seufit/domain/seu"
	"seufit/domain/weibull"
)

// InMemoryLedger is a mutex-guarded ResultLedger for tests.
type InMemoryLedger struct {
	mu        sync.Mutex
	artifacts map[core.RunID][]core.Artifact
}

// NewInMemoryLedger creates an empty ledger.
func NewInMemoryLedger() *InMemoryLedger {
	return &InMemoryLedger{artifacts: make(map[core.RunID][]core.Artifact)}
}

func (l *InMemoryLedger) StoreArtifact(_ context.Context, runID core.RunID, artifact core.Artifact) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.artifacts[runID] = append(l.artifacts[runID], artifact)
	return nil
}

func (l *InMemoryLedger) ArtifactsByRun(_ context.Context, runID core.RunID) ([]core.Artifact, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]core.Artifact(nil), l.artifacts[runID]...), nil
}

// SyntheticCampaign draws a Poisson campaign from a known truth so tests can
// check parameter recovery. Counts are N_i ~ Poisson(truth.CrossSection(LET_i) * fluence).
func SyntheticCampaign(truth weibull.Params, lets []float64, fluence float64, seed uint64) []seu.Observation {
	rng := rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))
	obs := make([]seu.Observation, len(lets))
	for i, let := range lets {
		lambda := truth.CrossSection(let) * fluence
		count := 0
		if lambda > 0 {
			p := distuv.Poisson{Lambda: lambda, Src: rng}
			count = int(p.Rand())
		}
		obs[i] = seu.Observation{LET: let, Count: count, Fluence: fluence}
	}
	return obs
}

// HeavyIonCampaign is a realistic 8-step campaign at 1e7 fluence per step,
// rising from near-threshold counts to saturation. Used as the reference
// dataset across the integration tests.
func HeavyIonCampaign() []seu.Observation {
	lets := []float64{5, 10, 15, 20, 30, 40, 60, 80}
	counts := []int{3, 12, 28, 45, 62, 71, 78, 82}
	obs := make([]seu.Observation, len(lets))
	for i := range lets {
		obs[i] = seu.Observation{LET: lets[i], Count: counts[i], Fluence: 1e7}
	}
	return obs
}
