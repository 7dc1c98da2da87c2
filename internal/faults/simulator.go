// Package faults injects synthetic failures into research steps and decides
// which real collaborator errors are worth retrying.
package faults

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// Cause labels for injected failures. The fixed set keeps retry storms
// recognizable in worker logs.
var causes = []string{
	"timeout",
	"connection-refused",
	"DNS-failure",
	"rate-limited",
	"server-error",
}

// SimulatedFailure is a synthetic, always-retryable error. It exists only to
// exercise the orchestrator's retry machinery and never carries real state.
type SimulatedFailure struct {
	Cause string
}

func (e *SimulatedFailure) Error() string {
	return fmt.Sprintf("simulated %s failure", e.Cause)
}

// IsSimulated reports whether err is, or wraps, an injected failure.
func IsSimulated(err error) bool {
	var sf *SimulatedFailure
	return errors.As(err, &sf)
}

// Simulator rolls for failure at caller-supplied probabilities. The zero
// source is the shared math/rand source, which is safe for concurrent steps.
type Simulator struct {
	enabled bool
	rng     *rand.Rand
}

func NewSimulator(enabled bool) *Simulator {
	return &Simulator{enabled: enabled}
}

// NewSeededSimulator returns an always-enabled simulator with a deterministic
// source. The source is not safe for concurrent use; meant for tests.
func NewSeededSimulator(seed uint64) *Simulator {
	return &Simulator{enabled: true, rng: rand.New(rand.NewPCG(seed, seed))}
}

// Roll fails with the given probability, picking a cause uniformly from the
// fixed label set. Probabilities outside [0, 1] are clamped. A nil or
// disabled simulator never fails.
func (s *Simulator) Roll(probability float64) error {
	if s == nil || !s.enabled || probability <= 0 {
		return nil
	}
	if probability > 1 {
		probability = 1
	}
	if s.float64() >= probability {
		return nil
	}
	return &SimulatedFailure{Cause: causes[s.intN(len(causes))]}
}

func (s *Simulator) float64() float64 {
	if s.rng != nil {
		return s.rng.Float64()
	}
	return rand.Float64()
}

func (s *Simulator) intN(n int) int {
	if s.rng != nil {
		return s.rng.IntN(n)
	}
	return rand.IntN(n)
}
