package field

import (
	"slices"

	"github.com/vk/fieldengine/internal/mesh"
)

const invalidCounter = -1

// ValueCache holds one field's most recent result in one cache. It is valid
// only while its evaluation counter equals the cache's location counter.
type ValueCache interface {
	EvaluationCounter() int
	stamp(counter int)
	reset()
}

type evaluationStamp struct {
	evaluationCounter int
}

func (s *evaluationStamp) EvaluationCounter() int { return s.evaluationCounter }

func (s *evaluationStamp) stamp(counter int) { s.evaluationCounter = counter }

func (s *evaluationStamp) reset() { s.evaluationCounter = invalidCounter }

// RealValueCache holds a real vector and its derivative caches.
type RealValueCache struct {
	evaluationStamp
	Values      []float64
	derivatives []*DerivativeValueCache
}

func newRealValueCache(components int) *RealValueCache {
	return &RealValueCache{
		evaluationStamp: evaluationStamp{evaluationCounter: invalidCounter},
		Values:          make([]float64, components),
	}
}

func (vc *RealValueCache) reset() {
	vc.evaluationCounter = invalidCounter
	vc.resetDerivatives()
}

func (vc *RealValueCache) resetDerivatives() {
	for _, dvc := range vc.derivatives {
		if dvc != nil {
			dvc.reset()
		}
	}
}

// DerivativeCache returns the derivative cache for d, creating it on first use.
func (vc *RealValueCache) DerivativeCache(d *Derivative) *DerivativeValueCache {
	if d.cacheIndex >= len(vc.derivatives) {
		vc.derivatives = slices.Grow(vc.derivatives, d.cacheIndex+1-len(vc.derivatives))
		vc.derivatives = vc.derivatives[:d.cacheIndex+1]
	}
	dvc := vc.derivatives[d.cacheIndex]
	if dvc == nil {
		dvc = &DerivativeValueCache{evaluationStamp: evaluationStamp{evaluationCounter: invalidCounter}}
		vc.derivatives[d.cacheIndex] = dvc
	}
	return dvc
}

// DerivativeValueCache holds componentCount rows of termCount derivative
// terms, row-major by component.
type DerivativeValueCache struct {
	evaluationStamp
	Values    []float64
	termCount int
}

// TermCount returns the number of terms per component.
func (dvc *DerivativeValueCache) TermCount() int { return dvc.termCount }

// Component returns the term row of component c.
func (dvc *DerivativeValueCache) Component(c int) []float64 {
	return dvc.Values[c*dvc.termCount : (c+1)*dvc.termCount]
}

func (dvc *DerivativeValueCache) resize(components, termCount int) {
	dvc.termCount = termCount
	n := components * termCount
	if cap(dvc.Values) < n {
		dvc.Values = make([]float64, n)
		return
	}
	dvc.Values = dvc.Values[:n]
}

// MeshLocationValueCache holds an element and chart coordinates.
type MeshLocationValueCache struct {
	evaluationStamp
	Element *mesh.Element
	Xi      []float64
}

// StringValueCache holds a string.
type StringValueCache struct {
	evaluationStamp
	Value string
}
