package domain

// Default per-source fusion weights. Vector-heavy split per the default
// tenant configuration; cross-modal dual-path weights favor the joint space.
const (
	DefaultVectorWeight  = 0.7
	DefaultKeywordWeight = 0.3
	DefaultJointWeight   = 0.7
	DefaultProxyWeight   = 0.3
)

// Weights is an immutable per-tenant fusion weight snapshot. It is resolved
// once per query from the tenant configuration and passed explicitly into
// fusion; there is no hidden global default applied downstream.
type Weights struct {
	Vector  float64
	Keyword float64
	// Joint and Proxy weight the two cross-modal paths (shared embedding
	// space vs. auxiliary-text match). Tunable per tenant, never fixed.
	Joint float64
	Proxy float64
}

// DefaultWeights returns the stock weight split.
func DefaultWeights() Weights {
	return Weights{
		Vector:  DefaultVectorWeight,
		Keyword: DefaultKeywordWeight,
		Joint:   DefaultJointWeight,
		Proxy:   DefaultProxyWeight,
	}
}

// Normalized returns a copy with non-positive weights replaced by defaults.
func (w Weights) Normalized() Weights {
	d := DefaultWeights()
	if w.Vector <= 0 {
		w.Vector = d.Vector
	}
	if w.Keyword <= 0 {
		w.Keyword = d.Keyword
	}
	if w.Joint <= 0 {
		w.Joint = d.Joint
	}
	if w.Proxy <= 0 {
		w.Proxy = d.Proxy
	}
	return w
}
