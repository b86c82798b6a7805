package candidate

// Candidate is a single raw-ranked hit from exactly one backend.
type Candidate struct {
	id    string
	score float64
}

// New creates a candidate.
func New(id string, score float64) Candidate {
	return Candidate{id: id, score: score}
}

// ID returns the document identifier.
func (c Candidate) ID() string { return c.id }

// Score returns the backend's raw relevance score.
func (c Candidate) Score() float64 { return c.score }

// List is one backend's ordered output for one query, tagged with the
// source identifier and the fusion weight the source carries. Lists are
// never merged in place; fusion reads them as immutable input.
type List struct {
	source string
	weight float64
	items  []Candidate
}

// NewList creates a candidate list. A non-positive weight is treated as 1.
func NewList(source string, weight float64, items []Candidate) List {
	if weight <= 0 {
		weight = 1
	}
	return List{source: source, weight: weight, items: items}
}

// Source returns the backend identifier that produced this list.
func (l List) Source() string { return l.source }

// Weight returns the fusion weight for this source.
func (l List) Weight() float64 { return l.weight }

// Items returns the ranked candidates, best first. Callers must not mutate.
func (l List) Items() []Candidate { return l.items }

// Len returns the number of candidates.
func (l List) Len() int { return len(l.items) }
