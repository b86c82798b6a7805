package fused

import (
	"github.com/kailas-cloud/rankfuse/internal/domain/search/tier"
)

// Document is a single fused hit: the summed weighted RRF score plus the
// sources that contributed to it.
type Document struct {
	id      string
	score   float64
	sources []string
}

// NewDocument creates a fused document.
func NewDocument(id string, score float64, sources []string) Document {
	return Document{id: id, score: score, sources: sources}
}

// ID returns the document identifier.
func (d Document) ID() string { return d.id }

// Score returns the fused RRF score.
func (d Document) Score() float64 { return d.score }

// Sources returns the backends that contributed to this document.
func (d Document) Sources() []string { return d.sources }

// Result is the fused answer for one query: the ranked documents and the
// degradation tier that produced them.
type Result struct {
	docs     []Document
	tier     tier.Tier
	cacheHit bool
}

// NewResult creates a fused result.
func NewResult(docs []Document, t tier.Tier) Result {
	return Result{docs: docs, tier: t}
}

// Documents returns the ranked fused documents, best first.
func (r Result) Documents() []Document { return r.docs }

// Tier returns the degradation tier the result was produced under.
func (r Result) Tier() tier.Tier { return r.tier }

// CacheHit reports whether the result was served from the cache.
func (r Result) CacheHit() bool { return r.cacheHit }

// AsCacheHit returns a copy flagged as served from cache.
func (r Result) AsCacheHit() Result {
	r.cacheHit = true
	return r
}
