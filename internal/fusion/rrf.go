// Package fusion merges ranked candidate lists into a single ranking via
// weighted Reciprocal Rank Fusion. It is a pure function over its inputs:
// no I/O, no mutation, identical inputs always yield identical output.
package fusion

import (
	"sort"

	"github.com/kailas-cloud/rankfuse/internal/domain/search/candidate"
	"github.com/kailas-cloud/rankfuse/internal/domain/search/fused"
)

// DefaultK is the standard RRF damping constant (Cormack et al. 2009).
// It controls how quickly a list's contribution decays by rank and keeps a
// single list from dominating purely by algorithm identity.
const DefaultK = 60

// Fuse combines candidate lists using Reciprocal Rank Fusion.
//
// Each candidate at 1-based rank r in a list contributes weight/(k+r) to its
// document's fused score; contributions are summed across all lists. A
// document absent from every list is absent from the output. Ties on the
// fused score break by document id ascending, so the ordering is fully
// deterministic for identical inputs.
func Fuse(lists []candidate.List, k int) []fused.Document {
	if k <= 0 {
		k = DefaultK
	}

	type entry struct {
		score   float64
		sources []string
	}

	scores := make(map[string]*entry)
	for _, list := range lists {
		for rank, c := range list.Items() {
			e, ok := scores[c.ID()]
			if !ok {
				e = &entry{}
				scores[c.ID()] = e
			}
			e.score += list.Weight() / float64(k+rank+1)
			e.sources = append(e.sources, list.Source())
		}
	}

	docs := make([]fused.Document, 0, len(scores))
	for id, e := range scores {
		docs = append(docs, fused.NewDocument(id, e.score, e.sources))
	}

	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Score() != docs[j].Score() {
			return docs[i].Score() > docs[j].Score()
		}
		return docs[i].ID() < docs[j].ID()
	})

	return docs
}

// Top truncates a fused ranking to at most n documents.
func Top(docs []fused.Document, n int) []fused.Document {
	if n > 0 && len(docs) > n {
		return docs[:n]
	}
	return docs
}
