package cache

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/kailas-cloud/rankfuse/internal/domain/search/query"
)

// Fingerprint derives a stable 64-bit digest of everything that determines a
// query's answer: tenant, normalized query text or vector, target modality,
// filters, and top_k. Two queries with the same fingerprint under the same
// tenant generation may share a cache entry.
func Fingerprint(q *query.Query) uint64 {
	d := xxhash.New()

	writeField(d, []byte(q.Tenant()))
	writeField(d, []byte(q.NormalizedText()))
	writeField(d, vectorBytes(q.Vector()))
	writeField(d, []byte(q.Target()))
	writeField(d, []byte(q.Filters().Canonical()))

	var topK [8]byte
	binary.LittleEndian.PutUint64(topK[:], uint64(q.TopK()))
	writeField(d, topK[:])

	return d.Sum64()
}

// writeField length-prefixes each component so adjacent fields never
// collide by concatenation.
func writeField(d *xxhash.Digest, b []byte) {
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(b)))
	_, _ = d.Write(n[:])
	_, _ = d.Write(b)
}

func vectorBytes(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
