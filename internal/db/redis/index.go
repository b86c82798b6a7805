package redis

import (
	"context"

	"github.com/kailas-cloud/rankfuse/internal/db"
)

// IndexExists checks for an FT index via FT.INFO.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	err := s.do(ctx, cmd).Error()
	if err == nil {
		return true, nil
	}
	if isRedisErr(err, "unknown index") || isRedisErr(err, "no such index") {
		return false, nil
	}
	return false, &db.Error{Op: db.OpIndexInfo, Err: err}
}

// SupportsTextSearch returns true: Redis 8+ and Valkey with valkey-search
// both score TEXT fields with BM25.
func (s *Store) SupportsTextSearch(_ context.Context) bool {
	return true
}
