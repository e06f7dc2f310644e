package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// The dedup index in schema.sql is partial (WHERE dedupe_key IS NOT NULL),
// so the conflict target has to carry the same predicate: a bare
// ON CONFLICT (dedupe_key) has no matching unique constraint to infer and
// Postgres fails the insert with 42P10 before any dedup semantics apply.
func TestCreateDedupedQuery_MatchesPartialIndexArbiter(t *testing.T) {
	assert.Contains(t, createDedupedQuery, "ON CONFLICT (dedupe_key) WHERE dedupe_key IS NOT NULL DO NOTHING")
}
