package syncsessions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(ttl time.Duration) (*Registry, *time.Time) {
	r := NewRegistry(ttl)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }
	return r, &now
}

func TestBegin_AllocatesDistinctTokens(t *testing.T) {
	r, _ := newTestRegistry(5 * time.Minute)

	a := r.Begin("RM000001", "clientA", 3, 10)
	b := r.Begin("RM000001", "clientA", 3, 10)

	require.NotEmpty(t, a.Token)
	require.NotEmpty(t, b.Token)
	assert.NotEqual(t, a.Token, b.Token)
	assert.Equal(t, 2, r.Len())
}

func TestObserve_AccumulatesPathHashes(t *testing.T) {
	r, _ := newTestRegistry(5 * time.Minute)
	s := r.Begin("RM000001", "clientA", 2, 4)

	remaining, ok := r.Observe("RM000001", s.Token, []string{"aa", "bb"})
	require.True(t, ok)
	assert.Equal(t, 1, remaining)

	remaining, ok = r.Observe("RM000001", s.Token, []string{"bb", "cc"})
	require.True(t, ok)
	assert.Equal(t, 0, remaining)

	got, ok := r.Take("RM000001", s.Token)
	require.True(t, ok)
	assert.Len(t, got.PathHashes, 3)
	assert.Equal(t, 2, got.ReceivedChunks)
}

func TestObserve_WrongRoom(t *testing.T) {
	r, _ := newTestRegistry(5 * time.Minute)
	s := r.Begin("RM000001", "clientA", 1, 1)

	_, ok := r.Observe("RM000002", s.Token, []string{"aa"})
	assert.False(t, ok)
}

func TestTake_UnknownToken(t *testing.T) {
	r, _ := newTestRegistry(5 * time.Minute)

	_, ok := r.Take("RM000001", "no-such-token")
	assert.False(t, ok)
}

func TestTake_Consumes(t *testing.T) {
	r, _ := newTestRegistry(5 * time.Minute)
	s := r.Begin("RM000001", "clientA", 1, 1)

	_, ok := r.Take("RM000001", s.Token)
	require.True(t, ok)

	_, ok = r.Take("RM000001", s.Token)
	assert.False(t, ok, "a consumed session must not be reusable")
}

func TestExpiry_ByInactivity(t *testing.T) {
	r, now := newTestRegistry(5 * time.Minute)
	s := r.Begin("RM000001", "clientA", 2, 2)

	*now = now.Add(4 * time.Minute)
	_, ok := r.Observe("RM000001", s.Token, []string{"aa"})
	require.True(t, ok, "activity within the TTL keeps the session alive")

	*now = now.Add(5*time.Minute + time.Second)
	_, ok = r.Observe("RM000001", s.Token, []string{"bb"})
	assert.False(t, ok, "inactivity beyond the TTL expires the session")
	assert.Equal(t, 0, r.Len())
}

func TestSweep_RemovesOnlyExpired(t *testing.T) {
	r, now := newTestRegistry(5 * time.Minute)
	old := r.Begin("RM000001", "clientA", 1, 1)

	*now = now.Add(6 * time.Minute)
	fresh := r.Begin("RM000001", "clientB", 1, 1)

	removed := r.Sweep()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, r.Len())

	_, ok := r.Take("RM000001", old.Token)
	assert.False(t, ok)
	_, ok = r.Take("RM000001", fresh.Token)
	assert.True(t, ok)
}
