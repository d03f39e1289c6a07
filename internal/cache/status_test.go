package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelfortunato/pueue-webui/internal/domain"
	"github.com/michaelfortunato/pueue-webui/internal/stats"
)

func snapshotFixture() (domain.Snapshot, stats.Stats, string) {
	snapshot := domain.Snapshot{
		"tasks": map[string]any{"0": map[string]any{"command": "echo hi"}},
	}
	derived, digest := stats.Compute(snapshot)
	return snapshot, derived, digest
}

func TestStatusCache_MissWhenEmpty(t *testing.T) {
	c := New(DefaultTTL)

	_, ok := c.Get()
	assert.False(t, ok)
}

func TestStatusCache_HitWithinTTL(t *testing.T) {
	now := time.Now()
	c := New(DefaultTTL)
	c.setClock(func() time.Time { return now })

	snapshot, derived, digest := snapshotFixture()
	c.Put(snapshot, derived, digest)

	now = now.Add(400 * time.Millisecond)
	entry, ok := c.Get()
	require.True(t, ok)
	assert.Equal(t, digest, entry.Digest)
}

func TestStatusCache_ExpiresAfterTTL(t *testing.T) {
	now := time.Now()
	c := New(DefaultTTL)
	c.setClock(func() time.Time { return now })

	snapshot, derived, digest := snapshotFixture()
	c.Put(snapshot, derived, digest)

	now = now.Add(501 * time.Millisecond)
	_, ok := c.Get()
	assert.False(t, ok)
}

func TestStatusCache_PutReplacesSlot(t *testing.T) {
	c := New(DefaultTTL)

	snapshot, derived, digest := snapshotFixture()
	c.Put(snapshot, derived, digest)
	c.Put(domain.Snapshot{}, stats.Stats{}, "5381:0")

	entry, ok := c.Get()
	require.True(t, ok)
	assert.Equal(t, "5381:0", entry.Digest)
}

func TestStatusCache_ZeroTTLSelectsDefault(t *testing.T) {
	c := New(0)
	assert.Equal(t, DefaultTTL, c.ttl)
}
