package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheMetricsStats(t *testing.T) {
	m := NewCacheMetrics("snapshot-test")

	t.Run("empty", func(t *testing.T) {
		stats := m.GetStats()
		assert.Equal(t, "snapshot-test", stats.Kind)
		assert.Zero(t, stats.Hits)
		assert.Zero(t, stats.Misses)
		assert.Zero(t, stats.HitRatio)
	})

	t.Run("hit ratio", func(t *testing.T) {
		m.RecordHit()
		m.RecordHit()
		m.RecordHit()
		m.RecordMiss()

		stats := m.GetStats()
		assert.Equal(t, int64(3), stats.Hits)
		assert.Equal(t, int64(1), stats.Misses)
		assert.Equal(t, 0.75, stats.HitRatio)
	})
}

func TestCacheMetricsKindsAreIndependent(t *testing.T) {
	a := NewCacheMetrics("kind-a")
	b := NewCacheMetrics("kind-b")

	a.RecordHit()
	a.RecordFetchDuration(0.25)

	assert.Equal(t, int64(1), a.GetStats().Hits)
	assert.Zero(t, b.GetStats().Hits)
}
