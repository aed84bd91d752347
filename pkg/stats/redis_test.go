package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeKeys(t *testing.T) {
	now := time.Date(2026, time.August, 31, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "stats/2026/8/f3a91c", makeKey(now, "f3a91c"))
	assert.Equal(t, "stats/top/2026/8/plays", makeTop(now, MetricPlays))
}

func TestNoop(t *testing.T) {
	n, err := Noop{}.Inc(MetricQueries, "x")
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, Noop{}.Close())
}

func TestNewRedisStats_BadURL(t *testing.T) {
	_, err := NewRedisStats("not-a-url")
	require.Error(t, err)
}
