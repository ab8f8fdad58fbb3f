package middleware

import (
	"testing"
	"time"

	"pulsemail/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCounterStoreIncrements(t *testing.T) {
	store := newMemoryCounterStore()

	for i := int64(1); i <= 5; i++ {
		count, err := store.Incr("rl:org:1:100", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, count)
	}
}

func TestMemoryCounterStoreIsolatesKeys(t *testing.T) {
	store := newMemoryCounterStore()

	_, err := store.Incr("rl:org:1:100", time.Minute)
	require.NoError(t, err)

	count, err := store.Incr("rl:org:2:100", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMemoryCounterStoreExpiresWindow(t *testing.T) {
	store := newMemoryCounterStore()

	_, err := store.Incr("rl:org:1:100", -time.Second)
	require.NoError(t, err)

	// The previous window already expired, so counting restarts
	count, err := store.Incr("rl:org:1:100", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestPlanRateLimitsOrdering(t *testing.T) {
	assert.Less(t, planRateLimits[models.PlanFree], planRateLimits[models.PlanStarter])
	assert.Less(t, planRateLimits[models.PlanStarter], planRateLimits[models.PlanProfessional])
	assert.Less(t, planRateLimits[models.PlanProfessional], planRateLimits[models.PlanEnterprise])
}
