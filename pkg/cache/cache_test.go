package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microgridplanner/planner-core/internal/models"
)

func TestNoopSetGetDelete(t *testing.T) {
	c := NewNoopValkeyCluster()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "powerload:pl-1", map[string]string{"name": "feeder"}, time.Minute))

	got, err := c.Get(ctx, "powerload:pl-1")
	require.NoError(t, err)
	assert.Contains(t, string(got), "feeder")

	require.NoError(t, c.Delete(ctx, "powerload:pl-1"))
	_, err = c.Get(ctx, "powerload:pl-1")
	assert.Error(t, err)
}

func TestNoopSetExpiry(t *testing.T) {
	c := NewNoopValkeyCluster()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	_, err := c.Get(ctx, "k")
	assert.Error(t, err)
}

func TestNoopIndexSets(t *testing.T) {
	c := NewNoopValkeyCluster()
	ctx := context.Background()

	require.NoError(t, c.SetAdd(ctx, "user_powerloads:u-1", "pl-1", "pl-2"))
	require.NoError(t, c.SetAdd(ctx, "user_powerloads:u-1", "pl-2"))

	members, err := c.SetMembers(ctx, "user_powerloads:u-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"pl-1", "pl-2"}, members)

	require.NoError(t, c.SetRemove(ctx, "user_powerloads:u-1", "pl-1"))
	members, err = c.SetMembers(ctx, "user_powerloads:u-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"pl-2"}, members)
}

func TestNoopSessionLifecycle(t *testing.T) {
	c := NewNoopValkeyCluster()
	ctx := context.Background()

	session := &models.UserSession{ID: "s-1", UserID: "u-1"}
	require.NoError(t, c.SetSession(ctx, session))
	assert.False(t, session.LastActivity.IsZero())

	got, err := c.GetSession(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.UserID)

	active, err := c.GetActiveSessions(ctx, "u-1")
	require.NoError(t, err)
	assert.Len(t, active, 1)

	require.NoError(t, c.InvalidateSession(ctx, "s-1"))
	_, err = c.GetSession(ctx, "s-1")
	assert.Error(t, err)
}

func TestNoopIncrementCountsExactlyUnderConcurrency(t *testing.T) {
	c := NewNoopValkeyCluster()
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := c.Increment(ctx, "rate_limit:u-1:1", time.Minute)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	count, err := c.Increment(ctx, "rate_limit:u-1:1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(workers+1), count, "no increments may be lost to interleaving")
}

func TestNoopIncrementRestartsAfterExpiry(t *testing.T) {
	c := NewNoopValkeyCluster()
	ctx := context.Background()

	count, err := c.Increment(ctx, "k", time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	time.Sleep(5 * time.Millisecond)
	count, err = c.Increment(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "an expired window starts a fresh count")
}

func TestNoopLockIsExclusiveUntilReleased(t *testing.T) {
	c := NewNoopValkeyCluster()
	ctx := context.Background()

	ok, err := c.AcquireLock(ctx, "compute:u-1:simulate", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.AcquireLock(ctx, "compute:u-1:simulate", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second acquisition must be refused while held")

	require.NoError(t, c.ReleaseLock(ctx, "compute:u-1:simulate"))
	ok, err = c.AcquireLock(ctx, "compute:u-1:simulate", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
