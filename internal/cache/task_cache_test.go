package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dom "tasktracker/internal/domain"
)

func setupTestCache(t *testing.T) (*TaskCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewTaskCache(rdb, time.Minute), mr
}

func TestTaskCache_GetSetList(t *testing.T) {
	c, mr := setupTestCache(t)
	ctx := context.Background()
	done := true
	f := dom.ListFilter{Completed: &done}

	got, err := c.GetList(ctx, "alice", f)
	require.NoError(t, err)
	assert.Nil(t, got, "miss")

	list := []dom.Task{{ID: 1, Description: "Write report", OwnerID: "alice", Completed: true}}
	require.NoError(t, c.SetList(ctx, "alice", f, list))

	got, err = c.GetList(ctx, "alice", f)
	require.NoError(t, err)
	assert.Equal(t, list, got)

	other, err := c.GetList(ctx, "alice", dom.ListFilter{})
	require.NoError(t, err)
	assert.Nil(t, other, "different filter is a different key")

	mr.FastForward(2 * time.Minute)
	got, err = c.GetList(ctx, "alice", f)
	require.NoError(t, err)
	assert.Nil(t, got, "expired")
}

func TestTaskCache_EmptyListIsAHit(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetList(ctx, "alice", dom.ListFilter{}, []dom.Task{}))
	got, err := c.GetList(ctx, "alice", dom.ListFilter{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestTaskCache_InvalidateOwner(t *testing.T) {
	c, mr := setupTestCache(t)
	ctx := context.Background()
	open := false

	require.NoError(t, c.SetList(ctx, "alice", dom.ListFilter{}, []dom.Task{{ID: 1}}))
	require.NoError(t, c.SetList(ctx, "alice", dom.ListFilter{Completed: &open, Query: "x"}, []dom.Task{{ID: 1}}))
	require.NoError(t, c.SetList(ctx, "bob", dom.ListFilter{}, []dom.Task{{ID: 2}}))
	require.NoError(t, c.SetList(ctx, "a*", dom.ListFilter{}, []dom.Task{{ID: 3}}))

	require.NoError(t, c.InvalidateOwner(ctx, "a*"))
	assert.True(t, mr.Exists(ListKey("alice", dom.ListFilter{})), "glob characters in an owner id are literal")
	assert.False(t, mr.Exists(ListKey("a*", dom.ListFilter{})))

	require.NoError(t, c.InvalidateOwner(ctx, "alice"))
	assert.False(t, mr.Exists(ListKey("alice", dom.ListFilter{})))
	assert.False(t, mr.Exists(ListKey("alice", dom.ListFilter{Completed: &open, Query: "x"})))
	assert.True(t, mr.Exists(ListKey("bob", dom.ListFilter{})))

	require.NoError(t, c.InvalidateOwner(ctx, "nobody"))
}

func TestListKey(t *testing.T) {
	done := true
	assert.Equal(t, "tasks:alice:list:any:insertion:", ListKey("alice", dom.ListFilter{}))
	assert.Equal(t, "tasks:alice:list:true:newest:Milk",
		ListKey("alice", dom.ListFilter{Completed: &done, Order: dom.OrderNewest, Query: "Milk"}))
	assert.NotEqual(t, ListKey("alice", dom.ListFilter{Query: "report"}), ListKey("alice", dom.ListFilter{Query: "report "}))
}
