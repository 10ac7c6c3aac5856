package repo

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dom "tasktracker/internal/domain"
)

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newTask(owner, description string) dom.Task {
	return dom.Task{Description: description, OwnerID: owner, CreatedAt: baseTime}
}

// testTaskRepo runs the behaviour every TaskRepo backend must share.
func testTaskRepo(t *testing.T, newRepo func(t *testing.T) TaskRepo) {
	ctx := context.Background()

	t.Run("insert assigns fresh ids", func(t *testing.T) {
		r := newRepo(t)
		a, err := r.Insert(ctx, newTask("alice", "Write report"))
		require.NoError(t, err)
		b, err := r.Insert(ctx, newTask("alice", "Buy milk"))
		require.NoError(t, err)

		assert.NotZero(t, a.ID)
		assert.Greater(t, b.ID, a.ID)
		assert.False(t, a.Completed)
		assert.Nil(t, a.UpdatedAt)
		assert.Equal(t, "alice", a.OwnerID)

		got, err := r.Get(ctx, a.ID)
		require.NoError(t, err)
		want := newTask("alice", "Write report")
		want.ID = a.ID
		if diff := cmp.Diff(want, got, cmpopts.EquateApproxTime(time.Millisecond)); diff != "" {
			t.Errorf("Get() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("deleted ids are not reused", func(t *testing.T) {
		r := newRepo(t)
		_, err := r.Insert(ctx, newTask("alice", "one"))
		require.NoError(t, err)
		last, err := r.Insert(ctx, newTask("alice", "two"))
		require.NoError(t, err)
		require.NoError(t, r.Delete(ctx, last.ID))

		next, err := r.Insert(ctx, newTask("alice", "three"))
		require.NoError(t, err)
		assert.Greater(t, next.ID, last.ID)
	})

	t.Run("get missing", func(t *testing.T) {
		r := newRepo(t)
		_, err := r.Get(ctx, 4242)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list is scoped, filtered and ordered", func(t *testing.T) {
		r := newRepo(t)
		a1, _ := r.Insert(ctx, newTask("alice", "Write report"))
		_, _ = r.Insert(ctx, newTask("bob", "Fix bike"))
		a2, _ := r.Insert(ctx, newTask("alice", "Buy 100% milk"))
		_, err := r.ToggleCompleted(ctx, a2.ID, baseTime.Add(time.Minute))
		require.NoError(t, err)

		all, err := r.ListByOwner(ctx, "alice", dom.ListFilter{})
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, []int64{a1.ID, a2.ID}, ids(all))
		for _, task := range all {
			assert.Equal(t, "alice", task.OwnerID)
		}

		newest, err := r.ListByOwner(ctx, "alice", dom.ListFilter{Order: dom.OrderNewest})
		require.NoError(t, err)
		assert.Equal(t, []int64{a2.ID, a1.ID}, ids(newest))

		done := true
		completed, err := r.ListByOwner(ctx, "alice", dom.ListFilter{Completed: &done})
		require.NoError(t, err)
		assert.Equal(t, []int64{a2.ID}, ids(completed))

		byQuery, err := r.ListByOwner(ctx, "alice", dom.ListFilter{Query: "REPORT"})
		require.NoError(t, err)
		assert.Equal(t, []int64{a1.ID}, ids(byQuery))

		percent, err := r.ListByOwner(ctx, "alice", dom.ListFilter{Query: "100%"})
		require.NoError(t, err)
		assert.Equal(t, []int64{a2.ID}, ids(percent))

		bob, err := r.ListByOwner(ctx, "bob", dom.ListFilter{})
		require.NoError(t, err)
		assert.Len(t, bob, 1)

		nobody, err := r.ListByOwner(ctx, "carol", dom.ListFilter{})
		require.NoError(t, err)
		assert.NotNil(t, nobody)
		assert.Empty(t, nobody)
	})

	t.Run("query folds non-ASCII case", func(t *testing.T) {
		r := newRepo(t)
		umlaut, err := r.Insert(ctx, newTask("alice", "Ärger melden"))
		require.NoError(t, err)
		_, err = r.Insert(ctx, newTask("alice", "Straße fegen"))
		require.NoError(t, err)

		for _, q := range []string{"ärger", "ÄRGER", "Ärger"} {
			got, err := r.ListByOwner(ctx, "alice", dom.ListFilter{Query: q})
			require.NoError(t, err)
			assert.Equal(t, []int64{umlaut.ID}, ids(got), "q=%q", q)
		}
	})

	t.Run("list is a snapshot", func(t *testing.T) {
		r := newRepo(t)
		task, _ := r.Insert(ctx, newTask("alice", "before"))
		list, err := r.ListByOwner(ctx, "alice", dom.ListFilter{})
		require.NoError(t, err)

		_, err = r.UpdateDescription(ctx, task.ID, "after", baseTime.Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, "before", list[0].Description)
	})

	t.Run("update stamps updated_at", func(t *testing.T) {
		r := newRepo(t)
		task, _ := r.Insert(ctx, newTask("alice", "draft"))
		at := baseTime.Add(time.Hour)

		got, err := r.UpdateDescription(ctx, task.ID, "final", at)
		require.NoError(t, err)
		assert.Equal(t, "final", got.Description)
		require.NotNil(t, got.UpdatedAt)
		assert.WithinDuration(t, at, *got.UpdatedAt, time.Millisecond)

		_, err = r.UpdateDescription(ctx, 999, "x", at)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("updated_at never moves backwards", func(t *testing.T) {
		r := newRepo(t)
		task, _ := r.Insert(ctx, newTask("alice", "draft"))
		later := baseTime.Add(time.Hour)

		_, err := r.ToggleCompleted(ctx, task.ID, later)
		require.NoError(t, err)
		got, err := r.ToggleCompleted(ctx, task.ID, baseTime.Add(time.Minute))
		require.NoError(t, err)
		require.NotNil(t, got.UpdatedAt)
		assert.WithinDuration(t, later, *got.UpdatedAt, time.Millisecond)
	})

	t.Run("toggle is its own inverse", func(t *testing.T) {
		r := newRepo(t)
		task, _ := r.Insert(ctx, newTask("alice", "flip"))

		once, err := r.ToggleCompleted(ctx, task.ID, baseTime.Add(time.Minute))
		require.NoError(t, err)
		assert.True(t, once.Completed)
		twice, err := r.ToggleCompleted(ctx, task.ID, baseTime.Add(2*time.Minute))
		require.NoError(t, err)
		assert.False(t, twice.Completed)

		_, err = r.ToggleCompleted(ctx, 999, baseTime)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete is permanent and repeated delete fails", func(t *testing.T) {
		r := newRepo(t)
		task, _ := r.Insert(ctx, newTask("alice", "gone"))

		require.NoError(t, r.Delete(ctx, task.ID))
		_, err := r.Get(ctx, task.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, r.Delete(ctx, task.ID), ErrNotFound)
		assert.ErrorIs(t, r.Delete(ctx, task.ID), ErrNotFound)
	})

	t.Run("concurrent toggles net out", func(t *testing.T) {
		r := newRepo(t)
		task, _ := r.Insert(ctx, newTask("alice", "race"))

		const n = 20
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := r.ToggleCompleted(ctx, task.ID, baseTime.Add(time.Duration(i)*time.Second))
				errs <- err
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		got, err := r.Get(ctx, task.ID)
		require.NoError(t, err)
		assert.False(t, got.Completed, "an even number of toggles restores the flag")
		require.NotNil(t, got.UpdatedAt)
		assert.WithinDuration(t, baseTime.Add((n-1)*time.Second), *got.UpdatedAt, time.Millisecond)
	})
}

// testUserRepo runs the behaviour every UserRepo backend must share.
func testUserRepo(t *testing.T, newRepo func(t *testing.T) UserRepo) {
	ctx := context.Background()
	r := newRepo(t)

	u, err := r.Create(ctx, "alice", "hash")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "alice", u.Username)

	_, err = r.Create(ctx, "alice", "other")
	assert.ErrorIs(t, err, ErrDuplicate)

	byName, err := r.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)
	assert.Equal(t, "hash", byName.PasswordHash)

	byID, err := r.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	_, err = r.GetByUsername(ctx, "bob")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func ids(list []dom.Task) []int64 {
	out := make([]int64, len(list))
	for i, t := range list {
		out[i] = t.ID
	}
	return out
}
