package dashboard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerSupersedesOlderLoad(t *testing.T) {
	tr := NewTracker()

	oldCtx, oldTk := tr.Begin(context.Background(), "sid:/maintenance")
	newCtx, newTk := tr.Begin(context.Background(), "sid:/maintenance")

	require.Error(t, oldCtx.Err())
	assert.ErrorIs(t, context.Cause(oldCtx), ErrSuperseded)
	assert.False(t, oldTk.Current())

	assert.NoError(t, newCtx.Err())
	assert.True(t, newTk.Current())
	assert.Greater(t, newTk.Generation(), oldTk.Generation())

	oldTk.Done()
	assert.True(t, newTk.Current(), "finishing a stale load leaves the newer one tracked")

	newTk.Done()
	assert.ErrorIs(t, context.Cause(newCtx), context.Canceled)
}

func TestTrackerKeysAreIndependent(t *testing.T) {
	tr := NewTracker()

	aCtx, aTk := tr.Begin(context.Background(), "a")
	bCtx, bTk := tr.Begin(context.Background(), "b")
	defer aTk.Done()
	defer bTk.Done()

	assert.NoError(t, aCtx.Err())
	assert.NoError(t, bCtx.Err())
	assert.True(t, aTk.Current())
	assert.True(t, bTk.Current())
}

func TestTrackerFollowsParentCancellation(t *testing.T) {
	tr := NewTracker()
	parent, cancel := context.WithCancel(context.Background())

	ctx, tk := tr.Begin(parent, "a")
	defer tk.Done()
	cancel()

	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.True(t, tk.Current())
}
