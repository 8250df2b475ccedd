package settings

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupRefreshAndStatus(t *testing.T) {
	ctx := context.Background()
	backend := newInstrumentedStore()
	prefsStore := newPrefsStore(backend, newFakeClock(), nil)
	listStore := newListStore(backend)

	g := NewGroup("notifications", prefsStore, listStore)
	assert.Equal(t, StatusLoading, g.Status())

	require.NoError(t, g.Refresh(ctx))
	assert.Equal(t, StatusIdle, g.Status())
	assert.Len(t, g.Stores(), 2)

	backend.failSets(stderrors.New("disk full"))
	assert.Error(t, AddEntries(ctx, listStore, []string{"x"}))
	assert.Equal(t, StatusError, g.Status())

	g.Close()
	assert.True(t, prefsStore.Closed())
	assert.True(t, listStore.Closed())
}
