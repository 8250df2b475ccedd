package session

import (
	"context"
	"sync"
	"testing"

	"inkcloud/internal/domain"
	app_errors "inkcloud/internal/errors"
	"inkcloud/internal/kv"
	"inkcloud/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tenantID = "5b3c1a4e-8f0f-4b8a-9c51-0d1f3e2a7b64"

func newSession(t *testing.T) (*Session, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	stores := domain.NewStores(kv.New(mem, kv.Options{}), domain.StoreOptions{})
	require.NoError(t, stores.Tenant.Refresh(context.Background()))
	return New(stores.Tenant), mem
}

func TestSelectAndClear(t *testing.T) {
	ctx := context.Background()
	s, mem := newSession(t)
	assert.False(t, s.HasTenant())

	require.NoError(t, s.Select(ctx, tenantID))
	assert.Equal(t, tenantID, s.Tenant())
	raw, err := mem.Get(ctx, domain.KeyTenant)
	require.NoError(t, err)
	assert.Equal(t, `"`+tenantID+`"`, string(raw))

	require.NoError(t, s.Clear(ctx))
	assert.False(t, s.HasTenant())
}

func TestSelectRejectsInvalidID(t *testing.T) {
	s, _ := newSession(t)
	err := s.Select(context.Background(), "guild-42")
	assert.ErrorIs(t, err, app_errors.ErrValidationFailure)
	assert.Equal(t, "", s.Tenant())
}

func TestOnChange(t *testing.T) {
	ctx := context.Background()
	s, _ := newSession(t)

	var (
		mu   sync.Mutex
		seen []string
	)
	cancel := s.OnChange(func(tenant string) {
		mu.Lock()
		seen = append(seen, tenant)
		mu.Unlock()
	})
	defer cancel()

	require.NoError(t, s.Select(ctx, tenantID))
	require.NoError(t, s.Select(ctx, tenantID))
	require.NoError(t, s.Clear(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{tenantID, ""}, seen)
}

func TestBridge(t *testing.T) {
	t.Cleanup(func() { Install(nil) })
	assert.Equal(t, "", CurrentTenant())

	s, _ := newSession(t)
	require.NoError(t, s.Select(context.Background(), tenantID))
	Install(s)
	assert.Same(t, s, Installed())
	assert.Equal(t, tenantID, CurrentTenant())

	Install(nil)
	assert.Equal(t, "", CurrentTenant())
}
