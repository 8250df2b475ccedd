package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetSet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	_, err := s.Get(ctx, "inkcloud.painel")
	assert.ErrorIs(t, err, ErrNotFound)

	value := []byte(`{"prefix":"!"}`)
	require.NoError(t, s.Set(ctx, "inkcloud.painel", value))

	// The store keeps its own copy.
	value[2] = 'X'
	got, err := s.Get(ctx, "inkcloud.painel")
	require.NoError(t, err)
	assert.Equal(t, `{"prefix":"!"}`, string(got))

	got[2] = 'Y'
	again, err := s.Get(ctx, "inkcloud.painel")
	require.NoError(t, err)
	assert.Equal(t, `{"prefix":"!"}`, string(again))

	exists, err := s.Exists(ctx, "inkcloud.painel")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.Delete(ctx, "inkcloud.painel"))
	exists, err = s.Exists(ctx, "inkcloud.painel")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryStoreKeys(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	for _, key := range []string{"inkcloud.tenant", "inkcloud.blacklist", "other"} {
		require.NoError(t, s.Set(ctx, key, []byte(`null`)))
	}

	keys, err := s.Keys(ctx, "inkcloud.")
	require.NoError(t, err)
	assert.Equal(t, []string{"inkcloud.blacklist", "inkcloud.tenant"}, keys)
}

func TestMemoryStorePubSub(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	sub, err := s.Subscribe(ctx, "sync")
	require.NoError(t, err)

	require.NoError(t, s.Publish(ctx, "other", []byte("ignored")))
	require.NoError(t, s.Publish(ctx, "sync", []byte("hello")))

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, "sync", msg.Channel)
		assert.Equal(t, "hello", string(msg.Payload))
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	_, open := <-sub.Channel()
	assert.False(t, open)

	require.NoError(t, s.Close())
	_, err = s.Subscribe(ctx, "sync")
	assert.ErrorIs(t, err, ErrClosed)
}
