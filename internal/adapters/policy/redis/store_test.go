package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/quotaguard/internal/domain"
)

func setupStore(t *testing.T, opts ...Option) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, opts...), mr
}

func TestStore_Key(t *testing.T) {
	assert.Equal(t, "quotaguard:policy:acct-1", NewStore(nil).key("acct-1"))
	assert.Equal(t, "app:acct-1", NewStore(nil, WithKeyPrefix("app:")).key("acct-1"))
	assert.Equal(t, "quotaguard:policy:acct-1", NewStore(nil, WithKeyPrefix("")).key("acct-1"))
}

func TestStore_GetMissing(t *testing.T) {
	store, _ := setupStore(t)

	_, err := store.Get(context.Background(), "acct-1")
	assert.ErrorIs(t, err, domain.ErrPolicyNotFound)
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	store, mr := setupStore(t)
	doc := domain.DefaultPolicyDocument(domain.AllowStatement(domain.DefaultAllowSID, domain.DefaultMeteredActions)).
		WithFirst(domain.DenyStatement(domain.DefaultMeteredActions))

	require.NoError(t, store.Put(context.Background(), "acct-1", doc))

	raw, err := mr.Get("quotaguard:policy:acct-1")
	require.NoError(t, err)
	assert.Contains(t, raw, domain.DenySID)

	got, err := store.Get(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.True(t, doc.Equal(got))
}

func TestStore_GetCorruptDocument(t *testing.T) {
	store, mr := setupStore(t)
	require.NoError(t, mr.Set("quotaguard:policy:acct-1", "{not json"))

	_, err := store.Get(context.Background(), "acct-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrPolicyNotFound)
}

func TestStore_ConnectionError(t *testing.T) {
	store, mr := setupStore(t)
	mr.Close()

	_, err := store.Get(context.Background(), "acct-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrPolicyNotFound)
}

func TestStore_RejectsEmptyAccount(t *testing.T) {
	store, _ := setupStore(t)

	err := store.Put(context.Background(), "", domain.PolicyDocument{})
	assert.ErrorIs(t, err, domain.ErrEmptyAccountID)
}
