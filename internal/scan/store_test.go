package scan

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-gudang/internal/pricing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &Store{Client: client, TTL: time.Hour}
}

func TestStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess := Session{
		DealID: "deal-1",
		Entries: []Entry{
			{Description: "Brother Widget", Flaw: pricing.FlawNone, UnitPrice: 1000, Quantity: 2},
		},
		Pending: &Pending{Kind: PendingManualReference, ScannedCode: "999", Flaw: pricing.FlawNone, Quantity: 1},
	}
	require.NoError(t, store.Set(ctx, "sess-1", sess))

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.Equal(t, sess.DealID, got.DealID)
	require.Equal(t, sess.Entries, got.Entries)
	require.Equal(t, sess.Pending, got.Pending)
	require.Equal(t, pricing.Money(2000), got.Total())
}

func TestStoreMissingKeyYieldsFreshSession(t *testing.T) {
	store := newTestStore(t)

	got, err := store.Get(context.Background(), "never-written")
	require.NoError(t, err)
	require.Empty(t, got.DealID)
	require.Empty(t, got.Entries)
	require.Nil(t, got.Pending)
}

func TestStoreLastWriteWins(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "sess-1", Session{DealID: "deal-1"}))
	require.NoError(t, store.Set(ctx, "sess-1", Session{DealID: "deal-2"}))

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.Equal(t, "deal-2", got.DealID)
}

func TestStoreUnavailable(t *testing.T) {
	var store *Store
	_, err := store.Get(context.Background(), "sess-1")
	require.ErrorIs(t, err, ErrStoreUnavailable)

	empty := &Store{}
	require.ErrorIs(t, empty.Set(context.Background(), "sess-1", Session{}), ErrStoreUnavailable)
}
