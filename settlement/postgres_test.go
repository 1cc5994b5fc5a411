package settlement

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivepay/hivepay/types"
	"github.com/hivepay/hivepay/utils"
)

func TestPostgresStoreLifecycle(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := NewPostgresStore(ctx, dsn)
	require.NoError(t, err)
	defer store.Close()

	intent := pendingIntent(utils.NewOrderID(), utils.GenerateMemo())
	require.NoError(t, store.Create(ctx, intent))

	got, err := store.Get(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, intent.Memo, got.Memo)
	assert.Equal(t, types.OrderPending, got.Status)
	assert.True(t, intent.ExpectedAmount.Equal(got.ExpectedAmount))

	txRef := "tx-" + intent.ID
	won, err := store.Settle(ctx, intent.ID, txRef)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = store.Settle(ctx, intent.ID, txRef)
	require.NoError(t, err)
	assert.False(t, won)

	other := pendingIntent(utils.NewOrderID(), utils.GenerateMemo())
	require.NoError(t, store.Create(ctx, other))

	_, err = store.Settle(ctx, other.ID, txRef)
	require.Error(t, err)
	assert.Equal(t, types.ErrTxRefConsumed, types.ErrorCode(err))
}

func TestPostgresStoreExpiredStillSettles(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := NewPostgresStore(ctx, dsn)
	require.NoError(t, err)
	defer store.Close()

	intent := pendingIntent(utils.NewOrderID(), utils.GenerateMemo())
	require.NoError(t, store.Create(ctx, intent))
	require.NoError(t, store.MarkExpired(ctx, intent.ID))

	won, err := store.Settle(ctx, intent.ID, "tx-late-"+intent.ID)
	require.NoError(t, err)
	assert.True(t, won)
}
