package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/cuemby/drbridge/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Set DRBRIDGE_TEST_DATABASE_URL to a disposable database to run these.
func newTestPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	url := os.Getenv("DRBRIDGE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("DRBRIDGE_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	store, err := NewPostgresStore(ctx, url)
	require.NoError(t, err)
	_, err = store.pool.Exec(ctx, `TRUNCATE data_requests; UPDATE bridge_meta SET value = 0 WHERE key = 'next_id'`)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPostgresStore_Watermark(t *testing.T) {
	store := newTestPostgresStore(t)

	_, ok, err := store.LastKnownID()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Upsert(types.NewDataRequest(0, []byte("a"))))
	require.NoError(t, store.Upsert(types.NewDataRequest(2, []byte("c"))))

	id, ok, err := store.LastKnownID()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(0), id)

	require.NoError(t, store.Upsert(types.NewDataRequest(1, []byte("b"))))
	id, _, err = store.LastKnownID()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), id)
}

func TestPostgresStore_FinishedNeverReverts(t *testing.T) {
	store := newTestPostgresStore(t)
	hash := common.HexToHash("0xabc")

	require.NoError(t, store.Upsert(types.FinishedDataRequest(0, []byte("dr"), hash, time.Now())))
	require.NoError(t, store.Upsert(types.NewDataRequest(0, []byte("dr"))))

	got, err := store.GetRequest(0)
	require.NoError(t, err)
	assert.Equal(t, types.DrStateFinished, got.State)
	require.NotNil(t, got.ResolutionHash)
	assert.Equal(t, hash, *got.ResolutionHash)

	finished, err := store.ListRequests(types.DrStateFinished)
	require.NoError(t, err)
	assert.Len(t, finished, 1)
}

func TestPostgresStore_CountByState(t *testing.T) {
	store := newTestPostgresStore(t)

	require.NoError(t, store.Upsert(types.NewDataRequest(0, []byte("a"))))
	require.NoError(t, store.Upsert(types.FinishedDataRequest(1, []byte("b"), common.HexToHash("0x1"), time.Now())))
	require.NoError(t, store.Upsert(types.NewDataRequest(2, []byte("c"))))

	counts, err := store.CountByState()
	require.NoError(t, err)
	assert.Equal(t, 2, counts[types.DrStateNew])
	assert.Equal(t, 1, counts[types.DrStateFinished])
}
