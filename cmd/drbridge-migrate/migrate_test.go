package main

import (
	"testing"
	"time"

	"github.com/cuemby/drbridge/pkg/storage"
	"github.com/cuemby/drbridge/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBolt(t *testing.T) *storage.BoltStore {
	t.Helper()
	s, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seed(t *testing.T, s storage.Store) {
	t.Helper()
	observed := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.Upsert(types.NewDataRequest(0, []byte{0x01})))
	require.NoError(t, s.Upsert(types.FinishedDataRequest(1, []byte{0x02}, common.HexToHash("0xabc"), observed)))
	require.NoError(t, s.Upsert(types.NewDataRequest(2, []byte{0x03})))
}

func TestMigrate(t *testing.T) {
	src, dst := newBolt(t), newBolt(t)
	seed(t, src)

	res, err := migrate(src, dst, false)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Found)
	assert.Equal(t, 3, res.Migrated)
	assert.Equal(t, uint64(2), res.LastKnownID)

	got, err := dst.GetRequest(1)
	require.NoError(t, err)
	assert.Equal(t, types.DrStateFinished, got.State)
	assert.Equal(t, common.HexToHash("0xabc"), *got.ResolutionHash)

	// Second run is a no-op merge
	res, err = migrate(src, dst, false)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Migrated)
}

func TestMigrate_DryRun(t *testing.T) {
	src := newBolt(t)
	seed(t, src)

	res, err := migrate(src, nil, true)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Found)
	assert.Equal(t, 0, res.Migrated)
}

func TestMigrate_Empty(t *testing.T) {
	res, err := migrate(newBolt(t), newBolt(t), false)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Found)
}
