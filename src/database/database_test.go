package database

import (
	"testing"

	"github.com/investmentmanagement137/portfolio-sub000/src/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	InitDB(":memory:")
	m.Run()
}

func TestPutGetRoundTrip(t *testing.T) {
	require.NoError(t, Clear())

	require.NoError(t, Put(KeyLastUpdated, []byte("2026-08-30T10:00:00Z")))
	value, found, err := Get(KeyLastUpdated)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "2026-08-30T10:00:00Z", string(value))
}

func TestPutOverwrites(t *testing.T) {
	require.NoError(t, Clear())

	require.NoError(t, Put(KeyUploadBundle, []byte("first")))
	require.NoError(t, Put(KeyUploadBundle, []byte("second")))

	value, found, err := Get(KeyUploadBundle)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "second", string(value))
}

func TestGetMissIsNotAnError(t *testing.T) {
	require.NoError(t, Clear())

	value, found, err := Get("never_written")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, value)
}

func TestDelete(t *testing.T) {
	require.NoError(t, Clear())

	require.NoError(t, Put(KeySnapshotRows, []byte("[]")))
	require.NoError(t, Delete(KeySnapshotRows))

	_, found, err := Get(KeySnapshotRows)
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, Delete(KeySnapshotRows), "deleting an absent key is a no-op")
}

func TestClear(t *testing.T) {
	require.NoError(t, Put(KeyAnalysisPayload, []byte("a")))
	require.NoError(t, Put(KeyCostBasisRows, []byte("b")))
	require.NoError(t, Clear())

	for _, key := range []string{KeyAnalysisPayload, KeyCostBasisRows} {
		_, found, err := Get(key)
		require.NoError(t, err)
		assert.False(t, found)
	}
}
