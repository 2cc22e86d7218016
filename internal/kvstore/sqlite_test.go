package kvstore

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privault/privault/internal/common"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := NewSQLiteStore(db)
	require.NoError(t, s.Init(context.Background()))
	return s
}

func TestSQLiteStore_SetGetDelete(t *testing.T) {
	s := setupDB(t)
	ctx := context.Background()

	_, err := s.Get(ctx, KeyIdentity)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, s.Set(ctx, KeyIdentity, []byte("v1")))

	got, err := s.Get(ctx, KeyIdentity)
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	// upsert
	require.NoError(t, s.Set(ctx, KeyIdentity, []byte("v2")))
	got, err = s.Get(ctx, KeyIdentity)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	require.NoError(t, s.Delete(ctx, KeyIdentity))
	_, err = s.Get(ctx, KeyIdentity)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	// deleting a missing key is a no-op
	require.NoError(t, s.Delete(ctx, KeyIdentity))
}

func TestMemoryStore_SetGetDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, s.Set(ctx, "k", []byte("v")))

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	// mutations of the returned slice must not leak into the store
	got[0] = 'x'
	again, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), again)

	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
