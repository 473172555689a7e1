package localstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "advisor.db")

	s, err := Open(path)
	require.NoError(t, err)

	_, err = s.Get(ctx, "farmer_phone")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "farmer_phone", "919812345678"))
	require.NoError(t, s.Set(ctx, "farmer_phone", "919800000000"))

	v, err := s.Get(ctx, "farmer_phone")
	require.NoError(t, err)
	assert.Equal(t, "919800000000", v)
	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Close())

	// survives reopen
	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	v, err = s.Get(ctx, "farmer_phone")
	require.NoError(t, err)
	assert.Equal(t, "919800000000", v)
}
