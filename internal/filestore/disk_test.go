package filestore

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jarabaplatform/tenant-exporter/internal/errors"
)

func TestDiskStoreRoundTrip(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "tenant_7/export.zip", strings.NewReader("content")))

	exists, err := store.Exists(ctx, "tenant_7/export.zip")
	require.NoError(t, err)
	assert.True(t, exists)

	rc, err := store.Open(ctx, "tenant_7/export.zip")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "content", string(body))

	require.NoError(t, store.Delete(ctx, "tenant_7/export.zip"))
	exists, err = store.Exists(ctx, "tenant_7/export.zip")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDiskStoreOpenMissing(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open(context.Background(), "tenant_7/missing.zip")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestDiskStoreDeleteMissingIsNoop(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, store.Delete(context.Background(), "tenant_7/missing.zip"))
}

func TestDiskStoreRejectsTraversal(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{"../outside.zip", "/etc/passwd", "tenant_7/../../outside.zip"} {
		err := store.Put(ctx, key, strings.NewReader("x"))
		assert.Error(t, err, key)
	}
}
