package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/imghost/internal/common"
	"github.com/dmitrijs2005/imghost/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFolderService_Resolve(t *testing.T) {
	ctx := context.Background()
	store := &models.Store{ID: 1, Owner: "acme", Name: "images", Token: "tok"}

	t.Run("creates on first use", func(t *testing.T) {
		m := newFakeRepoManager()
		blobs := newFakeBlobClient()
		svc := NewFolderService(m, blobs, testLogger(t))

		folder, err := svc.Resolve(ctx, store, "vacation")
		require.NoError(t, err)

		assert.Equal(t, "vacation", folder.Name)
		assert.Equal(t, "public/vacation", folder.Path)
		assert.Equal(t, int64(1), folder.StoreID)
		assert.Contains(t, blobs.puts, "acme/images/public/vacation/README.md")
	})

	t.Run("returns existing row without touching remote", func(t *testing.T) {
		m := newFakeRepoManager()
		blobs := newFakeBlobClient()
		svc := NewFolderService(m, blobs, testLogger(t))

		first, err := svc.Resolve(ctx, store, "vacation")
		require.NoError(t, err)

		blobs.puts = nil
		second, err := svc.Resolve(ctx, store, "vacation")
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Empty(t, blobs.puts)
	})

	t.Run("empty name is a validation error", func(t *testing.T) {
		m := newFakeRepoManager()
		svc := NewFolderService(m, newFakeBlobClient(), testLogger(t))

		_, err := svc.Resolve(ctx, store, "")
		assert.ErrorIs(t, err, common.ErrorValidation)
	})

	t.Run("marker write failure surfaces as remote error", func(t *testing.T) {
		m := newFakeRepoManager()
		blobs := newFakeBlobClient()
		blobs.putErr = assert.AnError
		svc := NewFolderService(m, blobs, testLogger(t))

		_, err := svc.Resolve(ctx, store, "vacation")
		require.Error(t, err)
		var remote *common.RemoteError
		assert.ErrorAs(t, err, &remote)
	})

	t.Run("row still absent after insert", func(t *testing.T) {
		m := newFakeRepoManager()
		m.fo.skipInsert = true
		svc := NewFolderService(m, newFakeBlobClient(), testLogger(t))

		_, err := svc.Resolve(ctx, store, "vacation")
		assert.ErrorIs(t, err, common.ErrorFolderResolution)
	})
}
