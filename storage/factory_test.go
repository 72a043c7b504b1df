package storage

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sshgate/policy-governance-backend/interfaces"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFileBackendRoundTrip(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir(), testLogger())
	require.NoError(t, err)
	ctx := context.Background()

	assert.True(t, backend.Available(ctx))

	data := []byte("signed policy artifact")
	id, err := backend.Store(ctx, data, interfaces.PolicyArtifactType)
	require.NoError(t, err)
	assert.Equal(t, interfaces.ComputeID(data), id)

	fetched, err := backend.Fetch(ctx, id, interfaces.PolicyArtifactType)
	require.NoError(t, err)
	assert.Equal(t, data, fetched)

	// Namespaces are separate: the same ID does not exist under the request
	// archive type.
	_, err = backend.Fetch(ctx, id, interfaces.RequestArchiveType)
	assert.ErrorIs(t, err, interfaces.ErrContentNotFound)
}

func TestFactory_StorageBackendFor(t *testing.T) {
	factory := NewFactory(testLogger())

	fileLoc, err := interfaces.NewStorageBackendLocation("file://" + t.TempDir())
	require.NoError(t, err)
	backend, err := factory.StorageBackendFor(fileLoc)
	require.NoError(t, err)
	assert.Contains(t, backend.LocationURI(), "file://")

	s3Loc, err := interfaces.NewStorageBackendLocation("s3://artifacts/policies/?region=eu-west-1")
	require.NoError(t, err)
	backend, err = factory.StorageBackendFor(s3Loc)
	require.NoError(t, err)
	assert.Equal(t, "s3-artifacts", backend.Name())

	ipfsLoc, err := interfaces.NewStorageBackendLocation("ipfs://127.0.0.1:5001/")
	require.NoError(t, err)
	backend, err = factory.StorageBackendFor(ipfsLoc)
	require.NoError(t, err)
	assert.Equal(t, "ipfs-127.0.0.1-5001", backend.Name())

	vaultLoc, err := interfaces.NewStorageBackendLocation("vault://vault.example.com:8200/secret/policies?token=t")
	require.NoError(t, err)
	backend, err = factory.StorageBackendFor(vaultLoc)
	require.NoError(t, err)
	assert.Equal(t, "vault-secret-policies", backend.Name())
}

func TestFactory_RejectsUnsupportedScheme(t *testing.T) {
	_, err := interfaces.NewStorageBackendLocation("ftp://example.com/artifacts")
	assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)
}

func TestFactory_CreateMultiBackend(t *testing.T) {
	factory := NewFactory(testLogger())

	fileLoc, err := interfaces.NewStorageBackendLocation("file://" + t.TempDir())
	require.NoError(t, err)

	multi, err := factory.CreateMultiBackend([]interfaces.StorageBackendLocation{fileLoc})
	require.NoError(t, err)

	ctx := context.Background()
	data := []byte("signed policy artifact")
	id, err := multi.Store(ctx, data, interfaces.PolicyArtifactType)
	require.NoError(t, err)

	fetched, err := multi.Fetch(ctx, id, interfaces.PolicyArtifactType)
	require.NoError(t, err)
	assert.Equal(t, data, fetched)

	_, err = factory.CreateMultiBackend(nil)
	assert.Error(t, err)
}
