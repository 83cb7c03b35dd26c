package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEncryptedStore(t *testing.T) *EncryptedFileStore {
	t.Helper()
	t.Setenv("EXAMSCRAPER_PASSPHRASE", "test-passphrase")

	store, err := NewEncryptedFileStore(filepath.Join(t.TempDir(), "credentials.enc"))
	require.NoError(t, err)
	return store
}

func TestEncryptedStoreRoundTrip(t *testing.T) {
	store := newTestEncryptedStore(t)

	creds := &Credentials{Username: "student", Password: "secret"}
	require.NoError(t, store.Store(creds))

	got, err := store.Retrieve("student")
	require.NoError(t, err)
	assert.Equal(t, "student", got.Username)
	assert.Equal(t, "secret", got.Password)
}

func TestEncryptedStoreFileIsNotPlaintext(t *testing.T) {
	t.Setenv("EXAMSCRAPER_PASSPHRASE", "test-passphrase")

	path := filepath.Join(t.TempDir(), "credentials.enc")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Store(&Credentials{Username: "student", Password: "supersecret"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "supersecret")
}

func TestEncryptedStoreRetrieveUnknown(t *testing.T) {
	store := newTestEncryptedStore(t)

	_, err := store.Retrieve("nobody")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestEncryptedStoreDelete(t *testing.T) {
	store := newTestEncryptedStore(t)

	require.NoError(t, store.Store(&Credentials{Username: "student", Password: "secret"}))
	require.NoError(t, store.Delete("student"))

	assert.False(t, store.Exists("student"))
}

func TestEncryptedStoreList(t *testing.T) {
	store := newTestEncryptedStore(t)

	require.NoError(t, store.Store(&Credentials{Username: "a", Password: "pa"}))
	require.NoError(t, store.Store(&Credentials{Username: "b", Password: "pb"}))

	accounts, err := store.List()
	require.NoError(t, err)
	assert.Len(t, accounts, 2)
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv("EXAMSCRAPER_USERNAME", "envuser")
	t.Setenv("EXAMSCRAPER_PASSWORD", "envpass")

	store := NewEnvironmentStore()

	t.Run("retrieve by name", func(t *testing.T) {
		creds, err := store.Retrieve("envuser")
		require.NoError(t, err)
		assert.Equal(t, "envpass", creds.Password)
	})

	t.Run("retrieve default", func(t *testing.T) {
		creds, err := store.Retrieve("")
		require.NoError(t, err)
		assert.Equal(t, "envuser", creds.Username)
	})

	t.Run("wrong name not found", func(t *testing.T) {
		_, err := store.Retrieve("other")
		assert.ErrorIs(t, err, ErrCredentialsNotFound)
	})

	t.Run("store not supported", func(t *testing.T) {
		assert.Error(t, store.Store(&Credentials{Username: "x", Password: "y"}))
	})
}

func TestEnvironmentStoreMissingVars(t *testing.T) {
	t.Setenv("EXAMSCRAPER_USERNAME", "")
	t.Setenv("EXAMSCRAPER_PASSWORD", "")

	store := NewEnvironmentStore()
	_, err := store.Retrieve("")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)

	accounts, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, accounts)
}
