package vault

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestMain(m *testing.M) {
	keyring.MockInit()
	m.Run()
}

func TestInitProducesUnlockedVault(t *testing.T) {
	dir := t.TempDir()
	v, err := Init(filepath.Join(dir, "vault.enc"))
	require.NoError(t, err)
	defer v.Drop()

	keys, err := v.ListKeys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestStoreRetrieveRoundtrip(t *testing.T) {
	dir := t.TempDir()
	v, err := Init(filepath.Join(dir, "vault.enc"))
	require.NoError(t, err)
	defer v.Drop()

	require.NoError(t, v.Store("api_key", "sk-test-12345"))

	got, err := v.Retrieve("api_key")
	require.NoError(t, err)
	assert.Equal(t, "sk-test-12345", got)
}

func TestVaultRoundtripAcrossProcesses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vault.enc")

	v1, err := Init(path)
	require.NoError(t, err)
	require.NoError(t, v1.Store("k", "v"))
	v1.Drop()

	v2 := Open(path)
	require.NoError(t, v2.Unlock())
	defer v2.Drop()

	got, err := v2.Retrieve("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestLockedVaultRejectsDataOperations(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vault.enc")

	v, err := Init(path)
	require.NoError(t, err)
	v.Lock()

	_, err = v.Retrieve("k")
	assert.True(t, errors.Is(err, ErrLocked))

	err = v.Store("k", "v")
	assert.True(t, errors.Is(err, ErrLocked))

	_, err = v.ListKeys()
	assert.True(t, errors.Is(err, ErrLocked))

	err = v.Delete("k")
	assert.True(t, errors.Is(err, ErrLocked))
}

func TestRetrieveMissingNameFails(t *testing.T) {
	dir := t.TempDir()
	v, err := Init(filepath.Join(dir, "vault.enc"))
	require.NoError(t, err)
	defer v.Drop()

	_, err = v.Retrieve("nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDeleteRemovesSecret(t *testing.T) {
	dir := t.TempDir()
	v, err := Init(filepath.Join(dir, "vault.enc"))
	require.NoError(t, err)
	defer v.Drop()

	require.NoError(t, v.Store("k", "v"))
	require.NoError(t, v.Delete("k"))

	_, err = v.Retrieve("k")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListKeysSorted(t *testing.T) {
	dir := t.TempDir()
	v, err := Init(filepath.Join(dir, "vault.enc"))
	require.NoError(t, err)
	defer v.Drop()

	require.NoError(t, v.Store("zeta", "1"))
	require.NoError(t, v.Store("alpha", "2"))
	require.NoError(t, v.Store("mu", "3"))

	keys, err := v.ListKeys()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "mu", "zeta"}, keys)
}

func TestRedactKnownSecrets(t *testing.T) {
	dir := t.TempDir()
	v, err := Init(filepath.Join(dir, "vault.enc"))
	require.NoError(t, err)
	defer v.Drop()

	require.NoError(t, v.Store("api_key", "sk-supersecretvalue"))

	out := v.RedactKnownSecrets("the key is sk-supersecretvalue and nothing else")
	assert.Equal(t, "the key is [REDACTED:api_key] and nothing else", out)
}

func TestPersistedFileOnlyEncryptsValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vault.enc")

	v, err := Init(path)
	require.NoError(t, err)
	require.NoError(t, v.Store("my_secret_name", "plaintext value"))
	v.Drop()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "my_secret_name")
	assert.NotContains(t, string(raw), "plaintext value")
}
