package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"inkcloud/internal/domain"
	"inkcloud/internal/encryption"
	"inkcloud/internal/kv"
	"inkcloud/internal/services"
	"inkcloud/internal/settings"
	"inkcloud/internal/store"
	"inkcloud/internal/types"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/dig"
)

type testConfig struct {
	encKey string
}

func (c *testConfig) GetAuthConfig() types.AuthConfig         { return types.AuthConfig{Key: "test-auth-key"} }
func (c *testConfig) GetCORSConfig() types.CORSConfig         { return types.CORSConfig{} }
func (c *testConfig) GetLogConfig() types.LogConfig           { return types.LogConfig{Level: "warn"} }
func (c *testConfig) GetDatabaseConfig() types.DatabaseConfig { return types.DatabaseConfig{} }
func (c *testConfig) GetStorageConfig() types.StorageConfig {
	return types.StorageConfig{Backend: store.BackendFile}
}
func (c *testConfig) GetSyncConfig() types.SyncConfig {
	return types.SyncConfig{RefreshInterval: time.Hour, StatusResetDelay: settings.DefaultResetDelay}
}
func (c *testConfig) GetEffectiveServerConfig() types.ServerConfig { return types.ServerConfig{Port: 3001} }
func (c *testConfig) GetRedisDSN() string                          { return "" }
func (c *testConfig) GetEncryptionKey() string                     { return c.encKey }
func (c *testConfig) GetDefaultLanguage() string                   { return "en" }
func (c *testConfig) Validate() error                              { return nil }
func (c *testConfig) DisplayServerConfig()                         {}
func (c *testConfig) ReloadConfig() error                          { return nil }

// fileContainer builds containers that share one data directory, like separate CLI runs.
func fileContainer(dir string) func() (*dig.Container, error) {
	return func() (*dig.Container, error) {
		c := dig.New()
		providers := []any{
			func() types.ConfigManager { return &testConfig{} },
			func() (store.Store, error) { return store.NewFileStore(dir) },
			encryption.NewService,
			services.NewSettingsService,
		}
		for _, p := range providers {
			if err := c.Provide(p); err != nil {
				return nil, err
			}
		}
		return c, nil
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	values := map[string]json.RawMessage{
		domain.KeyDisplayMode: json.RawMessage(`"components"`),
		domain.KeyBlacklist:   json.RawMessage(`["123","456"]`),
	}

	for _, compress := range []bool{false, true} {
		data, err := encodeArchive(values, compress)
		require.NoError(t, err)
		assert.Equal(t, compress, bytes.HasPrefix(data, zstdMagic))

		decoded, err := decodeArchive(data)
		require.NoError(t, err)
		require.Len(t, decoded, 2)
		assert.JSONEq(t, `"components"`, string(decoded[domain.KeyDisplayMode]))
		assert.JSONEq(t, `["123","456"]`, string(decoded[domain.KeyBlacklist]))
	}
}

func TestDecodeArchiveAcceptsHJSON(t *testing.T) {
	text := `{
  # written by hand
  custom-mode: components
  automod: {thresholds: {warn: 40, mute: 30, kick: 20, ban: 10}}
}`
	values, err := decodeArchive([]byte(text))
	require.NoError(t, err)

	assert.JSONEq(t, `"components"`, string(values["custom-mode"]))
	assert.Equal(t, int64(10), gjson.GetBytes(values["automod"], "thresholds.ban").Int())
}

func TestDecodeArchiveRejectsGarbage(t *testing.T) {
	_, err := decodeArchive(append(append([]byte(nil), zstdMagic...), 0x00, 0x01))
	assert.Error(t, err)
}

func TestImportThenExportCommands(t *testing.T) {
	dir := t.TempDir()
	build := fileContainer(filepath.Join(dir, "settings"))

	input := filepath.Join(dir, "import.hjson")
	require.NoError(t, os.WriteFile(input, []byte(`{
  custom-mode: components
  blacklist: ["123", "456"]
  unknown-thing: 1
}`), 0o600))

	var out bytes.Buffer
	root := NewRootCmd(build)
	root.SetOut(&out)
	root.SetArgs([]string{"import", "--file", input})
	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "Applied: blacklist, display-mode")
	assert.Contains(t, out.String(), "Skipped: unknown-thing (unknown domain)")

	exported := filepath.Join(dir, "export.json.zst")
	root = NewRootCmd(build)
	root.SetOut(&out)
	root.SetArgs([]string{"export", "--zstd", "--out", exported})
	require.NoError(t, root.ExecuteContext(context.Background()))

	data, err := os.ReadFile(exported)
	require.NoError(t, err)
	values, err := decodeArchive(data)
	require.NoError(t, err)
	assert.Len(t, values, len(domain.Descriptors()))
	assert.JSONEq(t, `"components"`, string(values[domain.KeyDisplayMode]))
	assert.JSONEq(t, `["123","456"]`, string(values[domain.KeyBlacklist]))
}

func TestImportCommandRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	build := fileContainer(filepath.Join(dir, "settings"))

	input := filepath.Join(dir, "import.json")
	require.NoError(t, os.WriteFile(input, []byte(`{"display-mode": "components", "painel": {"bot_name": ""}}`), 0o600))

	root := NewRootCmd(build)
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"import", "--file", input})
	require.Error(t, root.ExecuteContext(context.Background()))

	backend, err := store.NewFileStore(filepath.Join(dir, "settings"))
	require.NoError(t, err)
	defer backend.Close()
	exists, err := backend.Exists(context.Background(), domain.KeyDisplayMode)
	require.NoError(t, err)
	assert.False(t, exists)
}

const (
	keyAlpha = "Alpha-Settings-Key-2024!"
	keyBeta  = "Beta-Settings-Key-2025?"
)

func seed(t *testing.T, backend store.Store) {
	t.Helper()
	adapter := kv.New(backend, kv.Options{Sensitive: domain.SensitiveKeys()})
	ctx := context.Background()
	require.NoError(t, adapter.WriteRaw(ctx, domain.KeyNotifications, []byte(`{"enabled":true}`)))
	require.NoError(t, adapter.WriteRaw(ctx, domain.KeyPainel, []byte(`{"bot_name":"ink"}`)))
}

func raw(t *testing.T, backend store.Store, key string) []byte {
	t.Helper()
	data, err := backend.Get(context.Background(), key)
	require.NoError(t, err)
	return data
}

func readWith(t *testing.T, backend store.Store, key, encKey string) []byte {
	t.Helper()
	svc, err := encryption.NewServiceWithKey(encKey)
	require.NoError(t, err)
	data, found, err := kv.New(backend, kv.Options{Encryption: svc}).ReadRaw(context.Background(), key)
	require.NoError(t, err)
	require.True(t, found)
	return data
}

func TestMigrateSettingsLifecycle(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemoryStore()
	seed(t, backend)

	// enable
	require.NoError(t, NewMigrateSettingsCommand(backend, &testConfig{}, "", keyAlpha).Execute(ctx))
	assert.True(t, gjson.GetBytes(raw(t, backend, domain.KeyNotifications), "$enc").Exists())
	assert.JSONEq(t, `{"bot_name":"ink"}`, string(raw(t, backend, domain.KeyPainel)))
	assert.JSONEq(t, `{"enabled":true}`, string(readWith(t, backend, domain.KeyNotifications, keyAlpha)))

	// change
	require.NoError(t, NewMigrateSettingsCommand(backend, &testConfig{}, keyAlpha, keyBeta).Execute(ctx))
	assert.JSONEq(t, `{"enabled":true}`, string(readWith(t, backend, domain.KeyNotifications, keyBeta)))

	// disable
	require.NoError(t, NewMigrateSettingsCommand(backend, &testConfig{encKey: keyBeta}, keyBeta, "").Execute(ctx))
	assert.JSONEq(t, `{"enabled":true}`, string(raw(t, backend, domain.KeyNotifications)))

	backups, err := backend.Keys(ctx, backupPrefix)
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestMigrateSettingsWrongSourceKeyLeavesDataUntouched(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemoryStore()
	seed(t, backend)
	require.NoError(t, NewMigrateSettingsCommand(backend, &testConfig{}, "", keyAlpha).Execute(ctx))
	before := raw(t, backend, domain.KeyNotifications)

	err := NewMigrateSettingsCommand(backend, &testConfig{}, keyBeta, "Gamma-Settings-Key-2026#").Execute(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pre-check failed")
	assert.Equal(t, before, raw(t, backend, domain.KeyNotifications))
}

func TestMigrateSettingsParameterValidation(t *testing.T) {
	backend := store.NewMemoryStore()

	err := NewMigrateSettingsCommand(backend, &testConfig{}, keyAlpha, keyAlpha).Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be the same")

	err = NewMigrateSettingsCommand(backend, &testConfig{}, "", "").Execute(context.Background())
	require.Error(t, err)
}

func TestMigrateSettingsEmptyStore(t *testing.T) {
	assert.NoError(t, NewMigrateSettingsCommand(store.NewMemoryStore(), &testConfig{}, "", keyAlpha).Execute(context.Background()))
}
