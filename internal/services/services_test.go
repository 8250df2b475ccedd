package services

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"inkcloud/internal/domain"
	"inkcloud/internal/encryption"
	app_errors "inkcloud/internal/errors"
	"inkcloud/internal/session"
	"inkcloud/internal/settings"
	"inkcloud/internal/store"
	"inkcloud/internal/types"
	"inkcloud/internal/utils"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testConfig is a fixed ConfigManager.
type testConfig struct {
	authKey string
	encKey  string
}

func (c *testConfig) GetAuthConfig() types.AuthConfig         { return types.AuthConfig{Key: c.authKey} }
func (c *testConfig) GetCORSConfig() types.CORSConfig         { return types.CORSConfig{} }
func (c *testConfig) GetLogConfig() types.LogConfig           { return types.LogConfig{Level: "warn"} }
func (c *testConfig) GetDatabaseConfig() types.DatabaseConfig { return types.DatabaseConfig{} }
func (c *testConfig) GetStorageConfig() types.StorageConfig {
	return types.StorageConfig{Backend: store.BackendMemory}
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

func newService(t *testing.T, cfg *testConfig) (*SettingsService, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	enc, err := encryption.NewService(cfg)
	require.NoError(t, err)
	svc := NewSettingsService(mem, enc, cfg)
	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(svc.Stop)
	return svc, mem
}

func TestListCoversEveryDomain(t *testing.T) {
	svc, _ := newService(t, &testConfig{})

	views := svc.List()
	require.Len(t, views, len(domain.Descriptors()))
	for _, v := range views {
		assert.Equal(t, settings.StatusIdle, v.Snapshot.Status, v.Name)
		assert.JSONEq(t, string(v.Default), string(v.Snapshot.Value), v.Name)
	}
}

func TestCategorized(t *testing.T) {
	svc, _ := newService(t, &testConfig{})

	groups := svc.Categorized()
	require.Len(t, groups, 4)
	assert.Equal(t, domain.CategoryBot, groups[0].CategoryName)

	total := 0
	for _, g := range groups {
		for _, d := range g.Domains {
			assert.Equal(t, g.CategoryName, d.Category)
		}
		total += len(g.Domains)
	}
	assert.Equal(t, len(domain.Descriptors()), total)
}

func TestGetUnknownDomain(t *testing.T) {
	svc, _ := newService(t, &testConfig{})

	_, err := svc.Get("payments")
	var i18nErr *I18nError
	require.True(t, stderrors.As(err, &i18nErr))
	assert.Equal(t, "settings.unknown_domain", i18nErr.MessageID)
	assert.Equal(t, app_errors.ErrResourceNotFound, i18nErr.APIError)
}

func TestReplaceAndPatch(t *testing.T) {
	ctx := context.Background()
	svc, mem := newService(t, &testConfig{})

	v, err := svc.Replace(ctx, domain.NameDisplayMode, []byte(`"components"`))
	require.NoError(t, err)
	assert.JSONEq(t, `"components"`, string(v.Snapshot.Value))

	v, err = svc.Patch(ctx, domain.KeyAutomod, map[string]any{
		"enabled":         true,
		"thresholds.warn": 50,
		"thresholds.mute": 20,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.NameAutomod, v.Name)

	raw, err := mem.Get(ctx, domain.KeyAutomod)
	require.NoError(t, err)
	assert.JSONEq(t, `{"enabled":true,"thresholds":{"warn":50,"mute":20,"kick":20,"ban":10}}`, string(raw))

	_, err = svc.Patch(ctx, domain.NameAutomod, map[string]any{"thresholds.ban": 90})
	assert.ErrorIs(t, err, app_errors.ErrValidationFailure)
}

func TestBlacklistOperations(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, &testConfig{})

	v, err := svc.AddBlacklistEntries(ctx, []string{"123", " 456 ", "123"})
	require.NoError(t, err)
	assert.JSONEq(t, `["123","456"]`, string(v.Snapshot.Value))

	v, err = svc.RemoveBlacklistEntries(ctx, []string{"123"})
	require.NoError(t, err)
	assert.JSONEq(t, `["456"]`, string(v.Snapshot.Value))

	v, err = svc.ClearBlacklist(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(v.Snapshot.Value))
}

func TestToggleNotificationsRequiresPhone(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, &testConfig{})

	v, err := svc.ToggleNotifications(ctx)
	assert.ErrorIs(t, err, app_errors.ErrValidationFailure)
	assert.Equal(t, settings.StatusError, v.Snapshot.Status)
	assert.Equal(t, settings.MsgValidationFailed, v.Snapshot.MessageID)
}

func TestSensitiveDomainIsEncrypted(t *testing.T) {
	ctx := context.Background()
	svc, mem := newService(t, &testConfig{encKey: "Tr0ub4dor&3-horse"})

	_, err := svc.Replace(ctx, domain.NameNotifications, []byte(`{"enabled":true,"ddd":"11","number":"912345678"}`))
	require.NoError(t, err)

	raw, err := mem.Get(ctx, domain.KeyNotifications)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "912345678")
	assert.Contains(t, string(raw), `"$enc"`)

	_, err = svc.Refresh(ctx, domain.NameNotifications)
	require.NoError(t, err)
	assert.True(t, svc.Stores().Notifications.Value().Enabled)
}

func TestImportMapsLegacyKeys(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, &testConfig{})

	result, err := svc.Import(ctx, map[string]json.RawMessage{
		"custom-mode":       json.RawMessage(`"components"`),
		domain.KeyBlacklist: json.RawMessage(`["999"]`),
		"payments":          json.RawMessage(`{}`),
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{domain.NameDisplayMode, domain.NameBlacklist}, result.Applied)
	assert.Contains(t, result.Skipped, "payments")

	assert.Equal(t, domain.DisplayModeComponents, svc.Stores().DisplayMode.Value())
	assert.Equal(t, []string{"999"}, svc.Stores().Blacklist.Value())
}

func TestImportIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	svc, mem := newService(t, &testConfig{})

	_, err := svc.Import(ctx, map[string]json.RawMessage{
		domain.NameBlacklist:   json.RawMessage(`["1"]`),
		domain.NameDisplayMode: json.RawMessage(`"cards"`),
	})
	require.ErrorIs(t, err, app_errors.ErrValidationFailure)

	exists, err := mem.Exists(ctx, domain.KeyBlacklist)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, &testConfig{})
	_, err := svc.Replace(ctx, domain.NamePainel, []byte(`{"bot_name":"Ink","prefix":"?","language":"en","embed_color":"#000000","log_channel_id":""}`))
	require.NoError(t, err)

	out := svc.Export()
	require.Len(t, out, len(domain.Descriptors()))
	assert.JSONEq(t, `{"bot_name":"Ink","prefix":"?","language":"en","embed_color":"#000000","log_channel_id":""}`, string(out[domain.KeyPainel]))
}

func TestSubscribeReportsDomainName(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, &testConfig{})

	var (
		mu    sync.Mutex
		names []string
	)
	cancel := svc.Subscribe(func(name string, snap settings.RawSnapshot) {
		mu.Lock()
		names = append(names, name)
		mu.Unlock()
	})

	_, err := svc.Replace(ctx, domain.NameAppearance, []byte(`{"theme":"dark","accent_color":"#7c3aed","compact_sidebar":true,"font_scale":110}`))
	require.NoError(t, err)
	cancel()
	_, err = svc.Replace(ctx, domain.NameDisplayMode, []byte(`"components"`))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, names)
	for _, name := range names {
		assert.Equal(t, domain.NameAppearance, name)
	}
}

func TestStartInstallsSession(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, &testConfig{})
	assert.Same(t, svc.Session(), session.Installed())

	require.NoError(t, svc.Session().Select(ctx, "5b3c1a4e-8f0f-4b8a-9c51-0d1f3e2a7b64"))
	assert.Equal(t, "5b3c1a4e-8f0f-4b8a-9c51-0d1f3e2a7b64", session.CurrentTenant())

	svc.Stop()
	assert.Nil(t, session.Installed())
	_, err := svc.Replace(ctx, domain.NameDisplayMode, []byte(`"components"`))
	assert.ErrorIs(t, err, app_errors.ErrClosed)
}

func TestAuthServiceVerify(t *testing.T) {
	plain := NewAuthService(&testConfig{authKey: "sk-admin-key"})
	assert.True(t, plain.Verify("sk-admin-key"))
	assert.False(t, plain.Verify("sk-admin"))
	assert.False(t, plain.Verify(""))

	hash, err := utils.HashPassword("Tr0ub4dor&3-horse")
	require.NoError(t, err)
	hashed := NewAuthService(&testConfig{authKey: hash})
	assert.True(t, hashed.Verify("Tr0ub4dor&3-horse"))
	assert.False(t, hashed.Verify(hash))

	empty := NewAuthService(&testConfig{})
	assert.False(t, empty.Verify("anything"))
}
