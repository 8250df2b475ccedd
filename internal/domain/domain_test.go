package domain

import (
	"context"
	"testing"

	app_errors "inkcloud/internal/errors"
	"inkcloud/internal/kv"
	"inkcloud/internal/settings"
	"inkcloud/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestValidateNotifications(t *testing.T) {
	tests := []struct {
		name    string
		value   Notifications
		wantErr bool
	}{
		{"disabled without phone", Notifications{}, false},
		{"enabled with phone", Notifications{Enabled: true, DDD: strPtr("11"), Number: strPtr("912345678")}, false},
		{"enabled without phone", Notifications{Enabled: true}, true},
		{"ddd too long", Notifications{DDD: strPtr("111")}, true},
		{"number with letters", Notifications{Number: strPtr("9123abcd")}, true},
		{"number too short", Notifications{Number: strPtr("1234567")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNotifications(tt.value)
			assert.Equal(t, tt.wantErr, err != nil, "err=%v", err)
		})
	}
}

func TestNormalizeNotifications(t *testing.T) {
	n := NormalizeNotifications(Notifications{DDD: strPtr(" 11 "), Number: strPtr("  ")})
	require.NotNil(t, n.DDD)
	assert.Equal(t, "11", *n.DDD)
	assert.Nil(t, n.Number)
}

func TestValidateDisplayMode(t *testing.T) {
	assert.NoError(t, ValidateDisplayMode("embed"))
	assert.NoError(t, ValidateDisplayMode("components"))
	assert.Error(t, ValidateDisplayMode("cards"))
	assert.Error(t, ValidateDisplayMode(""))

	assert.Equal(t, "Embed", DisplayModeEmbed.Label())
	assert.Equal(t, "Components V2", DisplayModeComponents.Label())
}

func TestValidateBlacklist(t *testing.T) {
	assert.NoError(t, ValidateBlacklist([]string{}))
	assert.NoError(t, ValidateBlacklist([]string{"123", "456"}))
	assert.Error(t, ValidateBlacklist([]string{"123", "123"}))
	assert.Error(t, ValidateBlacklist([]string{""}))
}

func TestValidateAppearance(t *testing.T) {
	assert.NoError(t, ValidateAppearance(DefaultAppearance()))

	bad := DefaultAppearance()
	bad.FontScale = 150
	err := ValidateAppearance(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "font_scale")

	bad = DefaultAppearance()
	bad.AccentColor = "purple"
	assert.Error(t, ValidateAppearance(bad))

	bad = DefaultAppearance()
	bad.Theme = "neon"
	assert.Error(t, ValidateAppearance(bad))
}

func TestPainelNormalizeAndValidate(t *testing.T) {
	p := NormalizePainel(Painel{BotName: " Ink ", Prefix: " ?? ", Language: "pt-br", EmbedColor: "#ABCDEF"})
	assert.Equal(t, "Ink", p.BotName)
	assert.Equal(t, "??", p.Prefix)
	assert.Equal(t, "pt-BR", p.Language)
	assert.Equal(t, "#abcdef", p.EmbedColor)
	assert.NoError(t, ValidatePainel(p))

	p.Prefix = "toolong"
	assert.Error(t, ValidatePainel(p))

	p = DefaultPainel()
	p.Language = "fr"
	assert.Error(t, ValidatePainel(p))

	p = DefaultPainel()
	p.LogChannelID = "123"
	assert.Error(t, ValidatePainel(p))
	p.LogChannelID = "123456789012345678"
	assert.NoError(t, ValidatePainel(p))
}

func TestValidateAutomod(t *testing.T) {
	assert.NoError(t, ValidateAutomod(DefaultAutomod()))

	bad := DefaultAutomod()
	bad.Thresholds.Ban = 50
	err := ValidateAutomod(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "100")
}

func TestTenant(t *testing.T) {
	assert.NoError(t, ValidateTenant(""))
	assert.NoError(t, ValidateTenant("5b3c1a4e-8f0f-4b8a-9c51-0d1f3e2a7b64"))
	assert.Error(t, ValidateTenant("not-a-uuid"))

	assert.Equal(t, "5b3c1a4e-8f0f-4b8a-9c51-0d1f3e2a7b64", NormalizeTenant(" {5B3C1A4E-8F0F-4B8A-9C51-0D1F3E2A7B64} "))
}

func TestLookupAndSensitiveKeys(t *testing.T) {
	d, ok := Lookup("display-mode")
	require.True(t, ok)
	assert.Equal(t, KeyDisplayMode, d.Key)

	d, ok = Lookup(KeyTenant)
	require.True(t, ok)
	assert.Equal(t, NameTenant, d.Name)

	_, ok = Lookup("payments")
	assert.False(t, ok)

	assert.Equal(t, []string{KeyNotifications}, SensitiveKeys())
	assert.Len(t, Descriptors(), 7)
	assert.Equal(t, KeyDisplayMode, LegacyKeys()["custom-mode"])

	for legacy, key := range LegacyKeys() {
		_, ok := Lookup(key)
		assert.True(t, ok, "legacy key %s maps to unknown key %s", legacy, key)
	}
}

func newTestStores(t *testing.T) (*Stores, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	stores := NewStores(kv.New(mem, kv.Options{}), StoreOptions{})
	require.NoError(t, stores.NotificationsGroup().Refresh(context.Background()))
	return stores, mem
}

func TestInvalidDisplayModeFallsBackToDefault(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	require.NoError(t, mem.Set(ctx, KeyDisplayMode, []byte(`"cards"`)))

	stores := NewStores(kv.New(mem, kv.Options{}), StoreOptions{})
	require.NoError(t, stores.DisplayMode.Refresh(ctx))
	assert.Equal(t, DisplayModeEmbed, stores.DisplayMode.Value())
}

func TestToggleNotifications(t *testing.T) {
	ctx := context.Background()
	stores, _ := newTestStores(t)

	err := ToggleNotifications(ctx, stores.Notifications)
	assert.ErrorIs(t, err, app_errors.ErrValidationFailure)
	assert.Equal(t, settings.StatusError, stores.Notifications.Status())
	assert.False(t, stores.Notifications.Value().Enabled)

	require.NoError(t, stores.Notifications.Patch(ctx, map[string]any{"ddd": "11", "number": "912345678"}))
	require.NoError(t, ToggleNotifications(ctx, stores.Notifications))
	assert.True(t, stores.Notifications.Value().Enabled)
}

func TestSetDisplayMode(t *testing.T) {
	ctx := context.Background()
	stores, mem := newTestStores(t)
	require.NoError(t, stores.DisplayMode.Refresh(ctx))

	require.NoError(t, SetDisplayMode(ctx, stores.DisplayMode, "components"))
	raw, err := mem.Get(ctx, KeyDisplayMode)
	require.NoError(t, err)
	assert.Equal(t, `"components"`, string(raw))

	assert.ErrorIs(t, SetDisplayMode(ctx, stores.DisplayMode, "cards"), app_errors.ErrValidationFailure)
	assert.Equal(t, DisplayModeComponents, stores.DisplayMode.Value())
}

func TestControllersCoverEveryDescriptor(t *testing.T) {
	stores, _ := newTestStores(t)
	controllers := stores.Controllers()
	require.Len(t, controllers, len(Descriptors()))
	for i, d := range Descriptors() {
		assert.Equal(t, d.Key, controllers[i].Key())
	}
}
