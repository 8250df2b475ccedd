package domain

import (
	"context"
	"time"

	"inkcloud/internal/kv"
	"inkcloud/internal/settings"
)

// StoreOptions carries the settings shared by every domain store.
type StoreOptions struct {
	Clock      settings.Clock
	ResetDelay time.Duration
	Metrics    *settings.Metrics
}

// Stores holds one typed store per domain.
type Stores struct {
	Notifications *settings.Store[Notifications]
	Blacklist     *settings.Store[[]string]
	DisplayMode   *settings.Store[DisplayMode]
	Appearance    *settings.Store[Appearance]
	Painel        *settings.Store[Painel]
	Automod       *settings.Store[Automod]
	Tenant        *settings.Store[string]
}

func options[T any](key string, def T, validate func(T) error, normalize func(T) T, opts StoreOptions) settings.Options[T] {
	return settings.Options[T]{
		Key:        key,
		Default:    def,
		Validate:   validate,
		Normalize:  normalize,
		Clock:      opts.Clock,
		ResetDelay: opts.ResetDelay,
		Metrics:    opts.Metrics,
	}
}

// NewStores creates every domain store over adapter. Sensitive domains are marked on the adapter.
func NewStores(adapter *kv.Adapter, opts StoreOptions) *Stores {
	for _, key := range SensitiveKeys() {
		adapter.MarkSensitive(key)
	}

	return &Stores{
		Notifications: settings.New(adapter, options(KeyNotifications, DefaultNotifications(), ValidateNotifications, NormalizeNotifications, opts)),
		Blacklist:     settings.New(adapter, options(KeyBlacklist, DefaultBlacklist(), ValidateBlacklist, settings.NormalizeEntries, opts)),
		DisplayMode:   settings.New(adapter, options(KeyDisplayMode, DefaultDisplayMode(), ValidateDisplayMode, nil, opts)),
		Appearance:    settings.New(adapter, options(KeyAppearance, DefaultAppearance(), ValidateAppearance, NormalizeAppearance, opts)),
		Painel:        settings.New(adapter, options(KeyPainel, DefaultPainel(), ValidatePainel, NormalizePainel, opts)),
		Automod:       settings.New(adapter, options(KeyAutomod, DefaultAutomod(), ValidateAutomod, nil, opts)),
		Tenant:        settings.New(adapter, options(KeyTenant, DefaultTenant(), ValidateTenant, NormalizeTenant, opts)),
	}
}

// Controllers returns the stores in descriptor order.
func (s *Stores) Controllers() []settings.Controller {
	return []settings.Controller{
		s.Notifications,
		s.Blacklist,
		s.DisplayMode,
		s.Appearance,
		s.Painel,
		s.Automod,
		s.Tenant,
	}
}

// NotificationsGroup bundles the stores edited together on the notifications page.
func (s *Stores) NotificationsGroup() *settings.Group {
	return settings.NewGroup(NameNotifications, s.Notifications, s.Blacklist)
}

// ToggleNotifications flips the alerts switch. Enabling without a phone number fails validation.
func ToggleNotifications(ctx context.Context, s *settings.Store[Notifications]) error {
	return s.Update(ctx, func(n *Notifications) {
		n.Enabled = !n.Enabled
	})
}

// SetDisplayMode stores a display mode given by name.
func SetDisplayMode(ctx context.Context, s *settings.Store[DisplayMode], mode string) error {
	return s.Set(ctx, DisplayMode(mode))
}
