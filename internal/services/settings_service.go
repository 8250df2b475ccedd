package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"inkcloud/internal/domain"
	"inkcloud/internal/encryption"
	app_errors "inkcloud/internal/errors"
	"inkcloud/internal/kv"
	"inkcloud/internal/notifier"
	"inkcloud/internal/scheduler"
	"inkcloud/internal/session"
	"inkcloud/internal/settings"
	"inkcloud/internal/store"
	"inkcloud/internal/types"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

// DomainView is one configuration domain as shown on the dashboard.
type DomainView struct {
	Name        string               `json:"name"`
	Label       string               `json:"label"`
	Category    string               `json:"category"`
	Description string               `json:"description"`
	Sensitive   bool                 `json:"sensitive"`
	Default     json.RawMessage      `json:"default"`
	Snapshot    settings.RawSnapshot `json:"snapshot"`
}

// CategorizedDomains is a list of domains grouped by category.
type CategorizedDomains struct {
	CategoryName string       `json:"category_name"`
	Domains      []DomainView `json:"domains"`
}

// SettingsService owns every domain store of the process and the loops keeping them in sync.
type SettingsService struct {
	backend   store.Store
	adapter   *kv.Adapter
	stores    *domain.Stores
	registry  map[string]settings.Controller
	metrics   *settings.Metrics
	notifier  *notifier.Notifier
	scheduler *scheduler.Scheduler
	session   *session.Session

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewSettingsService builds the adapter and the domain stores over backend.
func NewSettingsService(backend store.Store, encryptionSvc encryption.Service, configManager types.ConfigManager) *SettingsService {
	syncConfig := configManager.GetSyncConfig()

	adapter := kv.New(backend, kv.Options{
		Channel:    syncConfig.Channel,
		Encryption: encryptionSvc,
		Sensitive:  domain.SensitiveKeys(),
	})
	metrics := settings.NewMetrics(0)
	stores := domain.NewStores(adapter, domain.StoreOptions{
		ResetDelay: syncConfig.StatusResetDelay,
		Metrics:    metrics,
	})

	svc := &SettingsService{
		backend:   backend,
		adapter:   adapter,
		stores:    stores,
		registry:  make(map[string]settings.Controller),
		metrics:   metrics,
		notifier:  notifier.New(adapter),
		scheduler: scheduler.New(syncConfig.RefreshInterval),
		session:   session.New(stores.Tenant),
	}

	for _, c := range stores.Controllers() {
		d, _ := domain.Lookup(c.Key())
		svc.registry[d.Name] = c
		svc.notifier.Register(c)
		svc.scheduler.Register(c)
	}

	if encryptionSvc == nil || !encryptionSvc.Enabled() {
		logrus.Debug("Settings encryption disabled, sensitive domains are stored in plain text")
	}

	return svc
}

// Start loads every domain and starts the notifier and the scheduler. Load failures leave the
// affected stores in StatusError and do not stop the service.
func (s *SettingsService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	group := settings.NewGroup("all", s.stores.Controllers()...)
	if err := group.Refresh(ctx); err != nil {
		logrus.WithError(err).Warn("Some settings could not be loaded, using defaults")
	}

	if err := s.notifier.Start(context.Background()); err != nil {
		return fmt.Errorf("start settings notifier: %w", err)
	}
	if err := s.scheduler.Start(); err != nil {
		s.notifier.Stop()
		return fmt.Errorf("start settings scheduler: %w", err)
	}

	session.Install(s.session)
	s.started = true

	logrus.WithFields(logrus.Fields{
		"domains":  len(s.registry),
		"interval": s.scheduler.Interval(),
		"channel":  s.adapter.Channel(),
	}).Info("Settings service started")
	return nil
}

// Stop halts the background loops and closes every store. Safe to call more than once.
func (s *SettingsService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true

	s.scheduler.Stop()
	s.notifier.Stop()
	for _, c := range s.stores.Controllers() {
		c.Close()
	}
	if session.Installed() == s.session {
		session.Install(nil)
	}
	logrus.Info("Settings service stopped")
}

// Stores returns the typed domain stores.
func (s *SettingsService) Stores() *domain.Stores { return s.stores }

// Session returns the current-tenant session.
func (s *SettingsService) Session() *session.Session { return s.session }

// Backend returns the backing store.
func (s *SettingsService) Backend() store.Store { return s.backend }

// Adapter returns the persistence adapter.
func (s *SettingsService) Adapter() *kv.Adapter { return s.adapter }

func (s *SettingsService) lookup(name string) (domain.Descriptor, settings.Controller, error) {
	d, ok := domain.Lookup(name)
	if !ok {
		return domain.Descriptor{}, nil, NewI18nError(app_errors.ErrResourceNotFound, "settings.unknown_domain", map[string]any{"Domain": name})
	}
	return d, s.registry[d.Name], nil
}

func view(d domain.Descriptor, c settings.Controller) DomainView {
	return DomainView{
		Name:        d.Name,
		Label:       d.Label,
		Category:    d.Category,
		Description: d.Description,
		Sensitive:   d.Sensitive,
		Default:     c.RawDefault(),
		Snapshot:    c.RawSnapshot(),
	}
}

// List returns every domain in display order.
func (s *SettingsService) List() []DomainView {
	descriptors := domain.Descriptors()
	views := make([]DomainView, 0, len(descriptors))
	for _, d := range descriptors {
		views = append(views, view(d, s.registry[d.Name]))
	}
	return views
}

// Categorized returns the domains grouped by category, categories in order of first appearance.
func (s *SettingsService) Categorized() []CategorizedDomains {
	var result []CategorizedDomains
	index := make(map[string]int)
	for _, v := range s.List() {
		i, ok := index[v.Category]
		if !ok {
			i = len(result)
			index[v.Category] = i
			result = append(result, CategorizedDomains{CategoryName: v.Category})
		}
		result[i].Domains = append(result[i].Domains, v)
	}
	return result
}

// Get returns one domain by name or key.
func (s *SettingsService) Get(name string) (DomainView, error) {
	d, c, err := s.lookup(name)
	if err != nil {
		return DomainView{}, err
	}
	return view(d, c), nil
}

// Replace stores a whole new value for a domain.
func (s *SettingsService) Replace(ctx context.Context, name string, data []byte) (DomainView, error) {
	d, c, err := s.lookup(name)
	if err != nil {
		return DomainView{}, err
	}
	if err := c.SetRaw(ctx, data); err != nil {
		return view(d, c), err
	}
	return view(d, c), nil
}

// Patch replaces the given dotted paths of a domain value in one write.
func (s *SettingsService) Patch(ctx context.Context, name string, fields map[string]any) (DomainView, error) {
	d, c, err := s.lookup(name)
	if err != nil {
		return DomainView{}, err
	}
	if err := c.Patch(ctx, fields); err != nil {
		return view(d, c), err
	}
	return view(d, c), nil
}

// Refresh reloads a domain from storage.
func (s *SettingsService) Refresh(ctx context.Context, name string) (DomainView, error) {
	d, c, err := s.lookup(name)
	if err != nil {
		return DomainView{}, err
	}
	if err := c.Refresh(ctx); err != nil {
		return view(d, c), err
	}
	return view(d, c), nil
}

// Focus asks the scheduler for an immediate guarded refresh of every domain.
func (s *SettingsService) Focus() {
	s.scheduler.Focus()
}

// Metrics returns the counters of every domain, sorted by key.
func (s *SettingsService) Metrics() []settings.MetricsSnapshot {
	return s.metrics.All()
}

// AddBlacklistEntries appends entries to the blacklist.
func (s *SettingsService) AddBlacklistEntries(ctx context.Context, entries []string) (DomainView, error) {
	err := settings.AddEntries(ctx, s.stores.Blacklist, entries)
	v, _ := s.Get(domain.NameBlacklist)
	return v, err
}

// RemoveBlacklistEntries drops entries from the blacklist.
func (s *SettingsService) RemoveBlacklistEntries(ctx context.Context, entries []string) (DomainView, error) {
	err := settings.RemoveEntries(ctx, s.stores.Blacklist, entries)
	v, _ := s.Get(domain.NameBlacklist)
	return v, err
}

// ClearBlacklist empties the blacklist.
func (s *SettingsService) ClearBlacklist(ctx context.Context) (DomainView, error) {
	err := settings.Clear(ctx, s.stores.Blacklist)
	v, _ := s.Get(domain.NameBlacklist)
	return v, err
}

// ToggleNotifications flips the notifications switch.
func (s *SettingsService) ToggleNotifications(ctx context.Context) (DomainView, error) {
	err := domain.ToggleNotifications(ctx, s.stores.Notifications)
	v, _ := s.Get(domain.NameNotifications)
	return v, err
}

// Subscribe calls fn with the domain name and snapshot on every state change of any domain.
func (s *SettingsService) Subscribe(fn func(name string, snap settings.RawSnapshot)) (cancel func()) {
	var cancels []func()
	for name, c := range s.registry {
		cancels = append(cancels, c.SubscribeRaw(func(snap settings.RawSnapshot) {
			fn(name, snap)
		}))
	}
	return func() {
		for _, c := range cancels {
			c()
		}
	}
}

// Export returns the current value of every domain keyed by storage key.
func (s *SettingsService) Export() map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(s.registry))
	for _, c := range s.registry {
		out[c.Key()] = c.RawSnapshot().Value
	}
	return out
}

// ImportResult reports what Import did with each entry.
type ImportResult struct {
	Applied []string          `json:"applied"`
	Skipped map[string]string `json:"skipped,omitempty"`
}

// Import stores values keyed by domain name, storage key or legacy key. Every entry is
// validated before anything is written; an invalid entry aborts the whole import.
func (s *SettingsService) Import(ctx context.Context, values map[string]json.RawMessage) (ImportResult, error) {
	legacy := domain.LegacyKeys()
	result := ImportResult{Skipped: make(map[string]string)}

	type pending struct {
		name string
		c    settings.Controller
		data []byte
	}
	var batch []pending

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		name := k
		if mapped, ok := legacy[k]; ok {
			name = mapped
		}
		d, c, err := s.lookup(name)
		if err != nil {
			result.Skipped[k] = "unknown domain"
			continue
		}
		if err := c.ValidateRaw(values[k]); err != nil {
			return result, fmt.Errorf("%s: %w", d.Name, err)
		}
		batch = append(batch, pending{name: d.Name, c: c, data: values[k]})
	}

	for _, p := range batch {
		if err := p.c.SetRaw(ctx, p.data); err != nil {
			return result, fmt.Errorf("%s: %w", p.name, err)
		}
		result.Applied = append(result.Applied, p.name)
	}

	logrus.WithFields(logrus.Fields{
		"applied": len(result.Applied),
		"skipped": len(result.Skipped),
	}).Info("Imported settings")
	return result, nil
}
