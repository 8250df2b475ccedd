// Package session tracks which tenant (Discord server) the dashboard is managing.
package session

import (
	"context"

	"inkcloud/internal/settings"

	"github.com/sirupsen/logrus"
)

// Session owns the current-tenant store of one dashboard process.
type Session struct {
	tenant *settings.Store[string]
}

// New creates a session over the tenant store.
func New(tenant *settings.Store[string]) *Session {
	return &Session{tenant: tenant}
}

// Tenant returns the selected tenant id, empty when none is selected.
func (s *Session) Tenant() string {
	return s.tenant.Value()
}

// HasTenant reports whether a tenant is selected.
func (s *Session) HasTenant() bool {
	return s.Tenant() != ""
}

// Select switches to the tenant with the given id. The id must be a UUID.
func (s *Session) Select(ctx context.Context, id string) error {
	if err := s.tenant.Set(ctx, id); err != nil {
		return err
	}
	logrus.WithField("tenant", s.tenant.Value()).Info("Switched current tenant")
	return nil
}

// Clear deselects the current tenant.
func (s *Session) Clear(ctx context.Context) error {
	return s.tenant.Set(ctx, "")
}

// Snapshot returns the tenant store state.
func (s *Session) Snapshot() settings.Snapshot[string] {
	return s.tenant.Snapshot()
}

// OnChange calls fn with every new tenant id until the returned cancel is called.
func (s *Session) OnChange(fn func(tenant string)) (cancel func()) {
	last := s.Tenant()
	return s.tenant.Subscribe(func(snap settings.Snapshot[string]) {
		if snap.Value == last {
			return
		}
		last = snap.Value
		fn(snap.Value)
	})
}
