package session

import "sync"

// Older bot modules read the tenant through a package-level getter instead of receiving a
// Session. The bridge keeps that call shape while the Session stays owned by the service that
// created it. New code should take a *Session.
var (
	bridgeMu sync.RWMutex
	current  *Session
)

// Install makes s the session behind CurrentTenant. Passing nil detaches it.
func Install(s *Session) {
	bridgeMu.Lock()
	defer bridgeMu.Unlock()
	current = s
}

// Installed returns the session behind CurrentTenant, or nil.
func Installed() *Session {
	bridgeMu.RLock()
	defer bridgeMu.RUnlock()
	return current
}

// CurrentTenant returns the tenant id of the installed session, empty when no session is
// installed or no tenant is selected.
func CurrentTenant() string {
	s := Installed()
	if s == nil {
		return ""
	}
	return s.Tenant()
}
