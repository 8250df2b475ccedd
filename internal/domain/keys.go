// Package domain defines the inkCloud configuration domains: their storage keys, value types,
// defaults and validation rules.
package domain

import "inkcloud/internal/models"

// Storage keys, one per domain.
const (
	KeyNotifications = "inkcloud.notifications"
	KeyBlacklist     = "inkcloud.blacklist"
	KeyDisplayMode   = "inkcloud.display-mode"
	KeyAppearance    = "inkcloud.appearance"
	KeyPainel        = "inkcloud.painel"
	KeyAutomod       = "inkcloud.automod"
	KeyTenant        = "inkcloud.tenant"
)

// KeyPrefix is shared by every domain key.
const KeyPrefix = "inkcloud."

// Domain names used in URLs and CLI output.
const (
	NameNotifications = "notifications"
	NameBlacklist     = "blacklist"
	NameDisplayMode   = "display-mode"
	NameAppearance    = "appearance"
	NamePainel        = "painel"
	NameAutomod       = "automod"
	NameTenant        = "tenant"
)

// Categories group domains on the dashboard.
const (
	CategoryBot        = "bot"
	CategoryModeration = "moderation"
	CategoryDashboard  = "dashboard"
	CategorySession    = "session"
)

// Descriptor describes a domain for listings.
type Descriptor struct {
	Name        string
	Key         string
	Label       string
	Category    string
	Description string
	Sensitive   bool
}

var descriptors = []Descriptor{
	{Name: NameNotifications, Key: KeyNotifications, Label: "Notifications", Category: CategoryBot, Description: "WhatsApp alerts for bot events", Sensitive: true},
	{Name: NameBlacklist, Key: KeyBlacklist, Label: "Blacklist", Category: CategoryModeration, Description: "Users and servers the bot ignores"},
	{Name: NameDisplayMode, Key: KeyDisplayMode, Label: "Display mode", Category: CategoryBot, Description: "How the bot renders its messages"},
	{Name: NameAppearance, Key: KeyAppearance, Label: "Appearance", Category: CategoryDashboard, Description: "Dashboard theme and layout"},
	{Name: NamePainel, Key: KeyPainel, Label: "Painel", Category: CategoryBot, Description: "Bot identity, prefix and language"},
	{Name: NameAutomod, Key: KeyAutomod, Label: "Auto-moderation", Category: CategoryModeration, Description: "Automatic punishment thresholds"},
	{Name: NameTenant, Key: KeyTenant, Label: "Current tenant", Category: CategorySession, Description: "Server the dashboard is managing"},
}

// Descriptors lists every domain in display order.
func Descriptors() []Descriptor {
	out := make([]Descriptor, len(descriptors))
	copy(out, descriptors)
	return out
}

// Lookup finds a domain by name or storage key.
func Lookup(nameOrKey string) (Descriptor, bool) {
	for _, d := range descriptors {
		if d.Name == nameOrKey || d.Key == nameOrKey {
			return d, true
		}
	}
	return Descriptor{}, false
}

// SensitiveKeys lists the keys stored encrypted when an encryption key is configured.
func SensitiveKeys() []string {
	var keys []string
	for _, d := range descriptors {
		if d.Sensitive {
			keys = append(keys, d.Key)
		}
	}
	return keys
}

// LegacyKeys returns a copy of the mapping from keys used by older dashboard builds to the
// current namespace.
func LegacyKeys() map[string]string {
	return models.LegacyKeys()
}
