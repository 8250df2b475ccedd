package models

// legacyKeys maps the keys used by older dashboard builds to the current namespace.
var legacyKeys = map[string]string{
	"notifications-config": "inkcloud.notifications",
	"blacklist":            "inkcloud.blacklist",
	"custom-mode":          "inkcloud.display-mode",
	"appearance-settings":  "inkcloud.appearance",
	"painel-settings":      "inkcloud.painel",
	"automod-settings":     "inkcloud.automod",
	"current-tenant":       "inkcloud.tenant",
}

// LegacyKeys returns a copy of the legacy key mapping.
func LegacyKeys() map[string]string {
	out := make(map[string]string, len(legacyKeys))
	for k, v := range legacyKeys {
		out[k] = v
	}
	return out
}
