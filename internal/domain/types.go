package domain

import "strings"

// Notifications configures the WhatsApp alerts sent to the bot owner.
type Notifications struct {
	Enabled bool    `json:"enabled"`
	DDD     *string `json:"ddd" validate:"omitempty,len=2,numeric"`
	Number  *string `json:"number" validate:"omitempty,min=8,max=9,numeric"`
}

// DisplayMode selects how the bot renders its replies.
type DisplayMode string

const (
	DisplayModeEmbed      DisplayMode = "embed"
	DisplayModeComponents DisplayMode = "components"
)

// DisplayModes lists the valid display modes.
var DisplayModes = []DisplayMode{DisplayModeEmbed, DisplayModeComponents}

// Label returns the human name of the mode.
func (m DisplayMode) Label() string {
	switch m {
	case DisplayModeEmbed:
		return "Embed"
	case DisplayModeComponents:
		return "Components V2"
	default:
		return string(m)
	}
}

// Valid reports whether m is a known mode.
func (m DisplayMode) Valid() bool {
	return m == DisplayModeEmbed || m == DisplayModeComponents
}

// Appearance holds the dashboard look.
type Appearance struct {
	Theme          string `json:"theme" validate:"oneof=dark light system"`
	AccentColor    string `json:"accent_color" validate:"hexcolor"`
	CompactSidebar bool   `json:"compact_sidebar"`
	FontScale      int    `json:"font_scale" validate:"min=90,max=130"`
}

// Painel holds the bot identity shown in the main panel.
type Painel struct {
	BotName      string `json:"bot_name" validate:"required,max=32"`
	Prefix       string `json:"prefix" validate:"required,min=1,max=5"`
	Language     string `json:"language" validate:"oneof=pt-BR en"`
	EmbedColor   string `json:"embed_color" validate:"hexcolor"`
	LogChannelID string `json:"log_channel_id" validate:"omitempty,numeric,min=17,max=20"`
}

// Thresholds are the shares of infractions answered with each action, in percent.
type Thresholds struct {
	Warn int `json:"warn" validate:"min=0,max=100"`
	Mute int `json:"mute" validate:"min=0,max=100"`
	Kick int `json:"kick" validate:"min=0,max=100"`
	Ban  int `json:"ban" validate:"min=0,max=100"`
}

// Total returns the sum of all thresholds.
func (t Thresholds) Total() int {
	return t.Warn + t.Mute + t.Kick + t.Ban
}

// Automod configures automatic moderation.
type Automod struct {
	Enabled    bool       `json:"enabled"`
	Thresholds Thresholds `json:"thresholds"`
}

// Defaults.

func DefaultNotifications() Notifications {
	return Notifications{}
}

func DefaultBlacklist() []string {
	return []string{}
}

func DefaultDisplayMode() DisplayMode {
	return DisplayModeEmbed
}

func DefaultAppearance() Appearance {
	return Appearance{Theme: "system", AccentColor: "#7c3aed", FontScale: 100}
}

func DefaultPainel() Painel {
	return Painel{BotName: "inkCloud", Prefix: "!", Language: "pt-BR", EmbedColor: "#5865f2"}
}

func DefaultAutomod() Automod {
	return Automod{Thresholds: Thresholds{Warn: 40, Mute: 30, Kick: 20, Ban: 10}}
}

func DefaultTenant() string {
	return ""
}

func trimPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}
