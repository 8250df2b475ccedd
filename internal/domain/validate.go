package domain

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/text/language"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(notificationsRules, Notifications{})
	v.RegisterStructValidation(thresholdRules, Thresholds{})
	return v
}

func notificationsRules(sl validator.StructLevel) {
	n := sl.Current().Interface().(Notifications)
	if !n.Enabled {
		return
	}
	if n.DDD == nil {
		sl.ReportError(n.DDD, "ddd", "DDD", "required_when_enabled", "")
	}
	if n.Number == nil {
		sl.ReportError(n.Number, "number", "Number", "required_when_enabled", "")
	}
}

func thresholdRules(sl validator.StructLevel) {
	t := sl.Current().Interface().(Thresholds)
	if t.Total() != 100 {
		sl.ReportError(t.Total(), "thresholds", "Thresholds", "sum100", fmt.Sprint(t.Total()))
	}
}

// formatError turns validator output into one readable error.
func formatError(err error) error {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required", "required_when_enabled":
			parts = append(parts, fmt.Sprintf("%s is required", field))
		case "sum100":
			parts = append(parts, fmt.Sprintf("thresholds must add up to 100, got %s", fe.Param()))
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of [%s]", field, fe.Param()))
		case "hexcolor":
			parts = append(parts, fmt.Sprintf("%s must be a hex color", field))
		case "numeric":
			parts = append(parts, fmt.Sprintf("%s must contain only digits", field))
		case "unique":
			parts = append(parts, fmt.Sprintf("%s must not contain duplicates", field))
		default:
			if fe.Param() != "" {
				parts = append(parts, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
			} else {
				parts = append(parts, fmt.Sprintf("%s failed %s", field, fe.Tag()))
			}
		}
	}
	return stderrors.New(strings.Join(parts, "; "))
}

// ValidateNotifications requires ddd and number while alerts are enabled.
func ValidateNotifications(n Notifications) error {
	return formatError(validate.Struct(n))
}

// NormalizeNotifications trims phone fields and turns blanks into null.
func NormalizeNotifications(n Notifications) Notifications {
	n.DDD = trimPtr(n.DDD)
	n.Number = trimPtr(n.Number)
	return n
}

// ValidateBlacklist requires unique non-empty entries.
func ValidateBlacklist(entries []string) error {
	if entries == nil {
		return nil
	}
	return formatError(validate.Var(entries, "unique,dive,required,max=64"))
}

// ValidateDisplayMode accepts only the known modes.
func ValidateDisplayMode(m DisplayMode) error {
	if !m.Valid() {
		return fmt.Errorf("display mode must be one of [embed components], got %q", string(m))
	}
	return nil
}

// ValidateAppearance checks theme, accent color and font scale.
func ValidateAppearance(a Appearance) error {
	return formatError(validate.Struct(a))
}

// NormalizeAppearance lowercases the theme and accent color.
func NormalizeAppearance(a Appearance) Appearance {
	a.Theme = strings.ToLower(strings.TrimSpace(a.Theme))
	a.AccentColor = strings.ToLower(strings.TrimSpace(a.AccentColor))
	return a
}

// ValidatePainel checks the bot identity fields.
func ValidatePainel(p Painel) error {
	return formatError(validate.Struct(p))
}

// NormalizePainel trims text fields and canonicalizes the language tag, so "pt-br" becomes "pt-BR".
func NormalizePainel(p Painel) Painel {
	p.BotName = strings.TrimSpace(p.BotName)
	p.Prefix = strings.TrimSpace(p.Prefix)
	p.EmbedColor = strings.ToLower(strings.TrimSpace(p.EmbedColor))
	p.LogChannelID = strings.TrimSpace(p.LogChannelID)
	if tag, err := language.Parse(strings.TrimSpace(p.Language)); err == nil {
		p.Language = tag.String()
	}
	return p
}

// ValidateAutomod requires thresholds adding up to 100.
func ValidateAutomod(a Automod) error {
	return formatError(validate.Struct(a))
}

// ValidateTenant accepts an empty id (no tenant selected) or a UUID.
func ValidateTenant(id string) error {
	if id == "" {
		return nil
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("tenant id must be a UUID: %w", err)
	}
	return nil
}

// NormalizeTenant rewrites any accepted UUID spelling to the canonical lowercase form.
func NormalizeTenant(id string) string {
	id = strings.TrimSpace(id)
	if parsed, err := uuid.Parse(id); err == nil {
		return parsed.String()
	}
	return id
}
