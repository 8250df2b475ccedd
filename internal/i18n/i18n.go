// Package i18n renders dashboard messages in English or Brazilian Portuguese.
package i18n

import (
	"embed"
	"fmt"
	"path"
	"sync"

	"github.com/gin-gonic/gin"
	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// Supported lists the languages with a locale file. The first one is the fallback.
var Supported = []language.Tag{language.English, language.BrazilianPortuguese}

var (
	bundle      *goi18n.Bundle
	matcher     = language.NewMatcher(Supported)
	initOnce    sync.Once

	defaultMu   sync.RWMutex
	defaultLang = language.English
)

func load() {
	initOnce.Do(func() {
		bundle = goi18n.NewBundle(language.English)
		bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)

		entries, err := localeFS.ReadDir("locales")
		if err != nil {
			logrus.WithError(err).Error("Failed to read embedded locales")
			return
		}
		for _, entry := range entries {
			name := path.Join("locales", entry.Name())
			data, err := localeFS.ReadFile(name)
			if err != nil {
				logrus.WithError(err).WithField("file", name).Error("Failed to read locale file")
				continue
			}
			if _, err := bundle.ParseMessageFileBytes(data, name); err != nil {
				logrus.WithError(err).WithField("file", name).Error("Failed to parse locale file")
			}
		}
	})
}

// SetDefault sets the language used when a request names none. Unknown tags are ignored.
func SetDefault(lang string) {
	tag, err := language.Parse(lang)
	if err != nil {
		logrus.WithField("language", lang).Warn("Unknown default language, keeping English")
		return
	}
	matched := Match(tag.String())

	defaultMu.Lock()
	defaultLang = matched
	defaultMu.Unlock()
}

// Default returns the fallback language.
func Default() language.Tag {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLang
}

// Match picks the supported language closest to an Accept-Language value.
func Match(accept string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return Default()
	}
	_, idx, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return Default()
	}
	return Supported[idx]
}

// Localize renders message id in lang. Unknown ids are returned as is.
func Localize(lang language.Tag, id string, data map[string]any) string {
	load()
	localizer := goi18n.NewLocalizer(bundle, lang.String(), Default().String())
	msg, err := localizer.Localize(&goi18n.LocalizeConfig{MessageID: id, TemplateData: data})
	if err != nil {
		return id
	}
	return msg
}

// Message renders id in the language requested by the client.
func Message(c *gin.Context, id string, data ...map[string]any) string {
	var td map[string]any
	if len(data) > 0 {
		td = data[0]
	}
	return Localize(FromContext(c), id, td)
}

// FromContext reads the request language from the lang query parameter or the
// Accept-Language header.
func FromContext(c *gin.Context) language.Tag {
	if lang := c.Query("lang"); lang != "" {
		return Match(lang)
	}
	return Match(c.GetHeader("Accept-Language"))
}

// Errorf renders id with an "Error" template value.
func Errorf(lang language.Tag, id string, format string, args ...any) string {
	return Localize(lang, id, map[string]any{"Error": fmt.Sprintf(format, args...)})
}
