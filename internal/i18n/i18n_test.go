package i18n

import (
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		accept string
		want   language.Tag
	}{
		{"pt-BR,pt;q=0.9,en;q=0.8", language.BrazilianPortuguese},
		{"pt", language.BrazilianPortuguese},
		{"en-US", language.English},
		{"", language.English},
		{"ja", language.English},
	}

	for _, tt := range tests {
		t.Run(tt.accept, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.accept))
		})
	}
}

func TestLocalize(t *testing.T) {
	assert.Equal(t, "Settings saved", Localize(language.English, "settings.saved", nil))
	assert.Equal(t, "Configurações salvas", Localize(language.BrazilianPortuguese, "settings.saved", nil))
	assert.Equal(t, "Invalid settings: prefix is required",
		Localize(language.English, "settings.validation_failed", map[string]any{"Error": "prefix is required"}))
	assert.Equal(t, "no.such.message", Localize(language.English, "no.such.message", nil))
}

func TestErrorf(t *testing.T) {
	assert.Equal(t, "Could not save settings: disk full", Errorf(language.English, "settings.save_failed", "disk %s", "full"))
}

func TestMessageFromRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		target string
		accept string
		want   string
	}{
		{name: "query parameter", target: "/api/settings?lang=pt-BR", want: "Falha na autenticação"},
		{name: "accept language", target: "/api/settings", accept: "en", want: "Authentication failed"},
		{name: "query wins over header", target: "/api/settings?lang=en", accept: "pt-BR", want: "Authentication failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("GET", tt.target, nil)
			if tt.accept != "" {
				c.Request.Header.Set("Accept-Language", tt.accept)
			}
			assert.Equal(t, tt.want, Message(c, "auth.failed"))
		})
	}
}

func TestSetDefaultConcurrentWithRequests(t *testing.T) {
	t.Cleanup(func() { SetDefault("en") })

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				SetDefault("pt-BR")
			} else {
				SetDefault("en")
			}
		}(i)
		go func() {
			defer wg.Done()
			_ = Localize(Match("ja"), "settings.saved", nil)
		}()
	}
	wg.Wait()

	SetDefault("pt-BR")
	assert.Equal(t, language.BrazilianPortuguese, Default())
	assert.Equal(t, language.BrazilianPortuguese, Match("ja"))

	SetDefault("not a tag!")
	assert.Equal(t, language.BrazilianPortuguese, Default())
}
