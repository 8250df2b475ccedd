package services

import (
	"crypto/subtle"

	"inkcloud/internal/types"
	"inkcloud/internal/utils"

	"github.com/sirupsen/logrus"
)

// AuthService checks the admin key of the dashboard.
type AuthService struct {
	configManager types.ConfigManager
}

// NewAuthService creates the auth service and warns about weak plain text keys.
func NewAuthService(configManager types.ConfigManager) *AuthService {
	key := configManager.GetAuthConfig().Key
	if key != "" && !utils.IsBcryptHash(key) {
		utils.ValidatePasswordStrength(key, "AUTH_KEY")
	}
	return &AuthService{configManager: configManager}
}

// Verify reports whether candidate matches AUTH_KEY. A bcrypt hash is checked with bcrypt,
// a plain key with a constant time comparison.
func (s *AuthService) Verify(candidate string) bool {
	key := s.configManager.GetAuthConfig().Key
	if key == "" || candidate == "" {
		return false
	}

	if utils.IsBcryptHash(key) {
		return utils.CheckPasswordHash(candidate, key)
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(key)) == 1
}

// CheckStrength rates a candidate admin key.
func (s *AuthService) CheckStrength(password string) utils.PasswordValidationResult {
	result := utils.CheckPasswordStrength(password)
	if !result.IsValid {
		logrus.WithField("score", result.Score).Debug("Rejected weak admin key candidate")
	}
	return result
}
