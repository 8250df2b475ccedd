package config

import (
	"errors"
	"os"

	"inkcloud/internal/utils"

	"github.com/sirupsen/logrus"
	"github.com/zalando/go-keyring"
)

const (
	keyringService = "inkcloud"
	keyringAccount = "settings-encryption-key"
)

// keyringGet is replaced in tests.
var keyringGet = keyring.Get

// keyringEncryptionKey reads the encryption key from the OS keychain. It returns an empty
// string when the keychain is disabled, unavailable or holds no key.
func keyringEncryptionKey() string {
	if utils.ParseBoolean(os.Getenv("INKCLOUD_KEYRING_DISABLED"), false) {
		return ""
	}
	key, err := keyringGet(keyringService, keyringAccount)
	if err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			logrus.WithError(err).Debug("OS keychain unavailable, settings encryption stays off")
		}
		return ""
	}
	logrus.Info("Using settings encryption key from the OS keychain")
	return key
}

// StoreEncryptionKey saves key in the OS keychain so later runs can omit ENCRYPTION_KEY.
func StoreEncryptionKey(key string) error {
	return keyring.Set(keyringService, keyringAccount, key)
}

