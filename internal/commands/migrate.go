package commands

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"inkcloud/internal/config"
	"inkcloud/internal/domain"
	"inkcloud/internal/encryption"
	"inkcloud/internal/kv"
	"inkcloud/internal/store"
	"inkcloud/internal/types"
	"inkcloud/internal/utils"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/dig"
)

// backupPrefix is outside domain.KeyPrefix so backups never show up as settings.
const backupPrefix = "migration-backup."

func newMigrateSettingsCmd(build func() (*dig.Container, error)) *cobra.Command {
	var (
		fromKey, toKey string
		saveKeyring    bool
	)

	cmd := &cobra.Command{
		Use:   "migrate-settings",
		Short: "Re-encrypt sensitive settings with a new ENCRYPTION_KEY",
		Long: `Re-encrypt sensitive settings.

  Enable encryption:  inkcloud migrate-settings --to new-key
  Disable encryption: inkcloud migrate-settings --from old-key
  Change key:         inkcloud migrate-settings --from old-key --to new-key

Stop the service before migrating and restart it afterwards.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if fromKey == "" && toKey == "" {
				return cmd.Usage()
			}

			cont, err := build()
			if err != nil {
				return fmt.Errorf("failed to build container: %w", err)
			}

			return cont.Invoke(func(configManager types.ConfigManager, backend store.Store) error {
				utils.SetupLogger(configManager)
				defer backend.Close()

				if err := NewMigrateSettingsCommand(backend, configManager, fromKey, toKey).Execute(cmd.Context()); err != nil {
					return fmt.Errorf("key migration failed: %w", err)
				}
				if saveKeyring && toKey != "" {
					if err := config.StoreEncryptionKey(toKey); err != nil {
						logrus.Warnf("Failed to save the new key in the OS keychain: %v", err)
					} else {
						logrus.Info("New key saved in the OS keychain")
					}
				}
				logrus.Info("Key migration command completed")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&fromKey, "from", "", "Source encryption key (for decrypting existing data)")
	cmd.Flags().StringVar(&toKey, "to", "", "Target encryption key (for encrypting new data)")
	cmd.Flags().BoolVar(&saveKeyring, "keyring", false, "Save the target key in the OS keychain")
	return cmd
}

// MigrateSettingsCommand moves every stored setting from one encryption key to another.
type MigrateSettingsCommand struct {
	backend       store.Store
	configManager types.ConfigManager
	fromKey       string
	toKey         string
	backupPrefix  string

	plaintext map[string][]byte
}

// NewMigrateSettingsCommand creates a new migration command
func NewMigrateSettingsCommand(backend store.Store, configManager types.ConfigManager, fromKey, toKey string) *MigrateSettingsCommand {
	return &MigrateSettingsCommand{
		backend:       backend,
		configManager: configManager,
		fromKey:       fromKey,
		toKey:         toKey,
		backupPrefix:  fmt.Sprintf("%s%s.", backupPrefix, time.Now().Format("20060102_150405")),
		plaintext:     make(map[string][]byte),
	}
}

// Execute performs the key migration
func (cmd *MigrateSettingsCommand) Execute(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// 1. Validate parameters and get scenario
	scenario, err := cmd.validateAndGetScenario()
	if err != nil {
		return fmt.Errorf("parameter validation failed: %w", err)
	}

	logrus.Infof("Starting key migration, scenario: %s", scenario)

	// 2. Pre-check - every stored setting must open with the current key
	keys, err := cmd.preCheck(ctx)
	if err != nil {
		return fmt.Errorf("pre-check failed: %w", err)
	}
	if len(keys) == 0 {
		logrus.Info("No settings stored, nothing to migrate")
		return nil
	}

	// 3. Back up raw values
	if err := cmd.backup(ctx, keys); err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	// 4. Rewrite with the new key
	if err := cmd.migrate(ctx, keys); err != nil {
		cmd.rollback(ctx, keys)
		return fmt.Errorf("data migration failed: %w", err)
	}

	// 5. Verify
	if err := cmd.verify(ctx, keys); err != nil {
		cmd.rollback(ctx, keys)
		return fmt.Errorf("data verification failed: %w", err)
	}

	// 6. Clean up backups
	if err := cmd.cleanupBackups(ctx, keys); err != nil {
		logrus.Warnf("Backup cleanup failed, keys under %s can be removed manually: %v", cmd.backupPrefix, err)
	}

	logrus.Info("Key migration completed successfully!")
	logrus.Info("Restart the service so every process loads the new ENCRYPTION_KEY")
	return nil
}

// validateAndGetScenario validates parameters and returns migration scenario
func (cmd *MigrateSettingsCommand) validateAndGetScenario() (string, error) {
	hasFrom := cmd.fromKey != ""
	hasTo := cmd.toKey != ""

	switch {
	case !hasFrom && hasTo:
		utils.ValidatePasswordStrength(cmd.toKey, "new encryption key")
		return "enable encryption", nil
	case hasFrom && !hasTo:
		return "disable encryption", nil
	case hasFrom && hasTo:
		if cmd.fromKey == cmd.toKey {
			return "", fmt.Errorf("new and old keys cannot be the same")
		}
		utils.ValidatePasswordStrength(cmd.toKey, "new encryption key")
		return "change encryption key", nil
	default:
		return "", fmt.Errorf("must specify --from or --to parameter, or both")
	}
}

func (cmd *MigrateSettingsCommand) adapter(key string) (*kv.Adapter, error) {
	svc, err := encryption.NewServiceWithKey(key)
	if err != nil {
		return nil, err
	}
	return kv.New(cmd.backend, kv.Options{
		Channel:    cmd.configManager.GetSyncConfig().Channel,
		Encryption: svc,
		Sensitive:  domain.SensitiveKeys(),
	}), nil
}

func (cmd *MigrateSettingsCommand) sourceKey() string {
	if cmd.fromKey != "" {
		return cmd.fromKey
	}
	return cmd.configManager.GetEncryptionKey()
}

// preCheck decrypts every stored setting and keeps the plaintext for the rewrite.
func (cmd *MigrateSettingsCommand) preCheck(ctx context.Context) ([]string, error) {
	logrus.Info("Executing pre-check...")

	oldAdapter, err := cmd.adapter(cmd.sourceKey())
	if err != nil {
		return nil, fmt.Errorf("failed to create current encryption service: %w", err)
	}

	keys, err := oldAdapter.Keys(ctx, domain.KeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}

	failedCount := 0
	for _, key := range keys {
		data, found, err := oldAdapter.ReadRaw(ctx, key)
		if err != nil {
			logrus.Errorf("Setting %s cannot be read: %v", key, err)
			failedCount++
			continue
		}
		if found {
			cmd.plaintext[key] = data
		}
	}

	if failedCount > 0 {
		return nil, fmt.Errorf("found %d settings that cannot be decrypted, please check current ENCRYPTION_KEY configuration", failedCount)
	}

	present := make([]string, 0, len(cmd.plaintext))
	for _, key := range keys {
		if _, ok := cmd.plaintext[key]; ok {
			present = append(present, key)
		}
	}

	logrus.Infof("Pre-check passed, %d settings verified", len(present))
	return present, nil
}

func (cmd *MigrateSettingsCommand) backupKey(key string) string {
	return cmd.backupPrefix + key
}

func (cmd *MigrateSettingsCommand) backup(ctx context.Context, keys []string) error {
	for _, key := range keys {
		raw, err := cmd.backend.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", key, err)
		}
		if err := cmd.backend.Set(ctx, cmd.backupKey(key), raw); err != nil {
			return fmt.Errorf("failed to back up %s: %w", key, err)
		}
	}
	logrus.Infof("Backed up %d settings under %s", len(keys), cmd.backupPrefix)
	return nil
}

func (cmd *MigrateSettingsCommand) migrate(ctx context.Context, keys []string) error {
	newAdapter, err := cmd.adapter(cmd.toKey)
	if err != nil {
		return fmt.Errorf("failed to create new encryption service: %w", err)
	}

	for i, key := range keys {
		if err := newAdapter.WriteRaw(ctx, key, cmd.plaintext[key]); err != nil {
			return err
		}
		logrus.Infof("Migrated %d/%d settings", i+1, len(keys))
	}
	return nil
}

func (cmd *MigrateSettingsCommand) verify(ctx context.Context, keys []string) error {
	logrus.Info("Verifying migrated settings...")

	newAdapter, err := cmd.adapter(cmd.toKey)
	if err != nil {
		return fmt.Errorf("failed to create verification encryption service: %w", err)
	}

	for _, key := range keys {
		data, found, err := newAdapter.ReadRaw(ctx, key)
		if err != nil {
			return fmt.Errorf("setting %s verification failed: %w", key, err)
		}
		if !found || !bytes.Equal(data, cmd.plaintext[key]) {
			return fmt.Errorf("setting %s changed during migration", key)
		}
	}

	logrus.Info("Verification passed")
	return nil
}

// rollback restores the raw backups. Backups stay in place for manual recovery.
func (cmd *MigrateSettingsCommand) rollback(ctx context.Context, keys []string) {
	logrus.Warn("Restoring settings from backup...")
	for _, key := range keys {
		raw, err := cmd.backend.Get(ctx, cmd.backupKey(key))
		if err != nil {
			logrus.Errorf("Backup of %s unavailable, restore it manually from %s: %v", key, cmd.backupPrefix, err)
			continue
		}
		if err := cmd.backend.Set(ctx, key, raw); err != nil {
			logrus.Errorf("Failed to restore %s: %v", key, err)
		}
	}
}

func (cmd *MigrateSettingsCommand) cleanupBackups(ctx context.Context, keys []string) error {
	var failed []string
	for _, key := range keys {
		if err := cmd.backend.Delete(ctx, cmd.backupKey(key)); err != nil {
			failed = append(failed, key)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("could not delete backups of %s", strings.Join(failed, ", "))
	}
	return nil
}
