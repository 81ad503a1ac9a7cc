// Package core contains the business logic of taskgraph: batch
// reconciliation, dependency resolution, the task status state machine, the
// project registry and configuration.
package core

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"github.com/valter-silva-au/taskgraph/pkg/models"
)

// ConfigFileName is the name (without extension) of the global config file.
const ConfigFileName = ".taskgraph"

// ConfigurationManager defines the interface for loading and validating
// configuration from the global .taskgraph.yaml file.
type ConfigurationManager interface {
	LoadGlobalConfig() (*models.GlobalConfig, error)
	ValidateConfig(cfg *models.GlobalConfig) error
}

// viperConfigManager implements ConfigurationManager using Viper for
// reading YAML configuration files.
type viperConfigManager struct {
	// basePath is the root directory where .taskgraph.yaml resides.
	basePath string
}

// NewConfigurationManager creates a new ConfigurationManager that reads
// configuration files relative to basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// DefaultGlobalConfig returns a GlobalConfig populated with sensible defaults.
// Task backups are kept forever unless a retention limit is configured;
// project archives keep the five most recent.
func DefaultGlobalConfig() *models.GlobalConfig {
	return &models.GlobalConfig{
		DefaultProject:  FallbackProjectName,
		LogLevel:        "info",
		EventLogEnabled: true,
		LockTimeout:     10,
		BackupRetention: models.RetentionPolicy{
			Enabled:  false,
			MaxCount: 0,
		},
		ArchiveRetention: models.RetentionPolicy{
			Enabled:  true,
			MaxCount: 5,
		},
	}
}

// LoadGlobalConfig reads .taskgraph.yaml from the base path using Viper.
// If the file does not exist, defaults are returned. Environment variables
// prefixed with TASKGRAPH_ override file values.
func (cm *viperConfigManager) LoadGlobalConfig() (*models.GlobalConfig, error) {
	cfg := DefaultGlobalConfig()

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)
	v.SetEnvPrefix("TASKGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("defaults.project", cfg.DefaultProject)
	v.SetDefault("log.level", cfg.LogLevel)
	v.SetDefault("log.events", cfg.EventLogEnabled)
	v.SetDefault("lock.timeout_seconds", cfg.LockTimeout)
	v.SetDefault("backup.retention.enabled", cfg.BackupRetention.Enabled)
	v.SetDefault("backup.retention.max_count", cfg.BackupRetention.MaxCount)
	v.SetDefault("archive.retention.enabled", cfg.ArchiveRetention.Enabled)
	v.SetDefault("archive.retention.max_count", cfg.ArchiveRetention.MaxCount)
	v.SetDefault("notifications.enabled", false)
	v.SetDefault("notifications.slack.webhook_url", "")
	v.SetDefault("notifications.alerts.blocked_hours", 0)
	v.SetDefault("notifications.alerts.stale_days", 0)
	v.SetDefault("notifications.alerts.max_backlog_size", 0)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading %s.yaml: %w", ConfigFileName, err)
		}
	}

	cfg.DefaultProject = v.GetString("defaults.project")
	cfg.LogLevel = v.GetString("log.level")
	cfg.EventLogEnabled = v.GetBool("log.events")
	cfg.LockTimeout = v.GetInt("lock.timeout_seconds")
	cfg.BackupRetention = models.RetentionPolicy{
		Enabled:  v.GetBool("backup.retention.enabled"),
		MaxCount: v.GetInt("backup.retention.max_count"),
	}
	cfg.ArchiveRetention = models.RetentionPolicy{
		Enabled:  v.GetBool("archive.retention.enabled"),
		MaxCount: v.GetInt("archive.retention.max_count"),
	}
	cfg.Notifications = models.NotificationConfig{
		Enabled: v.GetBool("notifications.enabled"),
		Slack: models.SlackConfig{
			WebhookURL: v.GetString("notifications.slack.webhook_url"),
		},
		Alerts: models.AlertThresholdConfig{
			BlockedHours:   v.GetInt("notifications.alerts.blocked_hours"),
			StaleDays:      v.GetInt("notifications.alerts.stale_days"),
			MaxBacklogSize: v.GetInt("notifications.alerts.max_backlog_size"),
		},
	}

	return cfg, nil
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ValidateConfig checks the configuration for invalid values and returns a
// single error listing every problem found.
func (cm *viperConfigManager) ValidateConfig(cfg *models.GlobalConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	if cfg.DefaultProject != "" {
		if err := ValidateProjectName(cfg.DefaultProject); err != nil {
			errs = append(errs, fmt.Sprintf("defaults.project: %s", err))
		}
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		errs = append(errs, fmt.Sprintf(
			"log.level %q is invalid, must be one of: debug, info, warn, error",
			cfg.LogLevel,
		))
	}

	if cfg.LockTimeout < 0 {
		errs = append(errs, fmt.Sprintf("lock.timeout_seconds must be non-negative, got %d", cfg.LockTimeout))
	}

	for _, r := range []struct {
		key    string
		policy models.RetentionPolicy
	}{
		{"backup.retention", cfg.BackupRetention},
		{"archive.retention", cfg.ArchiveRetention},
	} {
		if r.policy.Enabled && r.policy.MaxCount < 1 {
			errs = append(errs, fmt.Sprintf("%s.max_count must be at least 1 when enabled, got %d", r.key, r.policy.MaxCount))
		}
	}

	alerts := cfg.Notifications.Alerts
	for _, th := range []struct {
		key   string
		value int
	}{
		{"notifications.alerts.blocked_hours", alerts.BlockedHours},
		{"notifications.alerts.stale_days", alerts.StaleDays},
		{"notifications.alerts.max_backlog_size", alerts.MaxBacklogSize},
	} {
		if th.value < 0 {
			errs = append(errs, fmt.Sprintf("%s must be non-negative, got %d", th.key, th.value))
		}
	}

	if cfg.Notifications.Enabled {
		webhook := cfg.Notifications.Slack.WebhookURL
		if webhook == "" {
			errs = append(errs, "notifications.slack.webhook_url is required when notifications are enabled")
		} else if !strings.HasPrefix(webhook, "https://") && !strings.HasPrefix(webhook, "http://") {
			errs = append(errs, fmt.Sprintf("notifications.slack.webhook_url %q must be an http(s) URL", webhook))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
