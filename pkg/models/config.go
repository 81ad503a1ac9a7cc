package models

// RetentionPolicy bounds how many snapshot files of one kind are kept.
// When Enabled is false every snapshot is kept.
type RetentionPolicy struct {
	Enabled  bool `yaml:"enabled" mapstructure:"enabled"`
	MaxCount int  `yaml:"max_count" mapstructure:"max_count"`
}

// GlobalConfig holds system-wide settings read from .taskgraph.yaml via Viper.
type GlobalConfig struct {
	DefaultProject   string             `yaml:"default_project" mapstructure:"default_project"`
	LogLevel         string             `yaml:"log_level" mapstructure:"log_level"`
	EventLogEnabled  bool               `yaml:"event_log" mapstructure:"event_log"`
	LockTimeout      int                `yaml:"lock_timeout_seconds" mapstructure:"lock_timeout_seconds"`
	BackupRetention  RetentionPolicy    `yaml:"backup_retention" mapstructure:"backup_retention"`
	ArchiveRetention RetentionPolicy    `yaml:"archive_retention" mapstructure:"archive_retention"`
	Notifications    NotificationConfig `yaml:"notifications" mapstructure:"notifications"`
}

// AlertThresholdConfig tunes when task health alerts fire. Zero values fall
// back to the built-in defaults.
type AlertThresholdConfig struct {
	BlockedHours   int `yaml:"blocked_hours" mapstructure:"blocked_hours"`
	StaleDays      int `yaml:"stale_days" mapstructure:"stale_days"`
	MaxBacklogSize int `yaml:"max_backlog_size" mapstructure:"max_backlog_size"`
}

// SlackConfig holds the incoming webhook used for alert notifications.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// NotificationConfig groups alert thresholds and notification channels.
type NotificationConfig struct {
	Enabled bool                 `yaml:"enabled" mapstructure:"enabled"`
	Slack   SlackConfig          `yaml:"slack" mapstructure:"slack"`
	Alerts  AlertThresholdConfig `yaml:"alerts" mapstructure:"alerts"`
}
