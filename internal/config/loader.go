package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// LoadConfig loads and validates configuration from, in increasing priority:
// 1. Default values
// 2. the YAML file at path (optional)
// 3. BOT_* environment variables
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
			slog.Info("Configuration file not found, using defaults and environment", "path", path)
		}
	}

	cfg := &Config{
		Alerts:   DefaultAlerts,
		Messages: DefaultMessages,
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	applyReminderInterval(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags of cfg and that the reminder task never polls
// twice inside one fire window.
func Validate(cfg *Config) error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	task, ok := cfg.Scheduler.Tasks[TaskProcedureReminders]
	if ok && task.Enabled && task.Interval > 0 && task.Interval < cfg.Reminder.Window {
		return fmt.Errorf("invalid configuration: reminder window %s is longer than the %s reminder poll interval",
			cfg.Reminder.Window, task.Interval)
	}
	return nil
}

func applyReminderInterval(cfg *Config) {
	task, ok := cfg.Scheduler.Tasks[TaskProcedureReminders]
	if !ok || task.Interval != 0 || task.Schedule != "" {
		return
	}
	task.Interval = cfg.Reminder.PollInterval
	cfg.Scheduler.Tasks[TaskProcedureReminders] = task
}

// setDefaults registers every overridable leaf so environment variables resolve even
// when the YAML file omits the key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", DefaultLogJSON)

	v.SetDefault("telegram.token", "")

	v.SetDefault("database.path", DefaultDBPath)

	v.SetDefault("reminder.poll_interval", DefaultReminderPollInterval)
	v.SetDefault("reminder.lead", DefaultReminderLead)
	v.SetDefault("reminder.window", DefaultReminderWindow)

	for name, task := range DefaultTasks {
		prefix := "scheduler.tasks." + name + "."
		v.SetDefault(prefix+"enabled", task.Enabled)
		v.SetDefault(prefix+"schedule", task.Schedule)
		v.SetDefault(prefix+"interval", task.Interval)
		v.SetDefault(prefix+"start_immediately", task.StartImmediately)
	}
}
