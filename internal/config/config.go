// Package config provides configuration loading, validation, and management
// for the glucose diary bot. It handles reading from YAML files, environment
// overrides, default values, and validating configuration parameters.
package config

import (
	"time"

	"github.com/go-telegram/bot/models"
)

// Config holds all configuration for the application.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Reminder  ReminderConfig  `mapstructure:"reminder"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

// LoggerConfig defines logging settings.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds Telegram Bot API settings.
type TelegramConfig struct {
	Token string `mapstructure:"token" validate:"required"`
	// BotInfo is filled from getMe at startup.
	BotInfo *models.User `mapstructure:"-"`
}

// DatabaseConfig specifies database connection parameters.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// ReminderConfig controls the procedure reminder clock. A reminder fires when a poll
// lands in [checkpoint-Lead, checkpoint-Lead+Window). Window may not exceed the poll
// interval, or one checkpoint would fire on two polls.
type ReminderConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"min=1s"`
	Lead         time.Duration `mapstructure:"lead"          validate:"min=0s"`
	Window       time.Duration `mapstructure:"window"        validate:"min=1s,ltefield=PollInterval"`
}

// AlertsConfig holds every clinical threshold used by immediate and daily alerts.
type AlertsConfig struct {
	LowValue             float64 `mapstructure:"low_value"              validate:"gt=0"`
	ProgressAverage      float64 `mapstructure:"progress_average"       validate:"gt=0"`
	ProgressWindowDays   int     `mapstructure:"progress_window_days"   validate:"min=1"`
	InsulinReminderAbove float64 `mapstructure:"insulin_reminder_above" validate:"gt=0"`

	NadirWindowDays    int     `mapstructure:"nadir_window_days"    validate:"min=1"`
	NadirGoodMin       float64 `mapstructure:"nadir_good_min"       validate:"gte=0"`
	NadirGoodMax       float64 `mapstructure:"nadir_good_max"       validate:"gtfield=NadirGoodMin"`
	HighNadir          float64 `mapstructure:"high_nadir"           validate:"gt=0"`
	HighNadirDays      int     `mapstructure:"high_nadir_days"      validate:"min=1"`
	LowNadir           float64 `mapstructure:"low_nadir"            validate:"gt=0"`
	LowNadirDays       int     `mapstructure:"low_nadir_days"       validate:"min=1"`
	PeakDifference     float64 `mapstructure:"peak_difference"      validate:"gt=0"`
	PeakDifferenceDays int     `mapstructure:"peak_difference_days" validate:"min=1"`

	RangeLow  float64 `mapstructure:"range_low"  validate:"gte=0"`
	RangeHigh float64 `mapstructure:"range_high" validate:"gtfield=RangeLow"`

	StatsAverageGood float64 `mapstructure:"stats_average_good" validate:"gt=0"`
	StatsNadirGood   float64 `mapstructure:"stats_nadir_good"   validate:"gt=0"`
}

// SchedulerConfig is the configuration for scheduled tasks.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig defines one scheduled task. Schedule is a six-field cron expression;
// when Interval is set it takes precedence and the task runs every Interval.
type TaskConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Schedule         string        `mapstructure:"schedule"          validate:"required_without=Interval"`
	Interval         time.Duration `mapstructure:"interval"`
	StartImmediately bool          `mapstructure:"start_immediately"`
}

// MessagesConfig holds every user-facing text. Fields documented with a verb take
// fmt arguments in that order.
type MessagesConfig struct {
	Welcome       string `mapstructure:"welcome"        validate:"required"`
	MainMenu      string `mapstructure:"main_menu"      validate:"required"` // subject name
	Help          string `mapstructure:"help"           validate:"required"`
	ChartsMenu    string `mapstructure:"charts_menu"    validate:"required"`
	SettingsMenu  string `mapstructure:"settings_menu"  validate:"required"` // name, morning, peak hours, evening, active
	GeneralError  string `mapstructure:"general_error"  validate:"required"`
	RegisterFirst string `mapstructure:"register_first" validate:"required"`
	Cancelled     string `mapstructure:"cancelled"      validate:"required"`
	CancelKeyword string `mapstructure:"cancel_keyword" validate:"required"`
	Yes           string `mapstructure:"yes"            validate:"required"`
	No            string `mapstructure:"no"             validate:"required"`

	ReminderDue    string `mapstructure:"reminder_due"      validate:"required"` // checkpoint label, minutes
	AskValue       string `mapstructure:"ask_value"         validate:"required"`
	AskValueForTag string `mapstructure:"ask_value_for_tag" validate:"required"` // tag
	ChooseTag      string `mapstructure:"choose_tag"        validate:"required"`

	InvalidMeasure  string `mapstructure:"invalid_measure"  validate:"required"`
	SubjectMissing  string `mapstructure:"subject_missing"  validate:"required"`
	Recorded        string `mapstructure:"recorded"         validate:"required"`
	LowValueAlert   string `mapstructure:"low_value_alert"  validate:"required"`
	WeeklyProgress  string `mapstructure:"weekly_progress"  validate:"required"`
	InsulinReminder string `mapstructure:"insulin_reminder" validate:"required"` // insulin time

	DigestNadirGood   string `mapstructure:"digest_nadir_good"   validate:"required"`
	DigestDoseLow     string `mapstructure:"digest_dose_low"     validate:"required"`
	DigestHypoRisk    string `mapstructure:"digest_hypo_risk"    validate:"required"`
	DigestInsulinWeak string `mapstructure:"digest_insulin_weak" validate:"required"`

	AlreadyRegistered string `mapstructure:"already_registered" validate:"required"`
	AskName           string `mapstructure:"ask_name"           validate:"required"`
	AskMorning        string `mapstructure:"ask_morning"        validate:"required"`
	AskPeak           string `mapstructure:"ask_peak"           validate:"required"`
	AskEvening        string `mapstructure:"ask_evening"        validate:"required"`
	InvalidName       string `mapstructure:"invalid_name"       validate:"required"`
	InvalidMorning    string `mapstructure:"invalid_morning"    validate:"required"`
	InvalidPeak       string `mapstructure:"invalid_peak"       validate:"required"`
	InvalidEvening    string `mapstructure:"invalid_evening"    validate:"required"`
	Registered        string `mapstructure:"registered"         validate:"required"`

	EditName       string `mapstructure:"edit_name"       validate:"required"`
	EditMorning    string `mapstructure:"edit_morning"    validate:"required"`
	EditPeak       string `mapstructure:"edit_peak"       validate:"required"`
	EditEvening    string `mapstructure:"edit_evening"    validate:"required"`
	NameUpdated    string `mapstructure:"name_updated"    validate:"required"`
	MorningUpdated string `mapstructure:"morning_updated" validate:"required"`
	PeakUpdated    string `mapstructure:"peak_updated"    validate:"required"`
	EveningUpdated string `mapstructure:"evening_updated" validate:"required"`
	Activated      string `mapstructure:"activated"       validate:"required"`
	Deactivated    string `mapstructure:"deactivated"     validate:"required"`

	NoStats       string   `mapstructure:"no_stats"        validate:"required"`
	StatsHeader   string   `mapstructure:"stats_header"    validate:"required"`
	StatsAverage  string   `mapstructure:"stats_average"   validate:"required"` // mark, value
	StatsNadir    string   `mapstructure:"stats_nadir"     validate:"required"` // mark, value
	NotEnoughData string   `mapstructure:"not_enough_data" validate:"required"`
	StatsTitle    string   `mapstructure:"stats_title"     validate:"required"`
	StatsColumns  []string `mapstructure:"stats_columns"   validate:"len=4,dive,required"` // date, earliest, middle, latest

	CmdStart   string `mapstructure:"cmd_start"   validate:"required"`
	CmdMeasure string `mapstructure:"cmd_measure" validate:"required"`
	CmdHelp    string `mapstructure:"cmd_help"    validate:"required"`

	Buttons ButtonsConfig `mapstructure:"buttons"`
}

// ButtonsConfig holds the labels of inline keyboard buttons.
type ButtonsConfig struct {
	Register       string `mapstructure:"register"        validate:"required"`
	Back           string `mapstructure:"back"            validate:"required"`
	Charts         string `mapstructure:"charts"          validate:"required"`
	Stats          string `mapstructure:"stats"           validate:"required"`
	Settings       string `mapstructure:"settings"        validate:"required"`
	Daily          string `mapstructure:"daily"           validate:"required"`
	Nadir          string `mapstructure:"nadir"           validate:"required"`
	MorningEvening string `mapstructure:"morning_evening" validate:"required"`
	Range          string `mapstructure:"range"           validate:"required"`
	EditName       string `mapstructure:"edit_name"       validate:"required"`
	EditMorning    string `mapstructure:"edit_morning"    validate:"required"`
	EditPeak       string `mapstructure:"edit_peak"       validate:"required"`
	EditEvening    string `mapstructure:"edit_evening"    validate:"required"`
	ToggleActive   string `mapstructure:"toggle_active"   validate:"required"`
}
