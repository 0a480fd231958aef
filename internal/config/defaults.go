package config

import "time"

// Default values for configuration
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = false

	DefaultDBPath = "glucodiary.db"

	DefaultReminderPollInterval = 60 * time.Second
	DefaultReminderLead         = 15 * time.Minute
	DefaultReminderWindow       = time.Minute

	TaskProcedureReminders = "procedure_reminders"
	TaskDailyDigest        = "daily_digest"
	TaskSQLMaintenance     = "sql_maintenance"

	DefaultDailyDigestSchedule    = "0 59 23 * * *"
	DefaultSQLMaintenanceSchedule = "0 30 4 * * 0"
)

// DefaultAlerts are the clinical thresholds of the diary.
var DefaultAlerts = AlertsConfig{
	LowValue:             4,
	ProgressAverage:      9,
	ProgressWindowDays:   7,
	InsulinReminderAbove: 10,

	NadirWindowDays:    7,
	NadirGoodMin:       5,
	NadirGoodMax:       7,
	HighNadir:          9,
	HighNadirDays:      3,
	LowNadir:           5,
	LowNadirDays:       5,
	PeakDifference:     2,
	PeakDifferenceDays: 3,

	RangeLow:  4,
	RangeHigh: 10,

	StatsAverageGood: 9,
	StatsNadirGood:   6,
}

// DefaultMessages are the built-in English texts.
var DefaultMessages = MessagesConfig{
	Welcome:       "Hi! I keep a glucose diary, remind you about checks and draw charts.\nLet's start by registering the patient, it takes a couple of minutes.",
	MainMenu:      "Hi! This is the main menu of %s.\n\nPick a section below or send /measure to record a reading.",
	Help:          "Commands:\n/start - main menu or registration\n/measure - record a reading with a tag\n/help - this message\n\nReminders arrive 15 minutes before each check. Reply with a number such as 5.6 or 5,6. Send \"Cancel\" to abort any prompt.",
	ChartsMenu:    "Pick a chart:\n• Daily curve - every reading by day for a month.\n• Nadir - the lowest reading of each day.\n• AMPS/PMPS - morning and evening by day.\n• % in range - share of readings within 4-10 over 7 days.",
	SettingsMenu:  "🛠️ Patient settings\n\nName: %s\nMorning time: %s\nPeak (hours): %d\nEvening time: %s\nActive: %s",
	GeneralError:  "❌ An error occurred. Please try again later.",
	RegisterFirst: "Register the patient first with /start.",
	Cancelled:     "Action cancelled.",
	CancelKeyword: "Cancel",
	Yes:           "yes",
	No:            "no",

	ReminderDue:    "⏰ The %s check is in %d minutes. Time to measure glucose.",
	AskValue:       "Enter the glucose value (for example 5.6):",
	AskValueForTag: "Enter the glucose value for %s (for example 5.6):",
	ChooseTag:      "Choose the measurement tag:",

	InvalidMeasure:  "A number is needed, for example 6.4",
	SubjectMissing:  "Patient not found, start with /start.",
	Recorded:        "Measurement recorded.",
	LowValueAlert:   "❗ Urgent: the value is below 4. Hypoglycemia is possible. Check on your pet and follow the vet's plan.",
	WeeklyProgress:  "✅ The 7-day average glucose is below 9. Progress toward remission!",
	InsulinReminder: "The value is above 10. Don't forget insulin at %s.",

	DigestNadirGood:   "✅ The 7-day average nadir is in the good range. Great progress toward remission!",
	DigestDoseLow:     "⚠️ The nadir has been above 9 for 3 days in a row. The current dose may be too low.",
	DigestHypoRisk:    "⚠️ The nadir has been below 5 for 5 days in a row. The dose may be too high, risk of low blood sugar.",
	DigestInsulinWeak: "⚠️ For three days the AMPS and PEAK difference was under 2. The insulin may be working weakly.",

	AlreadyRegistered: "A patient is already registered in this chat.",
	AskName:           "Enter the patient's name.",
	AskMorning:        "Enter the morning procedure time (HH:MM).\nThis is when you usually measure glucose and feed.",
	AskPeak:           "How many hours after the morning insulin does the peak happen?\nEnter a whole number from 1 to 12.",
	AskEvening:        "Enter the evening procedure time (HH:MM).",
	InvalidName:       "The name must be non-empty and up to 30 characters.",
	InvalidMorning:    "Wrong format. Example: 07:30",
	InvalidPeak:       "A whole number of hours is needed, for example 4.",
	InvalidEvening:    "Wrong format. Example: 19:00",
	Registered:        "The patient is registered! You can now add readings and build charts.",

	EditName:       "Enter the new patient name.",
	EditMorning:    "New morning time (HH:MM).",
	EditPeak:       "New peak offset (whole hours).",
	EditEvening:    "New evening time (HH:MM).",
	NameUpdated:    "Name updated.",
	MorningUpdated: "Morning time updated.",
	PeakUpdated:    "Peak offset updated.",
	EveningUpdated: "Evening time updated.",
	Activated:      "Reminders and daily checks are on.",
	Deactivated:    "Reminders and daily checks are paused.",

	NoStats:       "No data for statistics yet.",
	StatsHeader:   "Statistics for the last days:",
	StatsAverage:  "%s 7-day average glucose: %.1f",
	StatsNadir:    "%s 7-day average nadir: %.1f",
	NotEnoughData: "Not enough data for the chart.",
	StatsTitle:    "Measurement statistics",
	StatsColumns:  []string{"Date", "Earliest", "Middle", "Latest"},

	CmdStart:   "Main menu",
	CmdMeasure: "Record a reading",
	CmdHelp:    "How to use the bot",

	Buttons: ButtonsConfig{
		Register:       "Register the patient",
		Back:           "< Back",
		Charts:         "Charts",
		Stats:          "Statistics",
		Settings:       "Patient settings",
		Daily:          "Daily curve",
		Nadir:          "Nadir",
		MorningEvening: "AMPS / PMPS",
		Range:          "% in range 4-10",
		EditName:       "Change name",
		EditMorning:    "Morning time",
		EditPeak:       "Peak time",
		EditEvening:    "Evening time",
		ToggleActive:   "Pause / resume",
	},
}

// DefaultTasks are the scheduled jobs of the bot. The reminder task polls at
// reminder.poll_interval unless given its own interval or schedule.
var DefaultTasks = map[string]TaskConfig{
	TaskProcedureReminders: {Enabled: true, StartImmediately: true},
	TaskDailyDigest:        {Enabled: true, Schedule: DefaultDailyDigestSchedule},
	TaskSQLMaintenance:     {Enabled: true, Schedule: DefaultSQLMaintenanceSchedule},
}
