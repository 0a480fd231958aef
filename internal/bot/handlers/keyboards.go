package handlers

import (
	"github.com/go-telegram/bot/models"

	"github.com/edgard/glucodiary/internal/config"
	"github.com/edgard/glucodiary/internal/diary"
)

// Callback data of the inline keyboards.
const (
	cbMenuMain     = "menu:main"
	cbMenuCharts   = "menu:charts"
	cbMenuStats    = "menu:stats"
	cbMenuSettings = "menu:settings"

	cbRegisterStart = "register:start"

	cbSettingsPrefix  = "settings:"
	cbSettingsName    = cbSettingsPrefix + "name"
	cbSettingsMorning = cbSettingsPrefix + "morning"
	cbSettingsPeak    = cbSettingsPrefix + "peak"
	cbSettingsEvening = cbSettingsPrefix + "evening"
	cbSettingsToggle  = cbSettingsPrefix + "toggle"

	cbMeasurePrefix = "measure:"
	cbMeasureCancel = cbMeasurePrefix + "cancel"

	cbChartPrefix         = "chart:"
	cbChartDaily          = cbChartPrefix + "daily"
	cbChartNadir          = cbChartPrefix + "nadir"
	cbChartMorningEvening = cbChartPrefix + "amps_pmps"
	cbChartRange          = cbChartPrefix + "range"
)

func button(text, data string) []models.InlineKeyboardButton {
	return []models.InlineKeyboardButton{{Text: text, CallbackData: data}}
}

func mainMenuKeyboard(b config.ButtonsConfig) [][]models.InlineKeyboardButton {
	return [][]models.InlineKeyboardButton{
		button(b.Charts, cbMenuCharts),
		button(b.Stats, cbMenuStats),
		button(b.Settings, cbMenuSettings),
	}
}

func registerKeyboard(b config.ButtonsConfig) [][]models.InlineKeyboardButton {
	return [][]models.InlineKeyboardButton{button(b.Register, cbRegisterStart)}
}

func chartsKeyboard(b config.ButtonsConfig) [][]models.InlineKeyboardButton {
	return [][]models.InlineKeyboardButton{
		button(b.Back, cbMenuMain),
		button(b.Daily, cbChartDaily),
		button(b.Nadir, cbChartNadir),
		button(b.MorningEvening, cbChartMorningEvening),
		button(b.Range, cbChartRange),
	}
}

func settingsKeyboard(b config.ButtonsConfig) [][]models.InlineKeyboardButton {
	return [][]models.InlineKeyboardButton{
		button(b.Back, cbMenuMain),
		button(b.EditName, cbSettingsName),
		button(b.EditMorning, cbSettingsMorning),
		button(b.EditPeak, cbSettingsPeak),
		button(b.EditEvening, cbSettingsEvening),
		button(b.ToggleActive, cbSettingsToggle),
	}
}

func measureTagsKeyboard() [][]models.InlineKeyboardButton {
	rows := make([][]models.InlineKeyboardButton, 0, len(diary.AllTags))
	for _, tag := range diary.AllTags {
		rows = append(rows, button(string(tag), cbMeasurePrefix+string(tag)))
	}
	return rows
}

func inlineCancelKeyboard(cancel string) [][]models.InlineKeyboardButton {
	return [][]models.InlineKeyboardButton{button(cancel, cbMeasureCancel)}
}
