package service

import (
	"fmt"
	"strings"

	"tinkoff_bot/internal/models"

	"github.com/shopspring/decimal"
)

var weekdayNames = []string{"Пн", "Вт", "Ср", "Чт", "Пт", "Сб", "Вс"}

const setHelpText = "⚙️ Настройки бота\n\n" +
	"Показать: settings\n" +
	"Риск лонг/шорт: set risk 40/30\n" +
	"Только лонг: set risk long 35\n" +
	"Только шорт: set risk short 25\n" +
	"Стоп-лосс: set sl 0.7 (в %)\n" +
	"Тейк-профит: set tp 5 (в %)\n" +
	"Мульти-TP: set multi on|off\n" +
	"Уровни TP: set tp levels 0.5,1.0,1.6 (в %)\n" +
	"Доли TP: set tp portions 33,33,34 (в %)\n" +
	"Автоликвидация: set auto on|off\n" +
	"Время: set auto time 23:40 (МСК)\n" +
	"Блок входов: set auto block 30 (мин)\n" +
	"Дни: set auto days 0,1,2,3,4 (0=Пн, 6=Вс)"

const helpText = "🤖 Торговый бот, команды\n\n" +
	"📊 Просмотр:\n" +
	"• balance — баланс счёта\n" +
	"• positions — открытые позиции\n" +
	"• status — общий статус\n" +
	"• settings — текущие настройки\n" +
	"• figi SBER — найти инструмент\n\n" +
	"💹 Торговля:\n" +
	"• buy SiZ6 — купить по настройкам риска\n" +
	"• sell GZZ6 5 — продать 5 лотов\n" +
	"• close GZZ6 — закрыть позицию\n" +
	"• close all — закрыть всё и снять заявки\n\n" +
	setHelpText + "\n\n" +
	"ℹ️ Проценты в человеческом виде: 1.5 = 1.5%"

func onOff(v bool) string {
	if v {
		return "вкл"
	}
	return "выкл"
}

func f2(v decimal.Decimal) string {
	return v.StringFixed(2)
}

func formatSettings(s models.BotSettings) string {
	var b strings.Builder
	b.WriteString("🔧 Текущие настройки:\n")
	fmt.Fprintf(&b, "• Risk LONG: %s%%\n", f2(s.RiskLongPercent))
	fmt.Fprintf(&b, "• Risk SHORT: %s%%\n", f2(s.RiskShortPercent))
	fmt.Fprintf(&b, "• Stop-Loss: %s%%\n", f2(s.StopLossPercent))
	fmt.Fprintf(&b, "• Take-Profit: %s%%\n", f2(s.TakeProfitPercent))
	fmt.Fprintf(&b, "• Мульти-TP: %s\n", onOff(s.MultiTPEnabled))
	if len(s.TPLevels) > 0 {
		levels := make([]string, len(s.TPLevels))
		for i, l := range s.TPLevels {
			levels[i] = l.String() + "%"
		}
		portions := make([]string, len(s.TPPortions))
		for i, p := range s.TPPortions {
			portions[i] = p.Shift(2).String() + "%"
		}
		fmt.Fprintf(&b, "  уровни: %s\n", strings.Join(levels, ", "))
		fmt.Fprintf(&b, "  доли: %s\n", strings.Join(portions, ", "))
	}
	b.WriteString(formatAuto(s.AutoLiquidation))
	return b.String()
}

func formatAuto(a models.AutoLiquidation) string {
	days := make([]string, 0, len(a.Weekdays))
	for _, d := range a.Weekdays {
		if d >= 0 && d < len(weekdayNames) {
			days = append(days, weekdayNames[d])
		}
	}
	return fmt.Sprintf("⏰ Автоликвидация: %s, %s, блок %d мин, дни: %s",
		onOff(a.Enabled), a.Time, a.BlockMinutes, strings.Join(days, ","))
}

func formatPositions(positions []models.Position) string {
	if len(positions) == 0 {
		return "🔍 Нет открытых позиций"
	}
	var b strings.Builder
	b.WriteString("📊 Открытые позиции:\n")
	for _, p := range positions {
		fmt.Fprintf(&b, "\n• %s: %d лотов (%s)", p.Ticker, p.Lots, strings.ToUpper(string(p.Direction)))
	}
	return b.String()
}
