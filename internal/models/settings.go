package models

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var ErrInvalidSettings = errors.New("invalid settings")

// BotSettings: живые настройки торговли. Проценты в человеческом виде: 40 значит 40%.
type BotSettings struct {
	RiskLongPercent   decimal.Decimal `json:"risk_long_percent" validate:"gte=0,lte=100"`
	RiskShortPercent  decimal.Decimal `json:"risk_short_percent" validate:"gte=0,lte=100"`
	StopLossPercent   decimal.Decimal `json:"stop_loss_percent" validate:"gte=0,lte=100"`
	TakeProfitPercent decimal.Decimal `json:"take_profit_percent" validate:"gte=0,lte=100"`

	MultiTPEnabled bool              `json:"multi_tp_enabled"`
	TPLevels       []decimal.Decimal `json:"tp_levels" validate:"dive,gt=0,lte=100"`
	// доли позиции, не проценты: 0.33 = треть
	TPPortions []decimal.Decimal `json:"tp_portions" validate:"dive,gte=0,lte=1"`

	AutoLiquidation AutoLiquidation `json:"auto_liquidation"`
}

type AutoLiquidation struct {
	Enabled      bool   `json:"enabled"`
	Time         string `json:"time" validate:"datetime=15:04"`
	BlockMinutes int    `json:"block_minutes" validate:"gte=0,lte=720"`
	// 0 = понедельник, 6 = воскресенье
	Weekdays []int `json:"weekdays" validate:"dive,gte=0,lte=6"`
}

var settingsValidator = newSettingsValidator()

// границы в тегах проверяются по float64-представлению decimal
func newSettingsValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	return v
}

func DefaultSettings() BotSettings {
	return BotSettings{
		RiskLongPercent:   decimal.NewFromInt(30),
		RiskShortPercent:  decimal.NewFromInt(30),
		StopLossPercent:   decimal.RequireFromString("0.51"),
		TakeProfitPercent: decimal.RequireFromString("5.7"),
		MultiTPEnabled:    true,
		TPLevels:          decimals("0.5", "1", "1.6"),
		TPPortions:        decimals("0.33", "0.33", "0.34"),
		AutoLiquidation: AutoLiquidation{
			Enabled:      false,
			Time:         "23:40",
			BlockMinutes: 30,
			Weekdays:     []int{0, 1, 2, 3, 4},
		},
	}
}

func decimals(vals ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(vals))
	for i, v := range vals {
		out[i] = decimal.RequireFromString(v)
	}
	return out
}

// Validate: проверка на границе изменения настроек. При чтении не перепроверяем.
func (s BotSettings) Validate() error {
	if err := settingsValidator.Struct(s); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	if len(s.TPLevels) != len(s.TPPortions) {
		return fmt.Errorf("%w: tp_levels (%d) and tp_portions (%d) differ in length",
			ErrInvalidSettings, len(s.TPLevels), len(s.TPPortions))
	}
	if len(s.TPPortions) == 0 {
		return nil
	}
	sum := decimal.Sum(decimal.Zero, s.TPPortions...)
	if sum.Sub(decimal.NewFromInt(1)).Abs().GreaterThan(decimal.RequireFromString("0.01")) {
		return fmt.Errorf("%w: tp_portions sum to %s, want 1", ErrInvalidSettings, sum)
	}
	return nil
}

// Clone: глубокая копия, чтобы вызывающий не мутировал кэш стора.
func (s BotSettings) Clone() BotSettings {
	out := s
	out.TPLevels = append([]decimal.Decimal(nil), s.TPLevels...)
	out.TPPortions = append([]decimal.Decimal(nil), s.TPPortions...)
	out.AutoLiquidation.Weekdays = append([]int(nil), s.AutoLiquidation.Weekdays...)
	return out
}

// RiskFraction: доля баланса под сделку в данном направлении.
func (s BotSettings) RiskFraction(d Direction) decimal.Decimal {
	p := s.RiskLongPercent
	if d == Short {
		p = s.RiskShortPercent
	}
	return PercentToFraction(p)
}

// TPLevel: уровень тейка и доля позиции на нём.
type TPLevel struct {
	Percent decimal.Decimal
	Portion decimal.Decimal
}

func (s BotSettings) TakeProfitLevels() []TPLevel {
	n := len(s.TPLevels)
	if len(s.TPPortions) < n {
		n = len(s.TPPortions)
	}
	out := make([]TPLevel, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, TPLevel{
			Percent: s.TPLevels[i],
			Portion: s.TPPortions[i],
		})
	}
	return out
}

func PercentToFraction(p decimal.Decimal) decimal.Decimal {
	return p.Div(decimal.NewFromInt(100))
}

// ActiveOn: входит ли день недели в расписание автоликвидации.
func (a AutoLiquidation) ActiveOn(wd time.Weekday) bool {
	idx := (int(wd) + 6) % 7
	for _, d := range a.Weekdays {
		if d == idx {
			return true
		}
	}
	return false
}

// TriggerAt: момент ликвидации в календарный день day (в таймзоне day). false, если день неактивен или время битое.
func (a AutoLiquidation) TriggerAt(day time.Time) (time.Time, bool) {
	if !a.Enabled || !a.ActiveOn(day.Weekday()) {
		return time.Time{}, false
	}
	hm, err := time.Parse("15:04", a.Time)
	if err != nil {
		return time.Time{}, false
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, hm.Hour(), hm.Minute(), 0, 0, day.Location()), true
}

// LastTrigger: последний момент ликвидации не позже now. Смотрит и вчера: окно после 23:50 переходит через полночь.
func (a AutoLiquidation) LastTrigger(now time.Time) (time.Time, bool) {
	for _, day := range []time.Time{now, now.AddDate(0, 0, -1)} {
		if at, ok := a.TriggerAt(day); ok && !now.Before(at) {
			return at, true
		}
	}
	return time.Time{}, false
}

// NextTrigger: ближайший момент ликвидации не раньше now, сегодня или завтра.
func (a AutoLiquidation) NextTrigger(now time.Time) (time.Time, bool) {
	for _, day := range []time.Time{now, now.AddDate(0, 0, 1)} {
		if at, ok := a.TriggerAt(day); ok && !at.Before(now) {
			return at, true
		}
	}
	return time.Time{}, false
}

// Blocks: запрещены ли новые входы: за BlockMinutes до ликвидации и до самого момента ликвидации.
// Окно может начаться накануне вечером (ликвидация в 00:10, блок 30 мин).
func (a AutoLiquidation) Blocks(now time.Time) (time.Time, bool) {
	if a.BlockMinutes <= 0 {
		return time.Time{}, false
	}
	at, ok := a.NextTrigger(now)
	if !ok {
		return time.Time{}, false
	}
	if from := at.Add(-time.Duration(a.BlockMinutes) * time.Minute); !now.Before(from) {
		return at, true
	}
	return time.Time{}, false
}
