package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tinkoff_bot/internal/helper"
	"tinkoff_bot/internal/models"
	executor "tinkoff_bot/internal/modules/executor/service"
	"tinkoff_bot/pkg/logger"

	"github.com/shopspring/decimal"
)

// Trader: операции исполнителя, доступные из чата.
type Trader interface {
	ExecuteSmartOrder(ctx context.Context, req executor.SmartOrder) models.OrderResult
	CloseAll(ctx context.Context) executor.CloseAllReport
	Positions(ctx context.Context) ([]models.Position, error)
	Balance(ctx context.Context) (decimal.Decimal, error)
	BaseCurrency() string
	TradingBlocked() (time.Time, bool)
}

type SettingsStore interface {
	Get() models.BotSettings
	Update(fn func(*models.BotSettings) error) (models.BotSettings, error)
}

type InstrumentSearch interface {
	FindInstrument(ctx context.Context, query string) ([]models.InstrumentShort, error)
}

type EventLogger interface {
	Log(ctx context.Context, ev models.Event)
}

// Commands: диспетчер текстовых команд. Ничего не знает про Telegram.
type Commands struct {
	trader      Trader
	settings    SettingsStore
	instruments InstrumentSearch
	events      EventLogger
}

func NewCommands(trader Trader, settings SettingsStore, instruments InstrumentSearch, events EventLogger) *Commands {
	return &Commands{trader: trader, settings: settings, instruments: instruments, events: events}
}

// Handle возвращает ответ; ok=false: сообщение не команда, молчим.
func (c *Commands) Handle(ctx context.Context, text string) (reply string, ok bool) {
	cmd := ParseCommand(text)
	if cmd.Kind == CmdUnknown {
		return "", false
	}
	logger.Info("[TG] command %q", cmd.Raw)

	switch cmd.Kind {
	case CmdStart, CmdHelp:
		return helpText, true
	case CmdBuy, CmdSell:
		return c.trade(ctx, cmd), true
	case CmdClose:
		res := c.trader.ExecuteSmartOrder(ctx, executor.SmartOrder{Ticker: cmd.Ticker, CloseOnly: true, Source: "chat"})
		return res.Message, true
	case CmdCloseAll:
		return c.trader.CloseAll(ctx).Summary(), true
	case CmdBalance:
		return c.balance(ctx), true
	case CmdPositions:
		return c.positions(ctx), true
	case CmdStatus:
		return c.status(ctx), true
	case CmdFigi:
		return c.figi(ctx, cmd.Query), true
	case CmdSettings:
		return formatSettings(c.settings.Get()), true
	case CmdSet:
		return c.set(ctx, cmd), true
	}
	return "", false
}

func (c *Commands) trade(ctx context.Context, cmd Command) string {
	dir := models.Long
	if cmd.Kind == CmdSell {
		dir = models.Short
	}
	res := c.trader.ExecuteSmartOrder(ctx, executor.SmartOrder{
		Ticker:    cmd.Ticker,
		Direction: dir,
		Lots:      cmd.Lots,
		Source:    "chat",
	})
	return res.Message
}

func (c *Commands) balance(ctx context.Context) string {
	bal, err := c.trader.Balance(ctx)
	if err != nil {
		logger.Error("[TG] balance: %v", err)
		return "❌ Ошибка при получении баланса"
	}
	return fmt.Sprintf("💰 Баланс: %s %s", helper.FormatMoney(bal), strings.ToUpper(c.trader.BaseCurrency()))
}

func (c *Commands) positions(ctx context.Context) string {
	positions, err := c.trader.Positions(ctx)
	if err != nil {
		logger.Error("[TG] positions: %v", err)
		return "❌ Ошибка при получении позиций"
	}
	return formatPositions(positions)
}

func (c *Commands) status(ctx context.Context) string {
	var b strings.Builder
	b.WriteString("ℹ️ Статус счёта\n\n")
	b.WriteString(c.balance(ctx))
	b.WriteString("\n\n")
	b.WriteString(c.positions(ctx))
	b.WriteString("\n\n")

	s := c.settings.Get()
	b.WriteString(formatAuto(s.AutoLiquidation))
	if until, blocked := c.trader.TradingBlocked(); blocked {
		fmt.Fprintf(&b, "\n⛔️ Новые входы заблокированы до %s", until.Format("15:04"))
	}
	return b.String()
}

func (c *Commands) figi(ctx context.Context, query string) string {
	found, err := c.instruments.FindInstrument(ctx, query)
	if err != nil {
		logger.Error("[TG] figi %q: %v", query, err)
		return "⚠️ Ошибка подключения к брокеру"
	}
	if len(found) == 0 {
		return fmt.Sprintf("❌ Инструмент '%s' не найден", query)
	}
	in := found[0]
	return fmt.Sprintf("🔍 %s\nFIGI: %s\nТикер: %s\nКласс: %s", in.Name, in.FIGI, in.Ticker, in.ClassCode)
}

func (c *Commands) set(ctx context.Context, cmd Command) string {
	if cmd.Edit == nil {
		return "❓ Не понял команду.\n\n" + setHelpText
	}
	next, err := c.settings.Update(cmd.Edit)
	if err != nil {
		logger.Warn("[TG] %q: %v", cmd.Raw, err)
		if errors.Is(err, models.ErrInvalidSettings) {
			return "❌ Недопустимое значение: " + err.Error()
		}
		return "❌ Ошибка при изменении настроек: " + err.Error()
	}
	if c.events != nil {
		c.events.Log(ctx, models.Event{
			Type:    models.EventSettings,
			Details: map[string]any{"command": cmd.Raw},
			Message: "settings updated from chat",
		})
	}
	return "✅ Обновлено:\n" + formatSettings(next)
}
