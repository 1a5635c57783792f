package service

import (
	"regexp"
	"strconv"
	"strings"

	"tinkoff_bot/internal/helper"
)

type CommandKind int

const (
	CmdUnknown CommandKind = iota
	CmdStart
	CmdHelp
	CmdBuy
	CmdSell
	CmdClose
	CmdCloseAll
	CmdBalance
	CmdPositions
	CmdStatus
	CmdFigi
	CmdSettings
	CmdSet
)

// Command: разобранное сообщение из чата.
type Command struct {
	Kind   CommandKind
	Ticker string
	// 0: по риску
	Lots  int64
	Query string
	Edit  settingsEdit
	// исходный текст (для подсказок и логов)
	Raw string
}

// кнопки клавиатуры /start
const (
	btnBalance   = "💰 Баланс"
	btnPositions = "📊 Позиции"
	btnSettings  = "⚙️ Настройки"
	btnStatus    = "ℹ️ Статус"
	btnCloseAll  = "🔒 Закрыть всё"
	btnHelp      = "❓ Помощь"
)

var (
	reTrade = regexp.MustCompile(`^(buy|sell)\s+([a-z0-9._-]+)(?:\s+([1-9]\d*))?$`)
	reClose = regexp.MustCompile(`^close\s+([a-z0-9._-]+)$`)
	reFigi  = regexp.MustCompile(`(?i)^/?figi\s+(.+)$`)
	reSpace = regexp.MustCompile(`\s+`)
)

var closeAllAliases = map[string]struct{}{
	"закрыть всё": {}, "закрыть все": {}, "завершить": {}, "уйти в кэш": {}, "сэйв": {}, "save": {},
	"close all": {}, "close_all": {}, "exit all": {}, "liquidate": {}, "стоп всё": {}, "стоп все": {},
	"выход": {}, "экстренный выход": {}, "паника": {}, "panic": {}, "emergency exit": {},
	"закрыть позиции": {}, "снять все": {}, "отменить все": {}, "cancel all": {},
}

var simpleCommands = map[string]CommandKind{
	"start":     CmdStart,
	"help":      CmdHelp,
	"помощь":    CmdHelp,
	"balance":   CmdBalance,
	"баланс":    CmdBalance,
	"positions": CmdPositions,
	"состояние": CmdPositions,
	"позиции":   CmdPositions,
	"status":    CmdStatus,
	"статус":    CmdStatus,
	"settings":  CmdSettings,
	"настройки": CmdSettings,
}

var buttons = map[string]CommandKind{
	btnBalance:   CmdBalance,
	btnPositions: CmdPositions,
	btnSettings:  CmdSettings,
	btnStatus:    CmdStatus,
	btnCloseAll:  CmdCloseAll,
	btnHelp:      CmdHelp,
}

// ParseCommand разбирает текст сообщения. Регистр и лишние пробелы не важны, ведущий "/" срезается.
func ParseCommand(text string) Command {
	raw := strings.TrimSpace(text)
	if kind, ok := buttons[raw]; ok {
		return Command{Kind: kind, Raw: raw}
	}

	norm := strings.ToLower(reSpace.ReplaceAllString(raw, " "))
	norm = strings.TrimPrefix(norm, "/")
	cmd := Command{Raw: raw}

	if kind, ok := simpleCommands[norm]; ok {
		cmd.Kind = kind
		return cmd
	}
	if _, ok := closeAllAliases[norm]; ok {
		cmd.Kind = CmdCloseAll
		return cmd
	}

	if m := reTrade.FindStringSubmatch(norm); m != nil {
		cmd.Kind = CmdBuy
		if m[1] == "sell" {
			cmd.Kind = CmdSell
		}
		cmd.Ticker = helper.NormTicker(m[2])
		if m[3] != "" {
			lots, err := strconv.ParseInt(m[3], 10, 64)
			if err != nil {
				return Command{Raw: raw}
			}
			cmd.Lots = lots
		}
		return cmd
	}
	if m := reClose.FindStringSubmatch(norm); m != nil {
		cmd.Kind = CmdClose
		cmd.Ticker = helper.NormTicker(m[1])
		return cmd
	}
	// запрос берём из исходного текста: регистр имени важен для поиска
	if m := reFigi.FindStringSubmatch(raw); m != nil {
		cmd.Kind = CmdFigi
		cmd.Query = strings.TrimSpace(m[1])
		return cmd
	}
	if strings.HasPrefix(norm, "set ") {
		cmd.Kind = CmdSet
		cmd.Edit = parseSet(norm)
		return cmd
	}
	return cmd
}
