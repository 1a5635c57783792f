package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text   string
		kind   CommandKind
		ticker string
		lots   int64
		query  string
	}{
		{text: "buy SiZ6", kind: CmdBuy, ticker: "SIZ6"},
		{text: "  BUY   gzz6  ", kind: CmdBuy, ticker: "GZZ6"},
		{text: "sell GAZP 5", kind: CmdSell, ticker: "GAZP", lots: 5},
		{text: "/sell gazp", kind: CmdSell, ticker: "GAZP"},
		{text: "close GAZP", kind: CmdClose, ticker: "GAZP"},
		{text: "close all", kind: CmdCloseAll},
		{text: "Закрыть всё", kind: CmdCloseAll},
		{text: "PANIC", kind: CmdCloseAll},
		{text: "🔒 Закрыть всё", kind: CmdCloseAll},
		{text: "баланс", kind: CmdBalance},
		{text: "/balance", kind: CmdBalance},
		{text: "состояние", kind: CmdPositions},
		{text: "positions", kind: CmdPositions},
		{text: "status", kind: CmdStatus},
		{text: "настройки", kind: CmdSettings},
		{text: "help", kind: CmdHelp},
		{text: "/start", kind: CmdStart},
		{text: "figi Сбербанк", kind: CmdFigi, query: "Сбербанк"},
		{text: "FIGI  SiZ6 ", kind: CmdFigi, query: "SiZ6"},
		{text: "set sl 0.7", kind: CmdSet},
		{text: "set nonsense", kind: CmdSet},
		{text: "buy", kind: CmdUnknown},
		{text: "buy GAZP 0", kind: CmdUnknown},
		{text: "привет", kind: CmdUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			cmd := ParseCommand(tt.text)
			assert.Equal(t, tt.kind, cmd.Kind)
			assert.Equal(t, tt.ticker, cmd.Ticker)
			assert.Equal(t, tt.lots, cmd.Lots)
			assert.Equal(t, tt.query, cmd.Query)
		})
	}
}

func TestParseCommand_SetEdit(t *testing.T) {
	assert.NotNil(t, ParseCommand("set sl 0.7").Edit)
	assert.Nil(t, ParseCommand("set nonsense").Edit)
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))

	parts := splitMessage("aaaa\nbbbb\ncccc", 10)
	assert.Equal(t, []string{"aaaa\nbbbb\n", "cccc"}, parts)

	parts = splitMessage("абвгдеёжзий", 5)
	assert.Equal(t, []string{"абвгд", "еёжзи", "й"}, parts)
}
