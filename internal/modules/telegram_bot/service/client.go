package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"tinkoff_bot/pkg/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// максимум текста в одном сообщении Telegram
const maxMessageLen = 4096

// Telegram: чат-интерфейс: команды из рабочего чата и исходящие уведомления.
type Telegram struct {
	bot      *tgbot.BotAPI
	chatID   int64
	commands *Commands
	timeout  time.Duration

	wg sync.WaitGroup
}

func NewTelegram(token string, chatID int64, commands *Commands) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	logger.Info("[TG] authorized as @%s, chat %d", b.Self.UserName, chatID)

	return &Telegram{
		bot:      b,
		chatID:   chatID,
		commands: commands,
		timeout:  3 * time.Minute,
	}, nil
}

// Send: уведомление в рабочий чат. Ошибки отправки только логируются.
func (t *Telegram) Send(ctx context.Context, msg string) {
	if t.chatID == 0 {
		logger.Info("[NOTIFY] %s", msg)
		return
	}
	for _, part := range splitMessage(msg, maxMessageLen) {
		if _, err := t.bot.Send(tgbot.NewMessage(t.chatID, part)); err != nil {
			logger.Error("[TG] send: %v", err)
			return
		}
	}
}

func (t *Telegram) Sendf(ctx context.Context, format string, args ...any) {
	t.Send(ctx, fmt.Sprintf(format, args...))
}

func (t *Telegram) reply(chatID int64, replyTo int, text string, keyboard bool) {
	for i, part := range splitMessage(text, maxMessageLen) {
		msg := tgbot.NewMessage(chatID, part)
		if i == 0 {
			msg.ReplyToMessageID = replyTo
		}
		if keyboard {
			msg.ReplyMarkup = mainKeyboard()
		}
		if _, err := t.bot.Send(msg); err != nil {
			logger.Error("[TG] reply: %v", err)
			return
		}
	}
}

func mainKeyboard() tgbot.ReplyKeyboardMarkup {
	return tgbot.NewReplyKeyboard(
		tgbot.NewKeyboardButtonRow(
			tgbot.NewKeyboardButton(btnBalance),
			tgbot.NewKeyboardButton(btnPositions),
		),
		tgbot.NewKeyboardButtonRow(
			tgbot.NewKeyboardButton(btnSettings),
			tgbot.NewKeyboardButton(btnStatus),
		),
		tgbot.NewKeyboardButtonRow(
			tgbot.NewKeyboardButton(btnCloseAll),
			tgbot.NewKeyboardButton(btnHelp),
		),
	)
}

// Start запускает long polling. Каждое сообщение обрабатывается в своей горутине.
func (t *Telegram) Start(ctx context.Context) {
	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	updates := t.bot.GetUpdatesChan(u)

	go func() {
		for update := range updates {
			t.wg.Add(1)
			go func(update tgbot.Update) {
				defer t.wg.Done()
				t.handleUpdate(ctx, update)
			}(update)
		}
	}()
}

// Stop прекращает polling и ждёт текущие команды, пока жив ctx.
func (t *Telegram) Stop(ctx context.Context) {
	t.bot.StopReceivingUpdates()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logger.Warn("[TG] stop: commands still running")
	}
}

func (t *Telegram) handleUpdate(ctx context.Context, update tgbot.Update) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("[TG] panic in update handler: %v", r)
		}
	}()

	msg := update.Message
	if msg == nil {
		msg = update.ChannelPost
	}
	if msg == nil || msg.Chat == nil || strings.TrimSpace(msg.Text) == "" {
		return
	}
	if msg.Chat.ID != t.chatID {
		logger.Warn("[TG] ignored message from chat %d", msg.Chat.ID)
		return
	}

	text := msg.Text
	if msg.IsCommand() {
		// "/balance@my_bot" → "balance"
		text = strings.TrimSpace(msg.Command() + " " + msg.CommandArguments())
	}

	cctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	reply, ok := t.commands.Handle(cctx, text)
	if !ok {
		return
	}
	keyboard := ParseCommand(text).Kind == CmdStart
	t.reply(msg.Chat.ID, msg.MessageID, reply, keyboard)
}

// splitMessage режет текст по строкам так, чтобы куски влезали в лимит.
func splitMessage(text string, limit int) []string {
	if len([]rune(text)) <= limit {
		return []string{text}
	}
	var (
		parts []string
		cur   strings.Builder
		n     int
	)
	for _, line := range strings.SplitAfter(text, "\n") {
		ln := len([]rune(line))
		if n > 0 && n+ln > limit {
			parts = append(parts, cur.String())
			cur.Reset()
			n = 0
		}
		for ln > limit {
			r := []rune(line)
			parts = append(parts, string(r[:limit]))
			line = string(r[limit:])
			ln -= limit
		}
		cur.WriteString(line)
		n += ln
	}
	if n > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}
