package service

import (
	"context"
	"strings"
	"time"

	"tinkoff_bot/internal/models"
	"tinkoff_bot/internal/modules/config"
)

type Options struct {
	BaseCurrency  string
	CallTimeout   time.Duration
	SettleTimeout time.Duration
	SettlePoll    time.Duration
	ClosePause    time.Duration
	FigiCacheTTL  time.Duration
	Location      *time.Location
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		BaseCurrency:  cfg.Tinkoff.BaseCurrency,
		CallTimeout:   cfg.Tinkoff.CallTimeout,
		SettleTimeout: cfg.Trading.SettleTimeout,
		SettlePoll:    cfg.Trading.SettlePoll,
		ClosePause:    cfg.Trading.ClosePause,
		FigiCacheTTL:  cfg.Trading.FigiCacheTTL,
		Location:      cfg.Location(),
	}
}

// Executor: исполнение торговых намерений поверх брокерского API.
type Executor struct {
	broker   Broker
	resolver *Resolver
	settings SettingsSource
	events   EventLogger
	opts     Options

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(broker Broker, settings SettingsSource, events EventLogger, opts Options) *Executor {
	if opts.BaseCurrency == "" {
		opts.BaseCurrency = "rub"
	}
	opts.BaseCurrency = strings.ToLower(opts.BaseCurrency)
	if opts.SettleTimeout <= 0 {
		opts.SettleTimeout = 5 * time.Second
	}
	if opts.SettlePoll <= 0 {
		opts.SettlePoll = 250 * time.Millisecond
	}
	if opts.Location == nil {
		opts.Location = time.FixedZone("MSK", 3*60*60)
	}

	return &Executor{
		broker:   broker,
		resolver: NewResolver(broker, opts.FigiCacheTTL, opts.CallTimeout),
		settings: settings,
		events:   events,
		opts:     opts,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

func (e *Executor) Resolver() *Resolver { return e.resolver }

func (e *Executor) Settings() models.BotSettings { return e.settings.Get() }

func (e *Executor) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.opts.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.opts.CallTimeout)
}

func (e *Executor) audit(ctx context.Context, ev models.Event) {
	if e.events == nil {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = e.now()
	}
	e.events.Log(ctx, ev)
}

// TradingBlocked: активно ли окно запрета входов перед автоликвидацией.
func (e *Executor) TradingBlocked() (time.Time, bool) {
	return e.settings.Get().AutoLiquidation.Blocks(e.now().In(e.opts.Location))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
