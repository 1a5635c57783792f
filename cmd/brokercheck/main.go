// brokercheck: ручная проверка доступа к брокеру тем же клиентом, что и у бота.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"tinkoff_bot/internal/helper"
	"tinkoff_bot/internal/modules/config"
	tinkoff "tinkoff_bot/internal/modules/tinkoff_client/service"
	"tinkoff_bot/pkg/logger"

	"github.com/urfave/cli/v3"
)

func newClient(cmd *cli.Command) (*tinkoff.Client, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Tinkoff.Token == "" {
		return nil, errors.New("TINKOFF_TOKEN is not set")
	}
	if acc := cmd.String("account"); acc != "" {
		cfg.Tinkoff.AccountID = acc
	}
	if cmd.Bool("sandbox") {
		cfg.Tinkoff.Sandbox = true
	}
	return tinkoff.NewClient(cfg), nil
}

func withClient(needAccount bool, fn func(ctx context.Context, cmd *cli.Command, c *tinkoff.Client) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		if needAccount && c.AccountID() == "" {
			return errors.New("account id is not set: use --account or TINKOFF_ACCOUNT_ID")
		}
		ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
		defer cancel()
		return fn(ctx, cmd, c)
	}
}

func accountsAction(ctx context.Context, _ *cli.Command, c *tinkoff.Client) error {
	accounts, err := c.GetAccounts(ctx)
	if err != nil {
		return fmt.Errorf("get accounts: %w", err)
	}
	for _, a := range accounts {
		fmt.Printf("%s\t%s\t%s\t%s\n", a.ID, a.Type, a.Status, a.Name)
	}
	return nil
}

func figiAction(ctx context.Context, cmd *cli.Command, c *tinkoff.Client) error {
	query := strings.Join(cmd.Args().Slice(), " ")
	if query == "" {
		return errors.New("usage: brokercheck figi <name or ticker>")
	}
	found, err := c.FindInstrument(ctx, query)
	if err != nil {
		return fmt.Errorf("find instrument: %w", err)
	}
	if len(found) == 0 {
		fmt.Println("nothing found")
		return nil
	}
	for _, in := range found {
		fmt.Printf("%s\t%s\t%s\t%s\ttradable=%t\t%s\n", in.FIGI, in.Ticker, in.ClassCode, in.InstrumentType, in.TradeAvailable, in.Name)
	}
	return nil
}

func instrumentAction(ctx context.Context, cmd *cli.Command, c *tinkoff.Client) error {
	figi := cmd.Args().First()
	if figi == "" {
		return errors.New("usage: brokercheck instrument <figi>")
	}
	in, err := c.GetInstrumentByFIGI(ctx, figi)
	if err != nil {
		return fmt.Errorf("get instrument: %w", err)
	}
	fmt.Printf("figi:      %s\nticker:    %s\nclass:     %s\nname:      %s\nlot:       %d\ntick:      %s\ncurrency:  %s\ntradable:  %t\n",
		in.FIGI, in.Ticker, in.ClassCode, in.Name, in.Lot, in.MinPriceIncrement, in.Currency, in.TradeAvailable)

	if price, ok, err := c.GetLastPrice(ctx, figi); err == nil && ok {
		fmt.Printf("last:      %s\n", price)
	}
	return nil
}

func positionsAction(ctx context.Context, _ *cli.Command, c *tinkoff.Client) error {
	pos, err := c.GetPositions(ctx)
	if err != nil {
		return fmt.Errorf("get positions: %w", err)
	}
	if len(pos.Futures) == 0 {
		fmt.Println("no futures positions")
	}
	for _, f := range pos.Futures {
		fmt.Printf("%s\tbalance=%d\tblocked=%d\tnet=%d\n", f.FIGI, f.Balance, f.Blocked, f.Net())
	}
	return nil
}

func balanceAction(ctx context.Context, _ *cli.Command, c *tinkoff.Client) error {
	pos, err := c.GetPositions(ctx)
	if err != nil {
		return fmt.Errorf("get positions: %w", err)
	}
	for _, m := range pos.Money {
		fmt.Printf("%s %s\n", helper.FormatMoney(m.Amount), strings.ToUpper(m.Currency))
	}
	return nil
}

func ordersAction(ctx context.Context, _ *cli.Command, c *tinkoff.Client) error {
	limits, err := c.GetOrders(ctx)
	if err != nil {
		return fmt.Errorf("get orders: %w", err)
	}
	stops, err := c.GetStopOrders(ctx)
	if err != nil {
		return fmt.Errorf("get stop orders: %w", err)
	}
	for _, o := range append(limits, stops...) {
		fmt.Printf("%s\t%s\t%s\t%s\t%d\n", o.Kind, o.ID, o.FIGI, o.Side, o.Lots)
	}
	fmt.Printf("limit: %d, stop: %d\n", len(limits), len(stops))
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "brokercheck",
		Usage: "Check broker API access with the bot's credentials",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "account",
				Aliases: []string{"a"},
				Usage:   "Account id (overrides TINKOFF_ACCOUNT_ID)",
			},
			&cli.BoolFlag{
				Name:  "sandbox",
				Usage: "Use the sandbox endpoint",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Overall request timeout",
				Value: 30 * time.Second,
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return ctx, logger.Init("warn")
		},
		Commands: []*cli.Command{
			{Name: "accounts", Usage: "List accounts", Action: withClient(false, accountsAction)},
			{Name: "figi", Usage: "Search instruments by name or ticker", ArgsUsage: "<query>", Action: withClient(false, figiAction)},
			{Name: "instrument", Usage: "Show instrument details and last price", ArgsUsage: "<figi>", Action: withClient(false, instrumentAction)},
			{Name: "positions", Usage: "Show futures positions", Action: withClient(true, positionsAction)},
			{Name: "balance", Usage: "Show money positions", Action: withClient(true, balanceAction)},
			{Name: "orders", Usage: "List active limit and stop orders", Action: withClient(true, ordersAction)},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
