package service

import (
	"context"
	"strings"

	"tinkoff_bot/internal/models"
)

func (c *Client) GetPositions(ctx context.Context) (models.PortfolioPositions, error) {
	var r positionsResponse
	if err := c.call(ctx, "OperationsService/GetPositions", accountRequest{AccountID: c.accountID}, &r); err != nil {
		return models.PortfolioPositions{}, err
	}

	out := models.PortfolioPositions{
		Money:   make([]models.Money, 0, len(r.Money)),
		Futures: make([]models.FuturesHolding, 0, len(r.Futures)),
	}
	for _, m := range r.Money {
		out.Money = append(out.Money, models.Money{
			Currency: strings.ToLower(m.Currency),
			Amount:   m.Decimal(),
		})
	}
	for _, f := range r.Futures {
		out.Futures = append(out.Futures, models.FuturesHolding{
			FIGI:    f.FIGI,
			Balance: int64(f.Balance),
			Blocked: int64(f.Blocked),
		})
	}
	return out, nil
}

func (c *Client) GetAccounts(ctx context.Context) ([]models.Account, error) {
	var r accountsResponse
	if err := c.call(ctx, "UsersService/GetAccounts", struct{}{}, &r); err != nil {
		return nil, err
	}
	out := make([]models.Account, 0, len(r.Accounts))
	for _, a := range r.Accounts {
		out = append(out, models.Account{ID: a.ID, Name: a.Name, Type: a.Type, Status: a.Status})
	}
	return out, nil
}
