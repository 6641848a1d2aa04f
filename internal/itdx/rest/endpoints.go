package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"itdx-mm-bot/internal/itdx"
)

func (c *Client) Summaries(ctx context.Context) ([]itdx.Summary, error) {
	var resp struct {
		Summaries []itdx.Summary `json:"summaries"`
	}
	if err := c.get(ctx, "/api/v1/summaries", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Summaries, nil
}

func (c *Client) Instruments(ctx context.Context) ([]itdx.Instrument, error) {
	var resp struct {
		Instruments []itdx.Instrument `json:"instruments"`
	}
	if err := c.get(ctx, "/api/v1/instruments", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Instruments, nil
}

func (c *Client) Accounts(ctx context.Context) ([]itdx.Account, error) {
	var accounts []itdx.Account
	if err := c.getPrivate(ctx, "/api/v1/accounts", nil, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (c *Client) Margins(ctx context.Context, accountID, asset string) ([]itdx.Margin, error) {
	params := url.Values{}
	if accountID != "" {
		params.Set("accountId", accountID)
	}
	if asset != "" {
		params.Set("asset", asset)
	}
	var resp struct {
		Margins []itdx.Margin `json:"margins"`
	}
	if err := c.getPrivate(ctx, "/api/v1/margins", params, &resp); err != nil {
		return nil, err
	}
	return resp.Margins, nil
}

func (c *Client) Positions(ctx context.Context, accountID, symbol string) ([]itdx.Position, error) {
	params := url.Values{}
	if accountID != "" {
		params.Set("accountId", accountID)
	}
	if symbol != "" {
		params.Set("symbol", symbol)
	}
	var resp struct {
		Positions []itdx.Position `json:"positions"`
	}
	if err := c.getPrivate(ctx, "/api/v1/positions", params, &resp); err != nil {
		return nil, err
	}
	return resp.Positions, nil
}

// Orders lists orders, optionally filtered by account, symbol and a
// comma-separated status list. Status "open,partial" yields the live set.
func (c *Client) Orders(ctx context.Context, accountID, symbol, status string) ([]itdx.Order, error) {
	params := url.Values{}
	if accountID != "" {
		params.Set("accountId", accountID)
	}
	if symbol != "" {
		params.Set("symbol", symbol)
	}
	if status != "" {
		params.Set("status", status)
	}
	var resp struct {
		Orders []itdx.Order `json:"orders"`
	}
	if err := c.getPrivate(ctx, "/api/v1/orders", params, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

// OpenOrders is the live order subset for one account and symbol.
func (c *Client) OpenOrders(ctx context.Context, accountID, symbol string) ([]itdx.Order, error) {
	return c.Orders(ctx, accountID, symbol, itdx.StatusOpen+","+itdx.StatusPartial)
}

func (c *Client) PlaceOrder(ctx context.Context, order itdx.NewOrder) (json.RawMessage, error) {
	var resp struct {
		Response json.RawMessage `json:"response"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/order", nil, order, &resp, true); err != nil {
		return nil, err
	}
	return resp.Response, nil
}

func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	params := url.Values{}
	params.Set("orderId", orderID)
	return c.do(ctx, http.MethodDelete, "/api/v1/order", params, nil, nil, true)
}

func (c *Client) CancelAll(ctx context.Context, accountID string) error {
	params := url.Values{}
	params.Set("accountId", accountID)
	return c.do(ctx, http.MethodDelete, "/api/v1/order/all", params, nil, nil, true)
}
