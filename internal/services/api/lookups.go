package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/model"
)

// Weather fetches current conditions; unavailable when no temperature came back.
func (c *Client) Weather(ctx context.Context, district string) Result[model.Weather] {
	q := url.Values{"district": {district}}
	res := Fetch[model.Weather](ctx, c, "/weather?"+q.Encode(), http.MethodGet, nil)
	w, ok := res.Get()
	if !ok || !w.HasTemperature {
		return Unavailable[model.Weather]()
	}
	return Success(w)
}

type marketResponse struct {
	Prices *[]model.MarketRow `json:"prices"`
}

// MarketPrices fetches mandi quotes, optionally filtered by district. It is
// unavailable unless the response carries a prices array.
func (c *Client) MarketPrices(ctx context.Context, district string) Result[[]model.MarketRow] {
	endpoint := "/market-prices"
	if district != "" {
		endpoint += "?" + url.Values{"district": {district}}.Encode()
	}
	res := Fetch[marketResponse](ctx, c, endpoint, http.MethodGet, nil)
	data, ok := res.Get()
	if !ok || data.Prices == nil {
		return Unavailable[[]model.MarketRow]()
	}
	return Success(*data.Prices)
}
