package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/savings-metrics/internal/models"
	"github.com/shopspring/decimal"
)

// PriceOracleClient quotes the synthetic asset from the price oracle API
type PriceOracleClient struct {
	api    *jsonClient
	symbol string
}

// NewPriceOracleClient creates a new price oracle client for symbol
func NewPriceOracleClient(cfg ClientConfig, symbol string) *PriceOracleClient {
	return &PriceOracleClient{
		api:    newJSONClient("price_oracle", cfg),
		symbol: strings.ToUpper(strings.TrimSpace(symbol)),
	}
}

type pricePointResponse struct {
	Symbol    string          `json:"symbol"`
	Timestamp int64           `json:"timestamp"`
	Price     decimal.Decimal `json:"price"`
}

// PriceAt returns the price at, or nearest to, at
func (c *PriceOracleClient) PriceAt(ctx context.Context, at time.Time) (models.PricePoint, error) {
	query := url.Values{}
	query.Set("at", strconv.FormatInt(at.Unix(), 10))
	return c.fetch(ctx, "/prices/"+url.PathEscape(c.symbol), query)
}

// CurrentPrice returns the latest price
func (c *PriceOracleClient) CurrentPrice(ctx context.Context) (models.PricePoint, error) {
	return c.fetch(ctx, "/prices/"+url.PathEscape(c.symbol)+"/latest", nil)
}

func (c *PriceOracleClient) fetch(ctx context.Context, path string, query url.Values) (models.PricePoint, error) {
	var resp pricePointResponse
	if err := c.api.getJSON(ctx, path, query, &resp); err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.PricePoint{}, fmt.Errorf("%w: %s", ErrPriceNotFound, c.symbol)
		}
		return models.PricePoint{}, err
	}

	point := models.PricePoint{
		Symbol:    c.symbol,
		Timestamp: time.Unix(resp.Timestamp, 0).UTC(),
		Price:     resp.Price,
	}
	if !point.Valid() {
		return models.PricePoint{}, fmt.Errorf("%w: %s quoted at %s", ErrInvalidPrice, c.symbol, resp.Price)
	}
	return point, nil
}
