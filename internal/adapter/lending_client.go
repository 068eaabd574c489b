package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/savings-metrics/internal/models"
)

// LendingClient reads current pool positions from the lending protocol API
type LendingClient struct {
	api *jsonClient
}

// NewLendingClient creates a new lending protocol client
func NewLendingClient(cfg ClientConfig) *LendingClient {
	return &LendingClient{api: newJSONClient("lending", cfg)}
}

type positionsResponse struct {
	Positions []models.LendingPosition `json:"positions"`
}

// GetPositions returns the user's positions across all pools
func (c *LendingClient) GetPositions(ctx context.Context, userID string) ([]models.LendingPosition, error) {
	var resp positionsResponse
	err := c.api.getJSON(ctx, "/accounts/"+url.PathEscape(userID)+"/positions", nil, &resp)
	if errors.Is(err, ErrNotFound) {
		return []models.LendingPosition{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch lending positions for user %s: %w", userID, err)
	}
	return resp.Positions, nil
}
