// Package prices fetches and caches day-ahead hourly electricity spot prices.
package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/spotswitch/spotswitch/pkg/clock"
	"github.com/spotswitch/spotswitch/pkg/common"
	"github.com/spotswitch/spotswitch/pkg/log"
	"github.com/spotswitch/spotswitch/pkg/types"
)

// Source provides one calendar day of hourly price records.
type Source interface {
	FetchDay(ctx context.Context, day clock.LocalDate) ([]types.PriceRecord, error)
}

// StatusError is returned when the price API answers with a non-200 status.
// The cache treats it as a backoff-worthy application failure, unlike
// transport errors which abort the cycle without backoff.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("price api returned status: %d", e.Code)
}

// Client fetches day-ahead prices from an elprisetjustnu-style API where each
// day is addressed as <endpoint><yyyy>/<mm>-<dd>_<zone>.json.
type Client struct {
	endpoint string
	zone     string
	client   *http.Client
}

// Configured sets up flags for the price API and returns the instance.
func Configured() *Client {
	c := &Client{
		client: common.HTTPClient(15 * time.Second),
	}
	endpoint := lflag.String("price-api-endpoint", "https://www.elprisetjustnu.se/api/v1/prices/", "Base URL of the day-ahead price API")
	zone := lflag.String("price-zone", "SE3", "Price area code (SE1, SE2, SE3 or SE4)")

	lflag.Do(func() {
		c.endpoint = *endpoint
		c.zone = *zone
	})

	return c
}

// Validate ensures the configuration is usable.
func (c *Client) Validate() error {
	if c.endpoint == "" {
		return fmt.Errorf("price-api-endpoint is required")
	}
	if _, err := url.Parse(c.endpoint); err != nil {
		return fmt.Errorf("failed to parse price api endpoint (%s): %w", c.endpoint, err)
	}
	if c.zone == "" {
		return fmt.Errorf("price-zone is required")
	}
	return nil
}

// URL returns the fetch URL for one calendar day. The zero-padded field
// widths of LocalDate are what the price source's path format expects.
func (c *Client) URL(day clock.LocalDate) string {
	return c.endpoint + day.YearString() + "/" + day.MonthString() + "-" + day.DayString() + "_" + c.zone + ".json"
}

// FetchDay retrieves the hourly records for one calendar day.
func (c *Client) FetchDay(ctx context.Context, day clock.LocalDate) ([]types.PriceRecord, error) {
	u := c.URL(day)
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	log.Ctx(ctx).DebugContext(ctx, "fetching prices", slog.String("url", u))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	var records []types.PriceRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	log.Ctx(ctx).DebugContext(
		ctx,
		"fetched prices",
		slog.Int("count", len(records)),
		slog.String("day", day.DateString()),
	)
	return records, nil
}
