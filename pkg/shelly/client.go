package shelly

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/spotswitch/spotswitch/pkg/common"
	"github.com/spotswitch/spotswitch/pkg/log"
	"github.com/spotswitch/spotswitch/pkg/types"
)

// Client drives a switch device over its local HTTP RPC endpoint.
type Client struct {
	baseURL string
	client  *http.Client
}

// Configured sets up flags for the device and returns the instance.
func Configured() *Client {
	c := &Client{
		client: common.HTTPClient(10 * time.Second),
	}
	addr := lflag.String("device-address", "http://127.0.0.1", "Base URL of the switch device")

	lflag.Do(func() {
		c.baseURL = strings.TrimSuffix(*addr, "/")
	})

	return c
}

// Validate ensures the configuration is usable.
func (c *Client) Validate() error {
	if c.baseURL == "" {
		return fmt.Errorf("device-address is required")
	}
	if _, err := url.Parse(c.baseURL); err != nil {
		return fmt.Errorf("failed to parse device address (%s): %w", c.baseURL, err)
	}
	return nil
}

// rpc performs one GET RPC call and decodes the JSON response into out when
// out is non-nil.
func (c *Client) rpc(ctx context.Context, method string, params url.Values, out any) error {
	u := c.baseURL + "/rpc/" + method
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	log.Ctx(ctx).DebugContext(ctx, "device rpc", slog.String("method", method))

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s failed: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status: %d", method, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	return nil
}

// SystemStatus implements Device.
func (c *Client) SystemStatus(ctx context.Context) (types.SystemStatus, error) {
	var st types.SystemStatus
	if err := c.rpc(ctx, "Sys.GetStatus", nil, &st); err != nil {
		return types.SystemStatus{}, err
	}
	return st, nil
}

// SwitchStatus implements Device.
func (c *Client) SwitchStatus(ctx context.Context, id int) (types.SwitchStatus, error) {
	params := url.Values{}
	params.Set("id", strconv.Itoa(id))
	var st types.SwitchStatus
	if err := c.rpc(ctx, "Switch.GetStatus", params, &st); err != nil {
		return types.SwitchStatus{}, err
	}
	return st, nil
}

// SetSwitch implements Device.
func (c *Client) SetSwitch(ctx context.Context, id int, on bool) error {
	params := url.Values{}
	params.Set("id", strconv.Itoa(id))
	params.Set("on", strconv.FormatBool(on))
	return c.rpc(ctx, "Switch.Set", params, nil)
}

// ledColorState mirrors one LED state entry of the PLUGS_UI config.
type ledColorState struct {
	Brightness int   `json:"brightness"`
	RGB        []int `json:"rgb"`
}

// SetLEDColor implements Device. The indicator LED must be configured in
// "switch" mode on the device for the colors to take effect.
func (c *Client) SetLEDColor(ctx context.Context, rgb string) error {
	components, err := parseRGB(rgb)
	if err != nil {
		return err
	}
	config := map[string]any{
		"leds": map[string]any{
			"colors": map[string]any{
				"switch:0": map[string]any{
					"off": ledColorState{Brightness: 20, RGB: components},
					"on":  ledColorState{Brightness: 30, RGB: components},
				},
			},
		},
	}
	raw, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal led config: %w", err)
	}
	params := url.Values{}
	params.Set("config", string(raw))
	return c.rpc(ctx, "PLUGS_UI.SetConfig", params, nil)
}

// parseRGB parses an "r,g,b" triple with components 0-100.
func parseRGB(rgb string) ([]int, error) {
	parts := strings.Split(rgb, ",")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid rgb triple: %q", rgb)
	}
	components := make([]int, 3)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid rgb component %q: %w", p, err)
		}
		if v < 0 || v > 100 {
			return nil, fmt.Errorf("rgb component out of range: %d", v)
		}
		components[i] = v
	}
	return components, nil
}
