package shelly

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spotswitch/spotswitch/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typesSwitchOn(on bool) types.SwitchStatus {
	return types.SwitchStatus{Output: on}
}

func TestClientRPC(t *testing.T) {
	ctx := context.Background()

	t.Run("SystemStatus", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/rpc/Sys.GetStatus", r.URL.Path)
			_, _ = w.Write([]byte(`{"unixtime": 1736337900, "uptime": 1234}`))
		}))
		defer ts.Close()

		c := &Client{baseURL: ts.URL, client: ts.Client()}
		st, err := c.SystemStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1736337900), st.UnixTime)
	})

	t.Run("SwitchStatus", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/rpc/Switch.GetStatus", r.URL.Path)
			assert.Equal(t, "2", r.URL.Query().Get("id"))
			_, _ = w.Write([]byte(`{
				"id": 2, "output": true, "apower": 57.3,
				"aenergy": {"total": 10.5, "minute_ts": 1736337900},
				"temperature": {"tC": 41.2}
			}`))
		}))
		defer ts.Close()

		c := &Client{baseURL: ts.URL, client: ts.Client()}
		st, err := c.SwitchStatus(ctx, 2)
		require.NoError(t, err)
		assert.True(t, st.Output)
		assert.Equal(t, 57.3, st.APower)
		assert.Equal(t, 41.2, st.Temperature.TC)
	})

	t.Run("SetSwitch", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/rpc/Switch.Set", r.URL.Path)
			assert.Equal(t, "1", r.URL.Query().Get("id"))
			assert.Equal(t, "true", r.URL.Query().Get("on"))
			_, _ = w.Write([]byte(`{"was_on": false}`))
		}))
		defer ts.Close()

		c := &Client{baseURL: ts.URL, client: ts.Client()}
		require.NoError(t, c.SetSwitch(ctx, 1, true))
	})

	t.Run("SetLEDColor", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/rpc/PLUGS_UI.SetConfig", r.URL.Path)
			var config struct {
				Leds struct {
					Colors map[string]map[string]ledColorState `json:"colors"`
				} `json:"leds"`
			}
			require.NoError(t, json.Unmarshal([]byte(r.URL.Query().Get("config")), &config))
			sw := config.Leds.Colors["switch:0"]
			assert.Equal(t, []int{0, 100, 0}, sw["on"].RGB)
			assert.Equal(t, 30, sw["on"].Brightness)
			assert.Equal(t, []int{0, 100, 0}, sw["off"].RGB)
			assert.Equal(t, 20, sw["off"].Brightness)
			_, _ = w.Write([]byte(`{}`))
		}))
		defer ts.Close()

		c := &Client{baseURL: ts.URL, client: ts.Client()}
		require.NoError(t, c.SetLEDColor(ctx, "0,100,0"))
	})

	t.Run("ErrorStatus", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer ts.Close()

		c := &Client{baseURL: ts.URL, client: ts.Client()}
		_, err := c.SystemStatus(ctx)
		require.Error(t, err)
	})
}

func TestParseRGB(t *testing.T) {
	components, err := parseRGB("100,0,50")
	require.NoError(t, err)
	assert.Equal(t, []int{100, 0, 50}, components)

	_, err = parseRGB("100,0")
	assert.Error(t, err)
	_, err = parseRGB("100,0,x")
	assert.Error(t, err)
	_, err = parseRGB("100,0,101")
	assert.Error(t, err)
}

func TestRecorder(t *testing.T) {
	ctx := context.Background()

	m := NewMock()
	m.Switches[0] = typesSwitchOn(false)
	r := NewRecorder(m)

	// before any simulated command the real state is reported
	st, err := r.SwitchStatus(ctx, 0)
	require.NoError(t, err)
	assert.False(t, st.Output)

	// a simulated command never reaches the real device
	require.NoError(t, r.SetSwitch(ctx, 0, true))
	assert.Empty(t, m.SetCalls())

	// but the shadow state overrides the reported output
	st, err = r.SwitchStatus(ctx, 0)
	require.NoError(t, err)
	assert.True(t, st.Output)

	// LED updates pass through
	require.NoError(t, r.SetLEDColor(ctx, "0,100,0"))
	assert.Equal(t, []string{"0,100,0"}, m.Colors())
}
