package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/distatus/battery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastchg/fastchg/pkg/config"
	"github.com/fastchg/fastchg/pkg/fastcharge"
	"github.com/fastchg/fastchg/pkg/policy"
	"github.com/fastchg/fastchg/pkg/version"
)

func newTestServer(t *testing.T, raw *config.RawFileConfig) (*server, http.Handler) {
	t.Helper()
	conf := config.NewFileFromConfig(raw, filepath.Join(t.TempDir(), "fastchg.json"))
	s, err := newServer(conf)
	require.NoError(t, err)
	t.Cleanup(s.module.Shutdown)
	return s, setupRoutes(s)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListAttributes(t *testing.T) {
	_, h := newTestServer(t, nil)

	rec := do(t, h, http.MethodGet, "/attributes", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got fastcharge.Listing
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "kernel/fast_charge", got.Path)
	assert.Len(t, got.Attributes, 6)
}

func TestReadWriteAttribute(t *testing.T) {
	_, h := newTestServer(t, nil)

	rec := do(t, h, http.MethodGet, "/attributes/ac_charge_level", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[1000]  1100  1200  1300  1400  1500\n", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "accepted", body: "1400\n", want: "1000  1100  1200  1300  [1400]  1500\n"},
		{name: "out of domain", body: "1450\n", want: "1000  1100  1200  1300  [1400]  1500\n"},
		{name: "malformed", body: "fast please", want: "1000  1100  1200  1300  [1400]  1500\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPut, "/attributes/ac_charge_level", tt.body)
			require.Equal(t, http.StatusOK, rec.Code)

			var n int
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &n))
			assert.Equal(t, len(tt.body), n)

			rec = do(t, h, http.MethodGet, "/attributes/ac_charge_level", "")
			assert.Equal(t, tt.want, rec.Body.String())
		})
	}
}

func TestAttributeErrors(t *testing.T) {
	s, h := newTestServer(t, &config.RawFileConfig{DisabledAttributes: []string{policy.SettingWirelessLevel}})

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/attributes/wireless_charge_level", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPut, "/attributes/nope", "1").Code)
	assert.Equal(t, http.StatusRequestEntityTooLarge,
		do(t, h, http.MethodPut, "/attributes/failsafe", strings.Repeat("1", maxWriteSize+1)).Code)

	s.module.Shutdown()
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/attributes/failsafe", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/attributes", "").Code)
}

func TestVersionAttributeIgnoresWrites(t *testing.T) {
	_, h := newTestServer(t, nil)

	rec := do(t, h, http.MethodPut, "/attributes/version", "v9\n")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3", strings.TrimSpace(rec.Body.String()))

	rec = do(t, h, http.MethodGet, "/attributes/version", "")
	assert.Equal(t, policy.Version, rec.Body.String())
}

func TestGetPolicy(t *testing.T) {
	_, h := newTestServer(t, nil)

	do(t, h, http.MethodPut, "/attributes/failsafe", "0")
	do(t, h, http.MethodPut, "/attributes/usb_charge_level", "1850")
	do(t, h, http.MethodPut, "/attributes/force_fast_charge", "2")

	rec := do(t, h, http.MethodGet, "/policy", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got policy.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, policy.Snapshot{
		Mode:          policy.ModeForceCustomMA,
		ACLevel:       1000,
		USBLevel:      1850,
		WirelessLevel: 475,
		Failsafe:      policy.FailsafeDisabled,
	}, got)
}

func TestGetConfigAndVersion(t *testing.T) {
	_, h := newTestServer(t, nil)

	rec := do(t, h, http.MethodGet, "/config", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var raw config.RawFileConfig
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	require.NotNil(t, raw.Namespace)
	assert.Equal(t, "fast_charge", *raw.Namespace)

	rec = do(t, h, http.MethodGet, "/version", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var v string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, version.Version, v)
}

func TestGetBatteryInfo(t *testing.T) {
	_, h := newTestServer(t, nil)
	original := batteryGetAll
	t.Cleanup(func() { batteryGetAll = original })

	batteryGetAll = func() ([]*battery.Battery, error) {
		return []*battery.Battery{{State: battery.Discharging, ChargeRate: 5000, Current: 30000, Full: 50000}}, nil
	}
	rec := do(t, h, http.MethodGet, "/battery-info", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var bat battery.Battery
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bat))
	assert.Equal(t, -5000.0, bat.ChargeRate)

	batteryGetAll = func() ([]*battery.Battery, error) { return nil, nil }
	assert.Equal(t, http.StatusInternalServerError, do(t, h, http.MethodGet, "/battery-info", "").Code)

	batteryGetAll = func() ([]*battery.Battery, error) { return nil, errors.New("no power supply") }
	assert.Equal(t, http.StatusInternalServerError, do(t, h, http.MethodGet, "/battery-info", "").Code)
}

func TestStreamEvents(t *testing.T) {
	s, h := newTestServer(t, nil)
	ts := httptest.NewServer(h)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	// Wait for the handler to subscribe before changing anything.
	require.Eventually(t, func() bool { return s.hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	_, err = s.module.Write(policy.SettingFailsafe, "0\n")
	require.NoError(t, err)

	sc := bufio.NewScanner(resp.Body)
	var lines []string
	for sc.Scan() {
		line := sc.Text()
		if line == "" && len(lines) > 0 {
			break
		}
		if line != "" {
			lines = append(lines, line)
		}
	}

	require.Len(t, lines, 2)
	assert.Equal(t, "event:policy.changed", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "data:"))
	assert.Contains(t, lines[1], `"setting":"failsafe"`)
}

func TestStreamEventsEndsOnHubClose(t *testing.T) {
	s, h := newTestServer(t, nil)
	ts := httptest.NewServer(h)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Eventually(t, func() bool { return s.hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)
	s.hub.Close()

	_, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NoError(t, ctx.Err())
}
