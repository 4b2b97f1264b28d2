package main

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastchg/fastchg/pkg/events"
	"github.com/fastchg/fastchg/pkg/fastcharge"
	"github.com/fastchg/fastchg/pkg/policy"
)

// fakeDaemon serves the attribute and policy routes of a real module on a
// unix socket.
func fakeDaemon(t *testing.T) (*fastcharge.Module, string) {
	t.Helper()

	m, err := fastcharge.Init(fastcharge.Options{})
	require.NoError(t, err)
	t.Cleanup(m.Shutdown)

	mux := http.NewServeMux()
	mux.HandleFunc("/attributes/", func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/attributes/")
		switch r.Method {
		case http.MethodGet:
			v, err := m.Read(name)
			if err != nil {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			_, _ = io.WriteString(w, v)
		case http.MethodPut:
			b, _ := io.ReadAll(r.Body)
			n, err := m.Write(name, string(b))
			if err != nil {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			_, _ = fmt.Fprintf(w, "%d", n)
		}
	})
	mux.HandleFunc("/policy", func(w http.ResponseWriter, _ *http.Request) {
		s := m.Policy().Snapshot()
		_, _ = fmt.Fprintf(w, `{"mode":%d,"acLevel":%d,"usbLevel":%d,"wirelessLevel":%d,"failsafe":%d}`,
			s.Mode, s.ACLevel, s.USBLevel, s.WirelessLevel, s.Failsafe)
	})

	dir, err := os.MkdirTemp("", "fastchg")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	sock := filepath.Join(dir, "d.sock")
	l, err := net.Listen("unix", sock)
	require.NoError(t, err)
	srv := &http.Server{Handler: mux}
	go func() { _ = srv.Serve(l) }()
	t.Cleanup(func() { _ = srv.Close() })

	return m, sock
}

func run(t *testing.T, sock string, args ...string) (string, error) {
	t.Helper()
	cmd := NewCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--daemon-socket", sock}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestParseIntArg(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    int
		wantErr bool
	}{
		{name: "valid", args: []string{"1500"}, want: 1500},
		{name: "negative", args: []string{"-5"}, want: -5},
		{name: "not a number", args: []string{"fast"}, wantErr: true},
		{name: "no args", args: nil, wantErr: true},
		{name: "too many args", args: []string{"1", "2"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseIntArg(tt.args, "level")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRejectionHint(t *testing.T) {
	s := &policy.Snapshot{Failsafe: policy.FailsafeEnabled}
	assert.Contains(t, rejectionHint(policy.ACRule(), 9000, s), "ceiling")
	assert.Contains(t, rejectionHint(policy.ACRule(), 1450, s), "failsafe is active")
}

func TestFormatChange(t *testing.T) {
	ev := events.PolicyChangedEvent{
		Setting: policy.SettingFailsafe,
		Before:  policy.Snapshot{ACLevel: 1800, USBLevel: 1850, WirelessLevel: 475, Failsafe: policy.FailsafeDisabled},
		After:   policy.Snapshot{ACLevel: 1000, USBLevel: 475, WirelessLevel: 475, Failsafe: policy.FailsafeEnabled},
	}
	got := formatChange(ev)
	assert.Contains(t, got, "ac 1800 -> 1000 mA")
	assert.Contains(t, got, "usb 1850 -> 475 mA")
	assert.Contains(t, got, "failsafe disabled -> enabled")
	assert.NotContains(t, got, "wireless")
}

func TestLevelCommands(t *testing.T) {
	m, sock := fakeDaemon(t)

	_, err := run(t, sock, "ac-level", "1400")
	require.NoError(t, err)
	assert.Equal(t, 1400, m.Policy().ACLevel())

	_, err = run(t, sock, "ac-level", "1450")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failsafe is active")
	assert.Equal(t, 1400, m.Policy().ACLevel())

	_, err = run(t, sock, "failsafe", "disable")
	require.NoError(t, err)

	_, err = run(t, sock, "usb-level", "1850")
	require.NoError(t, err)
	assert.Equal(t, 1850, m.Policy().USBLevel())

	_, err = run(t, sock, "wireless-level", "2000")
	require.NoError(t, err)

	_, err = run(t, sock, "mode", "2")
	require.NoError(t, err)

	_, err = run(t, sock, "mode", "3")
	require.Error(t, err)
	assert.Equal(t, policy.ModeForceCustomMA, m.Policy().Mode())

	_, err = run(t, sock, "failsafe", "enable")
	require.NoError(t, err)
	assert.Equal(t, policy.Snapshot{
		Mode:          policy.ModeForceCustomMA,
		ACLevel:       1000,
		USBLevel:      475,
		WirelessLevel: 2000,
		Failsafe:      policy.FailsafeEnabled,
	}, m.Policy().Snapshot())
}

func TestRawAttributeCommands(t *testing.T) {
	m, sock := fakeDaemon(t)

	_, err := run(t, sock, "set", policy.SettingUSBLevel, "900")
	require.NoError(t, err)
	assert.Equal(t, 900, m.Policy().USBLevel())

	out, err := run(t, sock, "get", policy.SettingUSBLevel)
	require.NoError(t, err)
	assert.Equal(t, "475  600  700  800  [900]  1000\n", out)

	out, err = run(t, sock, "get", policy.SettingVersion)
	require.NoError(t, err)
	assert.Equal(t, policy.Version, out)

	_, err = run(t, sock, "get", "nope")
	assert.Error(t, err)
}
