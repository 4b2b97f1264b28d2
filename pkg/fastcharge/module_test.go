package fastcharge

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastchg/fastchg/pkg/events"
	"github.com/fastchg/fastchg/pkg/kobj"
	"github.com/fastchg/fastchg/pkg/policy"
)

var allSettings = []string{
	policy.SettingMode,
	policy.SettingACLevel,
	policy.SettingUSBLevel,
	policy.SettingWirelessLevel,
	policy.SettingFailsafe,
	policy.SettingVersion,
}

func write(t *testing.T, m *Module, name, data string) {
	t.Helper()
	n, err := m.Write(name, data)
	require.NoError(t, err)
	require.Equal(t, len(data), n, "write must acknowledge the full input")
}

func read(t *testing.T, m *Module, name string) string {
	t.Helper()
	s, err := m.Read(name)
	require.NoError(t, err)
	return s
}

func TestInit_RegistersEverySetting(t *testing.T) {
	m, err := Init(Options{})
	require.NoError(t, err)
	defer m.Shutdown()

	assert.Equal(t, "kernel/fast_charge", m.Path())
	want := []kobj.Info{
		{Name: policy.SettingACLevel, Mode: "-rw-rw-rw-"},
		{Name: policy.SettingFailsafe, Mode: "-rw-rw-rw-"},
		{Name: policy.SettingMode, Mode: "-rw-rw-rw-"},
		{Name: policy.SettingUSBLevel, Mode: "-rw-rw-rw-"},
		{Name: policy.SettingVersion, Mode: "-r--r--r--"},
		{Name: policy.SettingWirelessLevel, Mode: "-rw-rw-rw-"},
	}
	assert.Equal(t, want, m.Attributes())
}

func TestInit_PartialRegistrationSucceeds(t *testing.T) {
	m, err := Init(Options{Disabled: []string{policy.SettingWirelessLevel, policy.SettingVersion}})
	require.NoError(t, err)
	defer m.Shutdown()

	assert.Len(t, m.Attributes(), 4)
	_, err = m.Read(policy.SettingWirelessLevel)
	assert.True(t, errors.Is(err, kobj.ErrNotFound))

	write(t, m, policy.SettingACLevel, "1200")
	assert.Equal(t, "1000  1100  [1200]  1300  1400  1500\n", read(t, m, policy.SettingACLevel))
}

func TestInit_FailsWhenNothingRegisters(t *testing.T) {
	m, err := Init(Options{Disabled: allSettings})
	assert.Nil(t, m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to register any attribute")
}

func TestInit_InvalidNamespace(t *testing.T) {
	_, err := Init(Options{Namespace: "a/b"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, kobj.ErrInvalid))
}

func TestWrite_AcknowledgesRegardlessOfOutcome(t *testing.T) {
	m, err := Init(Options{})
	require.NoError(t, err)
	defer m.Shutdown()

	inputs := []string{"1500\n", "1234\n", "nonsense", "", "-1"}
	for _, in := range inputs {
		write(t, m, policy.SettingACLevel, in)
	}
	assert.Equal(t, "1000  1100  1200  1300  1400  [1500]\n", read(t, m, policy.SettingACLevel))
}

func TestVersion_ReadOnly(t *testing.T) {
	m, err := Init(Options{})
	require.NoError(t, err)
	defer m.Shutdown()

	write(t, m, policy.SettingVersion, "v2.0\n")
	assert.Equal(t, policy.Version, read(t, m, policy.SettingVersion))
}

func TestScenario_FailsafeCycle(t *testing.T) {
	m, err := Init(Options{})
	require.NoError(t, err)
	defer m.Shutdown()

	write(t, m, policy.SettingFailsafe, "0\n")
	assert.Equal(t, "0 - Failsafe disabled - please be careful !\n", read(t, m, policy.SettingFailsafe))

	write(t, m, policy.SettingUSBLevel, "1850\n")
	assert.Equal(t, "Custom : 1850mA\n", read(t, m, policy.SettingUSBLevel))

	write(t, m, policy.SettingMode, "2\n")
	assert.Equal(t, "2 - Use custom mA on AC (1000mA) and USB (1850mA)\n", read(t, m, policy.SettingMode))

	write(t, m, policy.SettingFailsafe, "1\n")
	write(t, m, policy.SettingMode, "0\n")

	assert.Equal(t, policy.Snapshot{
		Mode:          policy.ModeDisabled,
		ACLevel:       1000,
		USBLevel:      475,
		WirelessLevel: 475,
		Failsafe:      policy.FailsafeEnabled,
	}, m.Policy().Snapshot())
	assert.Equal(t, "[475]  600  700  800  900  1000\n", read(t, m, policy.SettingUSBLevel))
}

func TestInit_PublishesChanges(t *testing.T) {
	hub := events.NewHub()
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	m, err := Init(Options{Hub: hub})
	require.NoError(t, err)
	defer m.Shutdown()

	write(t, m, policy.SettingWirelessLevel, "800")
	write(t, m, policy.SettingWirelessLevel, "801") // rejected, no event

	select {
	case ev := <-ch:
		require.Equal(t, events.PolicyChanged, ev.Name)
		payload, err := events.DecodeAs[events.PolicyChangedEvent](ev)
		require.NoError(t, err)
		assert.Equal(t, policy.SettingWirelessLevel, payload.Setting)
		assert.Equal(t, 475, payload.Before.WirelessLevel)
		assert.Equal(t, 800, payload.After.WirelessLevel)
	case <-time.After(time.Second):
		t.Fatal("no policy.changed event received")
	}

	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %s: %s", ev.Name, ev.Data)
	default:
	}
}

func TestShutdown(t *testing.T) {
	m, err := Init(Options{})
	require.NoError(t, err)
	assert.False(t, m.Released())

	m.Shutdown()
	m.Shutdown()
	assert.True(t, m.Released())

	for _, name := range allSettings {
		_, err := m.Read(name)
		assert.True(t, errors.Is(err, kobj.ErrReleased), "read %s: %v", name, err)
		_, err = m.Write(name, "1")
		assert.True(t, errors.Is(err, kobj.ErrReleased), "write %s: %v", name, err)
	}
	assert.Empty(t, m.Attributes())
}
