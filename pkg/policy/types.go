package policy

import "fmt"

// Mode is the force-fast-charge selector.
type Mode int

const (
	ModeDisabled Mode = iota
	ModeForceAC
	ModeForceCustomMA
)

func (m Mode) Valid() bool {
	return m >= ModeDisabled && m <= ModeForceCustomMA
}

func (m Mode) String() string {
	switch m {
	case ModeDisabled:
		return "disabled"
	case ModeForceAC:
		return "force-ac"
	case ModeForceCustomMA:
		return "force-custom-ma"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// Failsafe is the global interlock state.
type Failsafe int

const (
	FailsafeDisabled Failsafe = iota
	FailsafeEnabled
)

func (f Failsafe) Valid() bool {
	return f == FailsafeDisabled || f == FailsafeEnabled
}

func (f Failsafe) String() string {
	switch f {
	case FailsafeDisabled:
		return "disabled"
	case FailsafeEnabled:
		return "enabled"
	default:
		return fmt.Sprintf("unknown(%d)", int(f))
	}
}

// Result is the outcome of a write. The control surface hides it from
// callers; it exists for logging and tests.
type Result int

const (
	Accepted Result = iota
	RejectedMalformed
	RejectedOutOfDomain
	RejectedReadOnly
)

func (r Result) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case RejectedMalformed:
		return "rejected-malformed"
	case RejectedOutOfDomain:
		return "rejected-out-of-domain"
	case RejectedReadOnly:
		return "rejected-read-only"
	default:
		return fmt.Sprintf("unknown(%d)", int(r))
	}
}

// Snapshot is a consistent copy of every setting, taken under one lock.
type Snapshot struct {
	Mode          Mode     `json:"mode"`
	ACLevel       int      `json:"acLevel"`
	USBLevel      int      `json:"usbLevel"`
	WirelessLevel int      `json:"wirelessLevel"`
	Failsafe      Failsafe `json:"failsafe"`
}

// Setting names, as exposed on the control surface.
const (
	SettingMode          = "force_fast_charge"
	SettingACLevel       = "ac_charge_level"
	SettingUSBLevel      = "usb_charge_level"
	SettingWirelessLevel = "wireless_charge_level"
	SettingFailsafe      = "failsafe"
	SettingVersion       = "version"
)

// Version is what the version setting renders. It never changes at runtime.
const Version = "Forced Fast Charge by Yank555.lu v1.4\n"
