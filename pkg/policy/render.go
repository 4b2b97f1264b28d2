package policy

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// The Write* methods take raw control-surface input. Input that does not
// parse as an unsigned decimal integer is rejected and leaves the policy
// untouched.

func (p *ChargePolicy) WriteMode(raw string) Result {
	v, ok := ParseValue(raw)
	if !ok {
		return p.rejectMalformed(SettingMode, raw)
	}
	return p.SetMode(Mode(v))
}

func (p *ChargePolicy) WriteACLevel(raw string) Result {
	v, ok := ParseValue(raw)
	if !ok {
		return p.rejectMalformed(SettingACLevel, raw)
	}
	return p.SetACLevel(v)
}

func (p *ChargePolicy) WriteUSBLevel(raw string) Result {
	v, ok := ParseValue(raw)
	if !ok {
		return p.rejectMalformed(SettingUSBLevel, raw)
	}
	return p.SetUSBLevel(v)
}

func (p *ChargePolicy) WriteWirelessLevel(raw string) Result {
	v, ok := ParseValue(raw)
	if !ok {
		return p.rejectMalformed(SettingWirelessLevel, raw)
	}
	return p.SetWirelessLevel(v)
}

func (p *ChargePolicy) WriteFailsafe(raw string) Result {
	v, ok := ParseValue(raw)
	if !ok {
		return p.rejectMalformed(SettingFailsafe, raw)
	}
	return p.SetFailsafe(Failsafe(v))
}

// WriteVersion never changes anything.
func (p *ChargePolicy) WriteVersion(_ string) Result {
	return RejectedReadOnly
}

func (p *ChargePolicy) rejectMalformed(setting, raw string) Result {
	logrus.WithFields(logrus.Fields{
		"setting": setting,
		"input":   raw,
	}).Debug("policy write ignored: not an unsigned integer")
	return RejectedMalformed
}

func (p *ChargePolicy) ShowMode() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	switch p.mode {
	case ModeDisabled:
		return "0 - Disabled (default)\n"
	case ModeForceAC:
		return "1 - Use stock AC level on USB\n"
	case ModeForceCustomMA:
		return fmt.Sprintf("2 - Use custom mA on AC (%dmA) and USB (%dmA)\n", p.acLevel, p.usbLevel)
	default:
		return "something went wrong\n"
	}
}

func (p *ChargePolicy) ShowACLevel() string {
	return acRule.Render(p.ACLevel())
}

func (p *ChargePolicy) ShowUSBLevel() string {
	return usbRule.Render(p.USBLevel())
}

func (p *ChargePolicy) ShowWirelessLevel() string {
	return wirelessRule.Render(p.WirelessLevel())
}

func (p *ChargePolicy) ShowFailsafe() string {
	switch p.Failsafe() {
	case FailsafeDisabled:
		return "0 - Failsafe disabled - please be careful !\n"
	case FailsafeEnabled:
		return "1 - Failsafe active (default)\n"
	default:
		return "something went wrong\n"
	}
}

func (p *ChargePolicy) ShowVersion() string {
	return Version
}
