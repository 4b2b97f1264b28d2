package policy

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// ChangeFunc is called after an accepted write changed the policy. It runs
// outside the policy lock, so it may read the policy again, but it must not
// write it. Calls arrive in the order the writes were applied.
type ChangeFunc func(setting string, before, after Snapshot)

// ChargePolicy holds the configured charge mode, per-source current levels
// and the failsafe interlock. All fields are guarded by one lock so that
// cross-field updates (failsafe re-enable) are observed atomically.
type ChargePolicy struct {
	mu *sync.RWMutex
	// writeMu orders writers together with their change notifications.
	writeMu *sync.Mutex

	mode          Mode
	acLevel       int
	usbLevel      int
	wirelessLevel int
	failsafe      Failsafe

	onChange ChangeFunc
}

// New returns a policy with every setting at its default.
func New() *ChargePolicy {
	return &ChargePolicy{
		mu:            &sync.RWMutex{},
		writeMu:       &sync.Mutex{},
		mode:          ModeDisabled,
		acLevel:       acRule.def,
		usbLevel:      usbRule.def,
		wirelessLevel: wirelessRule.def,
		failsafe:      FailsafeEnabled,
	}
}

// OnChange registers fn to be called on every state-changing write.
// Passing nil removes the hook.
func (p *ChargePolicy) OnChange(fn ChangeFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onChange = fn
}

func (p *ChargePolicy) snapshotLocked() Snapshot {
	return Snapshot{
		Mode:          p.mode,
		ACLevel:       p.acLevel,
		USBLevel:      p.usbLevel,
		WirelessLevel: p.wirelessLevel,
		Failsafe:      p.failsafe,
	}
}

// Snapshot returns all settings read under one lock.
func (p *ChargePolicy) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshotLocked()
}

func (p *ChargePolicy) Mode() Mode {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.mode
}

func (p *ChargePolicy) ACLevel() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.acLevel
}

func (p *ChargePolicy) USBLevel() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.usbLevel
}

func (p *ChargePolicy) WirelessLevel() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.wirelessLevel
}

func (p *ChargePolicy) Failsafe() Failsafe {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.failsafe
}

// update runs fn under the write lock and reports the change, if any, to
// the hook once the lock is released. Readers are not held up by the hook;
// other writers are, so hook calls follow the order of the changes.
func (p *ChargePolicy) update(setting string, fn func() Result) Result {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	p.mu.Lock()
	before := p.snapshotLocked()
	res := fn()
	after := p.snapshotLocked()
	hook := p.onChange
	p.mu.Unlock()

	entry := logrus.WithFields(logrus.Fields{
		"setting": setting,
		"result":  res.String(),
	})
	if res != Accepted {
		entry.Debug("policy write ignored")
		return res
	}
	if before == after {
		entry.Trace("policy write accepted without change")
		return res
	}

	entry.WithFields(logrus.Fields{
		"before": before,
		"after":  after,
	}).Info("policy updated")

	if hook != nil {
		hook(setting, before, after)
	}

	return res
}

// SetMode stores m if it is one of the declared modes.
func (p *ChargePolicy) SetMode(m Mode) Result {
	return p.update(SettingMode, func() Result {
		if !m.Valid() {
			return RejectedOutOfDomain
		}
		p.mode = m
		return Accepted
	})
}

func (p *ChargePolicy) setLevel(setting string, rule LevelRule, field *int, v int) Result {
	return p.update(setting, func() Result {
		if !rule.Allows(v, p.failsafe) {
			return RejectedOutOfDomain
		}
		*field = v
		return Accepted
	})
}

func (p *ChargePolicy) SetACLevel(v int) Result {
	return p.setLevel(SettingACLevel, acRule, &p.acLevel, v)
}

func (p *ChargePolicy) SetUSBLevel(v int) Result {
	return p.setLevel(SettingUSBLevel, usbRule, &p.usbLevel, v)
}

func (p *ChargePolicy) SetWirelessLevel(v int) Result {
	return p.setLevel(SettingWirelessLevel, wirelessRule, &p.wirelessLevel, v)
}

// SetFailsafe switches the interlock. Enabling it resets the AC and USB
// levels to their defaults in the same critical section. The wireless level
// is left alone.
func (p *ChargePolicy) SetFailsafe(f Failsafe) Result {
	return p.update(SettingFailsafe, func() Result {
		switch f {
		case FailsafeEnabled:
			p.usbLevel = usbRule.def
			p.acLevel = acRule.def
			p.failsafe = f
		case FailsafeDisabled:
			p.failsafe = f
		default:
			return RejectedOutOfDomain
		}
		return Accepted
	})
}
