// Package fastcharge registers the charge policy settings under the
// fast_charge namespace and owns their lifecycle.
package fastcharge

import (
	"os"
	"slices"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/fastchg/fastchg/pkg/events"
	"github.com/fastchg/fastchg/pkg/kobj"
	"github.com/fastchg/fastchg/pkg/policy"
)

const (
	DefaultNamespace = "fast_charge"
	Parent           = "kernel"
)

// Options tweak Init.
type Options struct {
	// Namespace is the kobject name. Defaults to DefaultNamespace.
	Namespace string
	// Disabled lists groups that are not registered. They count as failed
	// registrations.
	Disabled []string
	// Hub receives a policy.changed event for every accepted change. May be nil.
	Hub *events.Hub
}

// Module is a live fast_charge namespace backed by one ChargePolicy.
type Module struct {
	policy *policy.ChargePolicy
	kobj   *kobj.Kobject
	hub    *events.Hub
}

func groups(p *policy.ChargePolicy) []kobj.Group {
	return []kobj.Group{
		single(policy.SettingMode, kobj.PermRW, p.ShowMode, p.WriteMode),
		single(policy.SettingACLevel, kobj.PermRW, p.ShowACLevel, p.WriteACLevel),
		single(policy.SettingUSBLevel, kobj.PermRW, p.ShowUSBLevel, p.WriteUSBLevel),
		single(policy.SettingWirelessLevel, kobj.PermRW, p.ShowWirelessLevel, p.WriteWirelessLevel),
		single(policy.SettingFailsafe, kobj.PermRW, p.ShowFailsafe, p.WriteFailsafe),
		single(policy.SettingVersion, kobj.PermRO, p.ShowVersion, p.WriteVersion),
	}
}

// single wraps one setting in its own group. The write result never reaches
// the control surface, which only acknowledges the input length.
func single(name string, perm os.FileMode, show func() string, write func(string) policy.Result) kobj.Group {
	return kobj.Group{
		Name: name,
		Attrs: []kobj.Attribute{{
			Name: name,
			Perm: perm,
			Show: show,
			Store: func(data string) {
				_ = write(data)
			},
		}},
	}
}

// Init creates the policy with defaults and registers every setting. It
// fails only when no setting at all could be registered; a partial
// registration is logged and tolerated.
func Init(opts Options) (*Module, error) {
	ns := opts.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}

	k, err := kobj.New(ns, Parent)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to create kobject %s", ns)
	}

	p := policy.New()
	m := &Module{
		policy: p,
		kobj:   k,
		hub:    opts.Hub,
	}
	p.OnChange(m.publishChange)

	var errs error
	gs := groups(p)
	failed := 0
	for _, g := range gs {
		if slices.Contains(opts.Disabled, g.Name) {
			errs = multierr.Append(errs, pkgerrors.Errorf("group %s is disabled", g.Name))
			failed++
			continue
		}
		if err := k.CreateGroup(g); err != nil {
			errs = multierr.Append(errs, pkgerrors.Wrapf(err, "failed to create group %s", g.Name))
			failed++
		}
	}

	if failed == len(gs) {
		k.Put()
		return nil, pkgerrors.Wrapf(errs, "failed to register any attribute under %s", k.Path())
	}

	if errs != nil {
		for _, e := range multierr.Errors(errs) {
			logrus.WithField("namespace", k.Path()).Warnf("attribute unavailable: %v", e)
		}
	}

	logrus.WithFields(logrus.Fields{
		"namespace":  k.Path(),
		"registered": len(gs) - failed,
		"failed":     failed,
	}).Info("fast charge control registered")

	return m, nil
}

func (m *Module) publishChange(setting string, before, after policy.Snapshot) {
	if m.hub == nil {
		return
	}
	m.hub.Publish(events.PolicyChanged, events.PolicyChangedEvent{
		Setting: setting,
		Before:  before,
		After:   after,
		Ts:      time.Now().Unix(),
	})
}

// Shutdown releases the namespace. It is safe to call more than once.
func (m *Module) Shutdown() {
	m.policy.OnChange(nil)
	m.kobj.Put()
	logrus.WithField("namespace", m.kobj.Path()).Info("fast charge control released")
}

// Read renders the named setting.
func (m *Module) Read(name string) (string, error) {
	return m.kobj.Show(name)
}

// Write hands raw input to the named setting and returns the number of
// bytes acknowledged. A successful return says nothing about whether the
// value was applied.
func (m *Module) Write(name, data string) (int, error) {
	return m.kobj.Store(name, data)
}

// Attributes lists the registered settings.
func (m *Module) Attributes() []kobj.Info {
	return m.kobj.List()
}

// Listing describes the namespace and its attributes.
type Listing struct {
	Path       string      `json:"path"`
	Attributes []kobj.Info `json:"attributes"`
}

func (m *Module) Listing() Listing {
	return Listing{
		Path:       m.Path(),
		Attributes: m.Attributes(),
	}
}

// Released reports whether Shutdown has run.
func (m *Module) Released() bool {
	return m.kobj.Released()
}

// Path returns the namespace location, e.g. "kernel/fast_charge".
func (m *Module) Path() string {
	return m.kobj.Path()
}

// Policy returns the underlying policy store.
func (m *Module) Policy() *policy.ChargePolicy {
	return m.policy
}
