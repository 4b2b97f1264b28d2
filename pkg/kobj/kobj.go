// Package kobj is a small in-process model of a sysfs attribute tree. A
// Kobject is a named directory holding attributes; each attribute renders
// its value on Show and absorbs raw input on Store.
package kobj

import (
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrNotFound is returned when no attribute with the given name is registered.
	ErrNotFound = errors.New("no such attribute")

	// ErrPermission is returned when writing an attribute that has no store handler.
	ErrPermission = errors.New("attribute is not writable")

	// ErrReleased is returned for any access after Put.
	ErrReleased = errors.New("kobject released")

	// ErrExists is returned when registering an attribute name twice.
	ErrExists = errors.New("attribute already exists")

	// ErrInvalid is returned when registering a malformed attribute.
	ErrInvalid = errors.New("invalid attribute")
)

// Common attribute permissions.
const (
	PermRW os.FileMode = 0666
	PermRO os.FileMode = 0444
)

// Attribute is a single named value. Store may be set even on a read-only
// attribute, in which case writes are acknowledged and ignored by the
// handler itself.
type Attribute struct {
	Name  string
	Perm  os.FileMode
	Show  func() string
	Store func(data string)
}

// Group bundles attributes registered together.
type Group struct {
	Name  string
	Attrs []Attribute
}

// Info describes a registered attribute.
type Info struct {
	Name string `json:"name"`
	Mode string `json:"mode"`
}

// Kobject is a named node holding attributes. It is safe for concurrent use.
type Kobject struct {
	name   string
	parent string

	mu       *sync.RWMutex
	attrs    map[string]Attribute
	released bool
}

// New creates a kobject called name under parent, e.g. "fast_charge" under
// "kernel".
func New(name, parent string) (*Kobject, error) {
	if !validName(name) {
		return nil, fmt.Errorf("%w: kobject name %q", ErrInvalid, name)
	}

	return &Kobject{
		name:   name,
		parent: parent,
		mu:     &sync.RWMutex{},
		attrs:  make(map[string]Attribute),
	}, nil
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, "/\x00")
}

// Name returns the kobject name.
func (k *Kobject) Name() string {
	return k.name
}

// Path returns the kobject location, e.g. "kernel/fast_charge".
func (k *Kobject) Path() string {
	return path.Join(k.parent, k.name)
}

// CreateGroup registers every attribute in g. It is all or nothing: if any
// attribute is invalid or already present, nothing from g is registered.
func (k *Kobject) CreateGroup(g Group) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.released {
		return ErrReleased
	}

	seen := make(map[string]struct{}, len(g.Attrs))
	for _, a := range g.Attrs {
		if !validName(a.Name) || a.Show == nil {
			return fmt.Errorf("%w: %q in group %q", ErrInvalid, a.Name, g.Name)
		}
		if _, ok := k.attrs[a.Name]; ok {
			return fmt.Errorf("%w: %q", ErrExists, a.Name)
		}
		if _, ok := seen[a.Name]; ok {
			return fmt.Errorf("%w: %q listed twice in group %q", ErrExists, a.Name, g.Name)
		}
		seen[a.Name] = struct{}{}
	}

	for _, a := range g.Attrs {
		k.attrs[a.Name] = a
	}

	return nil
}

// Show renders the named attribute.
func (k *Kobject) Show(name string) (string, error) {
	a, err := k.lookup(name)
	if err != nil {
		return "", err
	}
	return a.Show(), nil
}

// Store hands data to the named attribute and returns len(data). The count
// is returned whether or not the handler applied the value; only a
// following Show tells the two apart.
func (k *Kobject) Store(name, data string) (int, error) {
	a, err := k.lookup(name)
	if err != nil {
		return 0, err
	}
	if a.Store == nil {
		return 0, fmt.Errorf("%w: %q", ErrPermission, name)
	}
	a.Store(data)
	return len(data), nil
}

func (k *Kobject) lookup(name string) (Attribute, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.released {
		return Attribute{}, ErrReleased
	}
	a, ok := k.attrs[name]
	if !ok {
		return Attribute{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return a, nil
}

// List returns registered attributes sorted by name.
func (k *Kobject) List() []Info {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.released {
		return nil
	}

	ret := make([]Info, 0, len(k.attrs))
	for _, a := range k.attrs {
		ret = append(ret, Info{Name: a.Name, Mode: a.Perm.String()})
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Name < ret[j].Name })

	return ret
}

// Put releases the kobject and drops every attribute. Calling it more than
// once is harmless.
func (k *Kobject) Put() {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.released = true
	k.attrs = make(map[string]Attribute)
}

// Released reports whether Put has been called.
func (k *Kobject) Released() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.released
}
