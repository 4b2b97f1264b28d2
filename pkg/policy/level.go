package policy

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// MaxChargeLevel is the absolute ceiling in mA. Even with failsafe disabled,
// more is not allowed.
const MaxChargeLevel = 2100

// LevelRule describes how one source's current level is validated and
// rendered. Rules are values with unexported fields; callers get them from
// ACRule, USBRule and WirelessRule and cannot change the live lists.
type LevelRule struct {
	whitelist []int
	ceiling   int
	def       int
}

var (
	acRule = LevelRule{
		whitelist: []int{1000, 1100, 1200, 1300, 1400, 1500},
		ceiling:   MaxChargeLevel,
		def:       1000,
	}
	usbRule = LevelRule{
		whitelist: []int{475, 600, 700, 800, 900, 1000},
		ceiling:   MaxChargeLevel,
		def:       475,
	}
	wirelessRule = LevelRule{
		whitelist: []int{475, 600, 700, 800, 900, 1000},
		ceiling:   MaxChargeLevel,
		def:       475,
	}
)

func ACRule() LevelRule       { return acRule }
func USBRule() LevelRule      { return usbRule }
func WirelessRule() LevelRule { return wirelessRule }

// Whitelist returns a copy of the accepted levels under failsafe.
func (r LevelRule) Whitelist() []int {
	return slices.Clone(r.whitelist)
}

// Ceiling is the highest level accepted with failsafe disabled.
func (r LevelRule) Ceiling() int {
	return r.ceiling
}

// Default is the power-on level.
func (r LevelRule) Default() int {
	return r.def
}

// Allows reports whether v may be stored under the given failsafe state.
// With failsafe disabled anything up to the ceiling goes; everything else
// has to be on the whitelist.
func (r LevelRule) Allows(v int, fs Failsafe) bool {
	if fs == FailsafeDisabled && v <= r.ceiling {
		return true
	}
	return r.IsListed(v)
}

func (r LevelRule) IsListed(v int) bool {
	return slices.Contains(r.whitelist, v)
}

// Render lists the whitelist with the active value bracketed, or reports a
// custom value if it is not listed.
func (r LevelRule) Render(active int) string {
	if !r.IsListed(active) {
		return fmt.Sprintf("Custom : %dmA\n", active)
	}

	parts := make([]string, 0, len(r.whitelist))
	for _, v := range r.whitelist {
		if v == active {
			parts = append(parts, fmt.Sprintf("[%d]", v))
		} else {
			parts = append(parts, strconv.Itoa(v))
		}
	}

	return strings.Join(parts, "  ") + "\n"
}

// ParseValue parses a raw control-surface write as an unsigned decimal
// integer. Surrounding whitespace (echo adds a newline) is ignored.
func ParseValue(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}

	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil || v > math.MaxInt32 {
		return 0, false
	}

	return int(v), true
}
