package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fastchg/fastchg/pkg/policy"
	"github.com/fastchg/fastchg/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)
		},
	}
}

func NewModeCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "mode [0|1|2]",
		Short:   "Set forced fast charge mode",
		GroupID: gBasic,
		Long: `Set forced fast charge mode.

  0 - Disabled (default)
  1 - Use stock AC level on USB
  2 - Use custom mA on AC and USB (see ac-level and usb-level)`,
		RunE: func(_ *cobra.Command, args []string) error {
			mode, err := parseIntArg(args, "mode")
			if err != nil {
				return err
			}

			s, applied, err := writeAndVerify(policy.SettingMode, mode, func(s *policy.Snapshot) bool {
				return int(s.Mode) == mode
			})
			if err != nil {
				return fmt.Errorf("failed to set mode: %w", err)
			}

			if !applied {
				return fmt.Errorf("mode %d was not applied, mode is still %d (%s)", mode, s.Mode, s.Mode)
			}

			logrus.Infof("successfully set fast charge mode to %d (%s)", mode, s.Mode)

			return nil
		},
	}
}

func newLevelCommand(use, attr, short, long string, rule policy.LevelRule, current func(*policy.Snapshot) int) *cobra.Command {
	return &cobra.Command{
		Use:     use + " [mA]",
		Short:   short,
		Long:    long,
		GroupID: gBasic,
		RunE: func(_ *cobra.Command, args []string) error {
			level, err := parseIntArg(args, "charge level")
			if err != nil {
				return err
			}

			s, applied, err := writeAndVerify(attr, level, func(s *policy.Snapshot) bool {
				return current(s) == level
			})
			if err != nil {
				return fmt.Errorf("failed to set %s: %w", use, err)
			}

			if !applied {
				return fmt.Errorf("%d mA was not applied, %s is still %d mA: %s", level, use, current(s), rejectionHint(rule, level, s))
			}

			logrus.Infof("successfully set %s to %d mA", use, level)
			if s.Failsafe == policy.FailsafeDisabled && !rule.IsListed(level) {
				logrus.Warnf("%d mA is a custom value, failsafe is disabled", level)
			}

			return nil
		},
	}
}

func NewACLevelCommand() *cobra.Command {
	return newLevelCommand(
		"ac-level",
		policy.SettingACLevel,
		"Set AC charge level",
		`Set AC charge level in mA.

With failsafe active, only 1000, 1100, 1200, 1300, 1400 and 1500 are accepted.
With failsafe disabled, any value up to 2100 is accepted.

The level is used when mode is 2.`,
		policy.ACRule(),
		func(s *policy.Snapshot) int { return s.ACLevel },
	)
}

func NewUSBLevelCommand() *cobra.Command {
	return newLevelCommand(
		"usb-level",
		policy.SettingUSBLevel,
		"Set USB charge level",
		`Set USB charge level in mA.

With failsafe active, only 475, 600, 700, 800, 900 and 1000 are accepted.
With failsafe disabled, any value up to 2100 is accepted.

The level is used when mode is 2.`,
		policy.USBRule(),
		func(s *policy.Snapshot) int { return s.USBLevel },
	)
}

func NewWirelessLevelCommand() *cobra.Command {
	return newLevelCommand(
		"wireless-level",
		policy.SettingWirelessLevel,
		"Set wireless charge level",
		`Set wireless charge level in mA.

With failsafe active, only 475, 600, 700, 800, 900 and 1000 are accepted.
With failsafe disabled, any value up to 2100 is accepted. Enabling failsafe
does not reset this level.`,
		policy.WirelessRule(),
		func(s *policy.Snapshot) int { return s.WirelessLevel },
	)
}
