package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fastchg/fastchg/pkg/events"
	"github.com/fastchg/fastchg/pkg/policy"
)

func setFailsafe(v policy.Failsafe) (string, error) {
	s, applied, err := writeAndVerify(policy.SettingFailsafe, int(v), func(s *policy.Snapshot) bool {
		return s.Failsafe == v
	})
	if err != nil {
		return "", err
	}
	if !applied {
		return "", fmt.Errorf("failsafe is still %s", s.Failsafe)
	}
	if v == policy.FailsafeEnabled {
		return fmt.Sprintf("ac level is %d mA, usb level is %d mA", s.ACLevel, s.USBLevel), nil
	}
	return "", nil
}

func NewFailsafeCommand() *cobra.Command {
	return newEnableDisableCommand(
		"failsafe",
		"Set whether charge levels are restricted to known safe values",
		`Set whether charge levels are restricted to known safe values.

With failsafe active (the default), ac-level, usb-level and wireless-level only
accept values from their safe lists. Enabling failsafe resets the AC level to
1000 mA and the USB level to 475 mA. The wireless level is left as it is.

With failsafe disabled, any level up to 2100 mA is accepted. Please be careful.`,
		func() (string, error) { return setFailsafe(policy.FailsafeEnabled) },
		func() (string, error) {
			ret, err := setFailsafe(policy.FailsafeDisabled)
			if err == nil {
				logrus.Warn(color.RedString("failsafe disabled - please be careful!"))
			}
			return ret, err
		},
	)
}

func NewGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "get [attribute]",
		Short:   "Print the raw value of an attribute",
		GroupID: gAdvanced,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := apiClient.ReadAttribute(args[0])
			if err != nil {
				return err
			}
			cmd.Print(v)
			return nil
		},
	}
}

func NewSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "set [attribute] [value]",
		Short:   "Write a raw value to an attribute",
		GroupID: gAdvanced,
		Long: `Write a raw value to an attribute.

The daemon acknowledges every write, including values it rejects. Read the
attribute back with 'fastchg get' to see what was applied.`,
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			n, err := apiClient.WriteAttribute(args[0], args[1])
			if err != nil {
				return err
			}
			logrus.Infof("daemon acknowledged %d bytes", n)
			return nil
		},
	}
}

func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Short:   "List attributes",
		GroupID: gAdvanced,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := apiClient.ListAttributes()
			if err != nil {
				return err
			}
			cmd.Println(bold("%s:", l.Path))
			for _, a := range l.Attributes {
				cmd.Printf("  %s  %s\n", a.Mode, a.Name)
			}
			return nil
		},
	}
}

func formatChange(ev events.PolicyChangedEvent) string {
	ts := time.Unix(ev.Ts, 0).Format(time.Kitchen)

	var diffs []string
	b, a := ev.Before, ev.After
	if b.Mode != a.Mode {
		diffs = append(diffs, fmt.Sprintf("mode %s -> %s", b.Mode, a.Mode))
	}
	if b.ACLevel != a.ACLevel {
		diffs = append(diffs, fmt.Sprintf("ac %d -> %d mA", b.ACLevel, a.ACLevel))
	}
	if b.USBLevel != a.USBLevel {
		diffs = append(diffs, fmt.Sprintf("usb %d -> %d mA", b.USBLevel, a.USBLevel))
	}
	if b.WirelessLevel != a.WirelessLevel {
		diffs = append(diffs, fmt.Sprintf("wireless %d -> %d mA", b.WirelessLevel, a.WirelessLevel))
	}
	if b.Failsafe != a.Failsafe {
		diffs = append(diffs, fmt.Sprintf("failsafe %s -> %s", b.Failsafe, a.Failsafe))
	}

	return fmt.Sprintf("%s %s: %s", ts, bold("%s", ev.Setting), strings.Join(diffs, ", "))
}

func NewWatchCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "watch",
		Short:   "Print policy changes as they happen",
		GroupID: gAdvanced,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ch, err := apiClient.SubscribeEvents(ctx)
			if err != nil {
				return err
			}

			for ev := range ch {
				if ev.Name != events.PolicyChanged {
					logrus.Debugf("ignoring event %s", ev.Name)
					continue
				}
				if asJSON {
					cmd.Println(string(ev.Data))
					continue
				}
				p, err := events.DecodeAs[events.PolicyChangedEvent](ev)
				if err != nil {
					logrus.Warnf("failed to decode event: %v", err)
					continue
				}
				cmd.Println(formatChange(p))
			}

			if ctx.Err() == nil {
				return fmt.Errorf("event stream closed by daemon")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw event payloads")

	return cmd
}
