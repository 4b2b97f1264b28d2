package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/distatus/battery"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fastchg/fastchg/pkg/config"
	"github.com/fastchg/fastchg/pkg/fastcharge"
	"github.com/fastchg/fastchg/pkg/policy"
)

type statusData struct {
	policy   *policy.Snapshot
	modeText string
	// batteryInfo is nil on machines without a battery.
	batteryInfo *battery.Battery
	config      *config.RawFileConfig
}

// fetchStatusData gathers all data required for the status command from the daemon.
func fetchStatusData() (*statusData, error) {
	s, err := apiClient.GetPolicy()
	if err != nil {
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}

	modeText, err := apiClient.ReadAttribute(policy.SettingMode)
	if err != nil {
		return nil, fmt.Errorf("failed to get mode: %w", err)
	}

	conf, err := apiClient.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get config: %w", err)
	}

	bat, err := apiClient.GetBatteryInfo()
	if err != nil {
		logrus.Debugf("battery info unavailable: %v", err)
		bat = nil
	}

	return &statusData{
		policy:      s,
		modeText:    strings.TrimSpace(modeText),
		batteryInfo: bat,
		config:      conf,
	}, nil
}

type statusJSON struct {
	Policy        policy.Snapshot       `json:"policy"`
	Battery       *statusBatteryJSON    `json:"battery,omitempty"`
	Configuration *config.RawFileConfig `json:"configuration"`
}

type statusBatteryJSON struct {
	CurrentChargePercent int     `json:"currentChargePercent"`
	State                string  `json:"state"`
	FullCapacityMwh      float64 `json:"fullCapacityMwh"`
	ChargeRateWatts      float64 `json:"chargeRateWatts"`
	VoltageVolts         float64 `json:"voltageVolts"`
}

func currentCharge(bat *battery.Battery) int {
	if bat.Full <= 0 {
		return 0
	}
	return int(bat.Current / bat.Full * 100)
}

func printStatusJSON(cmd *cobra.Command, data *statusData) error {
	out := statusJSON{
		Policy:        *data.policy,
		Configuration: data.config,
	}
	if bat := data.batteryInfo; bat != nil {
		out.Battery = &statusBatteryJSON{
			CurrentChargePercent: currentCharge(bat),
			State:                bat.State.String(),
			FullCapacityMwh:      bat.Full,
			ChargeRateWatts:      bat.ChargeRate / 1e3,
			VoltageVolts:         bat.Voltage,
		}
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(b))
	return nil
}

func NewStatusCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "status",
		GroupID: gBasic,
		Short:   "Get the current status of fastchg",
		Long: `Get the current fast charge policy, battery status and daemon configuration.

Use --json to print machine readable output.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := fetchStatusData()
			if err != nil {
				return err
			}

			if asJSON {
				return printStatusJSON(cmd, data)
			}

			p := data.policy

			// Policy.
			cmd.Println(bold("Fast charge policy:"))
			cmd.Printf("  Mode: %s\n", bold("%s", data.modeText))
			cmd.Printf("  AC level: %s\n", bold("%d mA", p.ACLevel))
			cmd.Printf("  USB level: %s\n", bold("%d mA", p.USBLevel))
			cmd.Printf("  Wireless level: %s\n", bold("%d mA", p.WirelessLevel))
			cmd.Printf("  Failsafe: %s\n", bool2Text(p.Failsafe == policy.FailsafeEnabled))
			if p.Failsafe == policy.FailsafeDisabled {
				cmd.Println("    " + color.New(color.Bold, color.FgRed).Sprint("Failsafe disabled - please be careful!"))
				cmd.Printf("    Levels up to %d mA are accepted without checks.\n", policy.MaxChargeLevel)
			}

			cmd.Println()

			// Battery Info.
			cmd.Println(bold("Battery status:"))
			if bat := data.batteryInfo; bat != nil {
				cmd.Printf("  Current charge: %s\n", bold("%d%%", currentCharge(bat)))

				state := "not charging"
				switch bat.State {
				case battery.Charging:
					state = color.GreenString("charging")
				case battery.Discharging:
					if bat.ChargeRate != 0 {
						state = color.RedString("discharging")
					}
				case battery.Full:
					state = "full"
				}
				cmd.Printf("  State: %s\n", bold("%s", state))

				// Charge rate in Watts with sign (+ charging, - discharging).
				watts := bat.ChargeRate / 1e3
				var rateStr string
				switch {
				case watts > 0:
					rateStr = color.New(color.Bold, color.FgGreen).Sprintf("%+.1f W", watts)
				case watts < 0:
					rateStr = color.New(color.Bold, color.FgRed).Sprintf("%+.1f W", watts)
				default:
					rateStr = bold("%+.1f W", watts)
				}
				cmd.Printf("  Charge rate: %s\n", rateStr)
				cmd.Printf("  Voltage: %s\n", bold("%.2f V", bat.Voltage))
			} else {
				cmd.Println("  No battery found")
			}

			cmd.Println()

			// Config.
			conf := config.NewFileFromConfig(data.config, "")
			cmd.Println(bold("Daemon configuration:"))
			cmd.Printf("  Namespace: %s\n", bold("%s/%s", fastcharge.Parent, conf.Namespace()))
			if disabled := conf.DisabledAttributes(); len(disabled) > 0 {
				cmd.Printf("  Disabled attributes: %s\n", bold("%s", strings.Join(disabled, ", ")))
			}
			cmd.Printf("  Allow non-root users to access the daemon: %s\n", bool2Text(conf.AllowNonRootAccess()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print status as JSON")

	return cmd
}

func bool2Text(b bool) string {
	if b {
		return color.New(color.Bold, color.FgGreen).Sprint("✔")
	}
	return color.New(color.Bold, color.FgRed).Sprint("✘")
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}
