package main

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fastchg/fastchg/pkg/policy"
)

func parseIntArg(args []string, valueName string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("invalid number of arguments")
	}

	value, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", valueName, err)
	}

	return value, nil
}

// writeAndVerify writes value to attr and reads the policy back. The daemon
// acknowledges every write, so the snapshot is the only way to tell whether
// the value was taken.
func writeAndVerify(attr string, value int, applied func(*policy.Snapshot) bool) (*policy.Snapshot, bool, error) {
	n, err := apiClient.WriteAttribute(attr, strconv.Itoa(value))
	if err != nil {
		return nil, false, err
	}
	logrus.Debugf("daemon acknowledged %d bytes for %s", n, attr)

	s, err := apiClient.GetPolicy()
	if err != nil {
		return nil, false, err
	}

	return s, applied(s), nil
}

// rejectionHint explains why a level was not applied.
func rejectionHint(rule policy.LevelRule, level int, s *policy.Snapshot) string {
	if level > rule.Ceiling() {
		return fmt.Sprintf("%d mA is above the %d mA ceiling", level, rule.Ceiling())
	}
	if s.Failsafe == policy.FailsafeEnabled {
		return fmt.Sprintf("failsafe is active, allowed values are %v (run 'fastchg failsafe disable' to use custom values)", rule.Whitelist())
	}
	return "the daemon rejected the value"
}

func newEnableDisableCommand(
	use, short, long string,
	enableFunc func() (string, error),
	disableFunc func() (string, error),
) *cobra.Command {
	cmd := &cobra.Command{
		Use:     use,
		Short:   short,
		Long:    long,
		GroupID: gAdvanced,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "enable",
			Short: "Enable " + use,
			RunE: func(_ *cobra.Command, _ []string) error {
				ret, err := enableFunc()
				if err != nil {
					return fmt.Errorf("failed to enable %s: %w", use, err)
				}
				if ret != "" {
					logrus.Infof("daemon responded: %s", ret)
				}
				logrus.Infof("successfully enabled %s", use)
				return nil
			},
		},
		&cobra.Command{
			Use:   "disable",
			Short: "Disable " + use,
			RunE: func(_ *cobra.Command, _ []string) error {
				ret, err := disableFunc()
				if err != nil {
					return fmt.Errorf("failed to disable %s: %w", use, err)
				}
				if ret != "" {
					logrus.Infof("daemon responded: %s", ret)
				}
				logrus.Infof("successfully disabled %s", use)
				return nil
			},
		},
	)

	return cmd
}
