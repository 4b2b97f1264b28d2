package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/fastchg/fastchg/pkg/client"
	"github.com/fastchg/fastchg/pkg/version"
)

var (
	logLevel       = "info"
	unixSocketPath = "/run/fastchg.sock"
	configPath     = "/etc/fastchg.json"
)

var (
	gBasic        = "Basic:"
	gAdvanced     = "Advanced:"
	commandGroups = []string{
		gBasic,
		gAdvanced,
	}
)

// apiClient talks to the daemon on --daemon-socket. It is set up before any
// command runs.
var apiClient = client.NewClient(unixSocketPath)

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.Kitchen,
		})
	}

	return nil
}

func handleCmdError(err error) {
	if errors.Is(err, client.ErrDaemonNotRunning) {
		fmt.Fprintln(os.Stderr, "\nError: fastchg daemon is not running")
		fmt.Fprintln(os.Stderr, "Is the daemon running? Start it with 'fastchg daemon' or through your service manager.")
	} else if errors.Is(err, client.ErrPermissionDenied) {
		fmt.Fprintln(os.Stderr, "\nError: Permission Denied")
		fmt.Fprintln(os.Stderr, "  - Try running the command again with 'sudo'")
		fmt.Fprintln(os.Stderr, "  - Or restart the daemon with '--always-allow-non-root-access' to grant permissions to your user")
	}
}

func main() {
	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		handleCmdError(err)
		os.Exit(1)
	}
}

// getVersion returns the client and daemon versions.
func getVersion() (string, string, error) {
	daemonVersion, err := apiClient.GetVersion()
	if err != nil {
		return "", "", err
	}
	return version.Version, daemonVersion, nil
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fastchg",
		Short: "fastchg controls forced fast charging policy",
		Long: `fastchg controls forced fast charging policy.

The daemon exposes the fast charge attributes (force_fast_charge,
ac_charge_level, usb_charge_level, wireless_charge_level, failsafe and
version) under kernel/fast_charge. This tool reads and writes them.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			err := setupLogger()
			if err != nil {
				return err
			}

			apiClient = client.NewClient(unixSocketPath)

			// The daemon cannot be asked about itself before it starts.
			if cmd.Name() == "daemon" || cmd.Name() == "version" {
				return nil
			}

			if clientVersion, daemonVersion, err := getVersion(); err == nil {
				if daemonVersion != clientVersion {
					logrus.WithFields(logrus.Fields{
						"clientVersion": clientVersion,
						"daemonVersion": daemonVersion,
					}).Warn("Version mismatch between client and daemon. fastchg may not work as expected. Restart the daemon after upgrading.")
				}
			} else if errors.Is(err, client.ErrNotFound) {
				logrus.Error("fastchg daemon is too old to report its version. Restart the daemon after upgrading.")
			}

			return nil
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	globalFlags.StringVar(&configPath, "config", configPath, "config file path")
	globalFlags.StringVar(&unixSocketPath, "daemon-socket", unixSocketPath, "fastchg daemon unix socket path")

	for _, i := range commandGroups {
		cmd.AddGroup(&cobra.Group{
			ID:    i,
			Title: i,
		})
	}

	cmd.AddCommand(
		NewDaemonCommand(),
		NewVersionCommand(),
		NewStatusCommand(),
		NewModeCommand(),
		NewACLevelCommand(),
		NewUSBLevelCommand(),
		NewWirelessLevelCommand(),
		NewFailsafeCommand(),
		NewGetCommand(),
		NewSetCommand(),
		NewListCommand(),
		NewWatchCommand(),
		NewInstallCommand(),
		NewUninstallCommand(),
	)

	return cmd
}
