package main

import (
	"fmt"
	"os"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fastchg/fastchg/pkg/config"
	"github.com/fastchg/fastchg/pkg/utils/service"
)

func init() {
	commandGroups = append(commandGroups, gInstallation)
}

var gInstallation = "Installation:"

// NewInstallCommand .
func NewInstallCommand() *cobra.Command {
	allowNonRootAccess := false

	cmd := &cobra.Command{
		Use:     "install",
		Short:   "Install fastchg daemon (system-wide)",
		GroupID: gInstallation,
		Long: `Install fastchg daemon as a systemd service (system-wide).

This makes fastchg run in the background and automatically start on boot. You must run this command as root.

By default, only root is allowed to access the fastchg daemon. Use --allow-non-root-access to let other users change charge levels without sudo.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := config.NewFile(configPath)
			if err != nil {
				return err
			}

			conf.SetAllowNonRootAccess(allowNonRootAccess)
			if allowNonRootAccess {
				logrus.Info("non-root users are allowed to access the fastchg daemon.")
			} else {
				logrus.Info("only root user is allowed to access the fastchg daemon.")
			}

			err = conf.Save()
			if err != nil {
				return pkgerrors.Wrapf(err, "failed to save config")
			}

			err = service.Install("--config", configPath, "--daemon-socket", unixSocketPath)
			if err != nil {
				// check if current user is root
				if os.Geteuid() != 0 {
					logrus.Errorf("you must run this command as root")
				}
				return fmt.Errorf("failed to install daemon: %w", err)
			}

			logrus.Infof("installation succeeded")

			exePath, _ := os.Executable()

			cmd.Printf("systemd will use the current binary (%s) at startup, so do not move it. If it is moved or deleted, run `fastchg install' again.\n", exePath)

			return nil
		},
	}

	cmd.Flags().BoolVar(&allowNonRootAccess, "allow-non-root-access", false, "Allow non-root users to access fastchg daemon.")

	return cmd
}

// NewUninstallCommand .
func NewUninstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "uninstall",
		Short:   "Uninstall fastchg daemon (system-wide)",
		GroupID: gInstallation,
		Long: `Uninstall fastchg daemon from systemd (system-wide).

Charge policy lives in the daemon, so stopping it returns every setting to its default on the next start.

You must run this command as root.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := service.Uninstall()
			if err != nil {
				// check if current user is root
				if os.Geteuid() != 0 {
					logrus.Errorf("you must run this command as root")
				}
				return fmt.Errorf("failed to uninstall daemon: %w", err)
			}

			cmd.Println("successfully uninstalled")
			cmd.Printf("Your config is kept in %s. Remove it and fastchg itself manually for a complete uninstall.\n", configPath)

			return nil
		},
	}
}
