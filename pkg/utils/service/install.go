package service

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

const unitTemplate = `[Unit]
Description=Forced fast charge control daemon
After=local-fs.target

[Service]
Type=simple
ExecStart=/path/to/fastchg daemon
Restart=on-failure

[Install]
WantedBy=multi-user.target
`

const unitName = "fastchg.service"

var (
	unitDir = "/etc/systemd/system"

	// systemctl is swapped out in tests.
	systemctl = func(args ...string) error {
		return exec.Command("systemctl", args...).Run()
	}
)

func unitPath() string {
	return filepath.Join(unitDir, unitName)
}

// renderUnit fills in the executable path and appends extra flags after the
// daemon subcommand.
func renderUnit(exePath string, flags []string) string {
	cmdline := exePath + " daemon"
	if len(flags) > 0 {
		cmdline += " " + strings.Join(flags, " ")
	}
	return strings.ReplaceAll(unitTemplate, "/path/to/fastchg daemon", cmdline)
}

// Install writes a systemd unit that runs the current executable as the
// daemon, then enables and starts it.
func Install(flags ...string) error {
	// Get the path to the current executable
	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get the path to the current executable: %w", err)
	}
	exePath, err = filepath.Abs(exePath)
	if err != nil {
		return fmt.Errorf("failed to get the absolute path to the current executable: %w", err)
	}

	err = os.Chmod(exePath, 0755)
	if err != nil {
		return fmt.Errorf("failed to chmod the current executable to 0755: %w", err)
	}

	logrus.Infof("current executable path: %s", exePath)

	logrus.Infof("writing systemd unit to %s", unitDir)

	err = os.MkdirAll(unitDir, 0755)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", unitDir, err)
	}

	// warn if the file already exists
	_, err = os.Stat(unitPath())
	if err == nil {
		logrus.Warnf("%s already exists, overwriting", unitPath())
	}

	err = os.WriteFile(unitPath(), []byte(renderUnit(exePath, flags)), 0644)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", unitPath(), err)
	}

	logrus.Infof("starting fastchg")

	if err := systemctl("daemon-reload"); err != nil {
		return fmt.Errorf("failed to reload systemd: %w", err)
	}
	if err := systemctl("enable", "--now", unitName); err != nil {
		return fmt.Errorf("failed to enable %s: %w", unitName, err)
	}

	return nil
}
