package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	DefaultUnitPath = "/etc/systemd/system/camexpo.service"
	unitName        = "camexpo.service"
)

const unitTemplate = `[Unit]
Description=camexpo camera exposure daemon
Wants=network-online.target
After=network-online.target

[Service]
Type=simple
ExecStart={{exec}}
Restart=on-failure
RestartSec=5

[Install]
WantedBy=multi-user.target
`

// Installer manages the systemd unit running the daemon.
type Installer struct {
	UnitPath string
	// Systemctl runs systemctl with the given arguments.
	Systemctl func(args ...string) error
}

func NewInstaller() *Installer {
	return &Installer{
		UnitPath: DefaultUnitPath,
		Systemctl: func(args ...string) error {
			out, err := exec.Command("systemctl", args...).CombinedOutput()
			if err != nil {
				return fmt.Errorf("systemctl %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
			}
			return nil
		},
	}
}

// execArg escapes a for an ExecStart= line. systemd expands % specifiers
// and $ variables on that line, so both are doubled.
func execArg(a string) string {
	a = strings.NewReplacer("%", "%%", "$", "$$").Replace(a)
	if strings.ContainsAny(a, " \t\"\\") {
		a = `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(a) + `"`
	}
	return a
}

// UnitFile renders the unit that runs exePath with daemonArgs.
func UnitFile(exePath string, daemonArgs []string) string {
	parts := []string{execArg(exePath), "daemon"}
	for _, a := range daemonArgs {
		parts = append(parts, execArg(a))
	}
	return strings.ReplaceAll(unitTemplate, "{{exec}}", strings.Join(parts, " "))
}

// Install writes the unit for the current executable, then enables and
// starts it.
func (i *Installer) Install(daemonArgs []string) error {
	// Get the path to the current executable
	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get the path to the current executable: %w", err)
	}
	exePath, err = filepath.Abs(exePath)
	if err != nil {
		return fmt.Errorf("failed to get the absolute path to the current executable: %w", err)
	}

	logrus.Infof("current executable path: %s", exePath)

	return i.install(exePath, daemonArgs)
}

func (i *Installer) install(exePath string, daemonArgs []string) error {
	logrus.Infof("writing systemd unit to %s", i.UnitPath)

	err := os.MkdirAll(filepath.Dir(i.UnitPath), 0755)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(i.UnitPath), err)
	}

	// warn if the file already exists
	_, err = os.Stat(i.UnitPath)
	if err == nil {
		logrus.Warnf("%s already exists, overwriting", i.UnitPath)
	}

	err = os.WriteFile(i.UnitPath, []byte(UnitFile(exePath, daemonArgs)), 0644)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", i.UnitPath, err)
	}

	if err := i.Systemctl("daemon-reload"); err != nil {
		return err
	}

	logrus.Infof("starting camexpo")

	if err := i.Systemctl("enable", "--now", unitName); err != nil {
		return fmt.Errorf("failed to start %s: %w", unitName, err)
	}

	return nil
}
