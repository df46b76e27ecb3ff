package daemon

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

func (i *Installer) Uninstall() error {
	logrus.Infof("stopping camexpo")

	err := i.Systemctl("disable", "--now", unitName)
	if err != nil {
		return fmt.Errorf("failed to stop %s: %w. Are you root?", unitName, err)
	}

	logrus.Infof("removing systemd unit")

	// if the file doesn't exist, we don't need to remove it
	_, err = os.Stat(i.UnitPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", i.UnitPath, err)
	}

	err = os.Remove(i.UnitPath)
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w. Are you root?", i.UnitPath, err)
	}

	return i.Systemctl("daemon-reload")
}
