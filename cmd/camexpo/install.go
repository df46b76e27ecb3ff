package main

import (
	"fmt"
	"os"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/camexpo/pkg/config"
	daemonutils "github.com/charlie0129/camexpo/pkg/utils/daemon"
)

var gInstallation = "Installation:"

func init() {
	commandGroups = append(commandGroups, gInstallation)
}

type installOptions struct {
	allowNonRootAccess bool
	interval           time.Duration
	name, url, dir     string
}

// updateConfig applies the install flags to conf and validates the result.
func updateConfig(conf config.Config, o installOptions) error {
	if o.url != "" {
		c := config.Camera{Name: o.name, URL: o.url, OutputDir: o.dir}
		if c.OutputDir == "" {
			c.OutputDir = c.Name
		}
		conf.SetCameras(append(conf.Cameras(), c))
	}
	if o.interval != 0 {
		if o.interval < time.Second {
			return fmt.Errorf("interval must be at least 1s, got %s", o.interval)
		}
		conf.SetInterval(o.interval)
	}
	conf.SetAllowNonRootAccess(o.allowNonRootAccess)

	if err := conf.Validate(); err != nil {
		return pkgerrors.Wrapf(err, "refusing to install with an invalid config")
	}
	return nil
}

// NewInstallCommand .
func NewInstallCommand() *cobra.Command {
	var o installOptions

	cmd := &cobra.Command{
		Use:     "install",
		Short:   "Install camexpo as a systemd service",
		GroupID: gInstallation,
		Long: `Install camexpo daemon as a systemd service.

This makes camexpo run in the background and automatically start on boot. You must run this command as root.

Cameras are read from the config file. A camera given with --camera-url is added to the config file before installing.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := config.NewFile(configPath)
			if err != nil {
				return err
			}

			if err := updateConfig(conf, o); err != nil {
				return err
			}

			if o.allowNonRootAccess {
				logrus.Info("non-root users are allowed to access the camexpo daemon.")
			} else {
				logrus.Info("only root user is allowed to access the camexpo daemon.")
			}

			err = conf.Save()
			if err != nil {
				return pkgerrors.Wrapf(err, "failed to save config")
			}

			err = daemonutils.NewInstaller().Install([]string{
				"--config", configPath,
				"--daemon-socket", unixSocketPath,
				"--log-level", logLevel,
			})
			if err != nil {
				// check if current user is root
				if os.Geteuid() != 0 {
					logrus.Errorf("you must run this command as root")
				}
				return fmt.Errorf("failed to install daemon: %v. Are you root?", err)
			}

			logrus.Infof("installation succeeded")

			exePath, _ := os.Executable()

			cmd.Printf("systemd will use current binary (%s) at startup so please make sure you do not move this binary. Once this binary is moved or deleted, you will need to run `camexpo install' again.\n", exePath)

			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&o.allowNonRootAccess, "allow-non-root-access", false, "Allow non-root users to access camexpo daemon.")
	f.DurationVar(&o.interval, "interval", 0, "Time between the start of two capture cycles, e.g. 30s. Kept from the config file if not set.")
	f.StringVar(&o.url, "camera-url", "", "Base URL of a camera to add to the config file.")
	f.StringVar(&o.name, "camera-name", "camera", "Name of the camera given by --camera-url.")
	f.StringVar(&o.dir, "output-dir", "", "Directory to store photos of the camera given by --camera-url.")

	return cmd
}

// NewUninstallCommand .
func NewUninstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "uninstall",
		Short:   "Uninstall camexpo systemd service",
		GroupID: gInstallation,
		Long: `Stop camexpo daemon and remove its systemd service.

Captured photos, capture history and the config file are kept. You must run this command as root.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			err := daemonutils.NewInstaller().Uninstall()
			if err != nil {
				// check if current user is root
				if os.Geteuid() != 0 {
					logrus.Errorf("you must run this command as root")
				}
				return fmt.Errorf("failed to uninstall daemon: %v", err)
			}

			logrus.Infof("successfully uninstalled camexpo")
			return nil
		},
	}
}
