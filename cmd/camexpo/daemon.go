package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/camexpo/pkg/config"
	"github.com/charlie0129/camexpo/pkg/daemon"
	"github.com/charlie0129/camexpo/pkg/version"
)

var (
	// alwaysAllowNonRootAccess indicates whether to always allow non-root users to access the daemon.
	alwaysAllowNonRootAccess = false

	cameraName string
	cameraURL  string
	outputDir  string
)

// cameraOverrides returns the camera given on the command line, if any.
func cameraOverrides() ([]config.Camera, error) {
	if cameraURL == "" {
		if outputDir != "" {
			return nil, fmt.Errorf("--output-dir requires --camera-url")
		}
		return nil, nil
	}

	c := config.Camera{
		Name:      cameraName,
		URL:       cameraURL,
		OutputDir: outputDir,
	}
	if c.OutputDir == "" {
		c.OutputDir = c.Name
	}
	return []config.Camera{c}, nil
}

// NewDaemonCommand .
func NewDaemonCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "daemon",
		Short:   "Run camexpo daemon in the foreground",
		GroupID: gAdvanced,
		Long: `Run the capture and exposure loop for every configured camera, and serve the
control API on the daemon socket.

A single camera can be given on the command line instead of in the config file:

  camexpo daemon --camera-url http://192.168.1.20 --output-dir /data/patio`,
		RunE: func(_ *cobra.Command, _ []string) error {
			overrides, err := cameraOverrides()
			if err != nil {
				return err
			}

			logrus.WithFields(logrus.Fields{
				"version": version.Version,
				"commit":  version.GitCommit,
			}).Info("camexpo daemon starting")
			return daemon.Run(configPath, unixSocketPath, alwaysAllowNonRootAccess, overrides)
		},
	}

	f := cmd.Flags()

	f.BoolVar(&alwaysAllowNonRootAccess, "always-allow-non-root-access", false,
		"Always allow non-root users to access the daemon.")
	f.StringVar(&cameraURL, "camera-url", "",
		"Base URL of a camera, e.g. http://192.168.1.20. Replaces the cameras in the config file.")
	f.StringVar(&cameraName, "camera-name", "camera",
		"Name of the camera given by --camera-url.")
	f.StringVar(&outputDir, "output-dir", "",
		"Directory to store photos of the camera given by --camera-url. Defaults to the camera name.")

	return cmd
}
