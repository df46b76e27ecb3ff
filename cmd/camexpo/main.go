package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/charlie0129/camexpo/pkg/client"
	"github.com/charlie0129/camexpo/pkg/config"
	"github.com/charlie0129/camexpo/pkg/version"
)

var (
	logLevel       string
	unixSocketPath string
	configPath     string
)

var (
	gBasic        = "Basic:"
	gAdvanced     = "Advanced:"
	commandGroups = []string{
		gBasic,
		gAdvanced,
	}
)

// requestTimeout bounds a single CLI request to the daemon. Captures wait for a
// full cycle so this is generous.
const requestTimeout = time.Minute

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

func newClient() *client.Client {
	return client.NewClient(unixSocketPath)
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

func handleCmdError(err error) {
	if errors.Is(err, client.ErrDaemonNotRunning) {
		fmt.Fprintln(os.Stderr, "\nError: camexpo daemon is not running")
		fmt.Fprintf(os.Stderr, "Is the daemon running? Is it listening on %s?\n", unixSocketPath)
	} else if errors.Is(err, client.ErrPermissionDenied) {
		fmt.Fprintln(os.Stderr, "\nError: Permission Denied")
		fmt.Fprintln(os.Stderr, "  - Try running the command again with 'sudo'")
		fmt.Fprintln(os.Stderr, "  - Or restart the daemon with the '--always-allow-non-root-access' flag to grant permissions to your user")
	}
}

func main() {
	env, err := config.ParseEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cmd := NewCommand(env)
	if err := cmd.Execute(); err != nil {
		handleCmdError(err)
		os.Exit(1)
	}
}

func NewCommand(env config.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "camexpo",
		Short: "camexpo keeps networked cameras correctly exposed",
		Long: `camexpo periodically captures photos from ESP32-style cameras, stores them,
and steps each camera's exposure settings so that photos stay neither too dark
nor too bright.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := setupLogger(); err != nil {
				return err
			}

			// The daemon itself and offline commands do not need a version check.
			if cmd.GroupID != gBasic {
				return nil
			}

			ctx, cancel := requestContext()
			defer cancel()
			if daemonVersion, err := newClient().GetVersion(ctx); err == nil && daemonVersion != version.Version {
				logrus.WithFields(logrus.Fields{
					"clientVersion": version.Version,
					"daemonVersion": daemonVersion,
				}).Warn("Version mismatch between client and daemon.")
			}

			return nil
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", env.LogLevel, "log level (trace, debug, info, warn, error, fatal, panic) [$CAMEXPO_LOG_LEVEL]")
	globalFlags.StringVar(&configPath, "config", env.ConfigPath, "config file path [$CAMEXPO_CONFIG]")
	globalFlags.StringVar(&unixSocketPath, "daemon-socket", env.DaemonSocket, "camexpo daemon unix socket path [$CAMEXPO_DAEMON_SOCKET]")

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
		NewHistoryCommand(),
		NewCaptureCommand(),
		NewInstallCommand(),
		NewUninstallCommand(),
	)

	return cmd
}
