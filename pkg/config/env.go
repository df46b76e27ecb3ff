package config

import (
	"github.com/caarlos0/env/v11"
	pkgerrors "github.com/pkg/errors"
)

// Env holds settings that can come from the environment. Command line flags
// take precedence.
type Env struct {
	ConfigPath   string `env:"CAMEXPO_CONFIG"        envDefault:"/etc/camexpo.json"`
	DaemonSocket string `env:"CAMEXPO_DAEMON_SOCKET" envDefault:"/var/run/camexpo.sock"`
	LogLevel     string `env:"CAMEXPO_LOG_LEVEL"     envDefault:"info"`
}

// ParseEnv reads Env from the process environment.
func ParseEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, pkgerrors.Wrapf(err, "failed to parse environment")
	}
	return e, nil
}
