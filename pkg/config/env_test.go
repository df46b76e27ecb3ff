package config

import (
	"os"
	"testing"
)

func TestParseEnv(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want Env
	}{
		{
			name: "defaults",
			want: Env{ConfigPath: "/etc/camexpo.json", DaemonSocket: "/var/run/camexpo.sock", LogLevel: "info"},
		},
		{
			name: "overrides",
			env: map[string]string{
				"CAMEXPO_CONFIG":        "/tmp/camexpo.json",
				"CAMEXPO_DAEMON_SOCKET": "/tmp/camexpo.sock",
				"CAMEXPO_LOG_LEVEL":     "debug",
			},
			want: Env{ConfigPath: "/tmp/camexpo.json", DaemonSocket: "/tmp/camexpo.sock", LogLevel: "debug"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"CAMEXPO_CONFIG", "CAMEXPO_DAEMON_SOCKET", "CAMEXPO_LOG_LEVEL"} {
				v, ok := tt.env[k]
				// Setenv registers the restore, Unsetenv leaves the variable unset.
				t.Setenv(k, v)
				if !ok {
					_ = os.Unsetenv(k)
				}
			}
			got, err := ParseEnv()
			if err != nil {
				t.Fatalf("ParseEnv() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseEnv() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
