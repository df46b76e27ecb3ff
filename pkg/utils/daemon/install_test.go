package daemon

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestUnitFile(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantExec string
	}{
		{
			name:     "no args",
			wantExec: "ExecStart=/usr/local/bin/camexpo daemon\n",
		},
		{
			name:     "args",
			args:     []string{"--config", "/etc/camexpo.json", "--log-level", "debug"},
			wantExec: "ExecStart=/usr/local/bin/camexpo daemon --config /etc/camexpo.json --log-level debug\n",
		},
		{
			name:     "quoted",
			args:     []string{"--output-dir", "/data/my photos"},
			wantExec: "ExecStart=/usr/local/bin/camexpo daemon --output-dir \"/data/my photos\"\n",
		},
		{
			name:     "percent",
			args:     []string{"--output-dir", "/data/100%"},
			wantExec: "ExecStart=/usr/local/bin/camexpo daemon --output-dir /data/100%%\n",
		},
		{
			name:     "dollar",
			args:     []string{"--config", "/etc/$HOME.json"},
			wantExec: "ExecStart=/usr/local/bin/camexpo daemon --config /etc/$$HOME.json\n",
		},
		{
			name:     "percent quoted",
			args:     []string{"--output-dir", `/data/50% "dim"`},
			wantExec: "ExecStart=/usr/local/bin/camexpo daemon --output-dir \"/data/50%% \\\"dim\\\"\"\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UnitFile("/usr/local/bin/camexpo", tt.args)
			if !strings.Contains(got, tt.wantExec) {
				t.Errorf("UnitFile() = %s, want line %q", got, tt.wantExec)
			}
		})
	}
}

func TestInstallUninstall(t *testing.T) {
	var calls []string
	i := &Installer{
		UnitPath: filepath.Join(t.TempDir(), "system", "camexpo.service"),
		Systemctl: func(args ...string) error {
			calls = append(calls, strings.Join(args, " "))
			return nil
		},
	}

	if err := i.install("/usr/bin/camexpo", nil); err != nil {
		t.Fatalf("install() error = %v", err)
	}
	b, err := os.ReadFile(i.UnitPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "ExecStart=/usr/bin/camexpo daemon") {
		t.Errorf("unit = %s", b)
	}

	if err := i.Uninstall(); err != nil {
		t.Fatalf("Uninstall() error = %v", err)
	}
	if _, err := os.Stat(i.UnitPath); !os.IsNotExist(err) {
		t.Errorf("unit still exists: %v", err)
	}

	want := []string{
		"daemon-reload",
		"enable --now camexpo.service",
		"disable --now camexpo.service",
		"daemon-reload",
	}
	if !reflect.DeepEqual(calls, want) {
		t.Errorf("systemctl calls = %v, want %v", calls, want)
	}
}

func TestInstallSystemctlFailure(t *testing.T) {
	i := &Installer{
		UnitPath:  filepath.Join(t.TempDir(), "camexpo.service"),
		Systemctl: func(...string) error { return errors.New("boom") },
	}
	if err := i.install("/usr/bin/camexpo", nil); err == nil {
		t.Error("install() expected error")
	}
}
