package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/charlie0129/camexpo/pkg/utils/ptr"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	fn := filepath.Join(t.TempDir(), "camexpo.json")
	if err := os.WriteFile(fn, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return fn
}

func TestNewFileDefaults(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{name: "missing file", path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.json") }},
		{name: "empty file", path: func(t *testing.T) string { return writeConfig(t, "  \n") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFile(tt.path(t))
			if err != nil {
				t.Fatalf("NewFile() error = %v", err)
			}
			if got := f.Interval(); got != 10*time.Second {
				t.Errorf("Interval() = %v, want 10s", got)
			}
			if got := f.HistoryDB(); got != "" {
				t.Errorf("HistoryDB() = %q, want empty", got)
			}
			if got := f.RetentionSchedule(); got != "@daily" {
				t.Errorf("RetentionSchedule() = %q, want @daily", got)
			}
			if got := f.HTTPTimeout(); got != 0 {
				t.Errorf("HTTPTimeout() = %v, want 0", got)
			}
			if len(f.Cameras()) != 0 {
				t.Errorf("Cameras() = %v, want none", f.Cameras())
			}
			if err := f.Validate(); err == nil {
				t.Error("Validate() expected error without cameras")
			}
		})
	}
}

func TestNewFileParses(t *testing.T) {
	fn := writeConfig(t, `{
  "cameras": [
    {"name": "patio", "url": "http://esppatio.local:8080"},
    {"name": "garage", "url": "http://192.168.1.20", "outputDir": "/data/garage"}
  ],
  "intervalSeconds": 30,
  "historyDB": "/tmp/history.db",
  "retentionDays": 14,
  "retentionSchedule": "0 3 * * *",
  "httpTimeoutSeconds": 5
}`)

	f, err := NewFile(fn)
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}

	want := []Camera{
		{Name: "patio", URL: "http://esppatio.local:8080", OutputDir: "patio"},
		{Name: "garage", URL: "http://192.168.1.20", OutputDir: "/data/garage"},
	}
	if got := f.Cameras(); !reflect.DeepEqual(got, want) {
		t.Errorf("Cameras() = %v, want %v", got, want)
	}
	if got := f.Interval(); got != 30*time.Second {
		t.Errorf("Interval() = %v, want 30s", got)
	}
	if got := f.RetentionDays(); got != 14 {
		t.Errorf("RetentionDays() = %d, want 14", got)
	}
	if got := f.HTTPTimeout(); got != 5*time.Second {
		t.Errorf("HTTPTimeout() = %v, want 5s", got)
	}
	if err := f.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestNewFileInvalidJSON(t *testing.T) {
	if _, err := NewFile(writeConfig(t, "{")); err == nil {
		t.Error("NewFile() expected error for invalid json")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		raw     *RawFileConfig
		wantErr bool
	}{
		{
			name: "ok",
			raw:  &RawFileConfig{Cameras: []Camera{{Name: "a", URL: "http://a.local"}}},
		},
		{
			name:    "missing name",
			raw:     &RawFileConfig{Cameras: []Camera{{URL: "http://a.local"}}},
			wantErr: true,
		},
		{
			name:    "duplicate name",
			raw:     &RawFileConfig{Cameras: []Camera{{Name: "a", URL: "http://a.local"}, {Name: "a", URL: "http://b.local"}}},
			wantErr: true,
		},
		{
			name:    "bad scheme",
			raw:     &RawFileConfig{Cameras: []Camera{{Name: "a", URL: "ftp://a.local"}}},
			wantErr: true,
		},
		{
			name:    "no host",
			raw:     &RawFileConfig{Cameras: []Camera{{Name: "a", URL: "esppatio.local:8080"}}},
			wantErr: true,
		},
		{
			name: "bad retention schedule",
			raw: &RawFileConfig{
				Cameras:           []Camera{{Name: "a", URL: "http://a.local"}},
				RetentionDays:     ptr.To(3),
				RetentionSchedule: ptr.To("whenever"),
			},
			wantErr: true,
		},
		{
			name: "bad retention schedule ignored when disabled",
			raw: &RawFileConfig{
				Cameras:           []Camera{{Name: "a", URL: "http://a.local"}},
				RetentionSchedule: ptr.To("whenever"),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewFileFromConfig(tt.raw, "").Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "camexpo.json")
	f := NewFileFromConfig(nil, fn)
	f.SetCameras([]Camera{{Name: "patio", URL: "http://esppatio.local:8080", OutputDir: "patio"}})
	f.SetInterval(20 * time.Second)
	f.SetAllowNonRootAccess(true)

	if err := f.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := NewFile(fn)
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}
	if loaded.Interval() != 20*time.Second || !loaded.AllowNonRootAccess() || len(loaded.Cameras()) != 1 {
		t.Errorf("loaded config = %v", loaded.LogrusFields())
	}
}

func TestNewRawFileConfigFromConfig(t *testing.T) {
	if _, err := NewRawFileConfigFromConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}

	raw, err := NewRawFileConfigFromConfig(NewFileFromConfig(nil, ""))
	if err != nil {
		t.Fatalf("NewRawFileConfigFromConfig() error = %v", err)
	}
	if *raw.IntervalSeconds != 10 || *raw.RetentionSchedule != "@daily" {
		t.Errorf("raw = %+v", raw)
	}
}
