package config

import "time"

// Camera is one monitored camera.
type Camera struct {
	// Name identifies the camera in logs and in the API.
	Name string `json:"name"`
	// URL is the base URL of the camera HTTP server, e.g. http://esppatio.local:8080
	URL string `json:"url"`
	// OutputDir is where captures are written.
	OutputDir string `json:"outputDir"`
}

type Config interface {
	Cameras() []Camera
	Interval() time.Duration
	HistoryDB() string
	RetentionDays() int
	RetentionSchedule() string
	AllowNonRootAccess() bool
	HTTPTimeout() time.Duration

	SetCameras([]Camera)
	SetInterval(time.Duration)
	SetAllowNonRootAccess(bool)

	// Validate checks the camera list is usable.
	Validate() error
	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error
}
