package main

import (
	"reflect"
	"testing"

	"github.com/charlie0129/camexpo/pkg/config"
)

func TestCameraOverrides(t *testing.T) {
	tests := []struct {
		name    string
		camName string
		url     string
		dir     string
		want    []config.Camera
		wantErr bool
	}{
		{name: "no flags"},
		{
			name:    "url with default dir",
			camName: "camera",
			url:     "http://192.168.1.20",
			want:    []config.Camera{{Name: "camera", URL: "http://192.168.1.20", OutputDir: "camera"}},
		},
		{
			name:    "url with dir",
			camName: "patio",
			url:     "http://192.168.1.20",
			dir:     "/data/patio",
			want:    []config.Camera{{Name: "patio", URL: "http://192.168.1.20", OutputDir: "/data/patio"}},
		},
		{name: "dir without url", dir: "/data/patio", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cameraName, cameraURL, outputDir = tt.camName, tt.url, tt.dir
			got, err := cameraOverrides()
			if (err != nil) != tt.wantErr {
				t.Fatalf("cameraOverrides() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("cameraOverrides() = %v, want %v", got, tt.want)
			}
		})
	}
}
