package client

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/charlie0129/camexpo/pkg/exposure"
	"github.com/charlie0129/camexpo/pkg/history"
)

// serveUnix serves h on a unix socket and returns the socket path.
func serveUnix(t *testing.T, h http.Handler) string {
	t.Helper()
	// Socket paths are length limited, so avoid the long t.TempDir().
	dir, err := os.MkdirTemp("", "camexpo")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	sock := filepath.Join(dir, "d.sock")
	l, err := net.Listen("unix", sock)
	if err != nil {
		t.Fatal(err)
	}
	srv := &http.Server{Handler: h}
	go func() { _ = srv.Serve(l) }()
	t.Cleanup(func() { _ = srv.Close() })
	return sock
}

func TestClient(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/version", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`"v1.2.3"`))
	})
	mux.HandleFunc("/cameras", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"camera":"patio","url":"http://patio.local","state":{"tier":2,"gain":7},"intervalSeconds":10}]`))
	})
	mux.HandleFunc("/cameras/patio/history", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "5" {
			http.Error(w, "bad limit", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`[{"camera":"patio","outcome":"ok"},{"camera":"patio","outcome":"capture_failed"}]`))
	})
	mux.HandleFunc("/cameras/patio/capture", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method", http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"camera":"patio","outcome":"ok","after":{"tier":0,"gain":1}}`))
	})

	c := NewClient(serveUnix(t, mux))
	ctx := context.Background()

	v, err := c.GetVersion(ctx)
	if err != nil || v != "v1.2.3" {
		t.Errorf("GetVersion() = %q, %v", v, err)
	}

	cams, err := c.GetCameras(ctx)
	if err != nil {
		t.Fatalf("GetCameras() error = %v", err)
	}
	if len(cams) != 1 || cams[0].State != (exposure.State{Tier: exposure.TierManual, Gain: 7}) {
		t.Errorf("GetCameras() = %+v", cams)
	}

	records, err := c.GetHistory(ctx, "patio", 5)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(records) != 2 || records[1].Outcome != history.OutcomeCaptureFailed {
		t.Errorf("GetHistory() = %+v", records)
	}

	rec, err := c.Capture(ctx, "patio")
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if rec.After.Tier != exposure.TierAuto {
		t.Errorf("Capture() = %+v", rec)
	}

	if _, err := c.GetCamera(ctx, "garage"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetCamera(garage) error = %v, want ErrNotFound", err)
	}
}

func TestClientDaemonNotRunning(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "missing.sock"))
	if _, err := c.GetVersion(context.Background()); !errors.Is(err, ErrDaemonNotRunning) {
		t.Errorf("GetVersion() error = %v, want ErrDaemonNotRunning", err)
	}
}
