package camera

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/charlie0129/camexpo/pkg/exposure"
)

type recordingCamera struct {
	mu       sync.Mutex
	controls []exposure.Command
	failOn   string
	photo    []byte
}

func (r *recordingCamera) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	switch req.URL.Path {
	case "/capture":
		if r.photo == nil {
			http.Error(w, "camera busy", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(r.photo)
	case "/control":
		v := req.URL.Query().Get("var")
		if v == r.failOn {
			http.Error(w, "unsupported", http.StatusInternalServerError)
			return
		}
		r.mu.Lock()
		r.controls = append(r.controls, exposure.Command{Var: v, Val: req.URL.Query().Get("val")})
		r.mu.Unlock()
	default:
		http.NotFound(w, req)
	}
}

func TestClientCapture(t *testing.T) {
	photo := []byte{0xff, 0xd8, 0x01, 0x02, 0xff, 0xd9}
	srv := httptest.NewServer(&recordingCamera{photo: photo})
	defer srv.Close()

	// Trailing slash must be stripped.
	c := NewClient(srv.URL + "/")
	if c.URL() != srv.URL {
		t.Fatalf("URL() = %q, want %q", c.URL(), srv.URL)
	}

	got, err := c.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if !bytes.Equal(got, photo) {
		t.Errorf("Capture() = %v, want %v", got, photo)
	}
}

func TestClientCaptureNonSuccess(t *testing.T) {
	srv := httptest.NewServer(&recordingCamera{})
	defer srv.Close()

	_, err := NewClient(srv.URL).Capture(context.Background())
	if !errors.Is(err, ErrCapture) {
		t.Errorf("Capture() error = %v, want ErrCapture", err)
	}
}

func TestClientCaptureTransportError(t *testing.T) {
	srv := httptest.NewServer(&recordingCamera{})
	u := srv.URL
	srv.Close()

	_, err := NewClient(u).Capture(context.Background())
	if !errors.Is(err, ErrCapture) {
		t.Errorf("Capture() error = %v, want ErrCapture", err)
	}
}

func TestClientApply(t *testing.T) {
	cam := &recordingCamera{}
	srv := httptest.NewServer(cam)
	defer srv.Close()

	want := exposure.Commands(exposure.State{Tier: exposure.TierManual, Gain: 7})
	if err := NewClient(srv.URL).Apply(context.Background(), want); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if len(cam.controls) != len(want) {
		t.Fatalf("got %d controls, want %d", len(cam.controls), len(want))
	}
	for i := range want {
		if cam.controls[i] != want[i] {
			t.Errorf("control %d = %v, want %v", i, cam.controls[i], want[i])
		}
	}
}

func TestClientApplyStopsAtFirstFailure(t *testing.T) {
	cam := &recordingCamera{failOn: "aec_value"}
	srv := httptest.NewServer(cam)
	defer srv.Close()

	cmds := exposure.Commands(exposure.State{Tier: exposure.TierAGC, Gain: 1})
	err := NewClient(srv.URL).Apply(context.Background(), cmds)
	if !errors.Is(err, ErrControl) {
		t.Fatalf("Apply() error = %v, want ErrControl", err)
	}

	// Only the command before the failing one went through.
	if len(cam.controls) != 1 || cam.controls[0] != (exposure.Command{Var: "aec", Val: "0"}) {
		t.Errorf("controls = %v, want only aec=0", cam.controls)
	}
}
