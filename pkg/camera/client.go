package camera

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/camexpo/pkg/exposure"
)

var (
	// ErrCapture is returned when a photo cannot be fetched from the camera.
	ErrCapture = errors.New("capture failed")

	// ErrControl is returned when a control command is not accepted by the camera.
	ErrControl = errors.New("control failed")
)

// Client talks to the HTTP interface of an ESP32-CAM style camera.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithTimeout sets a timeout on every request. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		cl.httpClient.Timeout = d
	}
}

// NewClient is a constructor for creating a new Client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		// Remove the trailing '/'
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// URL returns the base URL of the camera.
func (c *Client) URL() string {
	return c.baseURL
}

// Capture fetches one JPEG photo from the camera.
func (c *Client) Capture(ctx context.Context) ([]byte, error) {
	b, err := c.get(ctx, c.baseURL+"/capture")
	if err != nil {
		return nil, pkgerrors.Wrapf(ErrCapture, "%s: %v", c.baseURL, err)
	}
	return b, nil
}

// Control sets a single camera variable.
func (c *Client) Control(ctx context.Context, name, value string) error {
	q := url.Values{}
	q.Set("var", name)
	q.Set("val", value)

	_, err := c.get(ctx, c.baseURL+"/control?"+q.Encode())
	if err != nil {
		return pkgerrors.Wrapf(ErrControl, "%s=%s on %s: %v", name, value, c.baseURL, err)
	}
	return nil
}

// Apply issues cmds in order and stops at the first failure. Commands that
// were already accepted are not rolled back.
func (c *Client) Apply(ctx context.Context, cmds []exposure.Command) error {
	for i, cmd := range cmds {
		if err := c.Control(ctx, cmd.Var, cmd.Val); err != nil {
			return pkgerrors.Wrapf(err, "command %d/%d", i+1, len(cmds))
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	logrus.WithFields(logrus.Fields{
		"url": u,
	}).Debug("sending request")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			logrus.Errorf("failed to close response body: %v", err)
		}
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("got %d: %s", resp.StatusCode, truncate(string(b), 128))
	}

	return b, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
