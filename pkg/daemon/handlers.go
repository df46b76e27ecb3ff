package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/camexpo/pkg/config"
	"github.com/charlie0129/camexpo/pkg/events"
	"github.com/charlie0129/camexpo/pkg/history"
	"github.com/charlie0129/camexpo/pkg/loop"
	"github.com/charlie0129/camexpo/pkg/version"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 1000
)

// ginLogger logs requests through logrus.
func ginLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// other handler can change c.Path so:
		path := c.Request.URL.Path
		start := time.Now()
		c.Next()
		latency := int(math.Ceil(float64(time.Since(start).Nanoseconds()) / 1000000.0))
		statusCode := c.Writer.Status()

		fields := logrus.Fields{
			"statusCode": statusCode,
			"latency":    latency,
			"method":     c.Request.Method,
			"path":       path,
			"dataLength": max(c.Writer.Size(), 0),
		}
		if name := c.Param("name"); name != "" {
			fields["camera"] = name
		}
		entry := logger.WithFields(fields)

		if len(c.Errors) > 0 {
			entry.Error(c.Errors.ByType(gin.ErrorTypePrivate).String())
			return
		}

		msg := fmt.Sprintf("%s %s %d (%dms)", c.Request.Method, path, statusCode, latency)
		switch {
		case statusCode >= http.StatusInternalServerError:
			entry.Error(msg)
		case statusCode >= http.StatusBadRequest:
			entry.Warn(msg)
		default:
			entry.Debug(msg)
		}
	}
}

func abortWithError(c *gin.Context, code int, err error) {
	c.IndentedJSON(code, err.Error())
	_ = c.AbortWithError(code, err)
}

func getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}

func (s *server) getConfig(c *gin.Context) {
	fc, err := config.NewRawFileConfigFromConfig(s.conf)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.IndentedJSON(http.StatusOK, fc)
}

func (s *server) listCameras(c *gin.Context) {
	statuses := make([]loop.Status, 0, len(s.loops))
	for _, l := range s.loops {
		statuses = append(statuses, l.Status())
	}
	c.IndentedJSON(http.StatusOK, statuses)
}

func (s *server) cameraOr404(c *gin.Context) (cameraLoop, bool) {
	name := c.Param("name")
	l, ok := s.loop(name)
	if !ok {
		abortWithError(c, http.StatusNotFound, fmt.Errorf("camera %q not found", name))
	}
	return l, ok
}

func (s *server) getCamera(c *gin.Context) {
	l, ok := s.cameraOr404(c)
	if !ok {
		return
	}
	c.IndentedJSON(http.StatusOK, l.Status())
}

func (s *server) getHistory(c *gin.Context) {
	l, ok := s.cameraOr404(c)
	if !ok {
		return
	}

	limit := defaultHistoryLimit
	if q := c.Query("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 || n > maxHistoryLimit {
			abortWithError(c, http.StatusBadRequest, fmt.Errorf("limit must be between 1 and %d, got %q", maxHistoryLimit, q))
			return
		}
		limit = n
	}

	records, err := s.repo.List(c.Request.Context(), l.Name(), limit)
	if err != nil && !errors.Is(err, history.ErrNotFound) {
		logrus.Errorf("failed to list history of %s: %v", l.Name(), err)
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	if records == nil {
		records = []*history.Record{}
	}

	c.IndentedJSON(http.StatusOK, records)
}

// captureNow runs a cycle immediately instead of waiting for the next one.
// The cycle is detached from the request, so a client giving up cannot leave
// the camera with half of a tier's commands applied.
func (s *server) captureNow(c *gin.Context) {
	l, ok := s.cameraOr404(c)
	if !ok {
		return
	}

	logrus.WithField("camera", l.Name()).Info("capture requested")
	rec := l.Cycle(context.WithoutCancel(c.Request.Context()))

	c.IndentedJSON(http.StatusCreated, rec)
}

// streamEvents streams loop events over SSE. ?camera=name narrows the
// stream to one camera.
func (s *server) streamEvents(c *gin.Context) {
	camera := c.Query("camera")
	if camera != events.AllCameras {
		if _, ok := s.loop(camera); !ok {
			abortWithError(c, http.StatusNotFound, fmt.Errorf("camera %q not found", camera))
			return
		}
	}

	sub := s.hub.Subscribe(camera)
	defer s.hub.Unsubscribe(sub)

	logrus.WithFields(logrus.Fields{
		"camera":      camera,
		"subscribers": s.hub.Subscribers(),
	}).Debug("event subscriber connected")

	// Send headers right away so clients see the stream before the first event.
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	c.Stream(func(_ io.Writer) bool {
		select {
		case ev, ok := <-sub:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, string(ev.Data))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
