package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	pkgerrors "github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/camexpo/pkg/camera"
	"github.com/charlie0129/camexpo/pkg/config"
	"github.com/charlie0129/camexpo/pkg/events"
	"github.com/charlie0129/camexpo/pkg/history"
	"github.com/charlie0129/camexpo/pkg/history/memory"
	"github.com/charlie0129/camexpo/pkg/history/sqlite"
	"github.com/charlie0129/camexpo/pkg/loop"
	"github.com/charlie0129/camexpo/pkg/storage"
)

// shutdownTimeout bounds how long we wait for in-flight cycles on exit.
const shutdownTimeout = 5 * time.Second

type cameraLoop struct {
	*loop.Loop
	dir *storage.Dir
}

type server struct {
	conf  config.Config
	repo  history.Repository
	hub   *events.EventHub
	loops []cameraLoop
}

func newServer(conf config.Config, repo history.Repository, hub *events.EventHub) *server {
	s := &server{
		conf: conf,
		repo: repo,
		hub:  hub,
	}

	for _, c := range conf.Cameras() {
		cam := camera.NewClient(c.URL, camera.WithTimeout(conf.HTTPTimeout()))
		dir := storage.NewDir(c.OutputDir)
		l := loop.New(c.Name, cam, dir,
			loop.WithInterval(conf.Interval()),
			loop.WithHistory(repo),
			loop.WithEvents(hub),
		)
		s.loops = append(s.loops, cameraLoop{Loop: l, dir: dir})
	}

	return s
}

func (s *server) loop(name string) (cameraLoop, bool) {
	for _, l := range s.loops {
		if l.Name() == name {
			return l, true
		}
	}
	return cameraLoop{}, false
}

func (s *server) setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.GET("/version", getVersion)
	router.GET("/config", s.getConfig)
	router.GET("/cameras", s.listCameras)
	router.GET("/cameras/:name", s.getCamera)
	router.GET("/cameras/:name/history", s.getHistory)
	router.POST("/cameras/:name/capture", s.captureNow)
	router.GET("/events", s.streamEvents)

	return router
}

// runLoops starts one independent capture loop per camera. The returned
// WaitGroup is done once every loop has returned after ctx is cancelled.
func (s *server) runLoops(ctx context.Context) *sync.WaitGroup {
	wg := &sync.WaitGroup{}
	for _, l := range s.loops {
		wg.Add(1)
		go func(l cameraLoop) {
			defer wg.Done()
			l.Run(ctx)
		}(l)
	}
	return wg
}

func openHistory(dbPath string) (history.Repository, error) {
	if dbPath == "" {
		logrus.Info("historyDB not set, keeping capture history in memory")
		return memory.NewRepository(), nil
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to create directory for %s", dbPath)
	}
	repo, err := sqlite.NewRepository(dbPath)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to open history database %s", dbPath)
	}
	logrus.WithField("historyDB", dbPath).Info("capture history opened")
	return repo, nil
}

// Run starts the daemon and blocks until SIGINT or SIGTERM. Cameras in
// overrides replace the ones from the config file.
func Run(configPath string, unixSocketPath string, allowNonRoot bool, overrides []config.Camera) error {
	conf, err := config.NewFile(configPath)
	if err != nil {
		logrus.Fatalf("failed to parse config during startup: %v", err)
	}
	if len(overrides) > 0 {
		conf.SetCameras(overrides)
	}
	if err := conf.Validate(); err != nil {
		return pkgerrors.Wrapf(err, "invalid config %s", configPath)
	}
	logrus.WithFields(conf.LogrusFields()).Infof("config loaded")

	repo, err := openHistory(conf.HistoryDB())
	if err != nil {
		return err
	}

	s := newServer(conf, repo, events.NewEventHub())
	router := s.setupRoutes()

	// Receive SIGHUP to reload config
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGHUP)
		for range sigc {
			err := conf.Load()
			if err != nil {
				logrus.Errorf("failed to reload config: %v", err)
				continue
			}
			if len(overrides) > 0 {
				conf.SetCameras(overrides)
			}
			logrus.Infof("config reloaded, camera and interval changes take effect after restart")
		}
	}()

	srv := &http.Server{
		Handler: router,
	}

	// Remove a stale socket left by a previous run.
	_ = os.Remove(unixSocketPath)

	// Create the socket to listen on:
	l, err := net.Listen("unix", unixSocketPath)
	if err != nil {
		logrus.Fatal(err)
	}

	if conf.AllowNonRootAccess() || allowNonRoot {
		logrus.Infof("non-root access is allowed, changing permissions of %s to 0777", unixSocketPath)
		err = os.Chmod(unixSocketPath, 0777)
		if err != nil {
			logrus.Fatal(err)
		}
	}

	// Serve HTTP on unix socket
	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	}()

	var retention *cron.Cron
	if conf.RetentionDays() > 0 {
		retention, err = s.startRetention()
		if err != nil {
			return err
		}
	}

	ctx, cancelLoops := context.WithCancel(context.Background())
	loopsDone := s.runLoops(ctx)

	// Handle common process-killing signals, so we can gracefully shut down:
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	// Wait for a SIGINT or SIGTERM:
	sig := <-sigc
	logrus.Infof("caught signal \"%s\": shutting down.", sig)

	logrus.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	err = srv.Shutdown(shutdownCtx)
	if err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}
	cancel()

	if retention != nil {
		logrus.Info("stopping retention job")
		<-retention.Stop().Done()
	}

	logrus.Info("stopping capture loops")
	cancelLoops()
	waitTimeout(loopsDone, shutdownTimeout)

	logrus.Info("closing capture history")
	if err := repo.Close(); err != nil {
		logrus.Errorf("failed to close capture history: %v", err)
	}

	logrus.Info("exiting")
	return nil
}

func waitTimeout(wg *sync.WaitGroup, d time.Duration) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		logrus.Warnf("capture loops did not stop within %s", d)
	}
}
