package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/fastchg/fastchg/pkg/config"
	"github.com/fastchg/fastchg/pkg/events"
	"github.com/fastchg/fastchg/pkg/fastcharge"
)

// server owns everything the HTTP handlers need. There is exactly one per
// daemon process.
type server struct {
	module *fastcharge.Module
	conf   *config.File
	hub    *events.Hub
}

func setupRoutes(s *server) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.GET("/attributes", s.listAttributes)
	router.GET("/attributes/:attr", s.readAttribute)
	router.PUT("/attributes/:attr", s.writeAttribute)
	router.GET("/policy", s.getPolicy)
	router.GET("/config", s.getConfig)
	router.GET("/battery-info", s.getBatteryInfo)
	router.GET("/version", s.getVersion)
	router.GET("/events", s.streamEvents)

	return router
}

func newServer(conf *config.File) (*server, error) {
	hub := events.NewHub()

	m, err := fastcharge.Init(fastcharge.Options{
		Namespace: conf.Namespace(),
		Disabled:  conf.DisabledAttributes(),
		Hub:       hub,
	})
	if err != nil {
		return nil, err
	}

	return &server{
		module: m,
		conf:   conf,
		hub:    hub,
	}, nil
}

// reloadOnHUP re-reads the config file on every signal until stop closes.
func reloadOnHUP(conf *config.File, sigc <-chan os.Signal, stop <-chan struct{}) {
	for {
		select {
		case <-sigc:
			err := conf.Load()
			if err != nil {
				logrus.Errorf("failed to reload config: %v", err)
				continue
			}
			// The attribute tree is built once; namespace and disabled
			// attributes only change on restart.
			logrus.WithFields(conf.LogrusFields()).Infof("config reloaded")
		case <-stop:
			return
		}
	}
}

func Run(configPath string, unixSocketPath string, allowNonRoot bool) error {
	conf, err := config.NewFile(configPath)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to parse config during startup")
	}
	logrus.WithFields(conf.LogrusFields()).Infof("config loaded")

	s, err := newServer(conf)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to initialize fast charge control")
	}
	defer s.module.Shutdown()

	// Signals are registered before the socket accepts anything, so a client
	// that got through can always stop or reload the daemon.
	hupc := make(chan os.Signal, 1)
	signal.Notify(hupc, syscall.SIGHUP)
	defer signal.Stop(hupc)
	stopReload := make(chan struct{})
	defer close(stopReload)
	go reloadOnHUP(conf, hupc, stopReload)

	// Handle common process-killing signals, so we can gracefully shut down:
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigc)

	srv := &http.Server{
		Handler:           setupRoutes(s),
		ReadHeaderTimeout: 5 * time.Second,
	}
	// Long-lived event streams return once the hub is closed.
	srv.RegisterOnShutdown(s.hub.Close)

	// Create the socket to listen on:
	l, err := net.Listen("unix", unixSocketPath)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to listen on %s", unixSocketPath)
	}

	if conf.AllowNonRootAccess() || allowNonRoot {
		logrus.Infof("non-root access is allowed, changing permissions of %s to 0777", unixSocketPath)
		err = os.Chmod(unixSocketPath, 0777)
		if err != nil {
			_ = l.Close()
			return pkgerrors.Wrapf(err, "failed to change permissions of %s", unixSocketPath)
		}
	}

	serveErr := make(chan error, 1)

	// Serve HTTP on unix socket
	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case sig := <-sigc:
		logrus.Infof("caught signal \"%s\": shutting down.", sig)
	case err := <-serveErr:
		logrus.Errorf("http server failed: %v", err)
		return pkgerrors.Wrap(err, "http server failed")
	}

	logrus.Info("shutting down http server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = srv.Shutdown(ctx)
	if err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}
	cancel()

	logrus.Info("exiting")
	return nil
}
