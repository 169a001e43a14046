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

	"github.com/charlie0129/apportion/pkg/allocation"
	"github.com/charlie0129/apportion/pkg/config"
	"github.com/charlie0129/apportion/pkg/events"
)

var (
	conf         config.Config
	store        *allocation.Store
	hub          *events.EventHub
	recalibrator *Scheduler
)

func setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.GET("/version", getVersion)
	router.GET("/config", getConfig)
	router.GET("/schedule", getSchedule)
	router.PUT("/schedule", setSchedule)
	router.PUT("/schedule/skip", skipSchedule)
	router.GET("/events", streamEvents)

	a := router.Group("/allocations")
	a.GET("", listAllocations)
	a.POST("", createAllocation)
	a.GET("/:id", getAllocation)
	a.DELETE("/:id", deleteAllocation)
	a.PUT("/:id/shift", shiftAllocation)
	a.PUT("/:id/increment", incrementAllocation)
	a.PUT("/:id/decrement", decrementAllocation)
	a.PUT("/:id/edit", editAllocation)
	a.PUT("/:id/remove", removeItem)
	a.PUT("/:id/reset", resetAllocation)
	a.PUT("/:id/recalibrate", recalibrateAllocation)

	return router
}

// setup wires the package state around c. It is shared by Run and tests.
func setup(c config.Config) {
	conf = c
	hub = events.NewEventHub()
	store = allocation.NewStore(conf, hub)
	recalibrator = NewScheduler(recalibrateAll, nil)
}

func recalibrateAll() error {
	n, err := store.RecalibrateAll()
	if err != nil {
		return err
	}
	logrus.WithField("adjusted", n).Info("scheduled recalibration finished")
	return nil
}

func applySchedule() {
	expr := conf.RecalibrateSchedule()
	if err := recalibrator.Schedule(expr); err != nil {
		logrus.Errorf("failed to apply recalibration schedule %q: %v", expr, err)
		return
	}
	if expr == "" {
		logrus.Info("periodic recalibration disabled")
		return
	}
	logrus.WithField("nextRun", recalibrator.Status().NextRun).Infof("periodic recalibration scheduled: %s", expr)
}

func Run(configPath string, unixSocketPath string, allowNonRoot bool) error {
	c, err := config.NewFile(configPath)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to parse config during startup")
	}
	setup(c)
	logrus.WithFields(conf.LogrusFields()).Infof("config loaded")

	router := setupRoutes()

	applySchedule()
	recalibrator.Start()

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
			logrus.WithFields(conf.LogrusFields()).Infof("config reloaded")
			applySchedule()
		}
	}()

	srv := &http.Server{
		Handler: router,
	}

	// A socket left behind by a crashed daemon would make Listen fail.
	if err := os.Remove(unixSocketPath); err != nil && !os.IsNotExist(err) {
		return pkgerrors.Wrapf(err, "failed to remove stale socket %s", unixSocketPath)
	}

	// Create the socket to listen on:
	l, err := net.Listen("unix", unixSocketPath)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to listen on %s", unixSocketPath)
	}

	if conf.AllowNonRootAccess() || allowNonRoot {
		logrus.Infof("non-root access is allowed, changing permissions of %s to 0777", unixSocketPath)
		err = os.Chmod(unixSocketPath, 0777)
		if err != nil {
			return pkgerrors.Wrapf(err, "failed to change permissions of %s", unixSocketPath)
		}
	}

	// Serve HTTP on unix socket
	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	}()

	// Handle common process-killing signals, so we can gracefully shut down:
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	// Wait for a SIGINT or SIGTERM:
	sig := <-sigc
	logrus.Infof("caught signal \"%s\": shutting down.", sig)

	logrus.Info("stopping recalibration scheduler")
	recalibrator.Stop()

	logrus.Info("closing event streams")
	hub.Close()

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
