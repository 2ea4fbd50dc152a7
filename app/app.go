package app

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/grigorimaxim422/atom/config"
	"github.com/grigorimaxim422/atom/logger"
	"github.com/grigorimaxim422/atom/metrics"
	"github.com/grigorimaxim422/atom/route"
	"github.com/grigorimaxim422/atom/scheduler"
)

type App struct {
	Config    config.Config        `inject:""`
	Logger    logger.Logger        `inject:""`
	Router    *route.Router        `inject:""`
	Scheduler *scheduler.Scheduler `inject:""`
	Metrics   metrics.Metrics      `inject:""`

	// Version is the build ID so that the running process may answer
	// requests for the version
	Version string
}

// Start on the App object should block until the process is shutting down.
// After Start exits, Stop will be called on all dependencies then on App then
// the program will exit.
func (a *App) Start() error {
	a.Logger.Debugf("Starting up App...")

	// set up signal channel to exit
	sigsToExit := make(chan os.Signal, 1)
	signal.Notify(sigsToExit, syscall.SIGINT, syscall.SIGTERM)

	// set up signal channel to reload configs on USR1
	sigsToReload := make(chan os.Signal, 1)
	signal.Notify(sigsToReload, syscall.SIGUSR1)
	go a.listenForReload(sigsToReload)

	a.Router.SetVersion(a.Version)

	// launch the router to listen for inbound organic traffic; the scheduler
	// is already looping by the time we get here
	go a.Router.LnS()

	// block on our signal handler to exit
	sig := <-sigsToExit
	a.Logger.Errorf("Caught signal \"%s\"", sig)

	return nil
}

func (a *App) listenForReload(sigs chan os.Signal) {
	for {
		sig := <-sigs
		a.Logger.Debugf("Caught signal \"%s\"; reloading configs", sig)
		a.Config.Reload()
	}
}

func (a *App) Stop() error {
	a.Logger.Debugf("Shutting down App...")
	return a.Router.Stop()
}
