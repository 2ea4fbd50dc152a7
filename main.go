package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/facebookgo/inject"
	"github.com/facebookgo/startstop"
	"github.com/google/uuid"
	flag "github.com/jessevdk/go-flags"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/grigorimaxim422/atom/app"
	"github.com/grigorimaxim422/atom/config"
	"github.com/grigorimaxim422/atom/handlers"
	"github.com/grigorimaxim422/atom/hooks"
	"github.com/grigorimaxim422/atom/internal/health"
	"github.com/grigorimaxim422/atom/logger"
	"github.com/grigorimaxim422/atom/metrics"
	"github.com/grigorimaxim422/atom/queue"
	"github.com/grigorimaxim422/atom/route"
	"github.com/grigorimaxim422/atom/sample"
	"github.com/grigorimaxim422/atom/scheduler"
	"github.com/grigorimaxim422/atom/synth"
)

// set by the build.
var BuildID string
var version string

type Options struct {
	ConfigFile string `short:"c" long:"config" description:"Path to config file" default:"/etc/atom/atom.toml"`
	Version    bool   `short:"v" long:"version" description:"Print version number and exit"`
}

func main() {
	var opts Options
	flagParser := flag.NewParser(&opts, flag.Default)
	if extraArgs, err := flagParser.Parse(); err != nil || len(extraArgs) != 0 {
		fmt.Println("command line parsing error - call with --help for usage")
		os.Exit(1)
	}

	if BuildID == "" {
		version = "dev"
	} else {
		version = "0." + BuildID
	}

	if opts.Version {
		fmt.Println("Version: " + version)
		os.Exit(0)
	}

	c, err := config.NewConfig(opts.ConfigFile)
	if err != nil {
		fmt.Printf("unable to load config: %v\n", err)
		os.Exit(1)
	}

	a := app.App{Version: version}

	// get desired implementation for each dependency to inject
	lgr := logger.GetLoggerImplementation(c)
	metricsr := metrics.GetMetricsImplementation(c)

	// set log level
	logLevel, err := c.GetLoggingLevel()
	if err != nil {
		fmt.Printf("unable to get logging level from config: %v\n", err)
		os.Exit(1)
	}
	if err := lgr.SetLevel(logLevel); err != nil {
		fmt.Printf("unable to set logging level: %v\n", err)
		os.Exit(1)
	}

	organicQueue := &queue.InMemQueue{}
	dataset := synth.NewStaticDataset(nil)
	sampler := &sample.QueueSampler{}
	healthReporter := &health.Health{}

	// the on-entry hook is the platform's own; the other hooks stay
	// uninstalled until a deployment supplies custom ones
	dispatcher := &hooks.Dispatcher{
		Hooks: hooks.Hooks{
			OnEntry: &sample.EnqueueHandler{},
		},
	}

	objects := []*inject.Object{
		{Value: c},
		{Value: lgr},
		{Value: metricsr},
		{Value: clockwork.NewRealClock()},
		{Value: organicQueue},
		{Value: dataset},
		{Value: sampler},
		{Value: healthReporter},
		{Value: dispatcher},
		{Value: dispatcher.Hooks.OnEntry},
		{Value: &scheduler.Scheduler{}},
		{Value: &route.Router{}},
		{Value: version, Name: "version"},
		{Value: &a},
	}

	// evaluated results are persisted when the stores are configured
	if repoURL, _ := c.GetContentRepoURL(); repoURL != "" {
		content := &handlers.GithubHandler{}
		objects = append(objects, &inject.Object{Value: content})
		sampler.Evaluate = persistRecord(content)
	}
	if bucket, _ := c.GetObjectStoreBucket(); bucket != "" {
		objects = append(objects, &inject.Object{Value: &handlers.GCSHandler{}})
	}

	var g inject.Graph
	if err := g.Provide(objects...); err != nil {
		fmt.Printf("failed to provide injection graph. error: %+v\n", err)
		os.Exit(1)
	}
	if err := g.Populate(); err != nil {
		fmt.Printf("failed to populate injection graph. error: %+v\n", err)
		os.Exit(1)
	}

	// the logger provided to startstop must be valid before any service is
	// started, meaning it can't rely on injected configs. make a custom logger
	// just for this step
	ststLogger := logrus.New()
	level, _ := logrus.ParseLevel(logLevel)
	ststLogger.SetLevel(level)

	defer startstop.Stop(g.Objects(), ststLogger)
	if err := startstop.Start(g.Objects(), ststLogger); err != nil {
		fmt.Printf("failed to start injected dependencies. error: %+v\n", err)
		os.Exit(1)
	}
}

// persistRecord writes each evaluated payload to the content store, one
// commit per sample.
func persistRecord(store handlers.ContentStore) func(ctx context.Context, payload map[string]interface{}) error {
	return func(ctx context.Context, payload map[string]interface{}) error {
		record, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		key, _ := payload["id"].(string)
		if key == "" {
			key = uuid.NewString()
		}
		_, err = store.Put(ctx, record, "records", "json", key, "main")
		return err
	}
}
