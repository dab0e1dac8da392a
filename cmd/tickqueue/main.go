// Command tickqueue runs a task queue driven by a ticker and exposes it over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/jessevdk/go-flags"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/tickqueue/pkg/config"
	"github.com/dmitrymomot/tickqueue/pkg/eventbus"
	"github.com/dmitrymomot/tickqueue/pkg/httpserver"
	"github.com/dmitrymomot/tickqueue/pkg/logger"
	"github.com/dmitrymomot/tickqueue/pkg/queueapi"
	"github.com/dmitrymomot/tickqueue/pkg/taskqueue"
	"github.com/dmitrymomot/tickqueue/pkg/ticker"
)

// cliOptions are the command-line flags. Everything else comes from the
// environment or the YAML config file.
type cliOptions struct {
	Config string `short:"c" long:"config" env:"TICKQUEUE_CONFIG" description:"YAML config file; environment variables override it"`
	Plan   string `short:"p" long:"plan" description:"YAML task plan, overrides TICKQUEUE_PLAN"`
}

func main() {
	var cli cliOptions
	if _, err := flags.NewParser(&cli, flags.Default).Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(2)
	}

	if err := run(cli); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cli cliOptions) error {
	var cfg appConfig
	if cli.Config != "" {
		if err := config.LoadYAML(cli.Config, &cfg); err != nil {
			return err
		}
	} else if err := config.Load(&cfg); err != nil {
		return err
	}
	if cli.Plan != "" {
		cfg.PlanFile = cli.Plan
	}

	logOpts := []logger.Option{
		logger.WithEnvironment(cfg.Env, "tickqueue"),
		logger.WithContextExtractors(queueapi.RequestIDExtractor()),
	}
	if cfg.LogLevel != "" {
		logOpts = append(logOpts, logger.WithLevelName(cfg.LogLevel))
	}
	log := logger.New(logOpts...)
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus, checks, closeBus, err := newBus(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeBus()

	q := taskqueue.NewFromConfig(cfg.Queue,
		taskqueue.WithLogger(log),
		taskqueue.WithEventBus(bus),
	)
	defer q.Close()

	p, err := resolvePlan(cfg)
	if err != nil {
		return err
	}
	log.Info("plan loaded", logger.Count("steps", len(p.Steps)), logger.Count("enqueued", p.enqueue(q, log)))

	router := queueapi.NewRouter(q, queueapi.WithLogger(log), queueapi.WithHealthChecks(checks...))
	router.Post("/signals/{name}", signalHandler(bus, log))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(ticker.NewFromConfig(cfg.Ticker, q, ticker.WithLogger(log)).Runner(ctx))
	g.Go(func() error {
		return httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log)).Run(ctx, router)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("tickqueue stopped", logger.QueueState(q.State()))
	return nil
}

// newBus builds the configured event bus along with its readiness checks and
// a release function.
func newBus(ctx context.Context, cfg appConfig, log *slog.Logger) (eventbus.Bus, []httpserver.Check, func(), error) {
	switch cfg.EventBus {
	case busMemory, "":
		bus := eventbus.NewMemory(eventbus.WithLogger(log))
		return bus, nil, func() { _ = bus.Close() }, nil

	case busRedis:
		client, err := eventbus.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, nil, err
		}
		bus, err := eventbus.NewRedis(ctx, client,
			eventbus.WithLogger(log),
			eventbus.WithChannelPrefix(cfg.Redis.ChannelPrefix),
		)
		if err != nil {
			_ = client.Close()
			return nil, nil, nil, err
		}
		checks := []httpserver.Check{{Name: "redis", Fn: eventbus.RedisHealthcheck(client)}}
		return bus, checks, func() {
			_ = bus.Close()
			_ = client.Close()
		}, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown event bus %q: want %q or %q", cfg.EventBus, busMemory, busRedis)
}

func resolvePlan(cfg appConfig) (plan, error) {
	switch {
	case cfg.PlanFile != "":
		return loadPlan(cfg.PlanFile)
	case cfg.DemoPlan:
		return parsePlan([]byte(demoPlan))
	}
	return plan{}, nil
}

// signalHandler publishes a planSignal named by the URL.
func signalHandler(bus eventbus.Bus, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if err := eventbus.Publish(r.Context(), bus, planSignal{Name: name}); err != nil {
			log.ErrorContext(r.Context(), "failed to publish signal", slog.String("signal", name), logger.Error(err))
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}
