// mcnotify watches one Minecraft server and sends a notification whenever
// the number of online players changes.
//
// Usage:
//
//	mcnotify [-config dir] <hostname> [port]
//	mcnotify [-config dir] -history N
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcnotify/mcnotify/internal/api"
	"github.com/mcnotify/mcnotify/internal/cli"
	"github.com/mcnotify/mcnotify/internal/client"
	"github.com/mcnotify/mcnotify/internal/config"
	"github.com/mcnotify/mcnotify/internal/db"
	"github.com/mcnotify/mcnotify/internal/events"
	"github.com/mcnotify/mcnotify/internal/notify"
	"github.com/mcnotify/mcnotify/internal/poller"
	"github.com/mcnotify/mcnotify/internal/resolve"
	"github.com/mcnotify/mcnotify/internal/scheduler"
	"github.com/mcnotify/mcnotify/internal/status"
	"github.com/mcnotify/mcnotify/internal/util"
)

const (
	AppName    = "mcnotify"
	AppVersion = "1.0.0"
)

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "%s %s\n\n", AppName, AppVersion)
	fmt.Fprintf(out, "Usage:\n  %s [flags] <hostname> [port]\n  %s [flags] -history N\n\nFlags:\n", AppName, AppName)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	inv, err := parseCommandLine(flag.CommandLine, os.Args[1:])
	if errors.Is(err, errUsage) {
		flag.Usage()
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}

	if err := util.InitLogger(util.DefaultLogConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(inv.configDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := util.InitLogger(cfg.Logging); err != nil {
		log.Warn().Err(err).Msg("failed to reconfigure logger, using defaults")
	}

	if inv.history > 0 {
		printHistory(cfg.History, inv.history)
		return
	}

	validation := config.Validate(cfg)
	for _, w := range validation.Warnings {
		log.Warn().Str("field", w.Field).Msg(w.Message)
	}
	if !validation.IsValid() {
		for _, e := range validation.Errors {
			log.Error().Str("field", e.Field).Msg(e.Message)
		}
		log.Fatal().Msg("configuration validation failed, please fix the errors above")
	}

	log.Info().
		Str("version", AppVersion).
		Str("platform", runtime.GOOS).
		Str("arch", runtime.GOARCH).
		Msg("starting mcnotify")

	if err := run(cfg, inv.hostname, inv.port); err != nil {
		log.Fatal().Err(err).Msg("mcnotify stopped")
	}
}

func run(cfg *config.Config, hostname string, port uint16) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	target := status.NewTarget(hostname, port)
	if cfg.Probe.SRVLookup {
		target = resolve.New(nil).Resolve(ctx, hostname, port)
	}
	log.Info().
		Str("hostname", target.Hostname).
		Str("address", target.Address()).
		Bool("srv_redirect", target.Redirected()).
		Msg("poll target")

	eventBus := events.NewEventBus()
	dispatcher := notify.NewDispatcher(eventBus)

	notifiers, err := notify.Build(ctx, cfg.Notifiers)
	if err != nil {
		return fmt.Errorf("failed to initialize notifiers: %w", err)
	}
	defer notify.Close(notifiers)
	for _, n := range notifiers {
		dispatcher.Register(n)
	}

	var wg sync.WaitGroup

	var history *db.History
	if cfg.History.Enabled {
		history, err = db.NewHistory(cfg.History.Path)
		if err != nil {
			return fmt.Errorf("failed to open history: %w", err)
		}
		defer history.Close()
		dispatcher.Register(history)

		sched := scheduler.NewScheduler(cfg.History, history)
		wg.Add(1)
		go func() {
			defer wg.Done()
			sched.Start(ctx)
		}()
	}

	if cfg.API.Enabled {
		if cfg.Logging.Level == "debug" {
			gin.SetMode(gin.DebugMode)
		} else {
			gin.SetMode(gin.ReleaseMode)
		}

		var reader api.HistoryReader
		if history != nil {
			reader = history
		}
		apiServer := api.NewServer(cfg.API, target, reader, AppVersion)
		dispatcher.Register(apiServer)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := apiServer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("status API failed")
			}
		}()
	}

	probeClient := client.New(client.Config{
		ConnectTimeout:  cfg.Probe.ConnectTimeout(),
		IOTimeout:       cfg.Probe.IOTimeout(),
		ProtocolVersion: cfg.Probe.ProtocolVersion,
	}, target, nil)

	p, err := poller.New(poller.Config{
		Interval:        cfg.Probe.Interval(),
		MaxFailures:     cfg.Probe.MaxFailures,
		MaxCorruptions:  cfg.Probe.MaxCorruptions,
		NotifyOnStartup: cfg.Probe.NotifyOnStartup,
	}, probeClient, dispatcher)
	if err != nil {
		return err
	}

	log.Info().Strs("notifiers", dispatcher.Notifiers()).Msg("notifiers ready")

	pollErr := make(chan error, 1)
	go func() {
		pollErr <- p.Run(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case runErr = <-pollErr:
	}

	log.Info().Msg("initiating graceful shutdown...")
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("shutdown notification failed")
	}
	cancelShutdown()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		eventBus.Stop()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("all components stopped")
	case <-time.After(15 * time.Second):
		log.Warn().Msg("shutdown timed out, forcing exit")
	}

	return runErr
}

func printHistory(cfg config.HistoryConfig, n int) {
	if !cfg.Enabled {
		fmt.Fprintln(os.Stderr, "history is disabled in the configuration")
		os.Exit(1)
	}

	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	history, err := db.NewHistory(cfg.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open history")
	}
	defer history.Close()

	entries, err := history.Recent(context.Background(), n)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read history")
	}
	cli.RenderHistory(os.Stdout, entries)
}
