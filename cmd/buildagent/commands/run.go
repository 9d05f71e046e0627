package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/buildagent/internal/acquire"
	"git.home.luguber.info/inful/buildagent/internal/agent"
	"git.home.luguber.info/inful/buildagent/internal/config"
	"git.home.luguber.info/inful/buildagent/internal/dispatch"
	"git.home.luguber.info/inful/buildagent/internal/gitcli"
	"git.home.luguber.info/inful/buildagent/internal/journal"
	"git.home.luguber.info/inful/buildagent/internal/logfields"
	"git.home.luguber.info/inful/buildagent/internal/metrics"
	"git.home.luguber.info/inful/buildagent/internal/trace"
	"git.home.luguber.info/inful/buildagent/internal/worker"
)

// RunCmd starts the agent run loop.
type RunCmd struct{}

func (r *RunCmd) Run(cli *CLI) error {
	// Configuration stage: any failure, including an interrupt, exits with
	// code 1 before a session exists.
	cfgSignals := make(chan os.Signal, 1)
	signal.Notify(cfgSignals, os.Interrupt, syscall.SIGTERM)
	go func() {
		if _, ok := <-cfgSignals; ok {
			os.Exit(1)
		}
	}()
	settings, err := config.Load(cli.Config)
	if err != nil {
		slog.Error("Configuration not present or invalid", logfields.Error(err))
		os.Exit(1)
	}
	if settings.Verbose && !cli.Verbose {
		SetLogLevel(true)
	}
	if err := os.MkdirAll(settings.WorkDir, 0o750); err != nil {
		return fmt.Errorf("create work directory: %w", err)
	}

	jr, err := journal.Open(settings.JournalPath)
	if err != nil {
		return err
	}
	defer jr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Startup scrub: undo credential writes a crashed run left behind.
	startupSink := trace.NewSlogSink(slog.Default(), trace.NewRegistry())
	binaryOpts := gitcli.BinaryOptions{PreferPath: settings.PreferGitFromPath}
	git, err := gitcli.NewClient(ctx, startupSink, binaryOpts)
	if err != nil {
		return err
	}
	slog.Info("Using git", logfields.Path(git.Path()), slog.String("version", git.Version().String()))
	if err := acquire.ScrubLeftovers(ctx, git, jr, startupSink); err != nil {
		slog.Warn("Startup credential scrub incomplete", logfields.Error(err))
	}

	registry := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(registry)
	var metricsServer *agent.MetricsServer
	if settings.MetricsListen != "" {
		metricsServer = agent.NewMetricsServer(settings.MetricsListen, registry)
		metricsServer.Start()
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer stopCancel()
			_ = metricsServer.Stop(stopCtx)
		}()
	}

	sweeper, err := agent.NewSweeper(settings.TempDir, time.Hour)
	if err != nil {
		return err
	}
	sweeper.Start(ctx)
	defer func() { _ = sweeper.Stop() }()

	watcher, err := config.NewWatcher(cli.Config, func(s *config.Settings) {
		SetLogLevel(s.Verbose || cli.Verbose)
	})
	if err == nil {
		if err := watcher.Start(ctx); err != nil {
			slog.Warn("Settings watcher unavailable", logfields.Error(err))
		}
		defer func() { _ = watcher.Stop() }()
	}

	client, err := dispatch.NewNATSClient(settings.NATSURL, settings.PoolID)
	if err != nil {
		slog.Error("Dispatcher transport unavailable", logfields.Error(err))
		os.Exit(1)
	}

	runner := agent.NewJobRunner(agent.RunnerConfig{
		TempDir:          settings.TempDir,
		Proxy:            settings.Proxy,
		Certs:            settings.Certs,
		System:           acquire.SystemConnection{URL: settings.ServerURL},
		SelfManagedCreds: settings.SelfManageGitCreds,
		Binary:           binaryOpts,
	}, jr, recorder)
	dispatcher := worker.New(runner, recorder)
	listener := agent.NewListener(client, dispatcher, recorder, settings.PoolID)

	// Run stage: interrupts now cancel the loop instead of killing us.
	signal.Stop(cfgSignals)
	close(cfgSignals)
	stop := agent.InstallInterruptHandler(cancel)
	defer stop()

	slog.Info("Agent starting",
		slog.String("agent", settings.AgentName), logfields.PoolID(settings.PoolID))
	if err := listener.Run(ctx); err != nil {
		slog.Error("Run loop failed", logfields.Error(err))
		os.Exit(1)
	}
	slog.Info("Agent stopped")
	return nil
}
