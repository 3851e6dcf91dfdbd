package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/history"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/metrics"
	"git.home.luguber.info/inful/sitegen/internal/server"
	"git.home.luguber.info/inful/sitegen/internal/site"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"sitegen.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build struct {
		Clean bool `help:"Clean the output directory before building"`
	} `cmd:"" help:"Build the site once and exit"`

	Serve struct {
		Port int `short:"p" help:"Override the configured HTTP port"`
	} `cmd:"" help:"Build, watch for changes, and serve the site with live reload"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`
}

func main() {
	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	switch ctx.Command() {
	case "build":
		cfg := loadConfig()
		if CLI.Build.Clean {
			cfg.Output.Clean = true
		}
		if err := runBuild(cfg); err != nil {
			slog.Error("build failed", logfields.Error(err))
			os.Exit(1)
		}
	case "serve":
		cfg := loadConfig()
		if CLI.Serve.Port > 0 {
			cfg.Server.Port = CLI.Serve.Port
		}
		if err := runServe(cfg); err != nil {
			slog.Error("serve failed", logfields.Error(err))
			os.Exit(1)
		}
	case "init":
		if err := config.Init(CLI.Config, CLI.Init.Force); err != nil {
			slog.Error("init failed", logfields.Error(err))
			os.Exit(1)
		}
		slog.Info("configuration written", logfields.Path(CLI.Config))
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		slog.Error("failed to load configuration", logfields.Error(err))
		os.Exit(1)
	}
	return cfg
}

func runBuild(cfg *config.Config) error {
	builder := site.NewBuilder(cfg).WithRecorder(metrics.NewPrometheusRecorder(nil))
	res := builder.FullBuild(context.Background())
	recordHistory(cfg, res)
	if res.Failed() {
		return res.Err()
	}
	slog.Info("site built",
		logfields.BuildID(res.BuildID),
		logfields.Output(cfg.Output.Directory),
		logfields.DurationMS(float64(res.Duration.Milliseconds())))
	return nil
}

// recordHistory persists the build outcome when a history path is
// configured. Failures here never fail the build.
func recordHistory(cfg *config.Config, res *site.Result) {
	if cfg.History.Path == "" {
		return
	}
	store, err := history.NewStore(cfg.History.Path)
	if err != nil {
		slog.Warn("history store unavailable", logfields.Error(err))
		return
	}
	defer store.Close()
	if err := store.Record(context.Background(), res); err != nil {
		slog.Warn("history record failed", logfields.Error(err))
	}
}

func runServe(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(reg)
	builder := site.NewBuilder(cfg).WithRecorder(recorder)

	srv, err := server.New(cfg, builder, recorder, reg)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
