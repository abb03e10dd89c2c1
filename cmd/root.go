package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/lepinkainen/coverspectrum/internal/config"
	"github.com/lepinkainen/humanlog"
	"github.com/spf13/viper"
)

// CLI represents the complete command structure for the coverspectrum application
type CLI struct {
	// Global flags
	Config    string  `help:"Path to config file (defaults to ./config.yaml when present)" type:"path" placeholder:"FILE"`
	LogLevel  string  `help:"Log level" enum:"debug,info,warn,error" default:"info"`
	Workers   int     `help:"Concurrent cover workers (overrides pipeline.workers)" default:"0"`
	Threshold float64 `help:"Mean gray level below which a cover is dark (overrides classify.threshold)" default:"-1"`

	Run     RunCmd     `cmd:"" help:"Acquire, analyze and render in one go"`
	Acquire AcquireCmd `cmd:"" help:"Download missing cover images into the cache"`
	Analyze AnalyzeCmd `cmd:"" help:"Compute color signatures and write the sorted CSV and record file"`
	Render  RenderCmd  `cmd:"" help:"Render the dark/light HTML gallery from the record file"`
	Index   IndexCmd   `cmd:"" help:"Show or normalize the volume/issue index"`
}

// Execute runs the Kong-based CLI
func Execute() {
	var cli CLI

	kctx := kong.Parse(&cli,
		kong.Name("coverspectrum"),
		kong.Description("Sort periodical covers by color and split them into dark and light galleries."),
		kong.UsageOnError(),
	)

	initLogging(os.Stdout, cli.LogLevel)

	cfg, err := initConfig(&cli)
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, kctx, cfg); err != nil {
		slog.Error("Command failed", "error", err)
		stop()
		os.Exit(1)
	}
}

// run executes the selected command with the context and configuration
// bound for its Run method.
func run(ctx context.Context, kctx *kong.Context, cfg *config.Config) error {
	kctx.BindTo(ctx, (*context.Context)(nil))
	return kctx.Run(cfg)
}

// initConfig layers defaults, the config file, COVERSPECTRUM_* environment
// variables and global flags, in increasing priority.
func initConfig(cli *CLI) (*config.Config, error) {
	v := viper.New()
	config.SetDefaults(v)

	v.SetEnvPrefix("COVERSPECTRUM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cli.Config != "" {
		v.SetConfigFile(cli.Config)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cli.Config != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		slog.Debug("Config file not found, using defaults")
	} else {
		slog.Debug("Loaded config file", "path", v.ConfigFileUsed())
	}

	if cli.Workers > 0 {
		v.Set("pipeline.workers", cli.Workers)
	}
	if cli.Threshold >= 0 {
		v.Set("classify.threshold", cli.Threshold)
	}

	return config.Load(v)
}

func initLogging(w io.Writer, level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	// Create a human-readable handler for logging
	handler := humanlog.NewHandler(w, &humanlog.Options{
		Level: lvl,
	})

	// Set the default logger
	slog.SetDefault(slog.New(handler))
}
