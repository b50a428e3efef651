package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/google/uuid"

	"glider-ng/internal/config"
)

type flags struct {
	configPath string
	flight     string
	science    string
	output     string
	format     string
	compress   string
	tolerance  string
	timestamp  string
	allRows    bool
	params     []string
}

func main() {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "Path to YAML config")
	flag.StringVar(&f.flight, "flight", "", "Converted flight dump (.asc, optionally .zst/.lz4/.s2/.gz)")
	flag.StringVar(&f.science, "science", "", "Converted science dump (.asc, optionally .zst/.lz4/.s2/.gz)")
	flag.StringVar(&f.output, "output", "", "Output path, '-' for stdout")
	flag.StringVar(&f.format, "format", "", "Output format: csv or jsonl")
	flag.StringVar(&f.compress, "compression", "", "Output codec (none, zstd, lz4, s2, gzip); default follows the output extension")
	flag.StringVar(&f.tolerance, "tolerance", "", "Merge tolerance in seconds")
	flag.StringVar(&f.timestamp, "timestamp-field", "", "Row key written as the CSV timestamp column")
	flag.BoolVar(&f.allRows, "all-rows", false, "Write every row, not only rows carrying a parameter")
	flag.Parse()
	f.params = flag.Args()

	cfg, err := loadConfig(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	logger := newLogger(os.Stderr, cfg.Log).With("run_id", uuid.NewString())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger, os.Stdout); err != nil {
		logger.Error("glider-ng failed", "err", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file, if any, and applies command line
// overrides on top of it.
func loadConfig(f flags) (config.Config, error) {
	var cfg config.Config
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return config.Config{}, fmt.Errorf("load %s: %w", f.configPath, err)
		}
		cfg = loaded
	}

	if f.flight != "" {
		cfg.Flight = config.StreamConfig{Dump: f.flight, TimeKey: cfg.Flight.TimeKey}
	}
	if f.science != "" {
		cfg.Science = config.StreamConfig{Dump: f.science, TimeKey: cfg.Science.TimeKey}
	}
	if f.output != "" {
		cfg.Export.Path = f.output
	}
	if f.format != "" {
		// A defaulted path follows the overridden format.
		if f.output == "" && cfg.Export.Path == "./output."+cfg.Export.Format {
			cfg.Export.Path = ""
		}
		cfg.Export.Format = f.format
	}
	if f.compress != "" {
		cfg.Export.Compression = f.compress
	}
	if f.tolerance != "" {
		tol, err := strconv.ParseFloat(f.tolerance, 64)
		if err != nil {
			return config.Config{}, fmt.Errorf("invalid -tolerance %q: %w", f.tolerance, err)
		}
		cfg.Merge.Tolerance = &tol
	}
	if f.timestamp != "" {
		cfg.Export.TimestampField = f.timestamp
	}
	if f.allRows {
		cfg.Export.AllRows = true
	}
	if len(f.params) > 0 {
		cfg.Export.Parameters = f.params
	}

	if err := cfg.Normalize(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newLogger(w io.Writer, lc config.LogConfig) *slog.Logger {
	var level slog.Level
	switch lc.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
