package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"glider-ng/internal/archive"
)

type Config struct {
	Flight  StreamConfig  `yaml:"flight"`
	Science StreamConfig  `yaml:"science"`
	Decoder DecoderConfig `yaml:"decoder"`
	Merge   MergeConfig   `yaml:"merge"`
	Export  ExportConfig  `yaml:"export"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// StreamConfig selects the input of one stream: either an already converted
// dump, or binary files run through the decoder.
type StreamConfig struct {
	Dump     string   `yaml:"dump"`
	Dir      string   `yaml:"dir"`
	FileType string   `yaml:"file_type"`
	Files    []string `yaml:"files"`
	TimeKey  string   `yaml:"time_key"`
}

func (s StreamConfig) Enabled() bool {
	return s.Dump != "" || s.Dir != "" || len(s.Files) > 0
}

type DecoderConfig struct {
	Command         string            `yaml:"command"`
	CacheDir        string            `yaml:"cache_dir"`
	MaxListedFiles  int               `yaml:"max_listed_files"`
	Env             map[string]string `yaml:"env"`
	WorkDir         string            `yaml:"work_dir"`
	StderrTailLines int               `yaml:"stderr_tail_lines"`
	WaitDelay       time.Duration     `yaml:"wait_delay"`
}

type MergeConfig struct {
	// Tolerance is in seconds. Nil means the default of 1.
	Tolerance *float64 `yaml:"tolerance"`
}

type ExportConfig struct {
	Format         string   `yaml:"format"`
	Path           string   `yaml:"path"`
	TimestampField string   `yaml:"timestamp_field"`
	Parameters     []string `yaml:"parameters"`
	AllRows        bool     `yaml:"all_rows"`
	// Compression names the output codec (none, zstd, lz4, s2, gzip). Empty
	// means the codec follows the path extension.
	Compression string `yaml:"compression"`
}

type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Normalize applies defaults and validates. It is called by Load and again
// by callers that override fields after loading.
func (cfg *Config) Normalize() error {
	if !cfg.Flight.Enabled() && !cfg.Science.Enabled() {
		return fmt.Errorf("at least one of flight or science must be configured")
	}
	if err := checkStream("flight", cfg.Flight); err != nil {
		return err
	}
	if err := checkStream("science", cfg.Science); err != nil {
		return err
	}
	if cfg.Flight.TimeKey == "" {
		cfg.Flight.TimeKey = "m_present_time-timestamp"
	}
	if cfg.Science.TimeKey == "" {
		cfg.Science.TimeKey = "sci_m_present_time-timestamp"
	}

	if cfg.Decoder.Command == "" {
		cfg.Decoder.Command = "dbd2asc"
	}
	if cfg.Decoder.CacheDir == "" {
		cfg.Decoder.CacheDir = "/tmp"
	}
	if cfg.Decoder.MaxListedFiles <= 0 {
		cfg.Decoder.MaxListedFiles = 50
	}
	if cfg.Decoder.StderrTailLines <= 0 {
		cfg.Decoder.StderrTailLines = 200
	}
	if cfg.Decoder.WaitDelay <= 0 {
		cfg.Decoder.WaitDelay = 2 * time.Second
	}

	if cfg.Merge.Tolerance == nil {
		tol := 1.0
		cfg.Merge.Tolerance = &tol
	}
	if *cfg.Merge.Tolerance < 0 {
		return fmt.Errorf("merge.tolerance must be >= 0")
	}

	cfg.Export.Format = strings.ToLower(strings.TrimSpace(cfg.Export.Format))
	switch cfg.Export.Format {
	case "":
		cfg.Export.Format = "csv"
	case "csv", "jsonl":
	default:
		return fmt.Errorf("export.format must be 'csv' or 'jsonl'")
	}
	if cfg.Export.Path == "" {
		cfg.Export.Path = "./output." + cfg.Export.Format
	}
	if cfg.Export.Compression != "" {
		codec, err := archive.ParseCodec(cfg.Export.Compression)
		if err != nil {
			return fmt.Errorf("export.compression: %w", err)
		}
		cfg.Export.Compression = string(codec)
	}
	if cfg.Export.TimestampField == "" {
		cfg.Export.TimestampField = "timestamp"
	}

	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	switch cfg.Log.Level {
	case "":
		cfg.Log.Level = "info"
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	switch cfg.Log.Format {
	case "":
		cfg.Log.Format = "text"
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be 'text' or 'json'")
	}

	return nil
}

// Tolerance returns the merge window in seconds.
func (cfg Config) Tolerance() float64 {
	if cfg.Merge.Tolerance == nil {
		return 1
	}
	return *cfg.Merge.Tolerance
}

func checkStream(name string, s StreamConfig) error {
	if !s.Enabled() {
		return nil
	}
	if s.Dump != "" && (s.Dir != "" || len(s.Files) > 0) {
		return fmt.Errorf("%s.dump cannot be combined with %s.dir or %s.files", name, name, name)
	}
	if s.Dump == "" && len(s.Files) == 0 && s.FileType == "" {
		return fmt.Errorf("%s.file_type is required when %s.files is empty", name, name)
	}
	return nil
}
