package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "cfg.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func requireErrEq(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %q, got nil", want)
	}
	if err.Error() != want {
		t.Fatalf("error=%q want %q", err.Error(), want)
	}
}

func TestLoad_RequiresAStream(t *testing.T) {
	path := writeTempConfig(t, "export: {}\n")
	_, err := Load(path)
	requireErrEq(t, err, "at least one of flight or science must be configured")
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeTempConfig(t, "flight:\n  dump: ./flight.asc\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Tolerance() != 1 {
		t.Fatalf("tolerance=%v want 1", cfg.Tolerance())
	}
	if cfg.Flight.TimeKey != "m_present_time-timestamp" || cfg.Science.TimeKey != "sci_m_present_time-timestamp" {
		t.Fatalf("unexpected time keys %q %q", cfg.Flight.TimeKey, cfg.Science.TimeKey)
	}
	if cfg.Decoder.Command != "dbd2asc" || cfg.Decoder.CacheDir != "/tmp" || cfg.Decoder.MaxListedFiles != 50 {
		t.Fatalf("expected decoder defaults applied, got %+v", cfg.Decoder)
	}
	if cfg.Decoder.WaitDelay != 2*time.Second {
		t.Fatalf("wait_delay=%s want 2s", cfg.Decoder.WaitDelay)
	}
	if cfg.Export.Format != "csv" || cfg.Export.Path != "./output.csv" || cfg.Export.TimestampField != "timestamp" {
		t.Fatalf("expected export defaults applied, got %+v", cfg.Export)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Fatalf("expected log defaults applied, got %+v", cfg.Log)
	}
}

func TestLoad_ZeroToleranceKept(t *testing.T) {
	path := writeTempConfig(t, "science:\n  dump: s.asc\nmerge:\n  tolerance: 0\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Tolerance() != 0 {
		t.Fatalf("tolerance=%v want 0", cfg.Tolerance())
	}
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeTempConfig(t, `
flight:
  dir: /data/bass
  file_type: sbd
science:
  dir: /data/bass
  file_type: tbd
decoder:
  command: /opt/glider/bin/dbd2asc
  cache_dir: /var/cache/glider
  env:
    TZ: UTC
merge:
  tolerance: 0.5
export:
  format: JSONL
  path: merged.jsonl.zst
  parameters: [sci_water_temp-degc, m_depth-m]
metrics:
  textfile: /var/lib/node_exporter/glider.prom
log:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Export.Format != "jsonl" {
		t.Fatalf("format=%q want jsonl", cfg.Export.Format)
	}
	if len(cfg.Export.Parameters) != 2 {
		t.Fatalf("parameters=%v", cfg.Export.Parameters)
	}
	if cfg.Decoder.Env["TZ"] != "UTC" {
		t.Fatalf("env=%v", cfg.Decoder.Env)
	}
	if cfg.Tolerance() != 0.5 {
		t.Fatalf("tolerance=%v want 0.5", cfg.Tolerance())
	}
}

func TestLoad_CompressionNormalized(t *testing.T) {
	path := writeTempConfig(t, "flight:\n  dump: f.asc\nexport:\n  compression: \" ZSTD \"\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Export.Compression != "zstd" {
		t.Fatalf("compression=%q want zstd", cfg.Export.Compression)
	}
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "DumpAndFiles",
			yaml: "flight:\n  dump: f.asc\n  files: [a.sbd]\n",
			want: "flight.dump cannot be combined with flight.dir or flight.files",
		},
		{
			name: "DirWithoutType",
			yaml: "science:\n  dir: /data\n",
			want: "science.file_type is required when science.files is empty",
		},
		{
			name: "NegativeTolerance",
			yaml: "flight:\n  dump: f.asc\nmerge:\n  tolerance: -1\n",
			want: "merge.tolerance must be >= 0",
		},
		{
			name: "BadFormat",
			yaml: "flight:\n  dump: f.asc\nexport:\n  format: xml\n",
			want: "export.format must be 'csv' or 'jsonl'",
		},
		{
			name: "BadCompression",
			yaml: "flight:\n  dump: f.asc\nexport:\n  compression: brotli\n",
			want: `export.compression: unknown codec "brotli"`,
		},
		{
			name: "BadLevel",
			yaml: "flight:\n  dump: f.asc\nlog:\n  level: loud\n",
			want: "log.level must be one of debug, info, warn, error",
		},
		{
			name: "BadLogFormat",
			yaml: "flight:\n  dump: f.asc\nlog:\n  format: xml\n",
			want: "log.format must be 'text' or 'json'",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeTempConfig(t, tc.yaml))
			requireErrEq(t, err, tc.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatalf("expected error")
	}
}
