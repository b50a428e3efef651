package decoder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Config describes one run of the binary-to-ASCII converter.
type Config struct {
	Name     string
	Command  string
	CacheDir string

	// Dir and FileType select <Dir>/*.<FileType> when Files is empty or
	// longer than MaxListedFiles.
	Dir            string
	FileType       string
	Files          []string
	MaxListedFiles int

	Env     map[string]string
	WorkDir string

	StderrTailLines int

	// MaxLineBytes limits one stdout line and any stored stderr line.
	// If 0, defaults to 1 MiB.
	MaxLineBytes int

	// WaitDelay bounds how long Close waits for a cancelled process.
	WaitDelay time.Duration
}

// Converter runs the converter once and exposes its stdout as a line source.
// It implements dbd.LineSource.
type Converter struct {
	cfg  Config
	args []string

	cmd     *exec.Cmd
	scanner *bufio.Scanner
	stdout  io.ReadCloser
	stderr  *tailBuffer

	closed atomic.Bool
	eof    bool
	lines  atomic.Uint64

	mu      sync.RWMutex
	pid     int
	state   string
	lastErr string

	cancel     context.CancelFunc
	stderrDone chan struct{}
}

type Snapshot struct {
	Name      string   `json:"name"`
	Running   bool     `json:"running"`
	PID       int      `json:"pid,omitempty"`
	State     string   `json:"state"`
	Args      []string `json:"args"`
	Lines     uint64   `json:"lines"`
	LastError string   `json:"last_error,omitempty"`
	Stderr    []string `json:"stderr_tail,omitempty"`
}

func normalize(cfg Config) Config {
	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.Command = strings.TrimSpace(cfg.Command)
	if cfg.Name == "" {
		cfg.Name = "dbd2asc"
	}
	if cfg.Command == "" {
		cfg.Command = "dbd2asc"
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = "/tmp"
	}
	if cfg.MaxListedFiles <= 0 {
		cfg.MaxListedFiles = 50
	}
	if cfg.StderrTailLines <= 0 {
		cfg.StderrTailLines = 200
	}
	if cfg.MaxLineBytes <= 0 {
		cfg.MaxLineBytes = 1024 * 1024
	}
	if cfg.WaitDelay <= 0 {
		cfg.WaitDelay = 2 * time.Second
	}
	return cfg
}

// Args builds the converter argument list: the cache directory followed by
// the input files. Long or empty file lists fall back to a directory glob.
func Args(cfg Config) ([]string, error) {
	cfg = normalize(cfg)
	args := []string{"-c", cfg.CacheDir}

	if len(cfg.Files) > 0 && len(cfg.Files) <= cfg.MaxListedFiles {
		for _, f := range cfg.Files {
			if cfg.Dir != "" && !filepath.IsAbs(f) {
				f = filepath.Join(cfg.Dir, f)
			}
			args = append(args, f)
		}
		return args, nil
	}

	if cfg.Dir == "" || cfg.FileType == "" {
		return nil, fmt.Errorf("converter %s: dir and file type are required without a file list", cfg.Name)
	}
	pattern := filepath.Join(cfg.Dir, "*."+strings.TrimPrefix(cfg.FileType, "."))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("converter %s: glob %s: %w", cfg.Name, pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("converter %s: no files match %s", cfg.Name, pattern)
	}
	return append(args, matches...), nil
}

// Start launches the converter. Cancelling ctx kills it.
func Start(ctx context.Context, cfg Config) (*Converter, error) {
	cfg = normalize(cfg)
	args, err := Args(cfg)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(runCtx, cfg.Command, args...)
	if cfg.WorkDir != "" {
		cmd.Dir = cfg.WorkDir
	}
	if len(cfg.Env) > 0 {
		cmd.Env = append(cmd.Environ(), envMapToList(cfg.Env)...)
	}
	cmd.WaitDelay = cfg.WaitDelay
	configureProcess(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start %s: %w", cfg.Command, err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), cfg.MaxLineBytes)

	c := &Converter{
		cfg:        cfg,
		args:       args,
		cmd:        cmd,
		scanner:    scanner,
		stdout:     stdout,
		stderr:     newTailBuffer(cfg.StderrTailLines, cfg.MaxLineBytes),
		state:      "running",
		cancel:     cancel,
		stderrDone: make(chan struct{}),
	}
	if cmd.Process != nil {
		c.pid = cmd.Process.Pid
	}

	go func() {
		defer close(c.stderrDone)
		readLinesToTail(stderr, c.stderr)
	}()
	return c, nil
}

// ReadLine returns the next stdout line, or io.EOF once the converter has
// closed its output.
func (c *Converter) ReadLine() (string, error) {
	if c.closed.Load() {
		return "", errors.New("converter is closed")
	}
	if c.eof {
		return "", io.EOF
	}
	if c.scanner.Scan() {
		c.lines.Add(1)
		return c.scanner.Text(), nil
	}
	if err := c.scanner.Err(); err != nil {
		c.setState("error", err.Error())
		return "", fmt.Errorf("read %s output: %w", c.cfg.Name, err)
	}
	c.eof = true
	return "", io.EOF
}

// Close waits for the converter to exit. If its output was not read to the
// end the process is killed first. The returned error carries the stderr tail
// when the converter failed.
func (c *Converter) Close() error {
	if c == nil || c.closed.Swap(true) {
		return nil
	}
	stopped := false
	if !c.eof {
		// The caller stopped early; nobody will drain stdout.
		stopped = true
		c.cancel()
	}
	// Wait closes the pipes, so the stderr tail is drained first. A converter
	// (or a child of it) still holding stderr after WaitDelay is killed.
	drained := true
	timer := time.NewTimer(c.cfg.WaitDelay)
	select {
	case <-c.stderrDone:
	case <-timer.C:
		drained = false
		killProcess(c.cmd)
	}
	timer.Stop()
	waitErr := c.cmd.Wait()
	if !drained {
		<-c.stderrDone
	}
	c.cancel()

	c.mu.Lock()
	c.pid = 0
	c.mu.Unlock()

	if waitErr == nil || stopped {
		c.setState("exited", "")
		return nil
	}

	err := fmt.Errorf("%s exited: %w", c.cfg.Name, waitErr)
	if tail := c.stderr.snapshot(); len(tail) > 0 {
		err = fmt.Errorf("%w (stderr: %s)", err, strings.Join(tail, " | "))
	}
	c.setState("exited", err.Error())
	return err
}

func (c *Converter) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	pid := c.pid
	state := c.state
	lastErr := c.lastErr
	c.mu.RUnlock()

	return Snapshot{
		Name:      c.cfg.Name,
		Running:   pid != 0 && state == "running",
		PID:       pid,
		State:     state,
		Args:      append([]string(nil), c.args...),
		Lines:     c.lines.Load(),
		LastError: lastErr,
		Stderr:    c.stderr.snapshot(),
	}
}

func (c *Converter) setState(state string, lastErr string) {
	c.mu.Lock()
	c.state = state
	if strings.TrimSpace(lastErr) != "" {
		c.lastErr = lastErr
	}
	c.mu.Unlock()
}

func envMapToList(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		out = append(out, k+"="+v)
	}
	return out
}

func readLinesToTail(r io.Reader, t *tailBuffer) {
	if r == nil || t == nil {
		return
	}
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, t.maxLineBytes)

	for scanner.Scan() {
		t.add(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		t.add("[tail error] " + err.Error())
		// Keep draining so the converter never blocks on a full stderr pipe.
		_, _ = io.Copy(io.Discard, r)
	}
}
