package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"glider-ng/internal/archive"
	"glider-ng/internal/config"
	"glider-ng/internal/dbd"
	"glider-ng/internal/decoder"
	"glider-ng/internal/export"
	"glider-ng/internal/metrics"
)

// stream is one opened input: its row reader and whatever must be closed
// once reading is done.
type stream struct {
	name    string
	reader  *dbd.Reader
	timeKey string
	closer  io.Closer
	conv    *decoder.Converter
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger, stdout io.Writer) (err error) {
	collector := metrics.NewCollector()

	var streams []*stream
	defer func() {
		for _, s := range streams {
			if cerr := s.closer.Close(); cerr != nil {
				attrs := []any{"stream", s.name, "err", cerr}
				if s.conv != nil {
					snap := s.conv.Snapshot()
					attrs = append(attrs, "args", snap.Args, "lines", snap.Lines, "stderr_tail", snap.Stderr)
				}
				logger.Error("input close failed", attrs...)
				if err == nil {
					err = cerr
				}
			}
		}
	}()

	var flight, science *stream
	if cfg.Flight.Enabled() {
		flight, err = openStream(ctx, "flight", cfg.Flight, cfg.Decoder, collector)
		if err != nil {
			return err
		}
		streams = append(streams, flight)
		logStream(logger, flight)
	}
	if cfg.Science.Enabled() {
		science, err = openStream(ctx, "science", cfg.Science, cfg.Decoder, collector)
		if err != nil {
			return err
		}
		streams = append(streams, science)
		logStream(logger, science)
	}

	next, fields, err := rowSource(cfg, flight, science, collector)
	if err != nil {
		return err
	}
	params, allRows := exportColumns(cfg.Export, fields)

	out, closeOut, err := openOutput(cfg.Export.Path, cfg.Export.Compression, stdout)
	if err != nil {
		return err
	}
	w, err := export.New(export.Format(cfg.Export.Format), out, export.Options{
		TimestampField: cfg.Export.TimestampField,
		Parameters:     params,
		AllRows:        allRows,
	})
	if err != nil {
		_ = closeOut()
		return err
	}

	var sum runSummary
	n, copyErr := export.Copy(w, func() (dbd.MergedRow, error) {
		if err := ctx.Err(); err != nil {
			return dbd.MergedRow{}, err
		}
		row, err := next()
		if err == nil {
			sum.add(row)
		}
		return row, err
	})
	collector.Exported.Add(float64(n))
	if err := closeOut(); err != nil && copyErr == nil {
		copyErr = fmt.Errorf("close output: %w", err)
	}

	if cfg.Metrics.Textfile != "" {
		if err := collector.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Warn("metrics not written", "path", cfg.Metrics.Textfile, "err", err)
		}
	}

	if copyErr != nil {
		return copyErr
	}
	logger.Info("export complete",
		append([]any{"path", cfg.Export.Path, "format", cfg.Export.Format, "written", n}, sum.attrs()...)...)
	return nil
}

func openStream(ctx context.Context, name string, sc config.StreamConfig, dc config.DecoderConfig, obs dbd.Observer) (*stream, error) {
	var (
		src    dbd.LineSource
		closer io.Closer
		conv   *decoder.Converter
	)
	if sc.Dump != "" {
		rc, err := archive.Open(sc.Dump)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		src, closer = dbd.NewLineReader(rc), rc
	} else {
		c, err := decoder.Start(ctx, decoder.Config{
			Name:            "dbd2asc-" + name,
			Command:         dc.Command,
			CacheDir:        dc.CacheDir,
			Dir:             sc.Dir,
			FileType:        sc.FileType,
			Files:           sc.Files,
			MaxListedFiles:  dc.MaxListedFiles,
			Env:             dc.Env,
			WorkDir:         dc.WorkDir,
			StderrTailLines: dc.StderrTailLines,
			WaitDelay:       dc.WaitDelay,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		src, closer, conv = c, c, c
	}

	r, err := dbd.NewReader(src, dbd.WithName(name), dbd.WithObserver(obs))
	if err != nil {
		if cerr := closer.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
		return nil, err
	}
	return &stream{name: name, reader: r, timeKey: sc.TimeKey, closer: closer, conv: conv}, nil
}

func logStream(logger *slog.Logger, s *stream) {
	fields := s.reader.Fields()
	positions := 0
	for _, f := range fields {
		if f.Position {
			positions++
		}
	}
	logger.Info("stream opened",
		"stream", s.name,
		"fields", len(fields),
		"position_fields", positions,
		"fingerprint", strconv.FormatUint(dbd.Fingerprint(fields), 16),
	)
}

// rowSource returns the pull function feeding the exporter, a merge of both
// streams or the single configured one, along with its column descriptors.
func rowSource(cfg config.Config, flight, science *stream, obs dbd.Observer) (func() (dbd.MergedRow, error), []dbd.Field, error) {
	switch {
	case flight != nil && science != nil:
		m, err := dbd.NewMerger(flight.reader, science.reader,
			dbd.WithTolerance(cfg.Tolerance()),
			dbd.WithTimeKeys(flight.timeKey, science.timeKey),
			dbd.WithMergeObserver(obs),
		)
		if err != nil {
			return nil, nil, err
		}
		return m.Next, m.Fields(), nil
	case flight != nil:
		return singleSource(flight, dbd.OriginFlight), flight.reader.Fields(), nil
	case science != nil:
		return singleSource(science, dbd.OriginScience), science.reader.Fields(), nil
	default:
		return nil, nil, errors.New("no input stream configured")
	}
}

// exportColumns picks the CSV columns. Without configured parameters every
// input column is written and no row is filtered out.
func exportColumns(ec config.ExportConfig, fields []dbd.Field) (params []string, allRows bool) {
	if len(ec.Parameters) > 0 || export.Format(ec.Format) != export.FormatCSV {
		return ec.Parameters, ec.AllRows
	}
	params = make([]string, 0, len(fields))
	for _, f := range fields {
		params = append(params, f.Key())
	}
	return params, true
}

func singleSource(s *stream, origin dbd.Origin) func() (dbd.MergedRow, error) {
	return func() (dbd.MergedRow, error) {
		row, err := s.reader.Next()
		if err != nil {
			return dbd.MergedRow{}, err
		}
		return dbd.Timestamped(row, s.timeKey, origin), nil
	}
}

// openOutput opens the export destination. An empty compression lets the
// path extension pick the codec.
func openOutput(path, compression string, stdout io.Writer) (io.Writer, func() error, error) {
	var (
		wc  io.WriteCloser
		err error
	)
	switch {
	case path == "-":
		wc, err = archive.NewWriter(stdout, archive.Codec(compression))
	case compression != "":
		wc, err = archive.CreateCodec(path, archive.Codec(compression))
	default:
		wc, err = archive.Create(path)
	}
	if err != nil {
		return nil, nil, err
	}
	return wc, wc.Close, nil
}
