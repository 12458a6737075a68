package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/leowmjw/go-epitaxy-timeline/pkg/growth"
	"github.com/leowmjw/go-epitaxy-timeline/pkg/metrics"
	"github.com/leowmjw/go-epitaxy-timeline/pkg/structure"
)

// Loader reads growth-run logs and builds processed runs
type Loader struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	opts    Options
}

// NewLoader creates a loader. m may be nil.
func NewLoader(logger *slog.Logger, m *metrics.Metrics, opts Options) *Loader {
	return &Loader{logger: logger, metrics: m, opts: opts}
}

// Record validates the settings and reads the values log and, when given,
// the shutter log into one recorder per configured channel.
func (l *Loader) Record(settings structure.Settings, values, shutters io.Reader) ([]*growth.Recorder, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	recorders := make([]*growth.Recorder, 0, len(settings.Channels))
	for _, cfg := range settings.Channels {
		rec, err := growth.NewRecorder(cfg)
		if err != nil {
			return nil, err
		}
		recorders = append(recorders, rec)
	}

	valueStats, err := ReadValues(values, recorders, l.opts)
	if err != nil {
		return nil, fmt.Errorf("values log: %w", err)
	}
	l.logger.Info("Read values log",
		"rows", valueStats.Rows, "bad_rows", valueStats.BadRows, "unbound_channels", valueStats.Unbound)

	var shutterStats Stats
	if shutters != nil {
		shutterStats, err = ReadShutters(shutters, recorders, l.opts)
		if err != nil {
			return nil, fmt.Errorf("shutter log: %w", err)
		}
		l.logger.Info("Read shutter log",
			"rows", shutterStats.Rows, "bad_rows", shutterStats.BadRows, "unbound_channels", shutterStats.Unbound)
	}

	for _, rec := range recorders {
		cfg := rec.Config()
		if cs, ok := valueStats.Channels[cfg.ID]; ok {
			l.metrics.SamplesIngested(cfg.Name, cs.Accepted)
			l.metrics.SamplesSkipped(cfg.Name, metrics.ReasonMalformed, cs.Malformed)
			l.metrics.SamplesSkipped(cfg.Name, metrics.ReasonSpacing, cs.Spacing)
			if cs.Malformed > 0 {
				l.logger.Warn("Skipped malformed cells", "channel", cfg.Name, "count", cs.Malformed)
			}
		}
		if cs, ok := shutterStats.Channels[cfg.ID]; ok {
			l.metrics.ShutterEvents(cfg.Name, cs.ShutterEvents)
		}
	}
	return recorders, nil
}

// Process resamples every recorder, up to parallelism at a time
func (l *Loader) Process(ctx context.Context, recorders []*growth.Recorder, parallelism int) ([]*growth.Channel, error) {
	channels := make([]*growth.Channel, len(recorders))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(parallelism, 1))
	for i, rec := range recorders {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ch, err := rec.Process()
			if err != nil {
				return err
			}
			channels[i] = ch
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, ch := range channels {
		l.metrics.ChannelProcessed(ch.Name(), len(ch.Curve.Nodes))
		l.logger.Debug("Processed channel",
			"channel", ch.Name(), "nodes", len(ch.Curve.Nodes), "intervals", len(ch.Curve.Intervals))
	}
	return channels, nil
}

// Load reads both logs and returns the processed run
func (l *Loader) Load(ctx context.Context, settings structure.Settings, values, shutters io.Reader, parallelism int) (*structure.Run, error) {
	recorders, err := l.Record(settings, values, shutters)
	if err != nil {
		return nil, err
	}
	channels, err := l.Process(ctx, recorders, parallelism)
	if err != nil {
		return nil, err
	}
	return structure.NewRun(settings, channels)
}

// LoadFiles is Load for log files on disk. An empty shuttersPath means the
// run has no shutter log.
func (l *Loader) LoadFiles(ctx context.Context, settings structure.Settings, valuesPath, shuttersPath string, parallelism int) (*structure.Run, error) {
	values, err := os.Open(valuesPath)
	if err != nil {
		return nil, err
	}
	defer values.Close()

	var shutters io.Reader
	if shuttersPath != "" {
		f, err := os.Open(shuttersPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		shutters = f
	}
	return l.Load(ctx, settings, values, shutters, parallelism)
}
