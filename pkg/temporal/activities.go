package temporal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"

	"github.com/leowmjw/go-epitaxy-timeline/pkg/growth"
	"github.com/leowmjw/go-epitaxy-timeline/pkg/ingest"
	"github.com/leowmjw/go-epitaxy-timeline/pkg/metrics"
	"github.com/leowmjw/go-epitaxy-timeline/pkg/structure"
)

// Application error types of failures that retrying cannot fix
const (
	InvalidConfigurationErrorType = "InvalidConfiguration"
	RunNotFoundErrorType          = "RunNotFound"
)

// Activities implements the activities of the growth-run workflows
type Activities struct {
	logger  *slog.Logger
	store   RunStore
	metrics *metrics.Metrics
}

// NewActivities creates the activities. m may be nil.
func NewActivities(logger *slog.Logger, store RunStore, m *metrics.Metrics) *Activities {
	return &Activities{
		logger:  logger,
		store:   store,
		metrics: m,
	}
}

// StoreSettingsActivity validates and stores the settings of a run. It
// returns the number of configured channels.
func (a *Activities) StoreSettingsActivity(ctx context.Context, runID string, settings structure.Settings) (int, error) {
	a.logger.Info("Storing settings", "runID", runID, "channels", len(settings.Channels))

	if err := settings.Validate(); err != nil {
		a.logger.Error("Rejected settings", "runID", runID, "error", err)
		return 0, nonRetryable(err)
	}
	if err := a.store.PutSettings(ctx, runID, settings); err != nil {
		return 0, fmt.Errorf("failed to store settings: %w", err)
	}
	return len(settings.Channels), nil
}

// ParseLogsActivity reads the logs of a run with its stored settings and
// stores one recording per configured channel
func (a *Activities) ParseLogsActivity(ctx context.Context, req ParseRequest) (*ParseResult, error) {
	a.logger.Info("Parsing logs", "runID", req.RunID, "valuesBytes", len(req.Values), "shutterBytes", len(req.Shutters))

	settings, err := a.store.Settings(ctx, req.RunID)
	if err != nil {
		return nil, nonRetryable(err)
	}

	loc, err := time.LoadLocation(req.Location)
	if err != nil {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), InvalidConfigurationErrorType, err)
	}

	var shutters io.Reader
	if req.Shutters != "" {
		shutters = strings.NewReader(req.Shutters)
	}
	loader := ingest.NewLoader(a.logger, a.metrics, ingest.Options{Location: loc, Window: req.Window})
	recorders, err := loader.Record(settings, strings.NewReader(req.Values), shutters)
	if err != nil {
		return nil, nonRetryable(err)
	}

	result := &ParseResult{}
	for _, rec := range recorders {
		id := rec.Config().ID
		err := a.store.PutRecording(ctx, req.RunID, id, Recording{Samples: rec.Samples(), Shutters: rec.Shutters()})
		if err != nil {
			return nil, fmt.Errorf("failed to store recording of channel %d: %w", id, err)
		}
		result.ChannelIDs = append(result.ChannelIDs, id)
		result.Samples += rec.Len()
	}

	a.logger.Info("Successfully parsed logs", "runID", req.RunID, "channels", len(result.ChannelIDs), "samples", result.Samples)
	return result, nil
}

// ProcessChannelActivity resamples the recording of one channel and stores
// the processed channel
func (a *Activities) ProcessChannelActivity(ctx context.Context, runID string, channelID int) (*ChannelSummary, error) {
	settings, err := a.store.Settings(ctx, runID)
	if err != nil {
		return nil, nonRetryable(err)
	}
	cfg, ok := settings.Channel(channelID)
	if !ok {
		return nil, nonRetryable(fmt.Errorf("%w: %d", structure.ErrUnknownChannel, channelID))
	}
	rec, err := a.store.Recording(ctx, runID, channelID)
	if err != nil {
		return nil, nonRetryable(err)
	}

	ch, err := growth.Process(cfg, rec.Samples, rec.Shutters)
	if err != nil {
		return nil, nonRetryable(err)
	}
	if err := a.store.PutChannel(ctx, runID, ch); err != nil {
		return nil, fmt.Errorf("failed to store channel %d: %w", channelID, err)
	}
	a.metrics.ChannelProcessed(ch.Name(), len(ch.Curve.Nodes))

	a.logger.Debug("Processed channel", "runID", runID, "channel", ch.Name(),
		"samples", len(rec.Samples), "nodes", len(ch.Curve.Nodes), "intervals", len(ch.Curve.Intervals))
	return &ChannelSummary{
		ID:        ch.ID(),
		Name:      ch.Name(),
		Samples:   len(rec.Samples),
		Nodes:     len(ch.Curve.Nodes),
		Intervals: len(ch.Curve.Intervals),
	}, nil
}

// ReconstructActivity builds the layer structure of a processed run
func (a *Activities) ReconstructActivity(ctx context.Context, req ReconstructRequest) (*ReconstructResult, error) {
	run, err := a.loadRun(ctx, req.RunID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	layers, err := structure.Reconstruct(ctx, run, req.Options)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct run %s: %w", req.RunID, err)
	}
	took := time.Since(start)
	a.metrics.Reconstructed(len(layers), took)

	a.logger.Info("Reconstructed run", "runID", req.RunID, "layers", len(layers), "duration", took)
	return &ReconstructResult{RunID: req.RunID, Layers: layers}, nil
}

// ChannelValuesActivity queries a processed channel
func (a *Activities) ChannelValuesActivity(ctx context.Context, req ValuesRequest) (*ValuesResult, error) {
	run, err := a.loadRun(ctx, req.RunID)
	if err != nil {
		return nil, err
	}
	ch := run.Channel(req.ChannelID)
	if ch == nil {
		return nil, nonRetryable(fmt.Errorf("%w: %d", structure.ErrUnknownChannel, req.ChannelID))
	}

	result := &ValuesResult{RunID: req.RunID, ChannelID: ch.ID(), Name: ch.Name()}
	if len(req.Timestamps) == 0 {
		result.Nodes = ch.Curve.Nodes
		return result, nil
	}
	result.Points = make([]Point, len(req.Timestamps))
	for i, ts := range req.Timestamps {
		result.Points[i].Timestamp = ts
		if v, ok := ch.ValueAt(ts); ok {
			result.Points[i].Value = &v
		}
	}
	return result, nil
}

func (a *Activities) loadRun(ctx context.Context, runID string) (*structure.Run, error) {
	settings, err := a.store.Settings(ctx, runID)
	if err != nil {
		return nil, nonRetryable(err)
	}
	channels, err := a.store.Channels(ctx, runID)
	if err != nil {
		return nil, nonRetryable(err)
	}
	run, err := structure.NewRun(settings, channels)
	if err != nil {
		return nil, nonRetryable(err)
	}
	return run, nil
}

// nonRetryable marks configuration errors and unknown runs as non-retryable
// application errors. Other errors are returned unchanged.
func nonRetryable(err error) error {
	switch {
	case errors.Is(err, ErrRunNotFound), errors.Is(err, ErrNoRecording):
		return temporal.NewNonRetryableApplicationError(err.Error(), RunNotFoundErrorType, err)
	case errors.Is(err, growth.ErrInvalidConfig),
		errors.Is(err, structure.ErrMissingRole),
		errors.Is(err, structure.ErrUnknownChannel),
		errors.Is(err, structure.ErrInvalidSettings):
		return temporal.NewNonRetryableApplicationError(err.Error(), InvalidConfigurationErrorType, err)
	default:
		return err
	}
}
