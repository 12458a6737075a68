package structure

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leowmjw/go-epitaxy-timeline/pkg/timeline"
)

// ChannelValue is a channel present in a layer with its values at the layer
// boundaries. A nil value means the channel is absent at that boundary.
type ChannelValue struct {
	ID    int      `json:"id"`
	Name  string   `json:"name"`
	Start *float64 `json:"start,omitempty"`
	Stop  *float64 `json:"stop,omitempty"`
}

// Layer is one deposited layer between two consecutive cut points
type Layer struct {
	Index            int            `json:"index"`
	Start            int64          `json:"start"`
	Stop             int64          `json:"stop"`
	StartMaterial    Material       `json:"start_material"`
	StopMaterial     Material       `json:"stop_material"`
	NominalThickness float64        `json:"nominal_thickness"`
	ActiveChannels   []ChannelValue `json:"active_channels,omitempty"`
}

// Options tune layer reconstruction. Zero values select the defaults.
type Options struct {
	GridSteps   int           `json:"grid_steps,omitempty"`
	Parallelism int           `json:"parallelism,omitempty"`
	RateUnit    time.Duration `json:"rate_unit,omitempty"`
}

func (o Options) withDefaults() Options {
	if o.GridSteps <= 0 {
		o.GridSteps = DefaultGridSteps
	}
	if o.Parallelism <= 0 {
		o.Parallelism = 1
	}
	if o.RateUnit < time.Millisecond {
		o.RateUnit = DefaultRateUnit
	}
	return o
}

// Layer resolves the layer with the given index over span. Both boundary
// materials use the layer centre as reference instant.
func (r *Run) Layer(index int, span timeline.Interval, opts Options) Layer {
	opts = opts.withDefaults()
	centre := Centre(span)
	layer := Layer{
		Index:            index,
		Start:            span.Start,
		Stop:             span.End,
		StartMaterial:    r.MaterialAt(span.Start, centre),
		StopMaterial:     r.MaterialAt(span.End, centre),
		NominalThickness: r.Thickness(span, opts.GridSteps, opts.RateUnit),
	}
	for _, ch := range r.channels {
		if !ch.Present(centre) {
			continue
		}
		cv := ChannelValue{ID: ch.ID(), Name: ch.Name()}
		if v, ok := ch.ValueAt(span.Start); ok {
			cv.Start = &v
		}
		if v, ok := ch.ValueAt(span.End); ok {
			cv.Stop = &v
		}
		layer.ActiveChannels = append(layer.ActiveChannels, cv)
	}
	return layer
}

// Reconstruct resolves every layer of the run in order. Layers are
// independent, so up to opts.Parallelism of them are computed at once.
func Reconstruct(ctx context.Context, run *Run, opts Options) ([]Layer, error) {
	opts = opts.withDefaults()
	spans := run.Segments()
	layers := make([]Layer, len(spans))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Parallelism)
	for i, span := range spans {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			layers[i] = run.Layer(i, span, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return layers, nil
}
