package temporal

import (
	"github.com/leowmjw/go-epitaxy-timeline/pkg/ingest"
	"github.com/leowmjw/go-epitaxy-timeline/pkg/structure"
	"github.com/leowmjw/go-epitaxy-timeline/pkg/timeline"
)

// IngestRequest uploads settings and/or logs of a growth run. A nil Settings
// reuses the settings stored for the run; an empty Values only stores the
// settings.
type IngestRequest struct {
	RunID    string              `json:"run_id"`
	Settings *structure.Settings `json:"settings,omitempty"`
	Values   string              `json:"values,omitempty"`   // values log, CSV text
	Shutters string              `json:"shutters,omitempty"` // shutter log, CSV text
	Location string              `json:"location,omitempty"` // time zone of the logs, UTC when empty
	Window   ingest.Window       `json:"window"`
}

// ParseRequest is the input of the log parsing activity
type ParseRequest struct {
	RunID    string        `json:"run_id"`
	Values   string        `json:"values"`
	Shutters string        `json:"shutters,omitempty"`
	Location string        `json:"location,omitempty"`
	Window   ingest.Window `json:"window"`
}

// ParseResult lists the channels recorded from the logs
type ParseResult struct {
	ChannelIDs []int `json:"channel_ids"`
	Samples    int   `json:"samples"`
}

// ChannelSummary describes one processed channel
type ChannelSummary struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Samples   int    `json:"samples"`
	Nodes     int    `json:"nodes"`
	Intervals int    `json:"intervals"`
}

// IngestResult is the outcome of IngestRunWorkflow
type IngestResult struct {
	RunID    string           `json:"run_id"`
	Settings int              `json:"settings_channels"`
	Samples  int              `json:"samples"`
	Channels []ChannelSummary `json:"channels,omitempty"`
}

// ReconstructRequest asks for the layer structure of a processed run
type ReconstructRequest struct {
	RunID   string            `json:"run_id"`
	Options structure.Options `json:"options"`
}

// ReconstructResult carries the reconstructed layers in growth order
type ReconstructResult struct {
	RunID  string            `json:"run_id"`
	Layers []structure.Layer `json:"layers"`
}

// ValuesRequest queries one channel of a processed run. Without timestamps
// the resampled nodes are returned.
type ValuesRequest struct {
	RunID      string  `json:"run_id"`
	ChannelID  int     `json:"channel_id"`
	Timestamps []int64 `json:"timestamps,omitempty"`
}

// Point is a channel value at Timestamp; Value is nil where the channel is absent
type Point struct {
	Timestamp int64    `json:"ts"`
	Value     *float64 `json:"value"`
}

// ValuesResult answers a ValuesRequest
type ValuesResult struct {
	RunID     string          `json:"run_id"`
	ChannelID int             `json:"channel_id"`
	Name      string          `json:"name"`
	Nodes     timeline.Series `json:"nodes,omitempty"`
	Points    []Point         `json:"points,omitempty"`
}
