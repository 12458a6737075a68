// Package ingest reads the log files of the MBE control software and the run
// settings, and turns them into a processed structure.Run.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/leowmjw/go-epitaxy-timeline/pkg/growth"
)

// Window restricts ingestion to rows with From <= ts <= To. A zero To
// leaves the window open at the end.
type Window struct {
	From int64 `json:"from,omitempty"`
	To   int64 `json:"to,omitempty"`
}

func (w Window) before(ts int64) bool { return ts < w.From }
func (w Window) after(ts int64) bool  { return w.To > 0 && ts > w.To }

// Options control how log files are read
type Options struct {
	// Location the log timestamps are written in; UTC when nil
	Location *time.Location
	Window   Window
}

// ChannelStats counts what happened to the cells of one channel
type ChannelStats struct {
	Accepted      int `json:"accepted"`
	Malformed     int `json:"malformed"`
	Spacing       int `json:"spacing"`
	ShutterEvents int `json:"shutter_events,omitempty"`
}

// Stats summarises one log file
type Stats struct {
	Rows     int                   `json:"rows"`
	BadRows  int                   `json:"bad_rows"`
	Unbound  []int                 `json:"unbound,omitempty"`
	Channels map[int]*ChannelStats `json:"channels"`
}

type binding struct {
	column   int
	recorder *growth.Recorder
	stats    *ChannelStats
}

func newReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true
	return reader
}

// bind maps channels to header columns. The first header column holds the
// timestamp. A channel binds to the header equal to its explicit column, or
// else to the first header containing the channel name.
func bind(header []string, recorders []*growth.Recorder, stats *Stats, keep func(growth.Config) bool) []binding {
	find := func(match func(caption string) bool) int {
		for i := 1; i < len(header); i++ {
			if match(strings.TrimSpace(header[i])) {
				return i
			}
		}
		return -1
	}

	var bindings []binding
	for _, rec := range recorders {
		cfg := rec.Config()
		if !keep(cfg) {
			continue
		}
		column := -1
		if cfg.Column != "" {
			column = find(func(caption string) bool { return caption == cfg.Column })
		}
		if column < 0 && cfg.Name != "" {
			column = find(func(caption string) bool { return strings.Contains(caption, cfg.Name) })
		}
		if column < 0 {
			stats.Unbound = append(stats.Unbound, cfg.ID)
			continue
		}
		cs := &ChannelStats{}
		stats.Channels[cfg.ID] = cs
		bindings = append(bindings, binding{column: column, recorder: rec, stats: cs})
	}
	return bindings
}

// ReadValues reads a values log into the recorders. Cells that are empty or
// not numbers are skipped as malformed; decimal commas are accepted.
func ReadValues(r io.Reader, recorders []*growth.Recorder, opts Options) (Stats, error) {
	stats := Stats{Channels: map[int]*ChannelStats{}}
	reader := newReader(r)
	header, err := readHeader(reader)
	if err != nil {
		return stats, err
	}
	bindings := bind(header, recorders, &stats, func(growth.Config) bool { return true })

	err = eachRow(reader, opts, &stats, func(ts int64, row []string) {
		for _, b := range bindings {
			v, ok := parseValue(row, b.column)
			if !ok {
				b.stats.Malformed++
				continue
			}
			accepted, err := b.recorder.Add(ts, v)
			switch {
			case err != nil:
				b.stats.Malformed++
			case !accepted:
				b.stats.Spacing++
			default:
				b.stats.Accepted++
			}
		}
	})
	return stats, err
}

// ReadShutters reads a shutter log into the recorders of shutter-gated
// channels. A cell reading "on" or "вкл" means open; an event is recorded
// whenever a channel's state changes, starting from closed.
func ReadShutters(r io.Reader, recorders []*growth.Recorder, opts Options) (Stats, error) {
	stats := Stats{Channels: map[int]*ChannelStats{}}
	reader := newReader(r)
	header, err := readHeader(reader)
	if err != nil {
		return stats, err
	}
	bindings := bind(header, recorders, &stats, func(cfg growth.Config) bool { return cfg.Kind == growth.ShutterGated })

	err = eachRow(reader, opts, &stats, func(ts int64, row []string) {
		for _, b := range bindings {
			state := b.column < len(row) && isOpen(row[b.column])
			if state != b.recorder.ShutterOpen() {
				// bindings only hold gated channels
				_ = b.recorder.SetShutter(ts, state)
			}
		}
	})
	for _, b := range bindings {
		b.stats.ShutterEvents = len(b.recorder.Shutters())
	}
	return stats, err
}

func readHeader(reader *csv.Reader) ([]string, error) {
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty log: no header")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	header = append([]string(nil), header...)
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	return header, nil
}

// eachRow calls fn for every row inside the window, in file order. Rows with
// an unreadable timestamp are counted and skipped; reading stops at the first
// row after the window since logs are chronological.
func eachRow(reader *csv.Reader, opts Options, stats *Stats, fn func(ts int64, row []string)) error {
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				stats.BadRows++
				continue
			}
			return fmt.Errorf("failed to read row: %w", err)
		}
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}

		stats.Rows++
		ts, err := ParseTimestamp(row[0], opts.Location)
		if err != nil {
			stats.BadRows++
			continue
		}
		if opts.Window.after(ts) {
			return nil
		}
		if opts.Window.before(ts) {
			continue
		}
		fn(ts, row)
	}
}

func parseValue(row []string, column int) (float64, bool) {
	if column >= len(row) {
		return 0, false
	}
	cell := strings.TrimSpace(strings.ReplaceAll(row[column], ",", "."))
	if cell == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func isOpen(cell string) bool {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case "on", "вкл":
		return true
	default:
		return false
	}
}
