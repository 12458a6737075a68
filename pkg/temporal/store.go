package temporal

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/leowmjw/go-epitaxy-timeline/pkg/growth"
	"github.com/leowmjw/go-epitaxy-timeline/pkg/structure"
	"github.com/leowmjw/go-epitaxy-timeline/pkg/timeline"
)

var (
	// ErrRunNotFound is returned for runs without stored settings
	ErrRunNotFound = errors.New("run not found")
	// ErrNoRecording is returned for channels whose logs were never parsed
	ErrNoRecording = errors.New("channel has no recording")
)

// Recording holds the raw readings of one channel
type Recording struct {
	Samples  timeline.Series     `json:"samples"`
	Shutters timeline.ShutterLog `json:"shutters,omitempty"`
}

// RunStore keeps the state of growth runs between activities
type RunStore interface {
	// PutSettings stores the settings of a run and drops any data recorded
	// under previous settings
	PutSettings(ctx context.Context, runID string, settings structure.Settings) error
	Settings(ctx context.Context, runID string) (structure.Settings, error)
	PutRecording(ctx context.Context, runID string, channelID int, rec Recording) error
	Recording(ctx context.Context, runID string, channelID int) (Recording, error)
	PutChannel(ctx context.Context, runID string, ch *growth.Channel) error
	// Channels returns the processed channels of a run ordered by id
	Channels(ctx context.Context, runID string) ([]*growth.Channel, error)
}

type runState struct {
	settings   structure.Settings
	recordings map[int]Recording
	channels   map[int]*growth.Channel
}

// MemoryRunStore is a RunStore held in process memory
type MemoryRunStore struct {
	mu   sync.RWMutex
	runs map[string]*runState
}

// NewMemoryRunStore creates an empty store
func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{
		runs: make(map[string]*runState),
	}
}

func (m *MemoryRunStore) PutSettings(ctx context.Context, runID string, settings structure.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.runs[runID] = &runState{
		settings:   settings,
		recordings: make(map[int]Recording),
		channels:   make(map[int]*growth.Channel),
	}
	return nil
}

func (m *MemoryRunStore) Settings(ctx context.Context, runID string) (structure.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, err := m.run(runID)
	if err != nil {
		return structure.Settings{}, err
	}
	return run.settings, nil
}

func (m *MemoryRunStore) PutRecording(ctx context.Context, runID string, channelID int, rec Recording) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, err := m.run(runID)
	if err != nil {
		return err
	}
	run.recordings[channelID] = rec
	delete(run.channels, channelID)
	return nil
}

func (m *MemoryRunStore) Recording(ctx context.Context, runID string, channelID int) (Recording, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, err := m.run(runID)
	if err != nil {
		return Recording{}, err
	}
	rec, ok := run.recordings[channelID]
	if !ok {
		return Recording{}, fmt.Errorf("%w: run %s channel %d", ErrNoRecording, runID, channelID)
	}
	return rec, nil
}

func (m *MemoryRunStore) PutChannel(ctx context.Context, runID string, ch *growth.Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, err := m.run(runID)
	if err != nil {
		return err
	}
	run.channels[ch.ID()] = ch
	return nil
}

func (m *MemoryRunStore) Channels(ctx context.Context, runID string) ([]*growth.Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, err := m.run(runID)
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(run.channels))
	for id := range run.channels {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	channels := make([]*growth.Channel, len(ids))
	for i, id := range ids {
		channels[i] = run.channels[id]
	}
	return channels, nil
}

// run must be called with the lock held
func (m *MemoryRunStore) run(runID string) (*runState, error) {
	run, ok := m.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, nil
}
