// Package structure reconstructs the layer sequence of a heterostructure from
// the processed channels of a growth run.
package structure

import (
	"errors"
	"fmt"
	"slices"

	"github.com/leowmjw/go-epitaxy-timeline/pkg/growth"
)

// Role is the physical meaning of a channel in the growth chamber
type Role string

const (
	Gallium           Role = "gallium"
	Aluminium         Role = "aluminium"
	Indium            Role = "indium"
	Silicon           Role = "silicon"
	Magnesium         Role = "magnesium"
	NitrogenPlasma    Role = "nitrogen_plasma"
	Ammonia           Role = "ammonia"
	Silane            Role = "silane"
	HeaterPower       Role = "heater_power"
	HeaterTemperature Role = "heater_temperature"
	Pyrometer         Role = "pyrometer"
)

// KnownRoles lists every role a channel can be bound to
var KnownRoles = []Role{
	Gallium, Aluminium, Indium, Silicon, Magnesium, NitrogenPlasma,
	Ammonia, Silane, HeaterPower, HeaterTemperature, Pyrometer,
}

// RequiredRoles must be bound before any layer can be resolved; substrate
// temperature depends on them.
var RequiredRoles = []Role{HeaterPower, Pyrometer}

var (
	ErrMissingRole     = errors.New("required role is not bound")
	ErrUnknownChannel  = errors.New("unknown channel")
	ErrInvalidSettings = errors.New("invalid settings")
)

// Roles binds roles to channel ids
type Roles map[Role]int

// Settings is the static description of a growth run: its channels, which
// channel plays which role and which channels delimit layers.
type Settings struct {
	Channels          []growth.Config `json:"channels" yaml:"channels"`
	Roles             Roles           `json:"roles" yaml:"roles"`
	StructureChannels []int           `json:"structure_channels" yaml:"structure_channels"`
}

// Validate checks every channel configuration (filling in defaults), the
// role bindings and the structure channel list.
func (s *Settings) Validate() error {
	ids := make(map[int]bool, len(s.Channels))
	for i := range s.Channels {
		cfg := &s.Channels[i]
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
		}
		if ids[cfg.ID] {
			return fmt.Errorf("%w: duplicate channel id %d", ErrInvalidSettings, cfg.ID)
		}
		ids[cfg.ID] = true
	}

	for role, id := range s.Roles {
		if !slices.Contains(KnownRoles, role) {
			return fmt.Errorf("%w: unknown role %q", ErrInvalidSettings, role)
		}
		if !ids[id] {
			return fmt.Errorf("%w: role %s bound to channel %d", ErrUnknownChannel, role, id)
		}
	}
	for _, role := range RequiredRoles {
		if _, ok := s.Roles[role]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingRole, role)
		}
	}

	for _, id := range s.StructureChannels {
		if !ids[id] {
			return fmt.Errorf("%w: structure channel %d", ErrUnknownChannel, id)
		}
	}
	return nil
}

// Channel returns the configuration of the channel with the given id
func (s Settings) Channel(id int) (growth.Config, bool) {
	for _, cfg := range s.Channels {
		if cfg.ID == id {
			return cfg, true
		}
	}
	return growth.Config{}, false
}

// Run is an immutable snapshot of a processed growth run. All layer and
// material computations read from it and it is safe to share between
// goroutines.
type Run struct {
	settings  Settings
	channels  []*growth.Channel
	byID      map[int]*growth.Channel
	roles     map[Role]*growth.Channel
	structure []*growth.Channel
}

// NewRun validates the settings and binds the processed channels to their
// roles. Configured channels without processed data are kept as empty
// channels that are never present.
func NewRun(settings Settings, processed []*growth.Channel) (*Run, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	byID := make(map[int]*growth.Channel, len(settings.Channels))
	for _, ch := range processed {
		if ch == nil {
			continue
		}
		if _, ok := settings.Channel(ch.ID()); !ok {
			return nil, fmt.Errorf("%w: processed channel %d (%s)", ErrUnknownChannel, ch.ID(), ch.Name())
		}
		byID[ch.ID()] = ch
	}

	run := &Run{
		settings: settings,
		byID:     byID,
		roles:    make(map[Role]*growth.Channel, len(settings.Roles)),
	}
	for _, cfg := range settings.Channels {
		ch, ok := byID[cfg.ID]
		if !ok {
			ch = &growth.Channel{Config: cfg}
			byID[cfg.ID] = ch
		}
		run.channels = append(run.channels, ch)
	}
	for role, id := range settings.Roles {
		run.roles[role] = byID[id]
	}
	for _, id := range settings.StructureChannels {
		run.structure = append(run.structure, byID[id])
	}
	return run, nil
}

// Settings returns the settings the run was built from
func (r *Run) Settings() Settings {
	return r.settings
}

// Channels returns the channels in configuration order
func (r *Run) Channels() []*growth.Channel {
	return r.channels
}

// Channel returns the channel with the given id, or nil
func (r *Run) Channel(id int) *growth.Channel {
	return r.byID[id]
}

// Role returns the channel bound to role, or nil when the role is unbound.
// growth.Channel methods are nil-safe, so an unbound role is never present.
func (r *Run) Role(role Role) *growth.Channel {
	return r.roles[role]
}

// StructureChannels returns the channels whose intervals delimit layers
func (r *Run) StructureChannels() []*growth.Channel {
	return r.structure
}
