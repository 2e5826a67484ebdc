// Package visual holds the per-stage toggle and highlight state of the
// bowtie view and derives how each stage renders.
package visual

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/journey-mapper/internal/bowtie"
)

// Stage colors.
const (
	ColorEmphasized = "rgba(49,154,251,1)"
	ColorMuted      = "#555970"
)

// Lift is the vertical offset, in pixels, of an active stage.
const Lift = -50

// DefaultActive is the initial focus of the funnel.
var DefaultActive = []bowtie.ID{bowtie.Educate, bowtie.Select}

// StageState is the two independent axes of a stage.
type StageState struct {
	Active      bool `json:"active"`
	Highlighted bool `json:"highlighted"`
}

// StageRender is the derived presentation of one stage.
type StageRender struct {
	ID                bowtie.ID `json:"id"`
	Name              string    `json:"name"`
	Active            bool      `json:"active"`
	Highlighted       bool      `json:"highlighted"`
	ConnectorsVisible bool      `json:"connectors_visible"`
	Connectors        []string  `json:"connectors,omitempty"`
	Inbound           []string  `json:"inbound"`
	Lift              int       `json:"lift"`
	Emphasized        bool      `json:"emphasized"`
	Color             string    `json:"color"`
	Marker            bool      `json:"marker"`
}

// Option configures a Machine.
type Option func(*Machine)

// WithActive overrides the initially active stages. Unknown ids are ignored;
// if nothing valid remains the default set is used.
func WithActive(ids ...bowtie.ID) Option {
	return func(m *Machine) { m.initial = ids }
}

// Machine is the view state. It is not safe for concurrent use.
type Machine struct {
	states      map[bowtie.ID]*StageState
	inbound     map[bowtie.ID][]string
	subscribers []func(bowtie.ID)
	initial     []bowtie.ID
}

// New creates a Machine with the default (or overridden) active stages and
// nothing highlighted.
func New(opts ...Option) *Machine {
	m := &Machine{
		states:  make(map[bowtie.ID]*StageState, bowtie.Count),
		inbound: make(map[bowtie.ID][]string, bowtie.Count),
	}
	for _, opt := range opts {
		opt(m)
	}
	for _, id := range bowtie.IDs() {
		m.states[id] = &StageState{}
	}

	applied := 0
	for _, id := range m.initial {
		if s, ok := m.states[id]; ok {
			s.Active = true
			applied++
		}
	}
	if applied == 0 {
		for _, id := range DefaultActive {
			m.states[id].Active = true
		}
	}
	return m
}

// Subscribe registers fn for stage-selected events.
func (m *Machine) Subscribe(fn func(bowtie.ID)) {
	m.subscribers = append(m.subscribers, fn)
}

// Toggle flips Active for id and then emits a stage-selected event.
func (m *Machine) Toggle(id bowtie.ID) error {
	s, ok := m.states[id]
	if !ok {
		return eris.Errorf("visual: unknown stage %q", id)
	}
	s.Active = !s.Active
	for _, fn := range m.subscribers {
		fn(id)
	}
	return nil
}

// SetEntityPosition highlights exactly pos and clears every other stage.
// bowtie.None, or any non-stage value, clears all highlights.
func (m *Machine) SetEntityPosition(pos bowtie.ID) {
	for id, s := range m.states {
		s.Highlighted = id == pos
	}
}

// SetInbound replaces the connector labels drawn into each stage.
func (m *Machine) SetInbound(labels map[bowtie.ID][]string) {
	m.inbound = make(map[bowtie.ID][]string, bowtie.Count)
	for _, id := range bowtie.IDs() {
		m.inbound[id] = append([]string(nil), labels[id]...)
	}
}

// State returns the state of id.
func (m *Machine) State(id bowtie.ID) (StageState, bool) {
	s, ok := m.states[id]
	if !ok {
		return StageState{}, false
	}
	return *s, true
}

// States returns a copy of every stage's state.
func (m *Machine) States() map[bowtie.ID]StageState {
	out := make(map[bowtie.ID]StageState, len(m.states))
	for id, s := range m.states {
		out[id] = *s
	}
	return out
}

// Active returns the active stages in funnel order.
func (m *Machine) Active() []bowtie.ID {
	var out []bowtie.ID
	for _, id := range bowtie.IDs() {
		if m.states[id].Active {
			out = append(out, id)
		}
	}
	return out
}

// Highlighted returns the highlighted stage or bowtie.None.
func (m *Machine) Highlighted() bowtie.ID {
	for _, id := range bowtie.IDs() {
		if m.states[id].Highlighted {
			return id
		}
	}
	return bowtie.None
}

// Render derives the presentation of every stage in funnel order.
// Connectors and lift follow Active alone; color follows Active or
// Highlighted; the marker follows Highlighted alone.
func (m *Machine) Render() []StageRender {
	out := make([]StageRender, 0, bowtie.Count)
	for _, st := range bowtie.Stages() {
		s := m.states[st.ID]
		r := StageRender{
			ID:                st.ID,
			Name:              st.Name,
			Active:            s.Active,
			Highlighted:       s.Highlighted,
			ConnectorsVisible: s.Active,
			Inbound:           append([]string{}, m.inbound[st.ID]...),
			Emphasized:        s.Active || s.Highlighted,
			Color:             ColorMuted,
			Marker:            s.Highlighted,
		}
		if s.Active {
			r.Lift = Lift
			r.Connectors = st.Connectors
		}
		if r.Emphasized {
			r.Color = ColorEmphasized
		}
		out = append(out, r)
	}
	return out
}
