// Package player holds the playback state shared by every track of a
// workspace. One reducer drives all tracks; tracks never see each other.
package player

import (
	"errors"
	"fmt"
	"sync"
)

const (
	MinVolume     = 0
	MaxVolume     = 100
	DefaultVolume = 50
)

var ErrUnknownTrack = errors.New("unknown track")

type State struct {
	Volume  int  `json:"volume"`
	Playing bool `json:"playing"`
}

type ActionType string

const (
	ActionToggle    ActionType = "toggle"
	ActionSetVolume ActionType = "volume"
	ActionEnded     ActionType = "ended"
)

type Action struct {
	Type   ActionType
	Volume int
}

func Toggle() Action { return Action{Type: ActionToggle} }
func SetVolume(v int) Action { return Action{Type: ActionSetVolume, Volume: v} }
func Ended() Action { return Action{Type: ActionEnded} }
func (a Action) String() string { return string(a.Type) }

// Reduce returns the state after applying a. A resulting state never has
// Playing set with Volume at zero.
func Reduce(s State, a Action) State {
	switch a.Type {
	case ActionToggle:
		if s.Playing {
			s.Playing = false
			return s
		}
		if s.Volume == 0 {
			s.Volume = DefaultVolume
		}
		s.Playing = true
	case ActionSetVolume:
		s.Volume = clamp(a.Volume)
		s.Playing = s.Volume > 0
	case ActionEnded:
		s.Playing = false
		s.Volume = 0
	}
	return s
}

func clamp(v int) int {
	if v < MinVolume {
		return MinVolume
	}
	if v > MaxVolume {
		return MaxVolume
	}
	return v
}

// TrackState pairs a track name with its state for ordered snapshots.
type TrackState struct {
	Track string `json:"track"`
	State
}

// Deck is a set of independently controlled tracks.
type Deck struct {
	mu     sync.RWMutex
	order  []string
	states map[string]State
}

func NewDeck(tracks ...string) *Deck {
	d := &Deck{states: make(map[string]State)}
	for _, t := range tracks {
		d.Add(t)
	}
	return d
}

// Add registers a track in the paused, silent state. Re-adding an existing
// track resets it.
func (d *Deck) Add(track string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.states[track]; !ok {
		d.order = append(d.order, track)
	}
	d.states[track] = State{}
}

func (d *Deck) Remove(track string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.states[track]; !ok {
		return
	}
	delete(d.states, track)
	for i, t := range d.order {
		if t == track {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

func (d *Deck) Dispatch(track string, a Action) (State, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.states[track]
	if !ok {
		return State{}, fmt.Errorf("%w: %s", ErrUnknownTrack, track)
	}
	s = Reduce(s, a)
	d.states[track] = s
	return s, nil
}

func (d *Deck) State(track string) (State, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s, ok := d.states[track]
	if !ok {
		return State{}, fmt.Errorf("%w: %s", ErrUnknownTrack, track)
	}
	return s, nil
}

// Snapshot returns all tracks in the order they were added.
func (d *Deck) Snapshot() []TrackState {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]TrackState, 0, len(d.order))
	for _, t := range d.order {
		out = append(out, TrackState{Track: t, State: d.states[t]})
	}
	return out
}
