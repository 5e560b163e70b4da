// Package chordsheet renders a chord progression as a Standard MIDI File,
// one bar of block chords per symbol.
package chordsheet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

var ErrUnknownChord = errors.New("unknown chord symbol")

const (
	tempo    = 120
	velocity = 90
	channel  = 0
	// C4, the octave chord roots are voiced in.
	rootBase = 60
)

var clock = smf.MetricTicks(480)

var pitchClasses = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// Intervals above the root, longest suffix first so "maj7" wins over "m".
var qualities = []struct {
	suffix    string
	intervals []int
}{
	{"maj7", []int{0, 4, 7, 11}},
	{"min7", []int{0, 3, 7, 10}},
	{"dim7", []int{0, 3, 6, 9}},
	{"m7b5", []int{0, 3, 6, 10}},
	{"sus2", []int{0, 2, 7}},
	{"sus4", []int{0, 5, 7}},
	{"maj", []int{0, 4, 7}},
	{"min", []int{0, 3, 7}},
	{"dim", []int{0, 3, 6}},
	{"aug", []int{0, 4, 8}},
	{"m7", []int{0, 3, 7, 10}},
	{"m", []int{0, 3, 7}},
	{"7", []int{0, 4, 7, 10}},
	{"", []int{0, 4, 7}},
}

// Notes returns the MIDI keys of chord, voiced upward from the root in
// the fourth octave. A slash bass ("C/E") is ignored.
func Notes(chord string) ([]uint8, error) {
	sym := strings.TrimSpace(chord)
	if i := strings.IndexByte(sym, '/'); i >= 0 {
		sym = sym[:i]
	}
	if sym == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChord, chord)
	}

	pc, ok := pitchClasses[sym[0]]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChord, chord)
	}
	rest := sym[1:]
	switch {
	case strings.HasPrefix(rest, "#"):
		pc++
		rest = rest[1:]
	case strings.HasPrefix(rest, "b"):
		pc--
		rest = rest[1:]
	}
	pc = (pc + 12) % 12

	for _, q := range qualities {
		if rest != q.suffix {
			continue
		}
		keys := make([]uint8, len(q.intervals))
		for i, iv := range q.intervals {
			keys[i] = uint8(rootBase + pc + iv)
		}
		return keys, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownChord, chord)
}

// Write encodes chords as a single-track SMF in 4/4, one whole-note chord
// per bar.
func Write(w io.Writer, chords []string) error {
	var tr smf.Track
	tr.Add(0, smf.MetaMeter(4, 4))
	tr.Add(0, smf.MetaTempo(tempo))
	tr.Add(0, midi.ProgramChange(channel, 0))

	bar := clock.Ticks4th() * 4
	for _, chord := range chords {
		keys, err := Notes(chord)
		if err != nil {
			return err
		}
		for _, k := range keys {
			tr.Add(0, midi.NoteOn(channel, k, velocity))
		}
		for i, k := range keys {
			var delta uint32
			if i == 0 {
				delta = bar
			}
			tr.Add(delta, midi.NoteOff(channel, k))
		}
	}
	tr.Close(0)

	s := smf.New()
	s.TimeFormat = clock
	if err := s.Add(tr); err != nil {
		return fmt.Errorf("add track: %w", err)
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("write midi: %w", err)
	}
	return nil
}

// Bytes is Write into memory.
func Bytes(chords []string) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, chords); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
