// Package cue turns timer events into audio cues.
package cue

import (
	"io"
	"strings"
	"sync"

	"github.com/misterclayt0n/lazaro-timer/internal/timer"
)

type Sound string

const (
	SoundBeep   Sound = "beep"
	SoundGo     Sound = "go"
	SoundRest   Sound = "rest"
	SoundDone   Sound = "done"
	SoundMinute Sound = "minute"
)

// Player plays a sound. Play must not block for long: it runs on the
// engine's delivery path.
type Player interface {
	Play(Sound)
}

// PlayerFunc adapts a function to Player.
type PlayerFunc func(Sound)

func (f PlayerFunc) Play(s Sound) { f(s) }

// New returns a timer listener that plays the cue for each event. Nothing
// plays while the state has audio disabled.
func New(p Player) timer.Listener {
	return func(ev timer.Event) {
		if !ev.State.AudioEnabled {
			return
		}
		if s, ok := SoundFor(ev); ok {
			p.Play(s)
		}
	}
}

// SoundFor maps an event to its cue.
func SoundFor(ev timer.Event) (Sound, bool) {
	switch ev.Type {
	case timer.EventCountdownTick:
		return SoundBeep, true
	case timer.EventTick:
		if ev.MinuteMarker > 0 {
			return SoundMinute, true
		}
	case timer.EventPhaseChange:
		switch ev.State.Phase {
		case timer.PhaseWork, timer.PhaseContinuous:
			return SoundGo, true
		case timer.PhaseRest, timer.PhaseEntry:
			return SoundRest, true
		case timer.PhaseComplete:
			return SoundDone, true
		}
	}
	return "", false
}

var bells = map[Sound]int{
	SoundBeep:   1,
	SoundMinute: 1,
	SoundGo:     2,
	SoundRest:   2,
	SoundDone:   3,
}

// Bell plays cues as terminal bells.
type Bell struct {
	mu  sync.Mutex
	out io.Writer
}

func NewBell(out io.Writer) *Bell {
	return &Bell{out: out}
}

func (b *Bell) Play(s Sound) {
	n, ok := bells[s]
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_, _ = io.WriteString(b.out, strings.Repeat("\a", n))
}
