package timer

import (
	"time"

	"github.com/misterclayt0n/lazaro-timer/internal/models"
)

// Phase is a stage of the timer's lifecycle.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseCountdown  Phase = "countdown"
	PhaseWork       Phase = "work"
	PhaseRest       Phase = "rest"
	PhaseContinuous Phase = "continuous"
	PhaseEntry      Phase = "entry"
	PhaseComplete   Phase = "complete"
	PhasePaused     Phase = "paused"
)

// Active reports whether the phase can tick or be paused.
func (p Phase) Active() bool {
	switch p {
	case PhaseCountdown, PhaseWork, PhaseRest, PhaseContinuous, PhaseEntry:
		return true
	}
	return false
}

// Mode is the direction the on-screen clock runs in.
type Mode string

const (
	ModeCountdown Mode = "countdown"
	ModeCountUp   Mode = "count_up"
)

// WorkCalculation selects how the work duration is derived.
type WorkCalculation string

const (
	WorkTempoBased       WorkCalculation = "tempo_based"
	WorkFromPrescription WorkCalculation = "from_prescription"
)

// LogTiming tells collaborators when a data-entry pause happens.
type LogTiming string

const (
	LogAfterEachSet LogTiming = "after_each_set"
	LogAfterBlock   LogTiming = "after_block"
)

// Config is the static timing policy of one exercise modality.
type Config struct {
	ExerciseType         models.ExerciseType `json:"exercise_type"`
	Mode                 Mode                `json:"mode"`
	Phases               []Phase             `json:"phases"`
	WorkCalculation      WorkCalculation     `json:"work_calculation"`
	MinuteMarkers        bool                `json:"minute_markers"`
	LogTiming            LogTiming           `json:"log_timing"`
	CountdownAtMinuteEnd bool                `json:"countdown_at_minute_end"`
}

// HasPhase reports whether p is part of the configured sequence.
func (c Config) HasPhase(p Phase) bool {
	for _, phase := range c.Phases {
		if phase == p {
			return true
		}
	}
	return false
}

// next returns the phase following p in the sequence, or false at the end.
func (c Config) next(p Phase) (Phase, bool) {
	for i, phase := range c.Phases {
		if phase == p && i+1 < len(c.Phases) {
			return c.Phases[i+1], true
		}
	}
	return "", false
}

// State is a snapshot of the engine. Values handed out by the engine are
// copies; mutating them has no effect on the engine.
type State struct {
	Phase              Phase               `json:"phase"`
	PausedPhase        Phase               `json:"paused_phase,omitempty"`
	Mode               Mode                `json:"mode"`
	ExerciseType       models.ExerciseType `json:"exercise_type"`
	CurrentSet         int                 `json:"current_set"`
	TotalSets          int                 `json:"total_sets"`
	RemainingSeconds   int                 `json:"remaining_seconds"`
	ElapsedSeconds     int                 `json:"elapsed_seconds"`
	PhaseSeconds       int                 `json:"phase_seconds"`
	TotalMinutes       int                 `json:"total_minutes"`
	CurrentSubExercise int                 `json:"current_sub_exercise"`
	TotalSubExercises  int                 `json:"total_sub_exercises"`
	PauseStartTime     *time.Time          `json:"pause_start_time,omitempty"`
	TotalPauseTime     time.Duration       `json:"total_pause_time"`
	AudioEnabled       bool                `json:"audio_enabled"`
}

// EventType tags a timer event.
type EventType string

const (
	EventPhaseChange   EventType = "phase_change"
	EventTick          EventType = "tick"
	EventCountdownTick EventType = "countdown_tick"
)

// Event is delivered to subscribers. CountdownValue is 3, 2 or 1 on
// countdown ticks and zero otherwise. MinuteMarker carries the minute just
// reached on the tick that crosses a minute boundary of a minute-marker
// modality.
type Event struct {
	Type           EventType `json:"type"`
	State          State     `json:"state"`
	CountdownValue int       `json:"countdown_value,omitempty"`
	MinuteMarker   int       `json:"minute_marker,omitempty"`
	At             time.Time `json:"at"`
}
