// Package history records finished sets and blocks from the timer's event
// stream.
package history

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/misterclayt0n/lazaro-timer/internal/models"
	"github.com/misterclayt0n/lazaro-timer/internal/timer"
)

// Store persists entries. *storage.Storage satisfies it.
type Store interface {
	LogEntry(entry *models.HistoryEntry) error
}

// Recorder turns the event stream of one exercise into history entries.
// Per-set modalities log one entry each time the data-entry phase is left
// for the next set or for completion. Block modalities log once, when the
// block completes, with the reached set as the round count.
type Recorder struct {
	mu       sync.Mutex
	store    Store
	log      logrus.FieldLogger
	exercise models.Prescription
	perSet   bool

	phase       timer.Phase
	entryState  timer.State
	reopened    bool
	workCurrent int
	workTotal   int
	pauseLogged time.Duration

	reps   *int
	weight *float32
	rounds *int

	blockLogged bool
	entries     []models.HistoryEntry
	err         error
}

func NewRecorder(store Store, exercise models.Prescription, log logrus.FieldLogger) *Recorder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Recorder{
		store:    store,
		log:      log,
		exercise: exercise,
		perSet:   timer.ConfigFor(exercise.Type).LogTiming == timer.LogAfterEachSet,
		phase:    timer.PhaseIdle,
	}
}

// SetResult overrides reps and weight for the set currently being logged.
// Without it the prescribed values are used.
func (r *Recorder) SetResult(reps int, weight float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reps = &reps
	r.weight = &weight
}

// SetRounds overrides the round count of a block, for modalities such as
// AMRAP whose rounds are not bounded by the prescribed sets.
func (r *Recorder) SetRounds(rounds int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rounds = &rounds
}

// Entries returns what has been logged so far.
func (r *Recorder) Entries() []models.HistoryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.HistoryEntry(nil), r.entries...)
}

// Err returns the first store error.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Observe is a timer.Listener.
func (r *Recorder) Observe(ev timer.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Type {
	case timer.EventTick:
		if isWork(ev.State.Phase) {
			r.workCurrent = ev.State.ElapsedSeconds
		}
	case timer.EventPhaseChange:
		r.onPhaseChange(ev)
	}
}

func (r *Recorder) onPhaseChange(ev timer.Event) {
	next := ev.State.Phase
	if next == timer.PhasePaused {
		return
	}
	prev := r.phase
	r.phase = next

	if prev == next {
		// Resumed.
		return
	}
	if isWork(prev) {
		r.workTotal += r.workCurrent
		r.workCurrent = 0
	}

	switch {
	case next == timer.PhaseIdle:
		r.workTotal = 0
		r.pauseLogged = 0
		r.blockLogged = false
	case next == timer.PhaseEntry:
		r.entryState = ev.State
		r.reopened = prev == timer.PhaseComplete
	case r.perSet && prev == timer.PhaseEntry && !r.reopened && (next == timer.PhaseCountdown || next == timer.PhaseComplete):
		r.logSet(ev)
	case !r.perSet && next == timer.PhaseComplete && !r.blockLogged:
		r.logBlock(ev)
	}
}

func (r *Recorder) logSet(ev timer.Event) {
	entry := r.newEntry(ev)
	entry.SetNumber = r.entryState.CurrentSet
	entry.Reps = r.resultReps()
	entry.Weight = r.resultWeight()
	entry.WorkSeconds = r.workTotal
	r.workTotal = 0
	r.reps, r.weight = nil, nil
	r.write(entry)
}

func (r *Recorder) logBlock(ev timer.Event) {
	r.blockLogged = true
	entry := r.newEntry(ev)
	entry.SetNumber = 1
	entry.Rounds = ev.State.CurrentSet
	if r.rounds != nil {
		entry.Rounds = *r.rounds
	}
	entry.Reps = r.resultReps()
	entry.Weight = r.resultWeight()
	entry.WorkSeconds = r.workTotal
	r.write(entry)
}

func (r *Recorder) newEntry(ev timer.Event) models.HistoryEntry {
	entry := models.HistoryEntry{
		ExerciseName: r.exercise.Name,
		ExerciseType: r.exercise.Type,
		PauseTime:    ev.State.TotalPauseTime - r.pauseLogged,
		LoggedAt:     ev.At,
	}
	if r.exercise.WeightUnit != nil {
		entry.WeightUnit = *r.exercise.WeightUnit
	}
	r.pauseLogged = ev.State.TotalPauseTime
	return entry
}

func (r *Recorder) resultReps() int {
	if r.reps != nil {
		return *r.reps
	}
	if r.exercise.Reps != nil {
		return *r.exercise.Reps
	}
	return 0
}

func (r *Recorder) resultWeight() float32 {
	if r.weight != nil {
		return *r.weight
	}
	if r.exercise.Weight != nil {
		return *r.exercise.Weight
	}
	return 0
}

func (r *Recorder) write(entry models.HistoryEntry) {
	if err := r.store.LogEntry(&entry); err != nil {
		r.log.WithError(err).WithField("exercise", entry.ExerciseName).Error("failed to log history entry")
		if r.err == nil {
			r.err = err
		}
		return
	}
	r.log.WithFields(logrus.Fields{
		"exercise": entry.ExerciseName,
		"set":      entry.SetNumber,
		"rounds":   entry.Rounds,
	}).Info("history entry logged")
	r.entries = append(r.entries, entry)
}

func isWork(p timer.Phase) bool {
	return p == timer.PhaseWork || p == timer.PhaseContinuous
}
