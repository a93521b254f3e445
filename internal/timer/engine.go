package timer

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/misterclayt0n/lazaro-timer/internal/clock"
	"github.com/misterclayt0n/lazaro-timer/internal/models"
)

const (
	DefaultTickInterval     = 250 * time.Millisecond
	DefaultCountdownSeconds = 5

	// countdownCueFrom is the first value of the 3, 2, 1 cue.
	countdownCueFrom = 3
)

// Options contains runtime options for an Engine.
type Options struct {
	Clock            clock.Clock
	TickInterval     time.Duration
	CountdownSeconds int
	Logger           logrus.FieldLogger
}

// Engine is the phase state machine for a single exercise.
//
// Control methods may be called from any goroutine; the tick loop runs on its
// own. Listeners are invoked outside the state lock, in emission order, and
// may call back into the engine. Misuse is never an error: an operation that
// does not apply to the current phase leaves the state untouched.
type Engine struct {
	mu   sync.Mutex
	opts Options
	log  logrus.FieldLogger
	bus  bus

	state    State
	config   Config
	exercise models.Prescription
	loaded   bool

	workSeconds int
	restSeconds int

	// Timing of the current phase. Remaining time is derived from these
	// timestamps, never from the number of ticks observed.
	phaseStart  time.Time
	phasePaused time.Duration
	lastCue     int
	lastMinute  int
	blockDone   bool

	stopCh chan struct{}
}

// New creates an idle engine with audio enabled.
func New(opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.CountdownSeconds <= 0 {
		opts.CountdownSeconds = DefaultCountdownSeconds
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	return &Engine{
		opts: opts,
		log:  opts.Logger,
		state: State{
			Phase:        PhaseIdle,
			Mode:         ModeCountdown,
			CurrentSet:   1,
			TotalSets:    1,
			AudioEnabled: true,
		},
	}
}

// Subscribe registers a listener and returns the function that removes it.
// Once the returned function has returned the listener receives nothing
// more; if the listener is running on another goroutine at that moment, the
// function waits for it. A listener may remove other listeners but must not
// call its own unsubscribe.
func (e *Engine) Subscribe(fn Listener) (unsubscribe func()) {
	return e.bus.subscribe(fn)
}

// SubscribeChan registers a bounded channel. Events are dropped while the
// channel is full. The channel is never closed.
func (e *Engine) SubscribeChan(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	unsubscribe := e.bus.subscribe(func(ev Event) {
		select {
		case ch <- ev:
		default:
		}
	})
	return ch, unsubscribe
}

// State returns a snapshot of the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Config returns the configuration of the loaded exercise.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	cfg := e.config
	cfg.Phases = append([]Phase(nil), e.config.Phases...)
	return cfg
}

// Prescription returns the exercise passed to InitializeForExercise.
func (e *Engine) Prescription() models.Prescription {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exercise
}

// InitializeForExercise loads a prescription and leaves the engine idle.
// The audio preference survives, everything else is reset.
func (e *Engine) InitializeForExercise(p models.Prescription) {
	e.mu.Lock()
	e.stopLoopLocked()

	cfg := ConfigFor(p.Type)
	e.config = cfg
	e.exercise = p
	e.loaded = true
	e.workSeconds = CalculateWorkDuration(p, cfg)
	e.restSeconds = CalculateRestDuration(p)

	totalSets := p.Sets
	if totalSets < 1 {
		totalSets = 1
	}

	totalMinutes := 0
	switch p.Type {
	case models.ExerciseEMOM, models.ExerciseAMRAP:
		totalMinutes = (blockSeconds(p) + 59) / 60
	case models.ExerciseCircuit:
		if p.WorkTimeSeconds != nil && *p.WorkTimeSeconds > 0 {
			totalMinutes = (*p.WorkTimeSeconds + 59) / 60
		}
	}

	prev := e.state.Phase
	e.state = State{
		Phase:             PhaseIdle,
		Mode:              cfg.Mode,
		ExerciseType:      cfg.ExerciseType,
		CurrentSet:        1,
		TotalSets:         totalSets,
		TotalMinutes:      totalMinutes,
		TotalSubExercises: len(p.SubExercises),
		AudioEnabled:      e.state.AudioEnabled,
	}
	e.resetPhaseTimingLocked(time.Time{})
	e.blockDone = false

	e.log.WithFields(logrus.Fields{
		"exercise": p.Name,
		"type":     p.Type,
		"sets":     totalSets,
		"work":     e.workSeconds,
		"rest":     e.restSeconds,
	}).Debug("timer initialized")

	if prev != PhaseIdle {
		e.emitLocked(EventPhaseChange, 0, 0, e.opts.Clock.Now())
	}
	e.mu.Unlock()
	e.bus.flush()
}

// Start leaves idle for the first configured phase and starts ticking.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.state.Phase != PhaseIdle || !e.loaded || len(e.config.Phases) == 0 {
		e.mu.Unlock()
		return
	}
	e.blockDone = false
	e.enterPhaseLocked(e.config.Phases[0], e.opts.Clock.Now())
	e.mu.Unlock()
	e.bus.flush()
}

// Skip completes the current phase immediately, exactly as if its time had
// run out.
func (e *Engine) Skip() {
	e.mu.Lock()
	if !e.state.Phase.Active() {
		e.mu.Unlock()
		return
	}
	e.completePhaseLocked(e.opts.Clock.Now())
	e.mu.Unlock()
	e.bus.flush()
}

// Pause suspends the active phase. The tick loop keeps running but no longer
// changes the state.
func (e *Engine) Pause() {
	e.mu.Lock()
	if !e.state.Phase.Active() {
		e.mu.Unlock()
		return
	}
	now := e.opts.Clock.Now()
	e.syncTimeLocked(now)
	e.state.PausedPhase = e.state.Phase
	e.state.Phase = PhasePaused
	e.state.PauseStartTime = &now

	e.log.WithField("phase", e.state.PausedPhase).Debug("timer paused")
	e.emitLocked(EventPhaseChange, 0, 0, now)
	e.mu.Unlock()
	e.bus.flush()
}

// Resume restores the paused phase. Time spent paused is added to
// TotalPauseTime and is never charged against RemainingSeconds.
func (e *Engine) Resume() {
	e.mu.Lock()
	if e.state.Phase != PhasePaused || e.state.PauseStartTime == nil {
		e.mu.Unlock()
		return
	}
	now := e.opts.Clock.Now()
	paused := now.Sub(*e.state.PauseStartTime)
	if paused < 0 {
		paused = 0
	}
	e.state.TotalPauseTime += paused
	e.phasePaused += paused
	e.state.Phase = e.state.PausedPhase
	e.state.PausedPhase = ""
	e.state.PauseStartTime = nil

	e.log.WithFields(logrus.Fields{
		"phase":  e.state.Phase,
		"paused": paused,
	}).Debug("timer resumed")
	e.emitLocked(EventPhaseChange, 0, 0, now)
	e.mu.Unlock()
	e.bus.flush()
}

// EnterDataEntry moves to the entry phase from any running phase or from
// complete, so a finished block can still be logged.
func (e *Engine) EnterDataEntry() {
	e.mu.Lock()
	phase := e.state.Phase
	if phase == PhaseEntry || (!phase.Active() && phase != PhaseComplete) {
		e.mu.Unlock()
		return
	}
	if phase == PhaseComplete {
		e.blockDone = true
	}
	e.enterPhaseLocked(PhaseEntry, e.opts.Clock.Now())
	e.mu.Unlock()
	e.bus.flush()
}

// ExitDataEntry leaves the entry phase: on to the next set's countdown, or
// complete after the final set.
func (e *Engine) ExitDataEntry() {
	e.mu.Lock()
	if e.state.Phase != PhaseEntry {
		e.mu.Unlock()
		return
	}
	e.exitEntryLocked(e.opts.Clock.Now())
	e.mu.Unlock()
	e.bus.flush()
}

// AdvanceSet moves to the next set, never past TotalSets.
func (e *Engine) AdvanceSet() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.CurrentSet < e.state.TotalSets {
		e.state.CurrentSet++
	}
}

// SetCurrentSubExercise selects a sub-exercise. Out of range indexes are
// ignored.
func (e *Engine) SetCurrentSubExercise(index int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if index < 0 || index >= e.state.TotalSubExercises {
		return
	}
	e.state.CurrentSubExercise = index
}

// SetAudioEnabled updates the audio preference.
func (e *Engine) SetAudioEnabled(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.AudioEnabled = enabled
}

// Stop cancels ticking and returns to idle on the first set. The loaded
// exercise is kept, so Start runs it again from the top.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.stopLoopLocked()
	prev := e.state.Phase

	e.state.Phase = PhaseIdle
	e.state.PausedPhase = ""
	e.state.CurrentSet = 1
	e.state.CurrentSubExercise = 0
	e.state.RemainingSeconds = 0
	e.state.ElapsedSeconds = 0
	e.state.PhaseSeconds = 0
	e.state.PauseStartTime = nil
	e.state.TotalPauseTime = 0
	e.resetPhaseTimingLocked(time.Time{})
	e.blockDone = false

	if prev != PhaseIdle {
		e.log.WithField("from", prev).Debug("timer stopped")
		e.emitLocked(EventPhaseChange, 0, 0, e.opts.Clock.Now())
	}
	e.mu.Unlock()
	e.bus.flush()
}

func (e *Engine) completePhaseLocked(now time.Time) {
	switch e.state.Phase {
	case PhaseCountdown:
		e.enterPhaseLocked(e.firstWorkingPhase(), now)
	case PhaseWork:
		if e.config.LogTiming == LogAfterEachSet {
			e.enterPhaseLocked(PhaseEntry, now)
			return
		}
		if e.config.HasPhase(PhaseRest) && e.state.CurrentSet < e.state.TotalSets {
			e.enterPhaseLocked(PhaseRest, now)
			return
		}
		e.finishSequenceLocked(now)
	case PhaseRest:
		e.finishSequenceLocked(now)
	case PhaseContinuous:
		e.enterPhaseLocked(PhaseComplete, now)
	case PhaseEntry:
		e.exitEntryLocked(now)
	}
}

// finishSequenceLocked runs when the last configured phase of a set is done.
func (e *Engine) finishSequenceLocked(now time.Time) {
	if e.config.LogTiming == LogAfterEachSet {
		e.enterPhaseLocked(PhaseEntry, now)
		return
	}
	if e.state.CurrentSet < e.state.TotalSets {
		e.state.CurrentSet++
		e.enterPhaseLocked(e.firstWorkingPhase(), now)
		return
	}
	e.enterPhaseLocked(PhaseComplete, now)
}

func (e *Engine) exitEntryLocked(now time.Time) {
	if !e.blockDone && e.state.CurrentSet < e.state.TotalSets {
		e.state.CurrentSet++
		e.enterPhaseLocked(PhaseCountdown, now)
		return
	}
	e.enterPhaseLocked(PhaseComplete, now)
}

// firstWorkingPhase is the phase that follows the lead-in countdown.
func (e *Engine) firstWorkingPhase() Phase {
	if next, ok := e.config.next(PhaseCountdown); ok {
		return next
	}
	return e.config.Phases[0]
}

func (e *Engine) phaseSecondsFor(phase Phase) int {
	switch phase {
	case PhaseCountdown:
		return e.opts.CountdownSeconds
	case PhaseWork:
		return e.workSeconds
	case PhaseRest:
		return e.restSeconds
	case PhaseContinuous:
		if e.config.Mode == ModeCountUp {
			// Zero means uncapped.
			if e.exercise.WorkTimeSeconds != nil && *e.exercise.WorkTimeSeconds > 0 {
				return *e.exercise.WorkTimeSeconds
			}
			return 0
		}
		return blockSeconds(e.exercise)
	case PhaseEntry:
		// Suggested rest, shown while the set is being logged.
		if e.config.LogTiming == LogAfterEachSet && !e.blockDone {
			return e.restSeconds
		}
	}
	return 0
}

func (e *Engine) enterPhaseLocked(phase Phase, now time.Time) {
	seconds := e.phaseSecondsFor(phase)
	e.state.Phase = phase
	e.state.PhaseSeconds = seconds
	e.state.RemainingSeconds = seconds
	e.state.ElapsedSeconds = 0
	e.resetPhaseTimingLocked(now)

	if phase == PhaseComplete {
		e.blockDone = true
		e.stopLoopLocked()
	} else if phase.Active() {
		e.startLoopLocked()
	}

	e.log.WithFields(logrus.Fields{
		"phase":   phase,
		"set":     e.state.CurrentSet,
		"seconds": seconds,
	}).Debug("phase change")

	e.emitLocked(EventPhaseChange, 0, 0, now)
	e.emitCueLocked(now)
}

func (e *Engine) resetPhaseTimingLocked(now time.Time) {
	e.phaseStart = now
	e.phasePaused = 0
	e.lastCue = 0
	e.lastMinute = 0
}

// syncTimeLocked recomputes elapsed and remaining seconds at now.
func (e *Engine) syncTimeLocked(now time.Time) {
	elapsed := int((now.Sub(e.phaseStart) - e.phasePaused) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := e.state.PhaseSeconds - elapsed
	if remaining < 0 {
		remaining = 0
	}
	e.state.ElapsedSeconds = elapsed
	e.state.RemainingSeconds = remaining
}

// advanceLocked is the tick handler.
func (e *Engine) advanceLocked(now time.Time) {
	if !e.state.Phase.Active() {
		return
	}
	e.syncTimeLocked(now)

	marker := 0
	if e.config.MinuteMarkers && e.state.Phase == PhaseContinuous {
		if minute := e.state.ElapsedSeconds / 60; minute > e.lastMinute {
			e.lastMinute = minute
			marker = minute
			if e.config.ExerciseType == models.ExerciseEMOM {
				e.rotateMinuteLocked(minute)
			}
		}
	}

	e.emitLocked(EventTick, 0, marker, now)
	e.emitCueLocked(now)

	if e.expiredLocked() {
		e.completePhaseLocked(now)
	}
}

// rotateMinuteLocked moves an EMOM to the set and sub-exercise of a new
// minute.
func (e *Engine) rotateMinuteLocked(minute int) {
	if minute+1 <= e.state.TotalSets {
		e.state.CurrentSet = minute + 1
	}
	if n := e.state.TotalSubExercises; n > 0 {
		e.state.CurrentSubExercise = minute % n
	}
}

func (e *Engine) expiredLocked() bool {
	switch e.state.Phase {
	case PhaseCountdown, PhaseWork, PhaseRest:
		return e.state.RemainingSeconds == 0
	case PhaseContinuous:
		if e.config.Mode == ModeCountUp {
			return e.state.PhaseSeconds > 0 && e.state.ElapsedSeconds >= e.state.PhaseSeconds
		}
		return e.state.RemainingSeconds == 0
	}
	return false
}

// emitCueLocked emits a countdown tick the first time the remaining time
// shows 3, 2 or 1 during a countdown or, for minute-end modalities, before
// every minute boundary of the block.
func (e *Engine) emitCueLocked(now time.Time) {
	cue := 0
	remaining := e.state.RemainingSeconds
	switch {
	case e.state.Phase == PhaseCountdown:
		if remaining >= 1 && remaining <= countdownCueFrom {
			cue = remaining
		}
	case e.state.Phase == PhaseContinuous && e.config.CountdownAtMinuteEnd && e.config.Mode == ModeCountdown:
		// Minutes count from the start of the block, as the markers do. The
		// end of the block gets its own 3-2-1 even mid-minute.
		left := 60 - e.state.ElapsedSeconds%60
		switch {
		case remaining >= 1 && remaining <= countdownCueFrom:
			cue = remaining
		case left < remaining && left <= countdownCueFrom:
			cue = left
		}
	}

	if cue == 0 {
		e.lastCue = 0
		return
	}
	if cue == e.lastCue {
		return
	}
	e.lastCue = cue
	e.emitLocked(EventCountdownTick, cue, 0, now)
}

func (e *Engine) emitLocked(typ EventType, countdown, marker int, now time.Time) {
	e.bus.publish(Event{
		Type:           typ,
		State:          e.snapshotLocked(),
		CountdownValue: countdown,
		MinuteMarker:   marker,
		At:             now,
	})
}

func (e *Engine) snapshotLocked() State {
	s := e.state
	if s.PauseStartTime != nil {
		t := *s.PauseStartTime
		s.PauseStartTime = &t
	}
	return s
}

func (e *Engine) startLoopLocked() {
	if e.stopCh != nil {
		return
	}
	stop := make(chan struct{})
	e.stopCh = stop
	go e.run(e.opts.Clock.NewTicker(e.opts.TickInterval), stop)
}

func (e *Engine) stopLoopLocked() {
	if e.stopCh == nil {
		return
	}
	close(e.stopCh)
	e.stopCh = nil
}

func (e *Engine) run(ticker clock.Ticker, stop chan struct{}) {
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			e.onTick(stop)
		}
	}
}

func (e *Engine) onTick(stop chan struct{}) {
	e.mu.Lock()
	if e.stopCh != stop {
		// A Stop or a new exercise raced this tick.
		e.mu.Unlock()
		return
	}
	e.advanceLocked(e.opts.Clock.Now())
	e.mu.Unlock()
	e.bus.flush()
}

// tick runs the tick handler once at the clock's current time.
func (e *Engine) tick() {
	e.mu.Lock()
	e.advanceLocked(e.opts.Clock.Now())
	e.mu.Unlock()
	e.bus.flush()
}
