package timer

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/misterclayt0n/lazaro-timer/internal/clock"
	"github.com/misterclayt0n/lazaro-timer/internal/models"
)

var testStart = time.Date(2025, 3, 10, 7, 30, 0, 0, time.UTC)

func newTestEngine(t *testing.T) (*Engine, *clock.Fake) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	clk := clock.NewFake(testStart)
	e := New(Options{Clock: clk, Logger: logger})
	t.Cleanup(e.Stop)
	return e, clk
}

// step moves the clock forward one second at a time, running the tick
// handler after each second.
func step(e *Engine, clk *clock.Fake, seconds int) {
	for i := 0; i < seconds; i++ {
		clk.Advance(time.Second)
		e.tick()
	}
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func record(e *Engine) *eventLog {
	l := &eventLog{}
	e.Subscribe(func(ev Event) {
		l.mu.Lock()
		l.events = append(l.events, ev)
		l.mu.Unlock()
	})
	return l
}

func (l *eventLog) phases() []Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Phase
	for _, ev := range l.events {
		if ev.Type == EventPhaseChange {
			out = append(out, ev.State.Phase)
		}
	}
	return out
}

func (l *eventLog) cues() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []int
	for _, ev := range l.events {
		if ev.Type == EventCountdownTick {
			out = append(out, ev.CountdownValue)
		}
	}
	return out
}

func (l *eventLog) markers() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []int
	for _, ev := range l.events {
		if ev.MinuteMarker > 0 {
			out = append(out, ev.MinuteMarker)
		}
	}
	return out
}

func (l *eventLog) snapshot() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

func (l *eventLog) count(typ EventType) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, ev := range l.events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func strengthPrescription() models.Prescription {
	return models.Prescription{
		Name:            "Back Squat",
		Type:            models.ExerciseStrength,
		Sets:            3,
		Reps:            intPtr(8),
		Weight:          f32Ptr(100),
		Tempo:           strPtr("3-1-2"),
		RestTimeSeconds: intPtr(90),
	}
}

func TestEngine_NewIsIdle(t *testing.T) {
	e, _ := newTestEngine(t)

	s := e.State()
	assert.Equal(t, PhaseIdle, s.Phase)
	assert.Equal(t, 1, s.CurrentSet)
	assert.True(t, s.AudioEnabled)
}

func TestEngine_StartRequiresExercise(t *testing.T) {
	e, _ := newTestEngine(t)
	events := record(e)

	e.Start()

	assert.Equal(t, PhaseIdle, e.State().Phase)
	assert.Empty(t, events.phases())
}

func TestEngine_StrengthCycle(t *testing.T) {
	e, clk := newTestEngine(t)
	events := record(e)

	e.InitializeForExercise(strengthPrescription())
	s := e.State()
	require.Equal(t, PhaseIdle, s.Phase)
	assert.Equal(t, 3, s.TotalSets)
	assert.Equal(t, 1, s.CurrentSet)
	assert.Equal(t, models.ExerciseStrength, s.ExerciseType)

	e.Start()
	s = e.State()
	require.Equal(t, PhaseCountdown, s.Phase)
	assert.Equal(t, DefaultCountdownSeconds, s.RemainingSeconds)

	step(e, clk, DefaultCountdownSeconds)
	s = e.State()
	require.Equal(t, PhaseWork, s.Phase)
	assert.Equal(t, 48, s.RemainingSeconds)
	assert.Equal(t, []int{3, 2, 1}, events.cues())

	step(e, clk, 48)
	s = e.State()
	require.Equal(t, PhaseEntry, s.Phase)
	assert.Equal(t, 90, s.RemainingSeconds, "entry shows the suggested rest")

	// Entry never ends on its own.
	step(e, clk, 120)
	s = e.State()
	require.Equal(t, PhaseEntry, s.Phase)
	assert.Equal(t, 0, s.RemainingSeconds)

	e.ExitDataEntry()
	s = e.State()
	assert.Equal(t, PhaseCountdown, s.Phase)
	assert.Equal(t, 2, s.CurrentSet)

	assert.Equal(t, []Phase{PhaseCountdown, PhaseWork, PhaseEntry, PhaseCountdown}, events.phases())
}

func TestEngine_ExitOnFinalSetCompletes(t *testing.T) {
	e, clk := newTestEngine(t)
	e.InitializeForExercise(strengthPrescription())
	e.Start()

	for set := 1; set <= 3; set++ {
		require.Equal(t, set, e.State().CurrentSet)
		e.Skip() // countdown
		e.Skip() // work
		require.Equal(t, PhaseEntry, e.State().Phase)
		e.ExitDataEntry()
	}

	s := e.State()
	assert.Equal(t, PhaseComplete, s.Phase)
	assert.Equal(t, 3, s.CurrentSet)

	// Complete does not tick.
	step(e, clk, 5)
	assert.Equal(t, PhaseComplete, e.State().Phase)
}

func TestEngine_PauseResumePreservesRemaining(t *testing.T) {
	e, clk := newTestEngine(t)
	events := record(e)
	e.InitializeForExercise(strengthPrescription())
	e.Start()
	e.Skip()
	step(e, clk, 10)

	before := e.State()
	require.Equal(t, PhaseWork, before.Phase)
	require.Equal(t, 38, before.RemainingSeconds)

	e.Pause()
	paused := e.State()
	assert.Equal(t, PhasePaused, paused.Phase)
	assert.Equal(t, PhaseWork, paused.PausedPhase)
	require.NotNil(t, paused.PauseStartTime)
	assert.Equal(t, 38, paused.RemainingSeconds)

	// Ticks while paused change nothing.
	ticks := events.count(EventTick)
	step(e, clk, 30)
	assert.Equal(t, 38, e.State().RemainingSeconds)
	assert.Equal(t, ticks, events.count(EventTick))

	e.Resume()
	resumed := e.State()
	assert.Equal(t, PhaseWork, resumed.Phase)
	assert.Equal(t, 38, resumed.RemainingSeconds)
	assert.Equal(t, 30*time.Second, resumed.TotalPauseTime)
	assert.Nil(t, resumed.PauseStartTime)

	step(e, clk, 1)
	assert.Equal(t, 37, e.State().RemainingSeconds)

	assert.Equal(t,
		[]Phase{PhaseCountdown, PhaseWork, PhasePaused, PhaseWork},
		events.phases())
}

func TestEngine_PauseAccumulates(t *testing.T) {
	e, clk := newTestEngine(t)
	e.InitializeForExercise(strengthPrescription())
	e.Start()

	e.Pause()
	clk.Advance(5 * time.Second)
	e.Resume()
	e.Pause()
	clk.Advance(7 * time.Second)
	e.Resume()

	s := e.State()
	assert.Equal(t, 12*time.Second, s.TotalPauseTime)
	assert.Equal(t, DefaultCountdownSeconds, s.RemainingSeconds)
}

func TestEngine_SnapshotIsACopy(t *testing.T) {
	e, _ := newTestEngine(t)
	e.InitializeForExercise(strengthPrescription())
	e.Start()
	e.Pause()

	s := e.State()
	require.NotNil(t, s.PauseStartTime)
	*s.PauseStartTime = time.Time{}
	s.CurrentSet = 99

	again := e.State()
	assert.Equal(t, testStart, *again.PauseStartTime)
	assert.Equal(t, 1, again.CurrentSet)
}

func TestEngine_MisuseIsIgnored(t *testing.T) {
	e, _ := newTestEngine(t)
	events := record(e)

	e.Pause()
	e.Resume()
	e.Skip()
	e.ExitDataEntry()
	e.EnterDataEntry()
	e.Stop()
	assert.Equal(t, PhaseIdle, e.State().Phase)
	assert.Empty(t, events.phases())

	e.InitializeForExercise(strengthPrescription())
	e.Start()
	e.Start()
	e.Resume()
	e.ExitDataEntry()
	e.Pause()
	e.Skip()
	e.EnterDataEntry()

	assert.Equal(t, []Phase{PhaseCountdown, PhasePaused}, events.phases())
	assert.Equal(t, PhaseCountdown, e.State().PausedPhase)
}

func TestEngine_AdvanceSetClamps(t *testing.T) {
	e, _ := newTestEngine(t)
	e.InitializeForExercise(strengthPrescription())

	for i := 0; i < 10; i++ {
		e.AdvanceSet()
	}

	assert.Equal(t, 3, e.State().CurrentSet)
}

func TestEngine_SetCurrentSubExercise(t *testing.T) {
	e, _ := newTestEngine(t)
	e.InitializeForExercise(models.Prescription{
		Name: "Chipper",
		Type: models.ExerciseAMRAP,
		Sets: 1,
		SubExercises: []models.Prescription{
			{Name: "Burpee", Type: models.ExerciseBodyweight, Sets: 1},
			{Name: "Pull-up", Type: models.ExerciseBodyweight, Sets: 1},
		},
	})

	e.SetCurrentSubExercise(1)
	assert.Equal(t, 1, e.State().CurrentSubExercise)

	e.SetCurrentSubExercise(2)
	e.SetCurrentSubExercise(-1)
	assert.Equal(t, 1, e.State().CurrentSubExercise)
	assert.Equal(t, 2, e.State().TotalSubExercises)
}

func TestEngine_SetCurrentSubExerciseWithoutSubExercises(t *testing.T) {
	e, _ := newTestEngine(t)
	e.InitializeForExercise(strengthPrescription())

	e.SetCurrentSubExercise(0)
	assert.Equal(t, 0, e.State().CurrentSubExercise)
}

func TestEngine_IntervalAlternatesAndSkipsFinalRest(t *testing.T) {
	e, clk := newTestEngine(t)
	events := record(e)
	e.InitializeForExercise(models.Prescription{
		Name:            "Row sprints",
		Type:            models.ExerciseInterval,
		Sets:            2,
		WorkTimeSeconds: intPtr(20),
		RestTimeSeconds: intPtr(10),
	})
	e.Start()

	step(e, clk, 5+20)
	assert.Equal(t, PhaseRest, e.State().Phase)
	assert.Equal(t, 10, e.State().RemainingSeconds)

	step(e, clk, 10)
	s := e.State()
	assert.Equal(t, PhaseWork, s.Phase)
	assert.Equal(t, 2, s.CurrentSet)

	step(e, clk, 20)
	s = e.State()
	assert.Equal(t, PhaseComplete, s.Phase)
	assert.Equal(t, 2, s.CurrentSet)

	assert.Equal(t,
		[]Phase{PhaseCountdown, PhaseWork, PhaseRest, PhaseWork, PhaseComplete},
		events.phases())
}

func TestEngine_EMOMMinuteCuesAndMarkers(t *testing.T) {
	e, clk := newTestEngine(t)
	events := record(e)
	e.InitializeForExercise(models.Prescription{
		Name: "EMOM 3",
		Type: models.ExerciseEMOM,
		Sets: 3,
		SubExercises: []models.Prescription{
			{Name: "Kettlebell Swing", Type: models.ExerciseBodyweight, Sets: 1, Reps: intPtr(15)},
			{Name: "Push-up", Type: models.ExerciseBodyweight, Sets: 1, Reps: intPtr(10)},
		},
	})
	require.Equal(t, 3, e.State().TotalMinutes)

	e.Start()
	step(e, clk, 5)
	s := e.State()
	require.Equal(t, PhaseContinuous, s.Phase)
	assert.Equal(t, 180, s.RemainingSeconds)

	step(e, clk, 60)
	s = e.State()
	assert.Equal(t, 2, s.CurrentSet)
	assert.Equal(t, 1, s.CurrentSubExercise)

	step(e, clk, 60)
	s = e.State()
	assert.Equal(t, 3, s.CurrentSet)
	assert.Equal(t, 0, s.CurrentSubExercise)

	step(e, clk, 60)
	s = e.State()
	assert.Equal(t, PhaseComplete, s.Phase)
	assert.Equal(t, 3, s.CurrentSet)

	assert.Equal(t, []int{3, 2, 1, 3, 2, 1, 3, 2, 1, 3, 2, 1}, events.cues())
	assert.Equal(t, []int{1, 2, 3}, events.markers())
}

func TestEngine_EMOMPartialMinuteCuesFollowBoundaries(t *testing.T) {
	e, clk := newTestEngine(t)
	events := record(e)
	e.InitializeForExercise(models.Prescription{
		Name:            "EMOM 90s",
		Type:            models.ExerciseEMOM,
		Sets:            2,
		WorkTimeSeconds: intPtr(90),
		SubExercises: []models.Prescription{
			{Name: "Thruster", Type: models.ExerciseBodyweight, Sets: 1, Reps: intPtr(5)},
			{Name: "Burpees", Type: models.ExerciseBodyweight, Sets: 1, Reps: intPtr(5)},
		},
	})

	e.Start()
	step(e, clk, 5)
	require.Equal(t, PhaseContinuous, e.State().Phase)

	step(e, clk, 60)
	s := e.State()
	assert.Equal(t, 2, s.CurrentSet)
	assert.Equal(t, 1, s.CurrentSubExercise)

	step(e, clk, 30)
	assert.Equal(t, PhaseComplete, e.State().Phase)

	var cueElapsed, markerElapsed []int
	for _, ev := range events.snapshot() {
		if ev.State.Phase != PhaseContinuous {
			continue
		}
		if ev.Type == EventCountdownTick {
			cueElapsed = append(cueElapsed, ev.State.ElapsedSeconds)
		}
		if ev.MinuteMarker > 0 {
			markerElapsed = append(markerElapsed, ev.State.ElapsedSeconds)
		}
	}
	assert.Equal(t, []int{57, 58, 59, 87, 88, 89}, cueElapsed)
	assert.Equal(t, []int{60}, markerElapsed)
	assert.Equal(t, []int{3, 2, 1, 3, 2, 1, 3, 2, 1}, events.cues())
}

func TestEngine_AMRAPUsesWorkTime(t *testing.T) {
	e, clk := newTestEngine(t)
	e.InitializeForExercise(models.Prescription{
		Name:            "AMRAP 10",
		Type:            models.ExerciseAMRAP,
		Sets:            1,
		WorkTimeSeconds: intPtr(570),
	})
	assert.Equal(t, 10, e.State().TotalMinutes)

	e.Start()
	e.Skip()
	step(e, clk, 569)
	assert.Equal(t, PhaseContinuous, e.State().Phase)
	assert.Equal(t, 1, e.State().RemainingSeconds)

	step(e, clk, 1)
	assert.Equal(t, PhaseComplete, e.State().Phase)
}

func TestEngine_CircuitCountsUp(t *testing.T) {
	e, clk := newTestEngine(t)
	events := record(e)
	e.InitializeForExercise(models.Prescription{
		Name: "Circuit",
		Type: models.ExerciseCircuit,
		Sets: 5,
	})
	e.Start()
	step(e, clk, 5)

	s := e.State()
	require.Equal(t, PhaseContinuous, s.Phase)
	assert.Equal(t, ModeCountUp, s.Mode)

	step(e, clk, 125)
	s = e.State()
	assert.Equal(t, PhaseContinuous, s.Phase, "uncapped circuit runs until skipped")
	assert.Equal(t, 125, s.ElapsedSeconds)
	assert.Equal(t, []int{1, 2}, events.markers())
	assert.Equal(t, []int{3, 2, 1}, events.cues(), "only the lead-in counts down")

	e.AdvanceSet()
	e.AdvanceSet()
	e.Skip()
	s = e.State()
	assert.Equal(t, PhaseComplete, s.Phase)
	assert.Equal(t, 3, s.CurrentSet)
}

func TestEngine_CircuitTimeCap(t *testing.T) {
	e, clk := newTestEngine(t)
	e.InitializeForExercise(models.Prescription{
		Name:            "Capped circuit",
		Type:            models.ExerciseCircuit,
		Sets:            3,
		WorkTimeSeconds: intPtr(120),
	})
	assert.Equal(t, 2, e.State().TotalMinutes)

	e.Start()
	e.Skip()
	step(e, clk, 119)
	assert.Equal(t, PhaseContinuous, e.State().Phase)

	step(e, clk, 1)
	assert.Equal(t, PhaseComplete, e.State().Phase)
}

func TestEngine_BlockEntryAfterComplete(t *testing.T) {
	e, _ := newTestEngine(t)
	events := record(e)
	e.InitializeForExercise(models.Prescription{
		Name: "Circuit",
		Type: models.ExerciseCircuit,
		Sets: 4,
	})
	e.Start()
	e.Skip()
	e.Skip()
	require.Equal(t, PhaseComplete, e.State().Phase)

	e.EnterDataEntry()
	require.Equal(t, PhaseEntry, e.State().Phase)

	e.ExitDataEntry()
	assert.Equal(t, PhaseComplete, e.State().Phase)
	assert.Equal(t,
		[]Phase{PhaseCountdown, PhaseContinuous, PhaseComplete, PhaseEntry, PhaseComplete},
		events.phases())
}

func TestEngine_ZeroLengthWorkExpiresOnNextTick(t *testing.T) {
	e, clk := newTestEngine(t)
	e.InitializeForExercise(models.Prescription{
		Name: "Plank",
		Type: models.ExerciseBodyweight,
		Sets: 1,
	})
	e.Start()
	e.Skip()
	require.Equal(t, PhaseWork, e.State().Phase)
	assert.Equal(t, 0, e.State().RemainingSeconds)

	clk.Advance(250 * time.Millisecond)
	e.tick()
	assert.Equal(t, PhaseEntry, e.State().Phase)
}

func TestEngine_StopReturnsToIdle(t *testing.T) {
	e, clk := newTestEngine(t)
	events := record(e)
	e.InitializeForExercise(strengthPrescription())
	e.Start()
	e.AdvanceSet()
	step(e, clk, 3)

	e.Stop()
	s := e.State()
	assert.Equal(t, PhaseIdle, s.Phase)
	assert.Equal(t, 1, s.CurrentSet)
	assert.Equal(t, 0, s.CurrentSubExercise)

	e.Stop()
	assert.Equal(t, []Phase{PhaseCountdown, PhaseIdle}, events.phases())

	// The exercise is still loaded.
	e.Start()
	assert.Equal(t, PhaseCountdown, e.State().Phase)
}

func TestEngine_InitializeKeepsAudioPreference(t *testing.T) {
	e, _ := newTestEngine(t)
	e.SetAudioEnabled(false)
	e.InitializeForExercise(strengthPrescription())
	e.Start()
	e.AdvanceSet()

	e.InitializeForExercise(models.Prescription{Name: "Row", Type: models.ExerciseInterval, Sets: 4})
	s := e.State()
	assert.Equal(t, PhaseIdle, s.Phase)
	assert.Equal(t, 1, s.CurrentSet)
	assert.Equal(t, 4, s.TotalSets)
	assert.False(t, s.AudioEnabled)
	assert.Equal(t, models.ExerciseInterval, e.Config().ExerciseType)
	assert.Equal(t, "Row", e.Prescription().Name)
}

func TestEngine_ZeroSetsMeansOne(t *testing.T) {
	e, _ := newTestEngine(t)
	e.InitializeForExercise(models.Prescription{Name: "Carry", Type: models.ExerciseStrength})

	assert.Equal(t, 1, e.State().TotalSets)
}

func TestEngine_ListenerMayCallBack(t *testing.T) {
	e, _ := newTestEngine(t)
	events := record(e)
	e.Subscribe(func(ev Event) {
		if ev.Type == EventPhaseChange && ev.State.Phase == PhaseWork {
			_ = e.State()
			e.Pause()
		}
	})
	e.InitializeForExercise(strengthPrescription())
	e.Start()
	e.Skip()

	assert.Equal(t, PhasePaused, e.State().Phase)
	assert.Equal(t, []Phase{PhaseCountdown, PhaseWork, PhasePaused}, events.phases())
}

func TestEngine_TickLoop(t *testing.T) {
	e, clk := newTestEngine(t)
	e.InitializeForExercise(strengthPrescription())
	e.Start()
	require.Equal(t, 1, clk.Tickers())

	clk.Advance(time.Second)
	clk.Fire()
	require.Eventually(t, func() bool {
		return e.State().RemainingSeconds == DefaultCountdownSeconds-1
	}, time.Second, 5*time.Millisecond)

	e.Stop()
	require.Eventually(t, func() bool {
		return clk.Tickers() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestEngine_SubscribeChanDropsWhenFull(t *testing.T) {
	e, clk := newTestEngine(t)
	ch, unsubscribe := e.SubscribeChan(2)
	defer unsubscribe()

	e.InitializeForExercise(strengthPrescription())
	e.Start()
	step(e, clk, 2)

	require.Len(t, ch, 2)
	first := <-ch
	assert.Equal(t, EventPhaseChange, first.Type)
	assert.Equal(t, PhaseCountdown, first.State.Phase)
	second := <-ch
	assert.Equal(t, EventTick, second.Type)
}
