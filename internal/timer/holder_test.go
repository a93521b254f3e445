package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/misterclayt0n/lazaro-timer/internal/clock"
)

func TestHolder_EngineIsShared(t *testing.T) {
	h := NewHolder(Options{Clock: clock.NewFake(testStart)})

	assert.Same(t, h.Engine(), h.Engine())
}

func TestHolder_ResetBuildsFreshEngine(t *testing.T) {
	clk := clock.NewFake(testStart)
	h := NewHolder(Options{Clock: clk})

	first := h.Engine()
	first.SetAudioEnabled(false)
	first.InitializeForExercise(strengthPrescription())
	first.Start()
	require.Equal(t, PhaseCountdown, first.State().Phase)

	h.Reset()
	assert.Equal(t, PhaseIdle, first.State().Phase, "reset stops the old engine")
	require.Eventually(t, func() bool { return clk.Tickers() == 0 }, time.Second, 5*time.Millisecond)

	second := h.Engine()
	assert.NotSame(t, first, second)
	s := second.State()
	assert.Equal(t, PhaseIdle, s.Phase)
	assert.True(t, s.AudioEnabled)
}

func TestHolder_ResetWithoutEngine(t *testing.T) {
	h := NewHolder(Options{})

	assert.NotPanics(t, h.Reset)
}
