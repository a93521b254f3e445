package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/misterclayt0n/lazaro-timer/internal/models"
	"github.com/misterclayt0n/lazaro-timer/internal/timer"
)

type Manager struct {
	// counters
	CounterPhaseTransitions *prometheus.CounterVec
	CounterCountdownCues    prometheus.Counter
	CounterTicks            prometheus.Counter
	CounterPauseSeconds     prometheus.Counter
	CounterEntriesLogged    *prometheus.CounterVec

	// gauges
	GaugeRemainingSeconds prometheus.Gauge
	GaugeCurrentSet       prometheus.Gauge

	mu         sync.Mutex
	pauseTotal float64
}

func NewTestManager() *Manager {
	return NewManager("lazaro", "test_timer", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("lazaro", "test_timer", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterPhaseTransitions := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "phase_transitions_total",
		Help:      "The total number of phase changes, by phase entered",
	}, []string{"phase"})
	counterCountdownCues := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "countdown_cues_total",
		Help:      "The total number of 3-2-1 countdown cues",
	})
	counterTicks := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "ticks_total",
		Help:      "The total number of ticks observed in an active phase",
	})
	counterPauseSeconds := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "pause_seconds_total",
		Help:      "Total time spent paused in seconds",
	})
	counterEntriesLogged := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "history_entries_total",
		Help:      "The total number of history entries logged, by exercise type",
	}, []string{"type"})

	gaugeRemainingSeconds := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "remaining_seconds",
		Help:      "Seconds left in the current phase",
	})
	gaugeCurrentSet := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "current_set",
		Help:      "Set or round currently in progress",
	})

	return &Manager{
		CounterPhaseTransitions: counterPhaseTransitions,
		CounterCountdownCues:    counterCountdownCues,
		CounterTicks:            counterTicks,
		CounterPauseSeconds:     counterPauseSeconds,
		CounterEntriesLogged:    counterEntriesLogged,
		GaugeRemainingSeconds:   gaugeRemainingSeconds,
		GaugeCurrentSet:         gaugeCurrentSet,
	}
}

// Observe is a timer.Listener.
func (m *Manager) Observe(ev timer.Event) {
	switch ev.Type {
	case timer.EventPhaseChange:
		m.CounterPhaseTransitions.WithLabelValues(string(ev.State.Phase)).Inc()
		m.observePause(ev.State)
	case timer.EventTick:
		m.CounterTicks.Inc()
	case timer.EventCountdownTick:
		m.CounterCountdownCues.Inc()
	}
	m.GaugeRemainingSeconds.Set(float64(ev.State.RemainingSeconds))
	m.GaugeCurrentSet.Set(float64(ev.State.CurrentSet))
}

// ObserveEntry counts a logged history entry.
func (m *Manager) ObserveEntry(entry models.HistoryEntry) {
	m.CounterEntriesLogged.WithLabelValues(string(entry.ExerciseType)).Inc()
}

// observePause adds pause time accrued since the last phase change. The
// engine's total drops back to zero on a new exercise or a stop.
func (m *Manager) observePause(s timer.State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := s.TotalPauseTime.Seconds()
	if total < m.pauseTotal {
		m.pauseTotal = 0
	}
	if delta := total - m.pauseTotal; delta > 0 {
		m.CounterPauseSeconds.Add(delta)
	}
	m.pauseTotal = total
}
