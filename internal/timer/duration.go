package timer

import (
	"strconv"
	"strings"

	"github.com/misterclayt0n/lazaro-timer/internal/models"
)

const (
	// DefaultTempoSeconds is the per-rep time used when a tempo can't be parsed.
	DefaultTempoSeconds = 4
	// DefaultTempo is assumed when a tempo-based prescription carries none.
	DefaultTempo = "2-0-2"
	// DefaultRestSeconds is used when a prescription has no rest time.
	DefaultRestSeconds = 60
	// MinRestSeconds leaves audio and UI enough time to cue a transition.
	MinRestSeconds = 10
)

// ParseTempoToSeconds sums a three segment cadence such as "3-1-2" into
// seconds per repetition. An "x" segment (explosive) counts as zero.
// Anything else falls back to DefaultTempoSeconds.
func ParseTempoToSeconds(tempo string) int {
	segments := strings.Split(strings.TrimSpace(tempo), "-")
	if len(segments) != 3 {
		return DefaultTempoSeconds
	}

	total := 0
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if strings.EqualFold(seg, "x") {
			continue
		}
		n, err := strconv.Atoi(seg)
		if err != nil || n < 0 {
			return DefaultTempoSeconds
		}
		total += n
	}
	return total
}

// CalculateWorkDuration returns the work time in seconds for one set.
func CalculateWorkDuration(p models.Prescription, cfg Config) int {
	switch cfg.WorkCalculation {
	case WorkFromPrescription:
		if p.WorkTimeSeconds == nil || *p.WorkTimeSeconds < 0 {
			return 0
		}
		return *p.WorkTimeSeconds
	default:
		if p.Reps == nil || *p.Reps <= 0 {
			return 0
		}
		tempo := DefaultTempo
		if p.Tempo != nil {
			tempo = *p.Tempo
		}
		return *p.Reps * ParseTempoToSeconds(tempo)
	}
}

// CalculateRestDuration returns the rest time in seconds, rounded with
// RoundSeconds and never below MinRestSeconds.
func CalculateRestDuration(p models.Prescription) int {
	rest := DefaultRestSeconds
	if p.RestTimeSeconds != nil {
		rest = *p.RestTimeSeconds
	}
	rest = RoundSeconds(rest)
	if rest < MinRestSeconds {
		return MinRestSeconds
	}
	return rest
}

// RoundSeconds is the rounding contract for prescribed durations: below a
// minute round to the nearest 5 seconds, from a minute up round to the
// nearest half minute. Ties round up.
func RoundSeconds(s int) int {
	if s <= 0 {
		return 0
	}
	if s < 60 {
		return (s + 2) / 5 * 5
	}
	return (s + 15) / 30 * 30
}

// blockSeconds is the total length of a fixed-duration block (EMOM, AMRAP).
// Without an explicit work time every set counts as one minute.
func blockSeconds(p models.Prescription) int {
	if p.WorkTimeSeconds != nil && *p.WorkTimeSeconds > 0 {
		return *p.WorkTimeSeconds
	}
	sets := p.Sets
	if sets < 1 {
		sets = 1
	}
	return sets * 60
}
