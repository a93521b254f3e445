package timer

import "github.com/misterclayt0n/lazaro-timer/internal/models"

// ConfigFor returns the timer configuration of a modality. Every member of
// models.ExerciseTypes has a complete entry; a value outside the enum gets the
// strength configuration so callers never see a partial config.
func ConfigFor(t models.ExerciseType) Config {
	switch t {
	case models.ExerciseStrength, models.ExerciseBodyweight:
		return Config{
			ExerciseType:    t,
			Mode:            ModeCountdown,
			Phases:          []Phase{PhaseCountdown, PhaseWork, PhaseRest},
			WorkCalculation: WorkTempoBased,
			LogTiming:       LogAfterEachSet,
		}
	case models.ExerciseEMOM, models.ExerciseAMRAP:
		return Config{
			ExerciseType:         t,
			Mode:                 ModeCountdown,
			Phases:               []Phase{PhaseCountdown, PhaseContinuous},
			WorkCalculation:      WorkFromPrescription,
			MinuteMarkers:        true,
			LogTiming:            LogAfterBlock,
			CountdownAtMinuteEnd: true,
		}
	case models.ExerciseInterval:
		return Config{
			ExerciseType:    t,
			Mode:            ModeCountdown,
			Phases:          []Phase{PhaseCountdown, PhaseWork, PhaseRest},
			WorkCalculation: WorkFromPrescription,
			LogTiming:       LogAfterBlock,
		}
	case models.ExerciseCircuit:
		return Config{
			ExerciseType:    t,
			Mode:            ModeCountUp,
			Phases:          []Phase{PhaseCountdown, PhaseContinuous},
			WorkCalculation: WorkFromPrescription,
			MinuteMarkers:   true,
			LogTiming:       LogAfterBlock,
		}
	}

	cfg := ConfigFor(models.ExerciseStrength)
	cfg.ExerciseType = t
	return cfg
}
