package models

import "fmt"

// ExerciseType is the modality an exercise is performed in. The set is closed:
// every value has a timer configuration.
type ExerciseType string

const (
	ExerciseStrength   ExerciseType = "strength"
	ExerciseBodyweight ExerciseType = "bodyweight"
	ExerciseEMOM       ExerciseType = "emom"
	ExerciseAMRAP      ExerciseType = "amrap"
	ExerciseInterval   ExerciseType = "interval"
	ExerciseCircuit    ExerciseType = "circuit"
)

// ExerciseTypes returns every modality in display order.
func ExerciseTypes() []ExerciseType {
	return []ExerciseType{
		ExerciseStrength,
		ExerciseBodyweight,
		ExerciseEMOM,
		ExerciseAMRAP,
		ExerciseInterval,
		ExerciseCircuit,
	}
}

// ParseExerciseType maps a raw tag to an ExerciseType.
func ParseExerciseType(s string) (ExerciseType, error) {
	for _, t := range ExerciseTypes() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown exercise type %q", s)
}

// IsBlock reports whether the modality is a compound block (EMOM, AMRAP,
// interval or circuit) rather than plain sets.
func (t ExerciseType) IsBlock() bool {
	switch t {
	case ExerciseEMOM, ExerciseAMRAP, ExerciseInterval, ExerciseCircuit:
		return true
	}
	return false
}

// Prescription is what the workout generator hands to the timer: how many
// sets, how long, how heavy. Nil pointers mean "not prescribed".
type Prescription struct {
	Name            string         `json:"name"`
	Type            ExerciseType   `json:"type"`
	Sets            int            `json:"sets"`
	Reps            *int           `json:"reps,omitempty"`
	Weight          *float32       `json:"weight,omitempty"`
	WeightUnit      *string        `json:"weight_unit,omitempty"`
	WorkTimeSeconds *int           `json:"work_time_seconds,omitempty"`
	RestTimeSeconds *int           `json:"rest_time_seconds,omitempty"`
	Tempo           *string        `json:"tempo,omitempty"`
	SubExercises    []Prescription `json:"sub_exercises,omitempty"`
}

// Workout is an ordered list of exercises loaded from one file.
type Workout struct {
	Name      string         `json:"name"`
	Exercises []Prescription `json:"exercises"`
}

//
// For TOML/YAML parsing only
//

type WorkoutFile struct {
	Name      string            `toml:"name" yaml:"name" json:"name,omitempty"`
	Exercises []PrescriptionDef `toml:"exercise" yaml:"exercises" json:"exercises"`
}

type PrescriptionDef struct {
	Name            string            `toml:"name" yaml:"name" json:"name"`
	Type            string            `toml:"type" yaml:"type" json:"type,omitempty"`
	Sets            int               `toml:"sets" yaml:"sets" json:"sets,omitempty"`
	Reps            *int              `toml:"reps" yaml:"reps" json:"reps,omitempty"`
	Weight          *float32          `toml:"weight" yaml:"weight" json:"weight,omitempty"`
	WeightUnit      *string           `toml:"weight_unit" yaml:"weight_unit" json:"weight_unit,omitempty"`
	WorkTimeSeconds *int              `toml:"work_time_seconds" yaml:"work_time_seconds" json:"work_time_seconds,omitempty"`
	RestTimeSeconds *int              `toml:"rest_time_seconds" yaml:"rest_time_seconds" json:"rest_time_seconds,omitempty"`
	Tempo           *string           `toml:"tempo" yaml:"tempo" json:"tempo,omitempty"`
	SubExercises    []PrescriptionDef `toml:"sub_exercise" yaml:"sub_exercises" json:"sub_exercises,omitempty"`
}
