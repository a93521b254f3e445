package models

import "time"

// HistoryEntry is one logged set (strength, bodyweight) or one logged block
// (EMOM, AMRAP, interval, circuit).
type HistoryEntry struct {
	ID           string        `json:"id"`
	ExerciseName string        `json:"exercise_name"`
	ExerciseType ExerciseType  `json:"exercise_type"`
	SetNumber    int           `json:"set_number"`
	Reps         int           `json:"reps"`
	Weight       float32       `json:"weight"`
	WeightUnit   string        `json:"weight_unit"`
	Rounds       int           `json:"rounds"`
	WorkSeconds  int           `json:"work_seconds"`
	PauseTime    time.Duration `json:"pause_time"`
	LoggedAt     time.Time     `json:"logged_at"`
}

// HistoryTotals aggregates the whole log.
type HistoryTotals struct {
	Entries      int
	Sets         int
	Blocks       int
	TotalVolume  float32 // weight × reps over every set.
	WorkDuration time.Duration
	LastLogged   *time.Time
}
