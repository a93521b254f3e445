package storage

import (
	"fmt"
	"io"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/misterclayt0n/lazaro-timer/internal/models"
)

type historyDump struct {
	ExportedAt time.Time   `toml:"exported_at"`
	Entries    []dumpEntry `toml:"entry"`
}

type dumpEntry struct {
	ID           string    `toml:"id"`
	ExerciseName string    `toml:"exercise_name"`
	ExerciseType string    `toml:"exercise_type"`
	SetNumber    int       `toml:"set_number"`
	Reps         int       `toml:"reps"`
	Weight       float32   `toml:"weight"`
	WeightUnit   string    `toml:"weight_unit,omitempty"`
	Rounds       int       `toml:"rounds"`
	WorkSeconds  int       `toml:"work_seconds"`
	PauseMS      int64     `toml:"pause_ms"`
	LoggedAt     time.Time `toml:"logged_at"`
}

// ExportToTOML writes the whole log, oldest entry first, as TOML.
func (s *Storage) ExportToTOML(w io.Writer) error {
	entries, err := s.RecentEntries(0)
	if err != nil {
		return err
	}

	dump := historyDump{ExportedAt: time.Now().UTC().Truncate(time.Second)}
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		dump.Entries = append(dump.Entries, dumpEntry{
			ID:           e.ID,
			ExerciseName: e.ExerciseName,
			ExerciseType: string(e.ExerciseType),
			SetNumber:    e.SetNumber,
			Reps:         e.Reps,
			Weight:       e.Weight,
			WeightUnit:   e.WeightUnit,
			Rounds:       e.Rounds,
			WorkSeconds:  e.WorkSeconds,
			PauseMS:      e.PauseTime.Milliseconds(),
			LoggedAt:     e.LoggedAt,
		})
	}

	if err := toml.NewEncoder(w).Encode(dump); err != nil {
		return fmt.Errorf("encoding TOML: %w", err)
	}
	return nil
}

// ImportFromTOML loads a dump written by ExportToTOML. Entries already in
// the log are replaced, so importing the same dump twice is harmless. It
// returns the number of entries read.
func (s *Storage) ImportFromTOML(r io.Reader) (int, error) {
	var dump historyDump
	if _, err := toml.NewDecoder(r).Decode(&dump); err != nil {
		return 0, fmt.Errorf("Decoding TOML: %w", err)
	}

	tx, err := s.DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("Begin transaction: %w", err)
	}

	for _, e := range dump.Entries {
		if e.ID == "" {
			tx.Rollback()
			return 0, fmt.Errorf("entry for %q has no id", e.ExerciseName)
		}
		if _, err := models.ParseExerciseType(e.ExerciseType); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("entry %s: %w", e.ID, err)
		}

		_, err := tx.Exec(
			`INSERT OR REPLACE INTO history (`+historyColumns+`)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID,
			e.ExerciseName,
			e.ExerciseType,
			e.SetNumber,
			e.Reps,
			e.Weight,
			e.WeightUnit,
			e.Rounds,
			e.WorkSeconds,
			e.PauseMS,
			e.LoggedAt.UTC().Format(timeLayout),
		)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("Inserting entry %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("Committing transaction: %w", err)
	}
	return len(dump.Entries), nil
}
