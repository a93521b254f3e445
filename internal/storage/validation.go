package storage

import (
	"database/sql"
	"fmt"
)

// ExerciseLogged reports whether the exercise has at least one entry.
func (s *Storage) ExerciseLogged(name string) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM history WHERE exercise_name = ?)",
		name,
	).Scan(&exists)

	if err != nil && err != sql.ErrNoRows {
		return false, fmt.Errorf("Failed to check exercise history: %w", err)
	}

	return exists, nil
}
