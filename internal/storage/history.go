package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/misterclayt0n/lazaro-timer/internal/models"
)

// timeLayout has a fixed width so logged_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

const historyColumns = `id, exercise_name, exercise_type, set_number, reps, weight,
    weight_unit, rounds, work_seconds, pause_ms, logged_at`

// LogEntry appends an entry to the log, filling in its ID and LoggedAt when
// unset.
func (s *Storage) LogEntry(entry *models.HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.LoggedAt.IsZero() {
		entry.LoggedAt = time.Now()
	}
	entry.LoggedAt = entry.LoggedAt.UTC()

	_, err := s.DB.Exec(
		`INSERT INTO history (`+historyColumns+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.ExerciseName,
		string(entry.ExerciseType),
		entry.SetNumber,
		entry.Reps,
		entry.Weight,
		entry.WeightUnit,
		entry.Rounds,
		entry.WorkSeconds,
		entry.PauseTime.Milliseconds(),
		entry.LoggedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("Failed to log entry: %w", err)
	}
	return nil
}

// RecentEntries returns up to limit entries, newest first. A limit of zero or
// less returns the whole log.
func (s *Storage) RecentEntries(limit int) ([]models.HistoryEntry, error) {
	if limit <= 0 {
		limit = -1
	}

	return s.queryEntries(
		`SELECT `+historyColumns+`
        FROM history
        ORDER BY logged_at DESC, set_number DESC
        LIMIT ?`, limit)
}

// EntriesBetween returns the entries logged in [from, to), oldest first.
func (s *Storage) EntriesBetween(from, to time.Time) ([]models.HistoryEntry, error) {
	return s.queryEntries(
		`SELECT `+historyColumns+`
        FROM history
        WHERE logged_at >= ? AND logged_at < ?
        ORDER BY logged_at ASC, set_number ASC`,
		from.UTC().Format(timeLayout), to.UTC().Format(timeLayout))
}

// ExerciseEntries returns every entry of an exercise, newest first. The name
// is matched ignoring ASCII case.
func (s *Storage) ExerciseEntries(exerciseName string) ([]models.HistoryEntry, error) {
	return s.queryEntries(
		`SELECT `+historyColumns+`
        FROM history
        WHERE exercise_name = ? COLLATE NOCASE
        ORDER BY logged_at DESC, set_number DESC`, exerciseName)
}

func (s *Storage) queryEntries(query string, args ...any) ([]models.HistoryEntry, error) {
	rows, err := s.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("Failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Failed to iterate history: %w", err)
	}
	return entries, nil
}

// LastEntry returns the newest entry for an exercise, or nil if it was never
// logged.
func (s *Storage) LastEntry(exerciseName string) (*models.HistoryEntry, error) {
	row := s.DB.QueryRow(
		`SELECT `+historyColumns+`
        FROM history
        WHERE exercise_name = ?
        ORDER BY logged_at DESC, set_number DESC
        LIMIT 1`, exerciseName)

	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Totals aggregates the whole log. Strength and bodyweight entries count as
// sets, everything else as blocks.
func (s *Storage) Totals() (*models.HistoryTotals, error) {
	var totals models.HistoryTotals
	var workSeconds int64
	var lastLogged sql.NullString

	err := s.DB.QueryRow(`
        SELECT
            COUNT(*),
            COALESCE(SUM(CASE WHEN exercise_type IN ('strength', 'bodyweight') THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN exercise_type IN ('strength', 'bodyweight') THEN 0 ELSE 1 END), 0),
            COALESCE(SUM(CASE WHEN exercise_type IN ('strength', 'bodyweight') THEN weight * reps ELSE 0 END), 0),
            COALESCE(SUM(work_seconds), 0),
            MAX(logged_at)
        FROM history
    `).Scan(
		&totals.Entries,
		&totals.Sets,
		&totals.Blocks,
		&totals.TotalVolume,
		&workSeconds,
		&lastLogged,
	)
	if err != nil {
		return nil, fmt.Errorf("Failed to compute totals: %w", err)
	}

	totals.WorkDuration = time.Duration(workSeconds) * time.Second
	if lastLogged.Valid {
		t, err := time.Parse(timeLayout, lastLogged.String)
		if err != nil {
			return nil, fmt.Errorf("Failed to parse logged_at %q: %w", lastLogged.String, err)
		}
		totals.LastLogged = &t
	}
	return &totals, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*models.HistoryEntry, error) {
	var entry models.HistoryEntry
	var exerciseType, loggedAt string
	var pauseMS int64

	err := row.Scan(
		&entry.ID,
		&entry.ExerciseName,
		&exerciseType,
		&entry.SetNumber,
		&entry.Reps,
		&entry.Weight,
		&entry.WeightUnit,
		&entry.Rounds,
		&entry.WorkSeconds,
		&pauseMS,
		&loggedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("Failed to scan history row: %w", err)
	}

	entry.ExerciseType = models.ExerciseType(exerciseType)
	entry.PauseTime = time.Duration(pauseMS) * time.Millisecond
	entry.LoggedAt, err = time.Parse(timeLayout, loggedAt)
	if err != nil {
		return nil, fmt.Errorf("Failed to parse logged_at %q: %w", loggedAt, err)
	}
	return &entry, nil
}
