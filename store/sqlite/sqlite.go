/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements all persistence interfaces (RoutineStore, StepStore,
  ProfileStore, OccurrenceStore) using SQLite. In production, the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  user_profiles: User id + IANA timezone
  routines:      Prescription containers (start/end dates)
  routine_steps: Product slots with slot, frequency, and day set
  occurrences:   The mutable schedule (one row per step per due date)

INSTANT STORAGE:
  Deadlines and completion instants are stored as Unix nanoseconds so SQL
  comparisons (the overdue sweep's grace_period_end < now) are plain
  integer comparisons. Calendar dates are stored as "2006-01-02" TEXT,
  which compares lexicographically.

MUTATION DISCIPLINE:
  Occurrence rows transition to a terminal status at most once. MarkOverdue
  is a single set-based UPDATE filtered on status='pending', so a repeat
  sweep matches zero rows and re-touches nothing.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block and a single writer proceeds at a time.

USAGE:
  st, err := sqlite.New("./data/routines.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

SEE ALSO:
  - schedule/store.go: Interface definitions
  - schedule/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dermaloop/routine-engine/schedule"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS user_profiles (
		id TEXT PRIMARY KEY,
		timezone TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS routines (
		id TEXT PRIMARY KEY,
		user_profile_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_routines_user
		ON routines(user_profile_id);

	CREATE TABLE IF NOT EXISTS routine_steps (
		id TEXT PRIMARY KEY,
		routine_id TEXT NOT NULL,
		routine_step INTEGER NOT NULL,
		product_name TEXT NOT NULL,
		time_of_day TEXT NOT NULL,
		frequency TEXT NOT NULL,
		days TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_steps_routine
		ON routine_steps(routine_id, routine_step);

	-- The mutable schedule. Deadline instants are Unix nanoseconds so the
	-- overdue sweep is a plain integer comparison.
	CREATE TABLE IF NOT EXISTS occurrences (
		id TEXT PRIMARY KEY,
		step_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		scheduled_date TEXT NOT NULL,
		time_of_day TEXT NOT NULL,
		on_time_deadline INTEGER NOT NULL,
		grace_period_end INTEGER NOT NULL,
		completed_at INTEGER,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	-- Compliance window reads (hot path)
	CREATE INDEX IF NOT EXISTS idx_occurrences_user_date
		ON occurrences(user_id, scheduled_date);

	-- Overdue sweep
	CREATE INDEX IF NOT EXISTS idx_occurrences_user_status_grace
		ON occurrences(user_id, status, grace_period_end);

	-- Step regeneration (delete-from-date)
	CREATE INDEX IF NOT EXISTS idx_occurrences_step_date
		ON occurrences(step_id, scheduled_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SEEDING - Prescription records (written by the routine-authoring surface)
// =============================================================================

// PutProfile inserts or replaces a user profile.
func (s *Store) PutProfile(ctx context.Context, p schedule.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO user_profiles (id, timezone, created_at) VALUES (?, ?, ?)`,
		string(p.ID), p.Timezone, time.Now().UTC().Format(time.RFC3339))
	return err
}

// PutRoutine inserts or replaces a routine.
func (s *Store) PutRoutine(ctx context.Context, r schedule.Routine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var end any
	if r.EndDate != nil {
		end = r.EndDate.String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO routines (id, user_profile_id, start_date, end_date, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		string(r.ID), string(r.UserProfileID), r.StartDate.String(), end,
		time.Now().UTC().Format(time.RFC3339))
	return err
}

// PutStep inserts or replaces a routine step.
func (s *Store) PutStep(ctx context.Context, st schedule.RoutineStep) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO routine_steps
		 (id, routine_id, routine_step, product_name, time_of_day, frequency, days, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(st.ID), string(st.RoutineID), st.RoutineStep, st.ProductName,
		string(st.TimeOfDay), st.Frequency.Label(), strings.Join(st.Frequency.DayNames(), ","),
		time.Now().UTC().Format(time.RFC3339))
	return err
}

// =============================================================================
// PRESCRIPTION LOOKUPS (schedule.RoutineStore / StepStore / ProfileStore)
// =============================================================================

func (s *Store) FindRoutine(ctx context.Context, id schedule.RoutineID) (schedule.Routine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_profile_id, start_date, end_date FROM routines WHERE id = ?`, string(id))

	var r schedule.Routine
	var start string
	var end sql.NullString
	if err := row.Scan(&r.ID, &r.UserProfileID, &start, &end); err != nil {
		if err == sql.ErrNoRows {
			return schedule.Routine{}, schedule.ErrRoutineNotFound
		}
		return schedule.Routine{}, err
	}

	var err error
	if r.StartDate, err = schedule.ParseDate(start); err != nil {
		return schedule.Routine{}, err
	}
	if end.Valid {
		d, err := schedule.ParseDate(end.String)
		if err != nil {
			return schedule.Routine{}, err
		}
		r.EndDate = &d
	}
	return r, nil
}

func (s *Store) FindProfile(ctx context.Context, id schedule.UserID) (schedule.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, timezone FROM user_profiles WHERE id = ?`, string(id))

	var p schedule.UserProfile
	if err := row.Scan(&p.ID, &p.Timezone); err != nil {
		if err == sql.ErrNoRows {
			return schedule.UserProfile{}, schedule.ErrProfileNotFound
		}
		return schedule.UserProfile{}, err
	}
	return p, nil
}

func (s *Store) FindStepsByRoutine(ctx context.Context, id schedule.RoutineID) ([]schedule.RoutineStep, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, routine_id, routine_step, product_name, time_of_day, frequency, days
		 FROM routine_steps WHERE routine_id = ? ORDER BY routine_step`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSteps(rows)
}

func (s *Store) FindStepsByIDs(ctx context.Context, ids []schedule.StepID) ([]schedule.RoutineStep, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = string(id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, routine_id, routine_step, product_name, time_of_day, frequency, days
		 FROM routine_steps WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSteps(rows)
}

func scanSteps(rows *sql.Rows) ([]schedule.RoutineStep, error) {
	var steps []schedule.RoutineStep
	for rows.Next() {
		var st schedule.RoutineStep
		var tod, freq, days string
		if err := rows.Scan(&st.ID, &st.RoutineID, &st.RoutineStep, &st.ProductName, &tod, &freq, &days); err != nil {
			return nil, err
		}
		var err error
		if st.TimeOfDay, err = schedule.ParseTimeOfDay(tod); err != nil {
			return nil, err
		}
		var names []string
		if days != "" {
			names = strings.Split(days, ",")
		}
		if st.Frequency, err = schedule.NewFrequency(freq, names); err != nil {
			return nil, err
		}
		steps = append(steps, st)
	}
	return steps, rows.Err()
}

// =============================================================================
// OCCURRENCE STORE (schedule.OccurrenceStore)
// =============================================================================

// CreateOccurrences inserts a batch atomically within one transaction.
func (s *Store) CreateOccurrences(ctx context.Context, occs []schedule.Occurrence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO occurrences
		 (id, step_id, user_id, scheduled_date, time_of_day, on_time_deadline,
		  grace_period_end, completed_at, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, o := range occs {
		if _, err := stmt.ExecContext(ctx,
			string(o.ID), string(o.StepID), string(o.UserID),
			o.ScheduledDate.String(), string(o.TimeOfDay),
			o.OnTimeDeadline.UnixNano(), o.GracePeriodEnd.UnixNano(),
			nullInstant(o.CompletedAt), string(o.Status),
			o.CreatedAt.UnixNano(), o.UpdatedAt.UnixNano(),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) FindOccurrence(ctx context.Context, id schedule.OccurrenceID) (schedule.Occurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, selectOccurrence+` WHERE id = ?`, string(id))
	occ, err := scanOccurrenceRow(row)
	if err == sql.ErrNoRows {
		return schedule.Occurrence{}, schedule.ErrOccurrenceNotFound
	}
	return occ, err
}

func (s *Store) FindOccurrencesByUser(ctx context.Context, userID schedule.UserID) ([]schedule.Occurrence, error) {
	return s.queryOccurrences(ctx, ` WHERE user_id = ?`, string(userID))
}

func (s *Store) FindOccurrencesInRange(ctx context.Context, userID schedule.UserID, from, to schedule.Date) ([]schedule.Occurrence, error) {
	return s.queryOccurrences(ctx,
		` WHERE user_id = ? AND scheduled_date >= ? AND scheduled_date <= ?`,
		string(userID), from.String(), to.String())
}

func (s *Store) FindOccurrencesOnDate(ctx context.Context, userID schedule.UserID, d schedule.Date) ([]schedule.Occurrence, error) {
	return s.queryOccurrences(ctx,
		` WHERE user_id = ? AND scheduled_date = ?`, string(userID), d.String())
}

func (s *Store) UpdateOccurrence(ctx context.Context, occ schedule.Occurrence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE occurrences
		 SET completed_at = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		nullInstant(occ.CompletedAt), string(occ.Status), occ.UpdatedAt.UnixNano(), string(occ.ID))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return schedule.ErrOccurrenceNotFound
	}
	return nil
}

// MarkOverdue is a single set-based UPDATE: pending rows whose grace period
// has strictly elapsed become missed. A repeat sweep matches zero rows.
func (s *Store) MarkOverdue(ctx context.Context, userID schedule.UserID, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE occurrences
		 SET status = ?, updated_at = ?
		 WHERE user_id = ? AND status = ? AND grace_period_end < ?`,
		string(schedule.StatusMissed), now.UnixNano(),
		string(userID), string(schedule.StatusPending), now.UnixNano())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *Store) DeleteForStep(ctx context.Context, stepID schedule.StepID, from schedule.Date, statuses []schedule.Status) (int, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	placeholders := strings.Repeat("?,", len(statuses)-1) + "?"
	args := []any{string(stepID), from.String()}
	for _, st := range statuses {
		args = append(args, string(st))
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM occurrences
		 WHERE step_id = ? AND scheduled_date >= ? AND status IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *Store) DeleteByUser(ctx context.Context, userID schedule.UserID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM occurrences WHERE user_id = ?`, string(userID))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// =============================================================================
// ROW MAPPING
// =============================================================================

const selectOccurrence = `SELECT id, step_id, user_id, scheduled_date, time_of_day,
	on_time_deadline, grace_period_end, completed_at, status, created_at, updated_at
	FROM occurrences`

func (s *Store) queryOccurrences(ctx context.Context, where string, args ...any) ([]schedule.Occurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectOccurrence+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var occs []schedule.Occurrence
	for rows.Next() {
		occ, err := scanOccurrenceRow(rows)
		if err != nil {
			return nil, err
		}
		occs = append(occs, occ)
	}
	return occs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOccurrenceRow(row rowScanner) (schedule.Occurrence, error) {
	var occ schedule.Occurrence
	var date, tod, status string
	var onTime, graceEnd, createdAt, updatedAt int64
	var completedAt sql.NullInt64

	if err := row.Scan(&occ.ID, &occ.StepID, &occ.UserID, &date, &tod,
		&onTime, &graceEnd, &completedAt, &status, &createdAt, &updatedAt); err != nil {
		return schedule.Occurrence{}, err
	}

	var err error
	if occ.ScheduledDate, err = schedule.ParseDate(date); err != nil {
		return schedule.Occurrence{}, err
	}
	if occ.TimeOfDay, err = schedule.ParseTimeOfDay(tod); err != nil {
		return schedule.Occurrence{}, err
	}
	occ.OnTimeDeadline = time.Unix(0, onTime)
	occ.GracePeriodEnd = time.Unix(0, graceEnd)
	if completedAt.Valid {
		t := time.Unix(0, completedAt.Int64)
		occ.CompletedAt = &t
	}
	occ.Status = schedule.Status(status)
	occ.CreatedAt = time.Unix(0, createdAt)
	occ.UpdatedAt = time.Unix(0, updatedAt)
	return occ, nil
}

func nullInstant(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}
