package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/lib/pq"
)

// AttendanceRepository provides PostgreSQL-backed attendance storage.
// Uniqueness per (identity, date, period) is enforced by the attendance_key constraint.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// dateParam formats a session date for a DATE column independent of the session time zone.
func dateParam(t time.Time) string {
	return database.SessionDate(t).Format(time.DateOnly)
}

// MarkPresent inserts a present record unless the key already has one.
func (r *AttendanceRepository) MarkPresent(ctx context.Context, key database.AttendanceKey, facultyID, subject string, similarity float64) (database.MarkOutcome, error) {
	var id int64
	err := r.pool.db.QueryRowContext(ctx, `
		INSERT INTO attendance (identity_id, faculty_id, subject, session_date, period_number, status, confidence_score)
		VALUES ($1, $2, $3, $4::date, $5, 'present', $6)
		ON CONFLICT ON CONSTRAINT attendance_key DO NOTHING
		RETURNING id
	`, key.IdentityID, facultyID, subject, dateParam(key.SessionDate), key.Period, similarity).Scan(&id)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return database.OutcomeAlreadyPresent, nil
	case err != nil:
		return 0, database.Unavailable("mark present", err)
	}
	return database.OutcomeCreated, nil
}

// SweepAbsent inserts absent records for identities without a record for (date, period).
func (r *AttendanceRepository) SweepAbsent(ctx context.Context, date time.Time, period int, facultyID, subject string, identityIDs []string) (int, error) {
	ids := database.UniqueIDs(identityIDs)
	if len(ids) == 0 {
		return 0, nil
	}

	res, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO attendance (identity_id, faculty_id, subject, session_date, period_number, status)
		SELECT id, $1, $2, $3::date, $4, 'absent'
		FROM unnest($5::text[]) AS id
		ON CONFLICT ON CONSTRAINT attendance_key DO NOTHING
	`, facultyID, subject, dateParam(date), period, pq.Array(ids))
	if err != nil {
		return 0, database.Unavailable("sweep absent", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, database.Unavailable("sweep absent", err)
	}
	return int(n), nil
}

const recordColumns = `a.id, a.identity_id, a.faculty_id, a.subject, a.session_date, a.period_number,
		a.status, a.confidence_score, a.marked_at, COALESCE(i.display_name, '')`

// Get returns the record for key, or nil if none exists.
func (r *AttendanceRepository) Get(ctx context.Context, key database.AttendanceKey) (*database.AttendanceRecord, error) {
	row := r.pool.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM attendance a
		LEFT JOIN identities i ON i.id = a.identity_id
		WHERE a.identity_id = $1 AND a.session_date = $2::date AND a.period_number = $3
	`, key.IdentityID, dateParam(key.SessionDate), key.Period)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, database.Unavailable("get attendance", err)
	}
	return rec, nil
}

// ListByDate returns all records of a date ordered by period, then identity.
func (r *AttendanceRepository) ListByDate(ctx context.Context, date time.Time) ([]database.AttendanceRecord, error) {
	return r.queryRecords(ctx, "list attendance", `
		SELECT `+recordColumns+`
		FROM attendance a
		LEFT JOIN identities i ON i.id = a.identity_id
		WHERE a.session_date = $1::date
		ORDER BY a.period_number, a.identity_id
	`, dateParam(date))
}

// CountPresent returns the number of distinct identities present on a date.
func (r *AttendanceRepository) CountPresent(ctx context.Context, date time.Time) (int, error) {
	var count int
	err := r.pool.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT identity_id)
		FROM attendance
		WHERE session_date = $1::date AND status = 'present'
	`, dateParam(date)).Scan(&count)
	if err != nil {
		return 0, database.Unavailable("count present", err)
	}
	return count, nil
}

// Summary returns the attendance history of one identity, newest date first.
func (r *AttendanceRepository) Summary(ctx context.Context, identityID string) (*database.AttendanceSummary, error) {
	records, err := r.queryRecords(ctx, "attendance summary", `
		SELECT `+recordColumns+`
		FROM attendance a
		LEFT JOIN identities i ON i.id = a.identity_id
		WHERE a.identity_id = $1
		ORDER BY a.session_date DESC, a.period_number
	`, identityID)
	if err != nil {
		return nil, err
	}
	return database.NewSummary(identityID, records), nil
}

func (r *AttendanceRepository) queryRecords(ctx context.Context, op, query string, args ...any) ([]database.AttendanceRecord, error) {
	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, database.Unavailable(op, err)
	}
	defer rows.Close()

	var records []database.AttendanceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, database.Unavailable(op, err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, database.Unavailable(op, err)
	}
	return records, nil
}

func scanRecord(row rowScanner) (*database.AttendanceRecord, error) {
	var rec database.AttendanceRecord
	var status string
	var confidence sql.NullFloat64
	err := row.Scan(
		&rec.ID, &rec.IdentityID, &rec.FacultyID, &rec.Subject, &rec.SessionDate, &rec.Period,
		&status, &confidence, &rec.MarkedAt, &rec.DisplayName,
	)
	if err != nil {
		return nil, err
	}

	rec.SessionDate = database.SessionDate(rec.SessionDate)
	rec.Status = database.Status(status)
	if confidence.Valid {
		rec.Confidence = &confidence.Float64
	}
	return &rec, nil
}
