package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// erDupEntry is the server error number for a unique key violation.
const erDupEntry = 1062

// AttendanceRepository provides MariaDB-backed attendance storage.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new MariaDB attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

func isDuplicate(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == erDupEntry
}

func dateParam(t time.Time) string {
	return database.SessionDate(t).Format(time.DateOnly)
}

// MarkPresent inserts a present record; a unique key violation means the key is already taken.
func (r *AttendanceRepository) MarkPresent(ctx context.Context, key database.AttendanceKey, facultyID, subject string, similarity float64) (database.MarkOutcome, error) {
	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO attendance (identity_id, faculty_id, subject, session_date, period_number, status, confidence_score)
		VALUES (?, ?, ?, ?, ?, 'present', ?)
	`, key.IdentityID, facultyID, subject, dateParam(key.SessionDate), key.Period, similarity)

	switch {
	case isDuplicate(err):
		return database.OutcomeAlreadyPresent, nil
	case err != nil:
		return 0, database.Unavailable("mark present", err)
	}
	return database.OutcomeCreated, nil
}

// SweepAbsent inserts absent records in one transaction. Existing keys are left
// untouched by the no-op update and do not count as affected rows.
func (r *AttendanceRepository) SweepAbsent(ctx context.Context, date time.Time, period int, facultyID, subject string, identityIDs []string) (int, error) {
	ids := database.UniqueIDs(identityIDs)
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := r.pool.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, database.Unavailable("sweep absent", err)
	}
	defer tx.Rollback() //nolint:errcheck

	day := dateParam(date)
	total := 0
	for start := 0; start < len(ids); start += constants.SweepBatchSize {
		batch := ids[start:min(start+constants.SweepBatchSize, len(ids))]

		placeholders := make([]string, len(batch))
		args := make([]any, 0, len(batch)*5)
		for i, id := range batch {
			placeholders[i] = "(?, ?, ?, ?, ?, 'absent')"
			args = append(args, id, facultyID, subject, day, period)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO attendance (identity_id, faculty_id, subject, session_date, period_number, status)
			VALUES `+strings.Join(placeholders, ", ")+`
			ON DUPLICATE KEY UPDATE id = id
		`, args...)
		if err != nil {
			return 0, database.Unavailable("sweep absent", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, database.Unavailable("sweep absent", err)
		}
		total += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, database.Unavailable("sweep absent", err)
	}
	return total, nil
}

const recordColumns = `a.id, a.identity_id, a.faculty_id, a.subject, a.session_date, a.period_number,
		a.status, a.confidence_score, a.marked_at, COALESCE(i.display_name, '')`

func (r *AttendanceRepository) Get(ctx context.Context, key database.AttendanceKey) (*database.AttendanceRecord, error) {
	row := r.pool.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM attendance a
		LEFT JOIN identities i ON i.id = a.identity_id
		WHERE a.identity_id = ? AND a.session_date = ? AND a.period_number = ?
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

func (r *AttendanceRepository) ListByDate(ctx context.Context, date time.Time) ([]database.AttendanceRecord, error) {
	return r.queryRecords(ctx, "list attendance", `
		SELECT `+recordColumns+`
		FROM attendance a
		LEFT JOIN identities i ON i.id = a.identity_id
		WHERE a.session_date = ?
		ORDER BY a.period_number, a.identity_id
	`, dateParam(date))
}

func (r *AttendanceRepository) CountPresent(ctx context.Context, date time.Time) (int, error) {
	var count int
	err := r.pool.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT identity_id) FROM attendance WHERE session_date = ? AND status = 'present'
	`, dateParam(date)).Scan(&count)
	if err != nil {
		return 0, database.Unavailable("count present", err)
	}
	return count, nil
}

func (r *AttendanceRepository) Summary(ctx context.Context, identityID string) (*database.AttendanceSummary, error) {
	records, err := r.queryRecords(ctx, "attendance summary", `
		SELECT `+recordColumns+`
		FROM attendance a
		LEFT JOIN identities i ON i.id = a.identity_id
		WHERE a.identity_id = ?
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
	if err := row.Scan(
		&rec.ID, &rec.IdentityID, &rec.FacultyID, &rec.Subject, &rec.SessionDate, &rec.Period,
		&status, &confidence, &rec.MarkedAt, &rec.DisplayName,
	); err != nil {
		return nil, err
	}

	rec.SessionDate = database.SessionDate(rec.SessionDate)
	rec.Status = database.Status(status)
	if confidence.Valid {
		rec.Confidence = &confidence.Float64
	}
	return &rec, nil
}
