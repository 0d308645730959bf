package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// FacultyRepository provides PostgreSQL-backed faculty storage.
type FacultyRepository struct {
	pool *Pool
}

// NewFacultyRepository creates a new PostgreSQL faculty repository.
func NewFacultyRepository(pool *Pool) *FacultyRepository {
	return &FacultyRepository{pool: pool}
}

// ListFaculty returns every faculty member ordered by ID.
func (r *FacultyRepository) ListFaculty(ctx context.Context) ([]database.Faculty, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT id, name, department, mobile, created_at FROM faculty ORDER BY id
	`)
	if err != nil {
		return nil, database.Unavailable("list faculty", err)
	}
	defer rows.Close()

	var out []database.Faculty
	for rows.Next() {
		var f database.Faculty
		if err := rows.Scan(&f.ID, &f.Name, &f.Department, &f.Mobile, &f.CreatedAt); err != nil {
			return nil, database.Unavailable("scan faculty", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, database.Unavailable("iterate faculty", err)
	}
	return out, nil
}

// CountFaculty returns the number of registered faculty members.
func (r *FacultyRepository) CountFaculty(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM faculty").Scan(&count); err != nil {
		return 0, database.Unavailable("count faculty", err)
	}
	return count, nil
}

// SaveFaculty registers a faculty member. An existing ID is left untouched.
func (r *FacultyRepository) SaveFaculty(ctx context.Context, faculty database.Faculty) error {
	res, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO faculty (id, name, department, mobile)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, faculty.ID, faculty.Name, faculty.Department, faculty.Mobile)
	if err != nil {
		return database.Unavailable("save faculty", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return database.Unavailable("save faculty", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", database.ErrFacultyExists, faculty.ID)
	}
	return nil
}
