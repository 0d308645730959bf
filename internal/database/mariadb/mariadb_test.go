package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/logger"
)

func TestNormalizeDSN(t *testing.T) {
	dsn, err := normalizeDSN("att:secret@tcp(db:3306)/attendance?clientFoundRows=true")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(dsn, "parseTime=true") {
		t.Errorf("expected parseTime=true in %q", dsn)
	}
	if strings.Contains(dsn, "clientFoundRows=true") {
		t.Errorf("expected clientFoundRows to be cleared in %q", dsn)
	}

	if _, err := normalizeDSN("not a dsn"); err == nil {
		t.Error("expected error for malformed DSN")
	}
}

func TestIsDuplicate(t *testing.T) {
	dup := &mysql.MySQLError{Number: erDupEntry, Message: "Duplicate entry"}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"duplicate", dup, true},
		{"wrapped duplicate", fmt.Errorf("insert: %w", dup), true},
		{"other server error", &mysql.MySQLError{Number: 1205}, false},
		{"plain error", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isDuplicate(tt.err); got != tt.want {
				t.Errorf("isDuplicate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func closedPool(t *testing.T) *Pool {
	t.Helper()
	db, err := sql.Open("mysql", "att:secret@tcp(127.0.0.1:1)/attendance")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	pool := &Pool{db: db, log: logger.Nop()}
	if err := pool.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return pool
}

func TestClosedPool(t *testing.T) {
	ctx := context.Background()
	pool := closedPool(t)
	attendance := NewAttendanceRepository(pool)
	key := database.AttendanceKey{IdentityID: "A", SessionDate: time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), Period: 1}

	outcome, err := attendance.MarkPresent(ctx, key, "F1", "Math", 0.9)
	if !errors.Is(err, database.ErrPersistenceUnavailable) {
		t.Errorf("MarkPresent: expected ErrPersistenceUnavailable, got %v", err)
	}
	if outcome != 0 {
		t.Errorf("MarkPresent: expected no outcome, got %s", outcome)
	}

	if _, err := attendance.SweepAbsent(ctx, key.SessionDate, 1, "F1", "Math", []string{"A", "B"}); !errors.Is(err, database.ErrPersistenceUnavailable) {
		t.Errorf("SweepAbsent: expected ErrPersistenceUnavailable, got %v", err)
	}
	if err := NewFacultyRepository(pool).SaveFaculty(ctx, database.Faculty{ID: "F1", Name: "X"}); !errors.Is(err, database.ErrPersistenceUnavailable) {
		t.Errorf("SaveFaculty: expected ErrPersistenceUnavailable, got %v", err)
	}
	if err := pool.Ping(ctx); !errors.Is(err, database.ErrPersistenceUnavailable) {
		t.Errorf("Ping: expected ErrPersistenceUnavailable, got %v", err)
	}
}
