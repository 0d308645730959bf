//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := &config.DatabaseConfig{
		URL:          fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port()),
		MaxOpenConns: 20,
		MaxIdleConns: 5,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}
	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}
	// Second run must be a no-op.
	if err := pool.Migrate(ctx); err != nil {
		t.Fatalf("Re-running migrations failed: %v", err)
	}

	return pool, func() {
		pool.Close()
		container.Terminate(ctx)
	}
}

func TestPostgresRepositories(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	identities := NewIdentityRepository(pool)
	attendance := NewAttendanceRepository(pool)
	date := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

	t.Run("SaveAndGetIdentity", func(t *testing.T) {
		for _, id := range []string{"B", "A", "C"} {
			err := identities.Save(ctx, database.Identity{
				ID: id, DisplayName: "Student " + id, Embedding: []float32{1, 0, 0}, Model: "buffalo_l",
			})
			if err != nil {
				t.Fatalf("Save(%s) failed: %v", id, err)
			}
		}
		// Re-enrolment replaces the embedding.
		if err := identities.Save(ctx, database.Identity{ID: "B", DisplayName: "Student B", Embedding: []float32{0, 1, 0}}); err != nil {
			t.Fatalf("re-enrol failed: %v", err)
		}

		got, err := identities.Get(ctx, "B")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Embedding[1] != 1 {
			t.Errorf("expected replaced embedding, got %v", got.Embedding)
		}

		all, err := identities.ListAll(ctx)
		if err != nil {
			t.Fatalf("ListAll failed: %v", err)
		}
		if len(all) != 3 || all[0].ID != "A" || all[2].ID != "C" {
			t.Errorf("expected identities ordered A..C, got %+v", all)
		}

		if _, err := identities.Get(ctx, "missing"); !errors.Is(err, database.ErrIdentityNotFound) {
			t.Errorf("expected ErrIdentityNotFound, got %v", err)
		}
	})

	t.Run("ConcurrentMarkPresent", func(t *testing.T) {
		key := database.AttendanceKey{IdentityID: "A", SessionDate: date, Period: 1}

		const workers = 16
		outcomes := make([]database.MarkOutcome, workers)
		errs := make([]error, workers)
		var wg sync.WaitGroup
		for i := range workers {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				outcomes[i], errs[i] = attendance.MarkPresent(ctx, key, "F1", "Math", 0.9)
			}(i)
		}
		wg.Wait()

		created := 0
		for i := range workers {
			if errs[i] != nil {
				t.Fatalf("worker %d failed: %v", i, errs[i])
			}
			if outcomes[i] == database.OutcomeCreated {
				created++
			}
		}
		if created != 1 {
			t.Errorf("expected exactly one Created outcome, got %d", created)
		}

		rec, err := attendance.Get(ctx, key)
		if err != nil || rec == nil {
			t.Fatalf("expected record, got %v, %v", rec, err)
		}
		if rec.Status != database.StatusPresent || rec.Confidence == nil || *rec.Confidence != 0.9 {
			t.Errorf("unexpected record: %+v", rec)
		}
		if !rec.SessionDate.Equal(date) {
			t.Errorf("expected session date %v, got %v", date, rec.SessionDate)
		}
	})

	t.Run("SweepAbsent", func(t *testing.T) {
		n, err := attendance.SweepAbsent(ctx, date, 1, "F1", "Math", []string{"A", "B", "C", "B"})
		if err != nil {
			t.Fatalf("SweepAbsent failed: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 absent records, got %d", n)
		}

		n, err = attendance.SweepAbsent(ctx, date, 1, "F1", "Math", []string{"A", "B", "C"})
		if err != nil {
			t.Fatalf("second SweepAbsent failed: %v", err)
		}
		if n != 0 {
			t.Errorf("expected idempotent sweep, got %d", n)
		}
	})

	t.Run("AbsentIsTerminal", func(t *testing.T) {
		key := database.AttendanceKey{IdentityID: "B", SessionDate: date, Period: 1}
		outcome, err := attendance.MarkPresent(ctx, key, "F1", "Math", 0.8)
		if err != nil {
			t.Fatalf("MarkPresent failed: %v", err)
		}
		if outcome != database.OutcomeAlreadyPresent {
			t.Errorf("expected AlreadyPresent after sweep, got %s", outcome)
		}
		rec, err := attendance.Get(ctx, key)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if rec.Status != database.StatusAbsent || rec.Confidence != nil {
			t.Errorf("expected untouched absent record, got %+v", rec)
		}
	})

	t.Run("Reads", func(t *testing.T) {
		records, err := attendance.ListByDate(ctx, date)
		if err != nil {
			t.Fatalf("ListByDate failed: %v", err)
		}
		if len(records) != 3 || records[0].IdentityID != "A" || records[0].DisplayName != "Student A" {
			t.Errorf("unexpected records: %+v", records)
		}

		count, err := attendance.CountPresent(ctx, date)
		if err != nil {
			t.Fatalf("CountPresent failed: %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 present, got %d", count)
		}

		summary, err := attendance.Summary(ctx, "A")
		if err != nil {
			t.Fatalf("Summary failed: %v", err)
		}
		if summary.Total != 1 || summary.Present != 1 || summary.Percentage != 100 {
			t.Errorf("unexpected summary: %+v", summary)
		}
	})

	t.Run("ConcurrentMarkAndSweep", func(t *testing.T) {
		day := date.AddDate(0, 0, 1)
		const n = 40
		ids := make([]string, n)
		for i := range ids {
			ids[i] = fmt.Sprintf("S%03d", i)
		}

		outcomes := make([]database.MarkOutcome, n)
		markErrs := make([]error, n)
		var swept int
		var sweepErr error
		var wg sync.WaitGroup
		for i, id := range ids {
			wg.Add(1)
			go func() {
				defer wg.Done()
				key := database.AttendanceKey{IdentityID: id, SessionDate: day, Period: 1}
				outcomes[i], markErrs[i] = attendance.MarkPresent(ctx, key, "F1", "Math", 0.9)
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			swept, sweepErr = attendance.SweepAbsent(ctx, day, 1, "F1", "Math", ids)
		}()
		wg.Wait()

		if sweepErr != nil {
			t.Fatalf("SweepAbsent failed: %v", sweepErr)
		}

		created := 0
		for i, err := range markErrs {
			if err != nil && !errors.Is(err, database.ErrPersistenceUnavailable) {
				t.Errorf("MarkPresent(%s): unexpected error %v", ids[i], err)
			}
			if outcomes[i] != database.OutcomeCreated {
				continue
			}
			created++
			rec, err := attendance.Get(ctx, database.AttendanceKey{IdentityID: ids[i], SessionDate: day, Period: 1})
			if err != nil || rec == nil || rec.Status != database.StatusPresent {
				t.Errorf("expected present record for %s, got %+v, %v", ids[i], rec, err)
			}
		}
		if created+swept != n {
			t.Errorf("expected created (%d) + swept (%d) = %d", created, swept, n)
		}

		records, err := attendance.ListByDate(ctx, day)
		if err != nil {
			t.Fatalf("ListByDate failed: %v", err)
		}
		perKey := make(map[string]int, n)
		for _, rec := range records {
			perKey[rec.IdentityID]++
		}
		for _, id := range ids {
			if perKey[id] != 1 {
				t.Errorf("expected exactly one record for %s, got %d", id, perKey[id])
			}
		}
	})

	t.Run("CancelledSweepLeavesNoRecords", func(t *testing.T) {
		day := date.AddDate(0, 0, 2)
		ids := make([]string, 1200)
		for i := range ids {
			ids[i] = fmt.Sprintf("C%04d", i)
		}

		sweepCtx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := attendance.SweepAbsent(sweepCtx, day, 1, "F1", "Math", ids); !errors.Is(err, database.ErrPersistenceUnavailable) {
			t.Errorf("expected ErrPersistenceUnavailable, got %v", err)
		}

		records, err := attendance.ListByDate(ctx, day)
		if err != nil {
			t.Fatalf("ListByDate failed: %v", err)
		}
		if len(records) != 0 {
			t.Errorf("expected no records after cancelled sweep, got %d", len(records))
		}
	})

	t.Run("Faculty", func(t *testing.T) {
		faculty := NewFacultyRepository(pool)
		for _, f := range []database.Faculty{
			{ID: "EMP-2", Name: "Second", Department: "Physics"},
			{ID: "EMP-1", Name: "First", Department: "Mathematics", Mobile: "+420 600 000 000"},
		} {
			if err := faculty.SaveFaculty(ctx, f); err != nil {
				t.Fatalf("SaveFaculty(%s) failed: %v", f.ID, err)
			}
		}
		if err := faculty.SaveFaculty(ctx, database.Faculty{ID: "EMP-1", Name: "Other"}); !errors.Is(err, database.ErrFacultyExists) {
			t.Errorf("expected ErrFacultyExists, got %v", err)
		}

		list, err := faculty.ListFaculty(ctx)
		if err != nil {
			t.Fatalf("ListFaculty failed: %v", err)
		}
		if len(list) != 2 || list[0].ID != "EMP-1" || list[0].Name != "First" || list[0].CreatedAt.IsZero() {
			t.Errorf("unexpected faculty: %+v", list)
		}
		if count, err := faculty.CountFaculty(ctx); err != nil || count != 2 {
			t.Errorf("expected 2 faculty, got %d, %v", count, err)
		}
	})
}
