package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/pgvector/pgvector-go"
)

// IdentityRepository provides PostgreSQL-backed identity storage.
type IdentityRepository struct {
	pool *Pool
}

// NewIdentityRepository creates a new PostgreSQL identity repository.
func NewIdentityRepository(pool *Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

const identityColumns = "id, display_name, embedding, model, created_at"

// ListAll returns every enrolled identity ordered by ID.
func (r *IdentityRepository) ListAll(ctx context.Context) ([]database.Identity, error) {
	rows, err := r.pool.db.QueryContext(ctx, "SELECT "+identityColumns+" FROM identities ORDER BY id")
	if err != nil {
		return nil, database.Unavailable("list identities", err)
	}
	defer rows.Close()

	var identities []database.Identity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, database.Unavailable("scan identity", err)
		}
		identities = append(identities, *identity)
	}
	if err := rows.Err(); err != nil {
		return nil, database.Unavailable("iterate identities", err)
	}
	return identities, nil
}

// Get retrieves an identity by ID.
func (r *IdentityRepository) Get(ctx context.Context, id string) (*database.Identity, error) {
	row := r.pool.db.QueryRowContext(ctx, "SELECT "+identityColumns+" FROM identities WHERE id = $1", id)
	identity, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", database.ErrIdentityNotFound, id)
	}
	if err != nil {
		return nil, database.Unavailable("get identity", err)
	}
	return identity, nil
}

// ListIDs returns the IDs of every enrolled identity.
func (r *IdentityRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.db.QueryContext(ctx, "SELECT id FROM identities ORDER BY id")
	if err != nil {
		return nil, database.Unavailable("list identity ids", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, database.Unavailable("scan identity id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, database.Unavailable("iterate identity ids", err)
	}
	return ids, nil
}

// Count returns the number of enrolled identities.
func (r *IdentityRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM identities").Scan(&count); err != nil {
		return 0, database.Unavailable("count identities", err)
	}
	return count, nil
}

// Save enrols an identity, replacing the name and embedding of an existing one.
func (r *IdentityRepository) Save(ctx context.Context, identity database.Identity) error {
	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO identities (id, display_name, embedding, model)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			embedding = EXCLUDED.embedding,
			model = EXCLUDED.model
	`, identity.ID, identity.DisplayName, pgvector.NewVector(identity.Embedding), identity.Model)
	return database.Unavailable("save identity", err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (*database.Identity, error) {
	var identity database.Identity
	var vec pgvector.Vector
	if err := row.Scan(&identity.ID, &identity.DisplayName, &vec, &identity.Model, &identity.CreatedAt); err != nil {
		return nil, err
	}
	identity.Embedding = vec.Slice()
	return &identity, nil
}
