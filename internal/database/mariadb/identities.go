package mariadb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// IdentityRepository stores identities with the embedding as a JSON array.
type IdentityRepository struct {
	pool *Pool
}

// NewIdentityRepository creates a new MariaDB identity repository.
func NewIdentityRepository(pool *Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

const identityColumns = "id, display_name, embedding, model, created_at"

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

func (r *IdentityRepository) Get(ctx context.Context, id string) (*database.Identity, error) {
	row := r.pool.db.QueryRowContext(ctx, "SELECT "+identityColumns+" FROM identities WHERE id = ?", id)
	identity, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", database.ErrIdentityNotFound, id)
	}
	if err != nil {
		return nil, database.Unavailable("get identity", err)
	}
	return identity, nil
}

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

func (r *IdentityRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM identities").Scan(&count); err != nil {
		return 0, database.Unavailable("count identities", err)
	}
	return count, nil
}

// Save enrols an identity, replacing the name and embedding of an existing one.
func (r *IdentityRepository) Save(ctx context.Context, identity database.Identity) error {
	data, err := json.Marshal(identity.Embedding)
	if err != nil {
		return fmt.Errorf("marshal embedding: %w", err)
	}

	_, err = r.pool.db.ExecContext(ctx, `
		INSERT INTO identities (id, display_name, embedding, model)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			display_name = VALUES(display_name),
			embedding = VALUES(embedding),
			model = VALUES(model)
	`, identity.ID, identity.DisplayName, string(data), identity.Model)
	return database.Unavailable("save identity", err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (*database.Identity, error) {
	var identity database.Identity
	var raw string
	if err := row.Scan(&identity.ID, &identity.DisplayName, &raw, &identity.Model, &identity.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(raw), &identity.Embedding); err != nil {
		return nil, fmt.Errorf("decode embedding of %s: %w", identity.ID, err)
	}
	return &identity, nil
}
