package mariadb

import (
	"context"
	"fmt"
)

// schema is applied statement by statement; the driver does not enable multi-statements.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS identities (
		id VARCHAR(64) NOT NULL PRIMARY KEY,
		display_name VARCHAR(255) NOT NULL,
		embedding LONGTEXT NOT NULL,
		model VARCHAR(64) NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS attendance (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		identity_id VARCHAR(64) NOT NULL,
		faculty_id VARCHAR(64) NOT NULL,
		subject VARCHAR(255) NOT NULL,
		session_date DATE NOT NULL,
		period_number INT NOT NULL,
		status ENUM('present', 'absent') NOT NULL,
		confidence_score DOUBLE NULL,
		marked_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		UNIQUE KEY attendance_key (identity_id, session_date, period_number),
		KEY idx_attendance_date (session_date, period_number)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS faculty (
		id VARCHAR(64) NOT NULL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		department VARCHAR(255) NOT NULL DEFAULT '',
		mobile VARCHAR(32) NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the tables if they do not exist.
func (p *Pool) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	p.log.Debug().Int("statements", len(schema)).Msg("schema ensured")
	return nil
}
