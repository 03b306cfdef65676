package database

import (
	"context"
	"fmt"

	"github.com/iliyamo/tripbook/internal/repository"
)

// schema is applied at startup.  Every statement is idempotent.  The UNIQUE
// key on users.email is what makes concurrent registrations safe; it compares
// bytes because emails arrive already trimmed and lower-cased.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
        id            CHAR(36)     NOT NULL,
        name          VARCHAR(255) NOT NULL,
        email         VARCHAR(255) COLLATE utf8mb4_bin NOT NULL,
        password_hash VARCHAR(255) NOT NULL,
        created_at    DATETIME(6)  NOT NULL,
        PRIMARY KEY (id),
        UNIQUE KEY uq_users_email (email)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS bookings (
        id         CHAR(36)              NOT NULL,
        owner_id   CHAR(36)              NOT NULL,
        category   ENUM('flight','hotel') NOT NULL,
        payload    JSON                  NOT NULL,
        created_at DATETIME(6)           NOT NULL,
        PRIMARY KEY (id),
        KEY idx_bookings_owner_created (owner_id, created_at),
        CONSTRAINT fk_bookings_owner FOREIGN KEY (owner_id) REFERENCES users (id)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the tables if they do not exist yet.
func Migrate(ctx context.Context, db repository.DBTX) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
