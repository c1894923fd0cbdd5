package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate creates the schema for the given dialect. Every statement is
// idempotent so it is safe to run on each start.
func Migrate(ctx context.Context, db *sql.DB, dialect string) error {
	var stmts []string
	switch dialect {
	case MySQL, "":
		stmts = mysqlSchema
	case SQLite:
		stmts = sqliteSchema
	default:
		return fmt.Errorf("migrate: unsupported dialect %q", dialect)
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS billiard_tables (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		number      INT NOT NULL,
		name        VARCHAR(100) NOT NULL,
		occupied    BOOLEAN NOT NULL DEFAULT FALSE,
		in_service  BOOLEAN NOT NULL DEFAULT TRUE,
		hourly_rate DECIMAL(8,2) NOT NULL DEFAULT 0,
		created_at  DATETIME(6) NOT NULL,
		updated_at  DATETIME(6) NOT NULL,
		UNIQUE KEY uq_billiard_tables_number (number)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS clients (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name       VARCHAR(100) COLLATE utf8mb4_bin NOT NULL,
		phone      VARCHAR(20) NOT NULL DEFAULT '',
		email      VARCHAR(255) NULL,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		UNIQUE KEY uq_clients_name (name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS game_sessions (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		table_id    BIGINT UNSIGNED NOT NULL,
		client_id   BIGINT UNSIGNED NULL,
		start_time  DATETIME(6) NOT NULL,
		end_time    DATETIME(6) NULL,
		in_progress BOOLEAN NOT NULL DEFAULT TRUE,
		price       DECIMAL(10,2) NOT NULL DEFAULT 0,
		paid        BOOLEAN NOT NULL DEFAULT FALSE,
		paid_at     DATETIME(6) NULL,
		next_player VARCHAR(100) NULL,
		created_at  DATETIME(6) NOT NULL,
		updated_at  DATETIME(6) NOT NULL,
		KEY idx_game_sessions_start_time (start_time),
		KEY idx_game_sessions_in_progress (in_progress),
		KEY idx_game_sessions_paid (paid),
		CONSTRAINT fk_game_sessions_table FOREIGN KEY (table_id) REFERENCES billiard_tables (id),
		CONSTRAINT fk_game_sessions_client FOREIGN KEY (client_id) REFERENCES clients (id) ON DELETE SET NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS tariffs (
		id                  BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		policy              VARCHAR(16) NOT NULL,
		base_rate           DECIMAL(10,2) NOT NULL DEFAULT 0,
		reduced_rate        DECIMAL(10,2) NOT NULL DEFAULT 0,
		threshold_price     DECIMAL(10,2) NOT NULL DEFAULT 0,
		offset_minutes      DOUBLE NOT NULL DEFAULT 0,
		cutoff_minutes      DOUBLE NOT NULL DEFAULT 0,
		floor_price         DECIMAL(10,2) NOT NULL DEFAULT 0,
		plateau_price       DECIMAL(10,2) NOT NULL DEFAULT 0,
		plateau_upper_bound DECIMAL(10,2) NOT NULL DEFAULT 0,
		minimum_minutes     DOUBLE NOT NULL DEFAULT 0,
		active              BOOLEAN NOT NULL DEFAULT TRUE,
		created_at          DATETIME(6) NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS staff_users (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		email         VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role          VARCHAR(16) NOT NULL,
		is_active     BOOLEAN NOT NULL DEFAULT TRUE,
		created_at    DATETIME(6) NOT NULL,
		updated_at    DATETIME(6) NOT NULL,
		UNIQUE KEY uq_staff_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id    BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL,
		expires_at DATETIME(6) NOT NULL,
		revoked_at DATETIME(6) NULL,
		created_at DATETIME(6) NOT NULL,
		UNIQUE KEY uq_refresh_tokens_hash (token_hash),
		CONSTRAINT fk_refresh_tokens_user FOREIGN KEY (user_id) REFERENCES staff_users (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS billiard_tables (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		number      INTEGER NOT NULL UNIQUE,
		name        TEXT NOT NULL,
		occupied    BOOLEAN NOT NULL DEFAULT FALSE,
		in_service  BOOLEAN NOT NULL DEFAULT TRUE,
		hourly_rate DECIMAL(8,2) NOT NULL DEFAULT 0,
		created_at  DATETIME NOT NULL,
		updated_at  DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS clients (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		name       TEXT NOT NULL UNIQUE,
		phone      TEXT NOT NULL DEFAULT '',
		email      TEXT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS game_sessions (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		table_id    INTEGER NOT NULL REFERENCES billiard_tables (id),
		client_id   INTEGER NULL REFERENCES clients (id) ON DELETE SET NULL,
		start_time  DATETIME NOT NULL,
		end_time    DATETIME NULL,
		in_progress BOOLEAN NOT NULL DEFAULT TRUE,
		price       DECIMAL(10,2) NOT NULL DEFAULT 0,
		paid        BOOLEAN NOT NULL DEFAULT FALSE,
		paid_at     DATETIME NULL,
		next_player TEXT NULL,
		created_at  DATETIME NOT NULL,
		updated_at  DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_game_sessions_start_time ON game_sessions (start_time)`,
	`CREATE INDEX IF NOT EXISTS idx_game_sessions_in_progress ON game_sessions (in_progress)`,
	`CREATE INDEX IF NOT EXISTS idx_game_sessions_paid ON game_sessions (paid)`,
	`CREATE TABLE IF NOT EXISTS tariffs (
		id                  INTEGER PRIMARY KEY AUTOINCREMENT,
		policy              TEXT NOT NULL,
		base_rate           DECIMAL(10,2) NOT NULL DEFAULT 0,
		reduced_rate        DECIMAL(10,2) NOT NULL DEFAULT 0,
		threshold_price     DECIMAL(10,2) NOT NULL DEFAULT 0,
		offset_minutes      REAL NOT NULL DEFAULT 0,
		cutoff_minutes      REAL NOT NULL DEFAULT 0,
		floor_price         DECIMAL(10,2) NOT NULL DEFAULT 0,
		plateau_price       DECIMAL(10,2) NOT NULL DEFAULT 0,
		plateau_upper_bound DECIMAL(10,2) NOT NULL DEFAULT 0,
		minimum_minutes     REAL NOT NULL DEFAULT 0,
		active              BOOLEAN NOT NULL DEFAULT TRUE,
		created_at          DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS staff_users (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL,
		is_active     BOOLEAN NOT NULL DEFAULT TRUE,
		created_at    DATETIME NOT NULL,
		updated_at    DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id    INTEGER NOT NULL REFERENCES staff_users (id) ON DELETE CASCADE,
		token_hash TEXT NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL
	)`,
}
