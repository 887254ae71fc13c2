package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/cinema-hall-booking/internal/model"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS seats (
		id          BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		seat_row    INT NOT NULL,
		seat_number INT NOT NULL,
		occupied    BOOLEAN NOT NULL DEFAULT FALSE,
		price       INT NOT NULL DEFAULT 500,
		created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_seats_position (seat_row, seat_number)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name       VARCHAR(255) NOT NULL,
		phone      VARCHAR(64) NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_accounts_name (name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS tickets (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		code       CHAR(36) NOT NULL,
		seat_id    BIGINT UNSIGNED NOT NULL,
		account_id BIGINT UNSIGNED NOT NULL,
		price      INT NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE KEY uq_tickets_code (code),
		CONSTRAINT fk_tickets_seat FOREIGN KEY (seat_id) REFERENCES seats (id),
		CONSTRAINT fk_tickets_account FOREIGN KEY (account_id) REFERENCES accounts (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the tables when they do not exist yet.  Existing tables
// are left untouched.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// SeedHall inserts a rows x seats hall priced at price.  Seats that
// already exist keep their state and price.  It returns the number of
// seats actually inserted.
func SeedHall(ctx context.Context, db *sqlx.DB, rows, seats, price int) (int64, error) {
	if rows < 1 || seats < 1 || rows > model.MaxSeatIndex || seats > model.MaxSeatIndex {
		return 0, fmt.Errorf("seed hall: invalid layout %dx%d", rows, seats)
	}
	values := make([]string, 0, rows*seats)
	args := make([]interface{}, 0, rows*seats*3)
	for r := 1; r <= rows; r++ {
		for n := 1; n <= seats; n++ {
			values = append(values, "(?, ?, ?)")
			args = append(args, r, n, price)
		}
	}
	q := `INSERT IGNORE INTO seats (seat_row, seat_number, price) VALUES ` + strings.Join(values, ", ")
	res, err := db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("seed hall: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("seed hall: %w", err)
	}
	return n, nil
}
