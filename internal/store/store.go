// Package store keeps a local history of submitted bookings for the
// "my bookings" screen. In-progress selection state is never persisted.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps sql.DB for the booking history.
type DB struct {
	*sql.DB
}

// NewDB opens the database at path and runs migrations.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	query := `CREATE TABLE IF NOT EXISTS bookings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id TEXT UNIQUE NOT NULL,
		remote_id INTEGER,
		user_id INTEGER NOT NULL,
		studio_id INTEGER NOT NULL,
		start_time DATETIME NOT NULL,
		end_time DATETIME NOT NULL,
		billable_hours REAL NOT NULL,
		billable_days INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// Booking is one submitted booking as recorded locally.
type Booking struct {
	ID            int64     `json:"id"`
	RequestID     string    `json:"request_id"`
	RemoteID      int64     `json:"remote_id,omitempty"`
	UserID        int64     `json:"user_id"`
	StudioID      int64     `json:"studio_id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	BillableHours float64   `json:"billable_hours"`
	BillableDays  int       `json:"billable_days"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// SaveBooking inserts a submitted booking and fills in its local ID.
func (db *DB) SaveBooking(ctx context.Context, b *Booking) error {
	res, err := db.ExecContext(ctx,
		`INSERT INTO bookings (request_id, remote_id, user_id, studio_id, start_time, end_time, billable_hours, billable_days, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.RequestID, b.RemoteID, b.UserID, b.StudioID, b.StartTime, b.EndTime, b.BillableHours, b.BillableDays, b.Status,
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	b.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("booking id: %w", err)
	}
	return nil
}

// ListBookings returns the user's submitted bookings, newest first.
func (db *DB) ListBookings(ctx context.Context, userID int64) ([]Booking, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, request_id, COALESCE(remote_id, 0), user_id, studio_id, start_time, end_time, billable_hours, billable_days, status, created_at
		 FROM bookings WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		var b Booking
		if err := rows.Scan(&b.ID, &b.RequestID, &b.RemoteID, &b.UserID, &b.StudioID,
			&b.StartTime, &b.EndTime, &b.BillableHours, &b.BillableDays, &b.Status, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
