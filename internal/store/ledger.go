// Package store is the append-only results ledger. Rows are written as racks
// are played and only read back for history endpoints.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/playmatatu/eightball/internal/database"
	"github.com/playmatatu/eightball/internal/migrations"
	"github.com/playmatatu/eightball/internal/models"
)

var ErrRackNotFound = errors.New("rack not found")

// Ledger writes racks and shots through sqlx. Queries use '?' placeholders and
// are rebound for the connected driver.
type Ledger struct {
	db *sqlx.DB
}

func NewLedger(db *sqlx.DB) *Ledger {
	return &Ledger{db: db}
}

// Open connects to the ledger database, applying migrations first when asked.
func Open(driver, databaseURL string, migrate bool) (*Ledger, error) {
	if migrate {
		if err := migrations.RunMigrations(driver, databaseURL); err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
	}
	db, err := database.Connect(driver, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: cannot connect: %w", err)
	}
	return NewLedger(db), nil
}

// Close closes the underlying connection.
func (l *Ledger) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

// StartRack opens a rack row and returns its ID.
func (l *Ledger) StartRack(ctx context.Context, tableID, mode string, startedAt time.Time) (int64, error) {
	var id int64
	q := l.db.Rebind(`INSERT INTO racks (table_id, mode, shots, started_at) VALUES (?, ?, 0, ?) RETURNING id`)
	if err := l.db.QueryRowxContext(ctx, q, tableID, mode, startedAt.UTC()).Scan(&id); err != nil {
		return 0, fmt.Errorf("store: cannot start rack: %w", err)
	}
	return id, nil
}

// RecordShot appends one shot and bumps the rack's shot count.
func (l *Ledger) RecordShot(ctx context.Context, shot models.Shot) error {
	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: cannot begin tx: %w", err)
	}
	defer tx.Rollback()

	if shot.CreatedAt.IsZero() {
		shot.CreatedAt = time.Now()
	}
	if shot.Pocketed == "" {
		shot.Pocketed = "[]"
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(
		`INSERT INTO shots (rack_id, shot_number, player, first_hit, rail_contact, pocketed, scratch, foul, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		shot.RackID, shot.ShotNumber, shot.Player, shot.FirstHit, shot.RailContact,
		shot.Pocketed, shot.Scratch, shot.Foul, shot.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("store: cannot record shot: %w", err)
	}

	res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE racks SET shots = shots + 1 WHERE id = ?`), shot.RackID)
	if err != nil {
		return fmt.Errorf("store: cannot update rack: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRackNotFound
	}

	return tx.Commit()
}

// FinishRack closes a rack with its winner.
func (l *Ledger) FinishRack(ctx context.Context, rackID int64, winner int, reason string, finishedAt time.Time) error {
	res, err := l.db.ExecContext(ctx, l.db.Rebind(
		`UPDATE racks SET winner = ?, reason = ?, finished_at = ? WHERE id = ? AND finished_at IS NULL`),
		winner, reason, finishedAt.UTC(), rackID,
	)
	if err != nil {
		return fmt.Errorf("store: cannot finish rack: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRackNotFound
	}
	return nil
}

// GetRack loads one rack.
func (l *Ledger) GetRack(ctx context.Context, id int64) (*models.Rack, error) {
	var r models.Rack
	err := l.db.GetContext(ctx, &r, l.db.Rebind(
		`SELECT id, table_id, mode, winner, reason, shots, started_at, finished_at FROM racks WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: cannot load rack %d: %w", id, err)
	}
	return &r, nil
}

// RecentRacks returns the latest racks, newest first.
func (l *Ledger) RecentRacks(ctx context.Context, limit int) ([]models.Rack, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	racks := []models.Rack{}
	err := l.db.SelectContext(ctx, &racks, l.db.Rebind(
		`SELECT id, table_id, mode, winner, reason, shots, started_at, finished_at
		 FROM racks ORDER BY started_at DESC, id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("store: cannot list racks: %w", err)
	}
	return racks, nil
}

// RackShots returns a rack's shots in order.
func (l *Ledger) RackShots(ctx context.Context, rackID int64) ([]models.Shot, error) {
	shots := []models.Shot{}
	err := l.db.SelectContext(ctx, &shots, l.db.Rebind(
		`SELECT id, rack_id, shot_number, player, first_hit, rail_contact, pocketed, scratch, foul, created_at
		 FROM shots WHERE rack_id = ? ORDER BY shot_number`), rackID)
	if err != nil {
		return nil, fmt.Errorf("store: cannot list shots: %w", err)
	}
	return shots, nil
}

// WinTally counts finished racks per winner for one table.
func (l *Ledger) WinTally(ctx context.Context, tableID string) (map[int]int, error) {
	rows, err := l.db.QueryxContext(ctx, l.db.Rebind(
		`SELECT winner, COUNT(*) FROM racks WHERE table_id = ? AND winner IS NOT NULL GROUP BY winner`), tableID)
	if err != nil {
		return nil, fmt.Errorf("store: cannot tally wins: %w", err)
	}
	defer rows.Close()

	tally := map[int]int{}
	for rows.Next() {
		var winner, n int
		if err := rows.Scan(&winner, &n); err != nil {
			return nil, err
		}
		tally[winner] = n
	}
	return tally, rows.Err()
}
