package models

import (
	"database/sql"
	"time"
)

// Rack is one ledger row per rack played on a table. Winner and reason are
// filled when the rack ends; abandoned racks keep them null.
type Rack struct {
	ID         int64          `db:"id" json:"id"`
	TableID    string         `db:"table_id" json:"table_id"`
	Mode       string         `db:"mode" json:"mode"`
	Winner     sql.NullInt64  `db:"winner" json:"winner,omitempty"`
	Reason     sql.NullString `db:"reason" json:"reason,omitempty"`
	Shots      int            `db:"shots" json:"shots"`
	StartedAt  time.Time      `db:"started_at" json:"started_at"`
	FinishedAt sql.NullTime   `db:"finished_at" json:"finished_at,omitempty"`
}

// Shot is one adjudicated shot inside a rack
type Shot struct {
	ID          int64     `db:"id" json:"id"`
	RackID      int64     `db:"rack_id" json:"rack_id"`
	ShotNumber  int       `db:"shot_number" json:"shot_number"`
	Player      int       `db:"player" json:"player"`
	FirstHit    int       `db:"first_hit" json:"first_hit"`
	RailContact bool      `db:"rail_contact" json:"rail_contact"`
	Pocketed    string    `db:"pocketed" json:"pocketed"` // JSON array of ball numbers
	Scratch     bool      `db:"scratch" json:"scratch"`
	Foul        string    `db:"foul" json:"foul"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
