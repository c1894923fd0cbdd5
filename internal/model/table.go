package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Table represents a physical billiard table in the hall.
//
// Fields:
//
//	ID         – primary key identifier.
//	Number     – display number painted on the table (unique).
//	Name       – free-form label, e.g. "Snooker 1".
//	Occupied   – true while a game session is running on the table. Only the
//	             session lifecycle changes it.
//	InService  – manual availability switch; tables out of service cannot be
//	             claimed but keep their occupancy state.
//	HourlyRate – rate used by the hourly tariff.
//	CreatedAt  – creation timestamp.
//	UpdatedAt  – last update timestamp.
type Table struct {
	ID         uint64          `json:"id"`          // billiard_tables.id
	Number     int             `json:"number"`      // billiard_tables.number
	Name       string          `json:"name"`        // billiard_tables.name
	Occupied   bool            `json:"occupied"`    // billiard_tables.occupied
	InService  bool            `json:"in_service"`  // billiard_tables.in_service
	HourlyRate decimal.Decimal `json:"hourly_rate"` // billiard_tables.hourly_rate
	CreatedAt  time.Time       `json:"created_at"`  // billiard_tables.created_at
	UpdatedAt  time.Time       `json:"updated_at"`  // billiard_tables.updated_at
}

// Available reports whether a new session may start on the table.
func (t Table) Available() bool {
	return t.InService && !t.Occupied
}
