package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Session is one timed occupancy of a table, from start to stop, together
// with its price and payment state. Sessions are never deleted; they feed the
// statistics.
//
// Fields:
//
//	ID         – primary key identifier.
//	TableID    – table the game is played on (required).
//	ClientID   – payer, usually assigned when the game is stopped (nullable).
//	StartTime  – when the table was claimed (UTC).
//	EndTime    – when the game was stopped; nil while in progress.
//	InProgress – true until the session is stopped.
//	Price      – computed once at stop time, zero before.
//	Paid       – payment flag; only ever goes from false to true.
//	PaidAt     – when the payment was recorded (nullable).
//	NextPlayer – free text hint about who plays next.
type Session struct {
	ID         uint64          `json:"id"`
	TableID    uint64          `json:"table_id"`
	ClientID   *uint64         `json:"client_id"`
	StartTime  time.Time       `json:"start_time"`
	EndTime    *time.Time      `json:"end_time"`
	InProgress bool            `json:"in_progress"`
	Price      decimal.Decimal `json:"price"`
	Paid       bool            `json:"paid"`
	PaidAt     *time.Time      `json:"paid_at,omitempty"`
	NextPlayer *string         `json:"next_player"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`

	// Joined columns, filled by repository reads.
	TableNumber int     `json:"table_number"`
	TableName   string  `json:"table_name"`
	ClientName  *string `json:"loser_name"`
}

// Elapsed returns the played time. Running sessions are measured up to now.
func (s Session) Elapsed(now time.Time) time.Duration {
	end := now
	if s.EndTime != nil {
		end = *s.EndTime
	}
	if end.Before(s.StartTime) {
		return 0
	}
	return end.Sub(s.StartTime)
}

// FormatDuration renders a duration for humans as whole hours and minutes,
// so 65 minutes become "1h 5min". It is for display only; pricing uses
// fractional minutes.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Minute)
	return fmt.Sprintf("%dh %dmin", total/60, total%60)
}
