// Package queue defines message payloads exchanged over the message broker
// and the consumer that turns them into the billing log.
package queue

import (
	"time"

	"github.com/shopspring/decimal"
)

// SessionStoppedQueue is the durable queue carrying SessionStoppedEvent.
const SessionStoppedQueue = "session.stopped"

// SessionStoppedEvent is published once a session has been stopped and its
// price committed. It carries enough detail for the billing log without a
// database lookup.
type SessionStoppedEvent struct {
	SessionID   uint64          `json:"session_id"`
	TableID     uint64          `json:"table_id"`
	TableNumber int             `json:"table_number"`
	TableName   string          `json:"table_name"`
	ClientID    *uint64         `json:"client_id,omitempty"`
	ClientName  string          `json:"client_name,omitempty"`
	StartTime   time.Time       `json:"start_time"`
	EndTime     time.Time       `json:"end_time"`
	Minutes     float64         `json:"minutes"`
	Price       decimal.Decimal `json:"price"`
	Policy      string          `json:"policy"`
	StoppedAt   time.Time       `json:"stopped_at"`
}
