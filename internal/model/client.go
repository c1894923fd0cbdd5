package model

import "time"

// Client is a named customer. In practice the client attached to a session
// is the player who lost the game and therefore pays for the table. Clients
// are looked up by exact name and created on the fly when a session is
// stopped with an unknown payer name.
type Client struct {
	ID        uint64    `json:"id"`              // clients.id
	Name      string    `json:"name"`            // clients.name (unique)
	Phone     string    `json:"phone"`           // clients.phone
	Email     *string   `json:"email,omitempty"` // clients.email (nullable)
	CreatedAt time.Time `json:"created_at"`      // clients.created_at
	UpdatedAt time.Time `json:"updated_at"`      // clients.updated_at
}
