package models

import "time"

// Notification is append-only; only the Read flag is ever mutated, by the
// recipient.
type Notification struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"index;not null" json:"user_id"`
	Title     string    `gorm:"not null" json:"title"`
	Message   string    `json:"message"`
	Meta      string    `json:"meta"`
	Read      bool      `gorm:"default:false" json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// Event is the realtime payload pushed alongside a persisted notification.
type Event struct {
	Type         string `json:"type"`
	Title        string `json:"title"`
	Message      string `json:"message"`
	UserID       string `json:"user_id,omitempty"`
	InspectionID string `json:"inspection_id,omitempty"`
	PurchaseID   string `json:"purchase_id,omitempty"`
	EscrowID     string `json:"escrow_id,omitempty"`
}
