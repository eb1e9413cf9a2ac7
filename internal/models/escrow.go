package models

import "time"

type EscrowStatus string

const (
	EscrowPending   EscrowStatus = "pending"
	EscrowApproved  EscrowStatus = "approved"
	EscrowReleased  EscrowStatus = "released"
	EscrowCancelled EscrowStatus = "cancelled"
)

type EscrowType string

const (
	EscrowInspection EscrowType = "inspection"
	EscrowPurchase   EscrowType = "purchase"
)

// Escrow is the custody record for funds tied to an inspection fee or a
// purchase price. Reference is the external payment reference and is
// unique across all escrows. RecordID names the inspection or purchase
// the funds belong to; a confirmation is only valid against that record.
type Escrow struct {
	ID         string       `gorm:"primaryKey" json:"id"`
	PropertyID string       `gorm:"index;not null" json:"property_id"`
	BuyerID    string       `gorm:"index;not null" json:"buyer_id"`
	SellerID   string       `gorm:"index;not null" json:"seller_id"`
	RecordID   string       `gorm:"index;not null" json:"record_id"`
	Amount     int64        `gorm:"not null" json:"amount"`
	Status     EscrowStatus `gorm:"type:varchar(16);default:pending" json:"status"`
	Type       EscrowType   `gorm:"type:varchar(16);not null" json:"type"`
	Reference  string       `gorm:"uniqueIndex;not null" json:"reference"`
	HeldBy     string       `json:"held_by"`
	ApprovedAt *time.Time   `json:"approved_at,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// TransactionStats summarizes escrow activity for the admin dashboard.
type TransactionStats struct {
	TotalEscrows    int   `json:"total_escrows"`
	PendingEscrows  int   `json:"pending_escrows"`
	ApprovedEscrows int   `json:"approved_escrows"`
	AmountHeld      int64 `json:"amount_held"`
	AmountPending   int64 `json:"amount_pending"`
}
