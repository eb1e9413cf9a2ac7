package models

import "time"

type PurchaseStatus string

const (
	PurchasePending   PurchaseStatus = "pending"
	PurchasePaid      PurchaseStatus = "paid"
	PurchaseCompleted PurchaseStatus = "completed"
	PurchaseCancelled PurchaseStatus = "cancelled"
)

// Purchase is gated on a verified, fee-paid Inspection for the same
// property and buyer. Price is a snapshot of the property price at
// request time.
type Purchase struct {
	ID           string         `gorm:"primaryKey" json:"id"`
	PropertyID   string         `gorm:"index;not null" json:"property_id"`
	BuyerID      string         `gorm:"index;not null" json:"buyer_id"`
	OwnerID      string         `gorm:"index;not null" json:"owner_id"`
	InspectionID string         `gorm:"index;not null" json:"inspection_id"`
	Price        int64          `gorm:"not null" json:"price"`
	FeePaid      bool           `gorm:"default:false" json:"fee_paid"`
	FeeReleased  bool           `gorm:"default:false" json:"fee_released"`
	EscrowHeldBy string         `json:"escrow_held_by"`
	Status       PurchaseStatus `gorm:"type:varchar(16);default:pending" json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}
