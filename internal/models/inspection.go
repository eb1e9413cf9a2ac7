package models

import "time"

type InspectionStatus string

const (
	InspectionPending  InspectionStatus = "pending"
	InspectionVerified InspectionStatus = "verified"
	InspectionExpired  InspectionStatus = "expired"
)

// Inspection is a buyer's request to view a property before committing to
// buy it. Fee is a snapshot of the property's inspection fee at request
// time; later fee changes on the property do not affect open inspections.
type Inspection struct {
	ID            string           `gorm:"primaryKey" json:"id"`
	PropertyID    string           `gorm:"index;not null" json:"property_id"`
	OwnerID       string           `gorm:"index;not null" json:"owner_id"`
	RequesterID   string           `gorm:"index;not null" json:"requester_id"`
	Code          string           `gorm:"not null" json:"-"`
	Status        InspectionStatus `gorm:"type:varchar(16);default:pending" json:"status"`
	Fee           int64            `gorm:"not null" json:"fee"`
	FeePaid       bool             `gorm:"default:false" json:"fee_paid"`
	FeeReleased   bool             `gorm:"default:false" json:"fee_released"`
	EscrowHeldBy  string           `json:"escrow_held_by"`
	ScheduledDate time.Time        `json:"scheduled_date"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}
