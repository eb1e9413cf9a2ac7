package models

import "time"

type PropertyStatus string

const (
	PropertyAvailable PropertyStatus = "available"
	PropertySold      PropertyStatus = "sold"
	PropertyRented    PropertyStatus = "rented"
)

type Property struct {
	ID            string         `gorm:"primaryKey" json:"id"`
	Title         string         `gorm:"not null" json:"title"`
	Description   string         `json:"description"`
	Price         int64          `gorm:"not null" json:"price"`
	InspectionFee int64          `gorm:"not null" json:"inspection_fee"`
	Address       string         `json:"address"`
	MediaURLs     string         `json:"media_urls"`
	OwnerID       string         `gorm:"index;not null" json:"owner_id"`
	AgentID       string         `gorm:"index" json:"agent_id"`
	Status        PropertyStatus `gorm:"type:varchar(16);default:available" json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

type CreatePropertyRequest struct {
	Title         string `json:"title" binding:"required"`
	Description   string `json:"description"`
	Price         int64  `json:"price" binding:"required,gt=0"`
	InspectionFee int64  `json:"inspection_fee" binding:"required,gt=0"`
	Address       string `json:"address"`
	MediaURLs     string `json:"media_urls"`
	AgentID       string `json:"agent_id"`
}
