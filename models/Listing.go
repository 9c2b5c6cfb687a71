package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Listing kinds
const (
	ListingKindNeed  = "need"  // plant owner looking for a sitter
	ListingKindOffer = "offer" // sitter offering services
)

type Listing struct {
	gorm.Model
	OwnerID     uint           `json:"ownerID" gorm:"not null;index"`
	Owner       User           `json:"owner" gorm:"foreignKey:OwnerID"`
	Kind        string         `json:"kind" gorm:"size:10;not null;index"` // need | offer
	Title       string         `json:"title" gorm:"size:150;not null"`
	Description string         `json:"description" gorm:"type:text"`
	City        string         `json:"city" gorm:"size:100;index"`
	PlantCount  int            `json:"plantCount"`
	RatePerDay  float64        `json:"ratePerDay"`
	StartDate   *time.Time     `json:"startDate"`
	EndDate     *time.Time     `json:"endDate"`
	Photos      datatypes.JSON `json:"photos"` // uploads/-relative paths
	// Optional care instructions PDF, relative to uploads/
	CareSheetPath *string `json:"careSheetPath"`
	Status        string  `json:"status" gorm:"size:20;default:active;index"` // active, closed
}
