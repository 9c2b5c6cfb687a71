package models

import "gorm.io/gorm"

type Review struct {
	gorm.Model
	ReviewerID uint     `json:"reviewerID" gorm:"not null;index;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	RevieweeID uint     `json:"revieweeID" gorm:"not null;index;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	ListingID  *uint    `json:"listingID" gorm:"index;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
	Reviewer   User     `json:"reviewer" gorm:"foreignKey:ReviewerID"`
	Listing    *Listing `json:"listing,omitempty" gorm:"foreignKey:ListingID"`
	Title      string   `json:"title"`
	Body       string   `json:"body" gorm:"type:text"`
	Stars      int      `json:"stars" gorm:"not null;check:stars >= 1 AND stars <= 5"`
}
