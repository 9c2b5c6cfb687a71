package models

import "gorm.io/gorm"

type Conversation struct {
	gorm.Model
	ListingID *uint     `json:"listingID" gorm:"index"`
	Listing   *Listing  `json:"listing,omitempty" gorm:"foreignKey:ListingID"`
	OwnerID   uint      `json:"ownerID" gorm:"not null;index"`
	SitterID  uint      `json:"sitterID" gorm:"not null;index"`
	Messages  []Message `json:"messages" gorm:"foreignKey:ConversationID"`
}
