package models

import (
	"time"
)

type IdentityVerification struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	UserID       uint       `json:"user_id" gorm:"not null;index"`
	DocumentPath string     `json:"document_path" gorm:"size:512"`
	Status       string     `json:"status" gorm:"size:20;default:'pending';index"` // pending, approved, rejected
	ReviewedBy   *uint      `json:"reviewed_by" gorm:"index"`
	ReviewedAt   *time.Time `json:"reviewed_at"`
	Notes        string     `json:"notes" gorm:"type:text"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
