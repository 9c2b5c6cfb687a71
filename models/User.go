package models

import (
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Verification states for User.VerificationStatus
const (
	VerificationStatusUnverified = "unverified"
	VerificationStatusPending    = "pending"
	VerificationStatusApproved   = "approved"
)

type User struct {
	gorm.Model
	FirstName           string         `json:"firstName"`
	LastName            string         `json:"lastName"`
	Email               string         `json:"email" gorm:"uniqueIndex"`
	Password            string         `json:"password"`
	SocialLogin         bool           `json:"socialLogin"`
	SocialProvider      string         `json:"socialProvider"`
	AvatarURL           string         `json:"avatarURL"`
	Bio                 string         `json:"bio"`
	City                string         `json:"city"`
	SavedListings       datatypes.JSON `json:"savedListings"`
	PushTokens          datatypes.JSON `json:"pushTokens"`
	AllowsNotifications *bool          `json:"allowsNotifications"`
	IsVerified          *bool          `json:"isVerified"`
	VerificationStatus  string         `json:"verificationStatus" gorm:"size:20;default:unverified"` // unverified, pending, approved
	// Path relative to the uploads/ root; non-nil whenever status is pending
	VerificationDocumentPath *string   `json:"verificationDocumentPath"`
	Listings                 []Listing `json:"listings" gorm:"foreignKey:OwnerID;references:ID"`
	Role                     string    `json:"role" gorm:"type:varchar(20);default:user;index"` // user, admin, super_admin
}

// Custom JSON marshaling to handle JSON fields properly
func (u *User) MarshalJSON() ([]byte, error) {
	type Alias User
	aux := &struct {
		SavedListings []int    `json:"savedListings,omitempty"`
		PushTokens    []string `json:"pushTokens,omitempty"`
		*Alias
	}{
		SavedListings: []int{},
		PushTokens:    []string{},
		Alias:         (*Alias)(u),
	}

	if u.SavedListings != nil {
		var savedListings []int
		if err := json.Unmarshal(u.SavedListings, &savedListings); err == nil {
			aux.SavedListings = savedListings
		}
	}

	if u.PushTokens != nil {
		var pushTokens []string
		if err := json.Unmarshal(u.PushTokens, &pushTokens); err == nil {
			aux.PushTokens = pushTokens
		}
	}

	// Note: Listings field is excluded to prevent circular reference

	return json.Marshal(aux)
}
