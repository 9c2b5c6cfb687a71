package services

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"plantbnb-server/models"
	"plantbnb-server/storage"
	"plantbnb-server/utils"
)

// NotificationService handles all push notification logic
type NotificationService struct{}

// NewNotificationService creates a new notification service instance
func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// NotificationData represents the data payload for notifications
type NotificationData struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	ListingID string `json:"listingId,omitempty"`
	UserID    string `json:"userId,omitempty"`
	// Deep linking data
	Screen string `json:"screen"`
	Params string `json:"params"`
}

// getUserPushTokens retrieves all push tokens for a user
func (ns *NotificationService) getUserPushTokens(userID uint) ([]string, error) {
	var user models.User
	if err := storage.DB.First(&user, userID).Error; err != nil {
		return nil, fmt.Errorf("user not found: %v", err)
	}

	if user.AllowsNotifications == nil || !*user.AllowsNotifications || user.PushTokens == nil {
		return nil, fmt.Errorf("user has notifications disabled or no tokens")
	}

	var tokens []string
	if err := json.Unmarshal(user.PushTokens, &tokens); err != nil {
		return nil, fmt.Errorf("failed to unmarshal push tokens: %v", err)
	}

	return tokens, nil
}

// SendNotificationToUser sends a notification to a specific user
func (ns *NotificationService) SendNotificationToUser(userID uint, title, body string, data NotificationData) error {
	tokens, err := ns.getUserPushTokens(userID)
	if err != nil {
		log.Printf("Failed to get push tokens for user %d: %v", userID, err)
		return err
	}

	dataMap := map[string]string{
		"type":      data.Type,
		"id":        data.ID,
		"listingId": data.ListingID,
		"userId":    data.UserID,
		"screen":    data.Screen,
		"params":    data.Params,
	}

	var lastError error
	for _, token := range tokens {
		if err := utils.SendNotification(token, title, body, dataMap); err != nil {
			log.Printf("Failed to push to token %s: %v", token, err)
			lastError = err
		}
	}
	return lastError
}

// SendMessageNotification notifies the receiver of a new chat message
func (ns *NotificationService) SendMessageNotification(receiverID, senderID uint, senderName, listingTitle string) error {
	title := "New message"
	body := fmt.Sprintf("%s sent you a message about %s", senderName, listingTitle)

	data := NotificationData{
		Type:   "message",
		ID:     strconv.FormatUint(uint64(senderID), 10),
		UserID: strconv.FormatUint(uint64(senderID), 10),
		Screen: "Conversation",
	}
	return ns.SendNotificationToUser(receiverID, title, body, data)
}

// SendVerificationResultNotification tells the user how the admin review went
func (ns *NotificationService) SendVerificationResultNotification(userID uint, approved bool) error {
	title := "Identity verification"
	body := "Your identity has been verified. Your profile now shows the verified badge."
	if !approved {
		body = "Your verification document was rejected. You can submit a new one from your profile."
	}

	data := NotificationData{
		Type:   "verification",
		ID:     strconv.FormatUint(uint64(userID), 10),
		UserID: strconv.FormatUint(uint64(userID), 10),
		Screen: "Profile",
	}
	return ns.SendNotificationToUser(userID, title, body, data)
}

// SendWelcomeNotificationToNewUser greets a freshly registered user
func (ns *NotificationService) SendWelcomeNotificationToNewUser(userID uint, firstName string) error {
	title := "Welcome to PlantBnB"
	body := fmt.Sprintf("Hi %s! Browse sitters near you or post your first listing.", firstName)

	data := NotificationData{
		Type:   "welcome",
		ID:     strconv.FormatUint(uint64(userID), 10),
		Screen: "Home",
	}
	return ns.SendNotificationToUser(userID, title, body, data)
}
