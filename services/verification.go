package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"os"
	"time"

	"plantbnb-server/models"
	"plantbnb-server/storage"
)

var (
	// ErrNoDocumentSubmitted refuses an approval when the user has no
	// document on file.
	ErrNoDocumentSubmitted = errors.New("no verification document submitted")
	// ErrAlreadyApproved refuses a resubmission from an approved user.
	ErrAlreadyApproved = errors.New("verification already approved")
	// ErrPersistence wraps database failures; the just-stored file may be
	// left orphaned on disk (upload and row update are not transactional).
	ErrPersistence = errors.New("persistence failure")
)

// SubmitVerificationDocument stores the uploaded identity document and moves
// the user to pending. Allowed from unverified and from pending (a
// resubmission simply replaces the pending document). Upload validation
// failures leave the user's state untouched.
func SubmitVerificationDocument(userID uint, fileHeader *multipart.FileHeader) (*models.User, error) {
	var user models.User
	if err := storage.DB.First(&user, userID).Error; err != nil {
		return nil, err
	}

	if user.VerificationStatus == models.VerificationStatusApproved {
		return nil, ErrAlreadyApproved
	}

	relPath, err := storage.StoreUpload(fileHeader, storage.VerificationUploads)
	if err != nil {
		return nil, err
	}

	// The file write always precedes the row update; if the update fails the
	// stored file stays orphaned, which is accepted.
	verified := false
	user.VerificationDocumentPath = &relPath
	user.VerificationStatus = models.VerificationStatusPending
	user.IsVerified = &verified
	if err := storage.DB.Save(&user).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	history := models.IdentityVerification{UserID: user.ID, DocumentPath: relPath, Status: "pending"}
	if err := storage.DB.Create(&history).Error; err != nil {
		log.Printf("failed to append verification history for user %d: %v", user.ID, err)
	}

	return &user, nil
}

// ApproveVerification marks the user as verified. Requires a document on
// file. Approving an already-approved user is a no-op that re-confirms the
// state. The caller must have passed the admin capability check.
func ApproveVerification(adminID, userID uint) (*models.User, error) {
	var user models.User
	if err := storage.DB.First(&user, userID).Error; err != nil {
		return nil, err
	}

	if user.VerificationDocumentPath == nil || *user.VerificationDocumentPath == "" {
		return nil, ErrNoDocumentSubmitted
	}

	if user.VerificationStatus == models.VerificationStatusApproved {
		return &user, nil
	}

	before := user
	verified := true
	user.VerificationStatus = models.VerificationStatusApproved
	user.IsVerified = &verified
	if err := storage.DB.Save(&user).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	now := time.Now()
	history := models.IdentityVerification{
		UserID:       user.ID,
		DocumentPath: *user.VerificationDocumentPath,
		Status:       "approved",
		ReviewedBy:   &adminID,
		ReviewedAt:   &now,
	}
	if err := storage.DB.Create(&history).Error; err != nil {
		log.Printf("failed to append verification history for user %d: %v", user.ID, err)
	}

	auditAction(adminID, "user.verification.approve", "user", user.ID, before, user)
	return &user, nil
}

// RejectVerification returns the user to unverified and clears the document
// reference. Always permitted; rejecting an unverified user is a harmless
// no-op. The stored file is removed from disk only when
// UPLOADS_DELETE_ON_REJECT=true, otherwise it stays orphaned as uploads are
// append-only.
func RejectVerification(adminID, userID uint, notes string) (*models.User, error) {
	var user models.User
	if err := storage.DB.First(&user, userID).Error; err != nil {
		return nil, err
	}

	before := user
	docPath := user.VerificationDocumentPath
	verified := false
	user.VerificationStatus = models.VerificationStatusUnverified
	user.VerificationDocumentPath = nil
	user.IsVerified = &verified
	if err := storage.DB.Save(&user).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	now := time.Now()
	history := models.IdentityVerification{
		UserID:     user.ID,
		Status:     "rejected",
		ReviewedBy: &adminID,
		ReviewedAt: &now,
		Notes:      notes,
	}
	if docPath != nil {
		history.DocumentPath = *docPath
	}
	if err := storage.DB.Create(&history).Error; err != nil {
		log.Printf("failed to append verification history for user %d: %v", user.ID, err)
	}

	if docPath != nil && deleteRejectedUploads() {
		if err := storage.RemoveUpload(*docPath); err != nil {
			log.Printf("failed to remove rejected document %s: %v", *docPath, err)
		}
	}

	auditAction(adminID, "user.verification.reject", "user", user.ID, before, user)
	return &user, nil
}

// PendingVerifications pages through users awaiting review.
func PendingVerifications(page, perPage int) ([]models.User, int64, error) {
	query := storage.DB.Model(&models.User{}).Where("verification_status = ?", models.VerificationStatusPending)

	var total int64
	query.Count(&total)

	var users []models.User
	if err := query.Order("updated_at ASC").Offset((page - 1) * perPage).Limit(perPage).Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return users, total, nil
}

// VerificationHistory returns the review trail for one user, newest first.
func VerificationHistory(userID uint) ([]models.IdentityVerification, error) {
	var history []models.IdentityVerification
	if err := storage.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&history).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return history, nil
}

func deleteRejectedUploads() bool {
	return os.Getenv("UPLOADS_DELETE_ON_REJECT") == "true"
}

// auditAction records an admin mutation when the admin identity comes as an
// explicit parameter instead of a request context.
func auditAction(adminID uint, action, resourceType string, resourceID uint, before, after interface{}) {
	var beforeStr, afterStr string
	if b, err := json.Marshal(before); err == nil {
		beforeStr = string(b)
	}
	if a, err := json.Marshal(after); err == nil {
		afterStr = string(a)
	}
	entry := models.AuditLog{AdminUserID: adminID, Action: action, ResourceType: resourceType, ResourceID: resourceID, BeforeJSON: beforeStr, AfterJSON: afterStr}
	storage.DB.Create(&entry)
}
