package routes

import (
	"errors"
	"mime/multipart"

	"plantbnb-server/models"
	"plantbnb-server/services"
	"plantbnb-server/storage"
	"plantbnb-server/utils"

	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
)

// SubmitVerificationDocument accepts an identity document (multipart field
// "document") and moves the user into the pending review queue.
// POST /api/user/verification
func SubmitVerificationDocument(ctx iris.Context) {
	userID := ctx.Values().Get("userID").(uint)

	var fileHeader *multipart.FileHeader
	if _, fh, err := ctx.FormFile("document"); err == nil {
		fileHeader = fh
	}

	user, err := services.SubmitVerificationDocument(userID, fileHeader)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			utils.CreateNotFound(ctx)
		case errors.Is(err, services.ErrAlreadyApproved):
			utils.CreateError(iris.StatusConflict, "Conflict", "Your identity is already verified.", ctx)
		case errors.Is(err, services.ErrPersistence):
			utils.CreateInternalServerError(ctx)
		default:
			handleUploadError(err, ctx)
		}
		return
	}

	ctx.JSON(iris.Map{
		"message": "Verification submitted successfully",
		"user":    user,
	})
}

// GetVerificationStatus returns the caller's current verification state and
// review history. GET /api/user/verification
func GetVerificationStatus(ctx iris.Context) {
	userID := ctx.Values().Get("userID").(uint)

	var user models.User
	if err := storage.DB.First(&user, userID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	history, err := services.VerificationHistory(userID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{
		"status":       user.VerificationStatus,
		"isVerified":   user.IsVerified,
		"documentPath": user.VerificationDocumentPath,
		"history":      history,
	})
}
