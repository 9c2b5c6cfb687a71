package routes

import (
	"errors"
	"net/http"

	"plantbnb-server/models"
	"plantbnb-server/services"
	"plantbnb-server/storage"
	"plantbnb-server/utils"

	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
)

// GET /admin/users/:id — full user info + verification history + recent activity
func AdminGetUser(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}

	var user models.User
	if err := storage.DB.First(&user, id).Error; err != nil {
		utils.JSONError(ctx, http.StatusNotFound, "not_found", "user not found")
		return
	}

	verifs, _ := services.VerificationHistory(user.ID)

	var actions []models.AuditLog
	storage.DB.Where("resource_type = ? AND resource_id = ?", "user", id).Order("created_at DESC").Limit(50).Find(&actions)

	ctx.JSON(iris.Map{
		"data": iris.Map{
			"user":               user,
			"verifications":      verifs,
			"recentAdminActions": actions,
		},
		"meta":  iris.Map{},
		"links": iris.Map{},
	})
}

// GET /admin/verifications?page=&per_page= — users awaiting review
func AdminListPendingVerifications(ctx iris.Context) {
	page := ctx.URLParamIntDefault("page", 1)
	perPage := ctx.URLParamIntDefault("per_page", 25)
	if perPage <= 0 || perPage > 100 {
		perPage = 25
	}

	users, total, err := services.PendingVerifications(page, perPage)
	if err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	utils.JSONPage(ctx, users, page, perPage, total)
}

// POST /admin/users/:id/verification/approve
func AdminApproveVerification(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}

	adminID := ctx.Values().Get("userID").(uint)

	user, approveErr := services.ApproveVerification(adminID, id)
	if approveErr != nil {
		switch {
		case errors.Is(approveErr, gorm.ErrRecordNotFound):
			utils.JSONError(ctx, http.StatusNotFound, "not_found", "user not found")
		case errors.Is(approveErr, services.ErrNoDocumentSubmitted):
			utils.JSONError(ctx, http.StatusUnprocessableEntity, "no_document", "user has no verification document on file")
		default:
			utils.JSONError(ctx, http.StatusInternalServerError, "server_error", approveErr.Error())
		}
		return
	}

	notificationService := services.NewNotificationService()
	go notificationService.SendVerificationResultNotification(user.ID, true)

	ctx.JSON(iris.Map{"data": user})
}

// POST /admin/users/:id/verification/reject { notes }
func AdminRejectVerification(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}

	var body struct {
		Notes string `json:"notes"`
	}
	ctx.ReadJSON(&body)

	adminID := ctx.Values().Get("userID").(uint)

	user, rejectErr := services.RejectVerification(adminID, id, body.Notes)
	if rejectErr != nil {
		if errors.Is(rejectErr, gorm.ErrRecordNotFound) {
			utils.JSONError(ctx, http.StatusNotFound, "not_found", "user not found")
			return
		}
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", rejectErr.Error())
		return
	}

	notificationService := services.NewNotificationService()
	go notificationService.SendVerificationResultNotification(user.ID, false)

	ctx.JSON(iris.Map{"data": user})
}
