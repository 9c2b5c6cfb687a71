package routes

import (
	"errors"

	"plantbnb-server/models"
	"plantbnb-server/storage"
	"plantbnb-server/utils"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"gorm.io/gorm"
)

type CreateConversationInput struct {
	ListingID *uint `json:"listingID"`
	OwnerID   uint  `json:"ownerID" validate:"required"`
	SitterID  uint  `json:"sitterID" validate:"required"`
}

func CreateConversation(ctx iris.Context) {
	var req CreateConversationInput
	if err := ctx.ReadJSON(&req); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)
	if claims.ID != req.OwnerID && claims.ID != req.SitterID {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}

	// Reuse an existing conversation for the same listing and pair
	var existing models.Conversation
	query := storage.DB.Where("owner_id = ? AND sitter_id = ?", req.OwnerID, req.SitterID)
	if req.ListingID != nil {
		query = query.Where("listing_id = ?", *req.ListingID)
	} else {
		query = query.Where("listing_id IS NULL")
	}
	if err := query.First(&existing).Error; err == nil {
		ctx.JSON(existing)
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.CreateInternalServerError(ctx)
		return
	}

	conversation := models.Conversation{
		ListingID: req.ListingID,
		OwnerID:   req.OwnerID,
		SitterID:  req.SitterID,
	}
	if err := storage.DB.Create(&conversation).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(conversation)
}

func GetConversationByID(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid conversation ID.", ctx)
		return
	}

	var conversation models.Conversation
	if err := storage.DB.Preload("Listing").First(&conversation, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)
	if claims.ID != conversation.OwnerID && claims.ID != conversation.SitterID {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}

	ctx.JSON(conversation)
}

func GetConversationsByUserID(ctx iris.Context) {
	id := ctx.Params().Get("id")

	var conversations []models.Conversation
	if err := storage.DB.Preload("Listing").
		Where("owner_id = ? OR sitter_id = ?", id, id).
		Order("updated_at DESC").
		Find(&conversations).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(conversations)
}
