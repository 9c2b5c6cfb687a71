package routes

import (
	"encoding/json"
	"errors"
	"time"

	"plantbnb-server/models"
	"plantbnb-server/storage"
	"plantbnb-server/utils"

	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
)

type CreateListingInput struct {
	Kind        string     `json:"kind" validate:"required,oneof=need offer"`
	Title       string     `json:"title" validate:"required,max=150"`
	Description string     `json:"description" validate:"max=5000"`
	City        string     `json:"city" validate:"required,max=100"`
	PlantCount  int        `json:"plantCount" validate:"min=0"`
	RatePerDay  float64    `json:"ratePerDay" validate:"min=0"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
}

type UpdateListingInput struct {
	Title       string     `json:"title" validate:"omitempty,max=150"`
	Description string     `json:"description" validate:"omitempty,max=5000"`
	City        string     `json:"city" validate:"omitempty,max=100"`
	PlantCount  *int       `json:"plantCount"`
	RatePerDay  *float64   `json:"ratePerDay"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	Status      string     `json:"status" validate:"omitempty,oneof=active closed"`
}

func CreateListing(ctx iris.Context) {
	userID := ctx.Values().Get("userID").(uint)

	var req CreateListingInput
	if err := ctx.ReadJSON(&req); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	// Need listings describe a date range the plants must be covered for
	if req.Kind == models.ListingKindNeed && req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "endDate must not be before startDate.", ctx)
		return
	}

	listing := models.Listing{
		OwnerID:     userID,
		Kind:        req.Kind,
		Title:       req.Title,
		Description: req.Description,
		City:        req.City,
		PlantCount:  req.PlantCount,
		RatePerDay:  req.RatePerDay,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Status:      "active",
	}

	if err := storage.DB.Create(&listing).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(listing)
}

func GetListing(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid listing ID.", ctx)
		return
	}

	var listing models.Listing
	if err := storage.DB.Preload("Owner").First(&listing, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	ctx.JSON(listing)
}

// ListListings - GET /api/listing?kind=&city=&page=&per_page=
func ListListings(ctx iris.Context) {
	page := ctx.URLParamIntDefault("page", 1)
	perPage := ctx.URLParamIntDefault("per_page", 25)
	if perPage <= 0 || perPage > 100 {
		perPage = 25
	}

	query := storage.DB.Model(&models.Listing{}).Where("status = ?", "active")
	if kind := ctx.URLParamDefault("kind", ""); kind != "" {
		query = query.Where("kind = ?", kind)
	}
	if city := ctx.URLParamDefault("city", ""); city != "" {
		query = query.Where("lower(city) = lower(?)", city)
	}

	var total int64
	query.Count(&total)

	var listings []models.Listing
	if err := query.Preload("Owner").Order("created_at DESC").
		Offset((page - 1) * perPage).Limit(perPage).Find(&listings).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.JSONPage(ctx, listings, page, perPage, total)
}

func GetListingsByUserID(ctx iris.Context) {
	id := ctx.Params().Get("id")

	var listings []models.Listing
	if err := storage.DB.Where("owner_id = ?", id).Order("created_at DESC").Find(&listings).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(listings)
}

func UpdateListing(ctx iris.Context) {
	listing := getOwnedListing(ctx)
	if listing == nil {
		return
	}

	var req UpdateListingInput
	if err := ctx.ReadJSON(&req); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if req.Title != "" {
		listing.Title = req.Title
	}
	if req.Description != "" {
		listing.Description = req.Description
	}
	if req.City != "" {
		listing.City = req.City
	}
	if req.PlantCount != nil {
		listing.PlantCount = *req.PlantCount
	}
	if req.RatePerDay != nil {
		listing.RatePerDay = *req.RatePerDay
	}
	if req.StartDate != nil {
		listing.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		listing.EndDate = req.EndDate
	}
	if req.Status != "" {
		listing.Status = req.Status
	}

	if err := storage.DB.Save(listing).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(listing)
}

func DeleteListing(ctx iris.Context) {
	listing := getOwnedListing(ctx)
	if listing == nil {
		return
	}

	if err := storage.DB.Delete(listing).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.StatusCode(iris.StatusNoContent)
}

// UploadListingPhoto appends a photo (multipart field "photo") to the listing
func UploadListingPhoto(ctx iris.Context) {
	listing := getOwnedListing(ctx)
	if listing == nil {
		return
	}

	_, fileHeader, err := ctx.FormFile("photo")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Upload Error", "No photo submitted.", ctx)
		return
	}

	relPath, storeErr := storage.StoreUpload(fileHeader, storage.ListingUploads)
	if storeErr != nil {
		handleUploadError(storeErr, ctx)
		return
	}

	var photos []string
	if listing.Photos != nil {
		if err := json.Unmarshal(listing.Photos, &photos); err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
	}
	photos = append(photos, relPath)

	marshalled, marshalErr := json.Marshal(photos)
	if marshalErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	listing.Photos = marshalled
	if err := storage.DB.Save(listing).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"photos": photos})
}

// UploadCareSheet attaches a care instructions PDF (multipart field
// "caresheet") to the listing
func UploadCareSheet(ctx iris.Context) {
	listing := getOwnedListing(ctx)
	if listing == nil {
		return
	}

	_, fileHeader, err := ctx.FormFile("caresheet")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Upload Error", "No care sheet submitted.", ctx)
		return
	}

	relPath, storeErr := storage.StoreUpload(fileHeader, storage.CareSheetUploads)
	if storeErr != nil {
		handleUploadError(storeErr, ctx)
		return
	}

	listing.CareSheetPath = &relPath
	if err := storage.DB.Save(listing).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"careSheetPath": relPath})
}

// getOwnedListing loads the {id} listing and enforces that the caller owns it
func getOwnedListing(ctx iris.Context) *models.Listing {
	userID := ctx.Values().Get("userID").(uint)

	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid listing ID.", ctx)
		return nil
	}

	var listing models.Listing
	if err := storage.DB.First(&listing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.CreateNotFound(ctx)
			return nil
		}
		utils.CreateInternalServerError(ctx)
		return nil
	}

	if listing.OwnerID != userID {
		ctx.StatusCode(iris.StatusForbidden)
		return nil
	}

	return &listing
}
