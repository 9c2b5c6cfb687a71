package routes

import (
	"errors"
	"time"

	"plantbnb-server/models"
	"plantbnb-server/storage"
	"plantbnb-server/utils"

	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
)

type CreateReviewRequest struct {
	Stars     int    `json:"stars" validate:"required,min=1,max=5"`
	Title     string `json:"title" validate:"max=100"`
	Body      string `json:"body" validate:"max=1000"`
	ListingID *uint  `json:"listingID"` // optional link to the sit this review is about
}

type ReviewResponse struct {
	ID         uint      `json:"id"`
	ReviewerID uint      `json:"reviewerID"`
	Stars      int       `json:"stars"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"createdAt"`
	Reviewer   struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		AvatarURL string `json:"avatarURL"`
	} `json:"reviewer"`
}

// ListUserReviews returns the reviews left for a user together with the average
func ListUserReviews(ctx iris.Context) {
	userID := ctx.Params().GetUintDefault("userId", 0)
	if userID == 0 {
		ctx.StatusCode(iris.StatusBadRequest)
		ctx.JSON(iris.Map{"message": "Invalid user ID"})
		return
	}

	var reviews []models.Review
	if err := storage.DB.Preload("Reviewer").
		Where("reviewee_id = ?", userID).
		Order("created_at DESC").
		Find(&reviews).Error; err != nil {
		ctx.StatusCode(iris.StatusInternalServerError)
		ctx.JSON(iris.Map{"message": "Failed to load reviews"})
		return
	}

	var totalStars float64
	for _, review := range reviews {
		totalStars += float64(review.Stars)
	}
	avgRating := 0.0
	if len(reviews) > 0 {
		avgRating = totalStars / float64(len(reviews))
	}

	var reviewResponses []ReviewResponse
	for _, review := range reviews {
		resp := ReviewResponse{
			ID:         review.ID,
			ReviewerID: review.ReviewerID,
			Stars:      review.Stars,
			Title:      review.Title,
			Body:       review.Body,
			CreatedAt:  review.CreatedAt,
		}
		resp.Reviewer.FirstName = review.Reviewer.FirstName
		resp.Reviewer.LastName = review.Reviewer.LastName
		resp.Reviewer.AvatarURL = review.Reviewer.AvatarURL
		reviewResponses = append(reviewResponses, resp)
	}

	ctx.JSON(iris.Map{
		"success": true,
		"data": iris.Map{
			"reviews":       reviewResponses,
			"averageRating": avgRating,
			"reviewCount":   len(reviews),
		},
	})
}

// CreateUserReview rates a counterpart after a sit
func CreateUserReview(ctx iris.Context) {
	userIDValue := ctx.Values().Get("userID")
	if userIDValue == nil {
		ctx.StatusCode(iris.StatusUnauthorized)
		ctx.JSON(iris.Map{"message": "User not authenticated"})
		return
	}
	reviewerID, ok := userIDValue.(uint)
	if !ok {
		ctx.StatusCode(iris.StatusUnauthorized)
		ctx.JSON(iris.Map{"message": "Invalid user ID"})
		return
	}

	revieweeID := ctx.Params().GetUintDefault("userId", 0)
	if revieweeID == 0 {
		ctx.StatusCode(iris.StatusBadRequest)
		ctx.JSON(iris.Map{"message": "Invalid user ID"})
		return
	}

	if revieweeID == reviewerID {
		ctx.StatusCode(iris.StatusBadRequest)
		ctx.JSON(iris.Map{"message": "You cannot review yourself"})
		return
	}

	var req CreateReviewRequest
	if err := ctx.ReadJSON(&req); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var reviewee models.User
	if err := storage.DB.First(&reviewee, revieweeID).Error; err != nil {
		ctx.StatusCode(iris.StatusNotFound)
		ctx.JSON(iris.Map{"message": "User not found"})
		return
	}

	// One review per counterpart per listing
	existingQuery := storage.DB.Where("reviewer_id = ? AND reviewee_id = ?", reviewerID, revieweeID)
	if req.ListingID != nil {
		existingQuery = existingQuery.Where("listing_id = ?", *req.ListingID)
	} else {
		existingQuery = existingQuery.Where("listing_id IS NULL")
	}
	var existing models.Review
	if err := existingQuery.First(&existing).Error; err == nil {
		ctx.StatusCode(iris.StatusBadRequest)
		ctx.JSON(iris.Map{"message": "You have already reviewed this user"})
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		ctx.StatusCode(iris.StatusInternalServerError)
		ctx.JSON(iris.Map{"message": "Failed to check existing review"})
		return
	}

	review := models.Review{
		ReviewerID: reviewerID,
		RevieweeID: revieweeID,
		ListingID:  req.ListingID,
		Title:      req.Title,
		Body:       req.Body,
		Stars:      req.Stars,
	}

	if err := storage.DB.Create(&review).Error; err != nil {
		ctx.StatusCode(iris.StatusInternalServerError)
		ctx.JSON(iris.Map{"message": "Failed to create review"})
		return
	}

	ctx.JSON(iris.Map{"success": true, "data": review})
}
