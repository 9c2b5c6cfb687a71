package routes

import (
	"errors"

	"plantbnb-server/storage"
	"plantbnb-server/utils"

	"github.com/kataras/iris/v12"
)

// handleUploadError maps upload service failures onto HTTP responses
func handleUploadError(err error, ctx iris.Context) {
	switch {
	case errors.Is(err, storage.ErrNoFile):
		utils.CreateError(iris.StatusBadRequest, "Upload Error", "No file submitted.", ctx)
	case errors.Is(err, storage.ErrTooLarge):
		utils.CreateError(iris.StatusRequestEntityTooLarge, "Upload Error", "File exceeds the size limit.", ctx)
	case errors.Is(err, storage.ErrUnsupportedType):
		utils.CreateError(iris.StatusUnsupportedMediaType, "Upload Error", "File type not allowed.", ctx)
	default:
		utils.CreateInternalServerError(ctx)
	}
}
