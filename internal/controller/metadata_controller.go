package controller

import (
	"winnow-be/internal/dto"
	"winnow-be/internal/mapper"
	"winnow-be/internal/pkg/apperror"
	"winnow-be/internal/pkg/serverutils"
	"winnow-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IMetadataController interface {
	RegisterRoutes(r fiber.Router)
	GetAll(ctx *fiber.Ctx) error
	Upload(ctx *fiber.Ctx) error
}

type metadataController struct {
	service service.IMetadataService
}

func NewMetadataController(service service.IMetadataService) IMetadataController {
	return &metadataController{service: service}
}

func (c *metadataController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/metadata-files")
	h.Get("", c.GetAll)
	h.Post("", c.Upload)
}

func (c *metadataController) GetAll(ctx *fiber.Ctx) error {
	files, err := c.service.List(ctx.UserContext())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get metadata files", dto.MetadataFilesResponse{Files: files}))
}

func (c *metadataController) Upload(ctx *fiber.Ctx) error {
	form, err := ctx.MultipartForm()
	if err != nil {
		return apperror.Invalid("metadata.upload", "expected multipart form: %v", err)
	}
	headers := form.File["file"]
	if len(headers) == 0 {
		return apperror.Invalid("metadata.upload", "no files in field %q", "file")
	}

	files, err := c.service.Upload(ctx.UserContext(), mapper.FromMultipart(headers))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success upload metadata files", dto.MetadataFilesResponse{Files: files}))
}
