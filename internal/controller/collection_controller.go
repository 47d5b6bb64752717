package controller

import (
	"winnow-be/internal/dto"
	"winnow-be/internal/mapper"
	"winnow-be/internal/pkg/apperror"
	"winnow-be/internal/pkg/serverutils"
	"winnow-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ICollectionController interface {
	RegisterRoutes(r fiber.Router)
	GetAll(ctx *fiber.Ctx) error
	Create(ctx *fiber.Ctx) error
	Update(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	UploadFiles(ctx *fiber.Ctx) error
}

type collectionController struct {
	service service.ICollectionService
}

func NewCollectionController(service service.ICollectionService) ICollectionController {
	return &collectionController{service: service}
}

func (c *collectionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/collections")
	h.Get("", c.GetAll)
	h.Post("", c.Create)
	h.Put(":id", c.Update)
	h.Delete(":id", c.Delete)
	h.Post(":id/files", c.UploadFiles)
}

func (c *collectionController) GetAll(ctx *fiber.Ctx) error {
	res := c.service.GetAll(ctx.UserContext())
	return ctx.JSON(serverutils.SuccessResponse("Success get all collections", res))
}

func (c *collectionController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateCollectionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Invalid("collection.add", "invalid body: %v", err)
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Create(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success add collection", res))
}

func (c *collectionController) Update(ctx *fiber.Ctx) error {
	var req dto.UpdateCollectionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Invalid("collection.edit", "invalid body: %v", err)
	}
	req.Id = ctx.Params("id")

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Update(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success edit collection", res))
}

func (c *collectionController) Delete(ctx *fiber.Ctx) error {
	if err := c.service.Delete(ctx.UserContext(), ctx.Params("id")); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete collection", nil))
}

func (c *collectionController) UploadFiles(ctx *fiber.Ctx) error {
	form, err := ctx.MultipartForm()
	if err != nil {
		return apperror.Invalid("collection.upload", "expected multipart form: %v", err)
	}
	headers := form.File["file"]
	if len(headers) == 0 {
		return apperror.Invalid("collection.upload", "no files in field %q", "file")
	}

	res, err := c.service.UploadFiles(ctx.UserContext(), ctx.Params("id"), mapper.FromMultipart(headers))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success upload collection files", res))
}
