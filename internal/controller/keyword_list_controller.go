package controller

import (
	"winnow-be/internal/dto"
	"winnow-be/internal/pkg/apperror"
	"winnow-be/internal/pkg/serverutils"
	"winnow-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IKeywordListController interface {
	RegisterRoutes(r fiber.Router)
	GetAll(ctx *fiber.Ctx) error
	Create(ctx *fiber.Ctx) error
	Update(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type keywordListController struct {
	service service.IKeywordListService
}

func NewKeywordListController(service service.IKeywordListService) IKeywordListController {
	return &keywordListController{service: service}
}

func (c *keywordListController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/keyword-lists")
	h.Get("", c.GetAll)
	h.Post("", c.Create)
	h.Put(":id", c.Update)
	h.Delete(":id", c.Delete)
}

func (c *keywordListController) GetAll(ctx *fiber.Ctx) error {
	res := c.service.GetAll(ctx.UserContext())
	return ctx.JSON(serverutils.SuccessResponse("Success get all keyword lists", res))
}

// Create takes included/excluded as comma-separated strings.
func (c *keywordListController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateKeywordListRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Invalid("keyword_list.add", "invalid body: %v", err)
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Create(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success add keyword list", res))
}

// Update takes included/excluded as arrays.
func (c *keywordListController) Update(ctx *fiber.Ctx) error {
	var req dto.UpdateKeywordListRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Invalid("keyword_list.edit", "invalid body: %v", err)
	}
	req.Id = ctx.Params("id")

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Update(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success edit keyword list", res))
}

func (c *keywordListController) Delete(ctx *fiber.Ctx) error {
	if err := c.service.Delete(ctx.UserContext(), ctx.Params("id")); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete keyword list", nil))
}
