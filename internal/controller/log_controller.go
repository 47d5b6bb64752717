package controller

import (
	"strconv"

	"winnow-be/internal/pkg/serverutils"
	"winnow-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ILogController interface {
	RegisterRoutes(r fiber.Router)
	GetLogs(ctx *fiber.Ctx) error
}

type logController struct {
	service service.ILogService
}

func NewLogController(service service.ILogService) ILogController {
	return &logController{service: service}
}

func (c *logController) RegisterRoutes(r fiber.Router) {
	r.Get("/logs", c.GetLogs)
}

func (c *logController) GetLogs(ctx *fiber.Ctx) error {
	page, _ := strconv.Atoi(ctx.Query("page", "1"))
	limit, _ := strconv.Atoi(ctx.Query("limit", "50"))
	level := ctx.Query("level", "")

	logs, err := c.service.GetLogs(ctx.UserContext(), page, limit, level)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("System logs", logs))
}
