package controller

import (
	"winnow-be/internal/dto"
	"winnow-be/internal/pkg/apperror"
	"winnow-be/internal/pkg/serverutils"
	"winnow-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

// IRunController serves run history and the current run staging sequence.
type IRunController interface {
	RegisterRoutes(r fiber.Router)

	GetAll(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	UpdateKeywordContexts(ctx *fiber.Ctx) error

	Current(ctx *fiber.Ctx) error
	SetName(ctx *fiber.Ctx) error
	ChooseCollections(ctx *fiber.Ctx) error
	ChooseKeywordLists(ctx *fiber.Ctx) error
	ChooseMetadata(ctx *fiber.Ctx) error
	ChooseInterviewees(ctx *fiber.Ctx) error
	Launch(ctx *fiber.Ctx) error
	Cancel(ctx *fiber.Ctx) error
	Progress(ctx *fiber.Ctx) error
	Outcome(ctx *fiber.Ctx) error
	Report(ctx *fiber.Ctx) error
	View(ctx *fiber.Ctx) error
}

type runController struct {
	history service.IRunHistoryService
	runs    service.IRunService
}

func NewRunController(history service.IRunHistoryService, runs service.IRunService) IRunController {
	return &runController{history: history, runs: runs}
}

func (c *runController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/runs")
	h.Get("", c.GetAll)
	h.Put("keyword-contexts", c.UpdateKeywordContexts)
	h.Delete(":id", c.Delete)

	cr := r.Group("/current-run")
	cr.Get("", c.Current)
	cr.Post("name", c.SetName)
	cr.Post("collections", c.ChooseCollections)
	cr.Post("keyword-lists", c.ChooseKeywordLists)
	cr.Post("metadata", c.ChooseMetadata)
	cr.Post("interviewees", c.ChooseInterviewees)
	cr.Post("launch", c.Launch)
	cr.Post("cancel", c.Cancel)
	cr.Get("progress", c.Progress)
	cr.Get("outcomes/:attemptId", c.Outcome)
	cr.Get("report", c.Report)
	cr.Post("view", c.View)
}

func (c *runController) GetAll(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get past runs", c.history.GetAll(ctx.UserContext())))
}

func (c *runController) Delete(ctx *fiber.Ctx) error {
	if err := c.history.Delete(ctx.UserContext(), ctx.Params("id")); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete run", nil))
}

func (c *runController) UpdateKeywordContexts(ctx *fiber.Ctx) error {
	var req dto.UpdateKeywordContextsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Invalid("run.keyword_contexts", "invalid body: %v", err)
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.runs.UpdateKeywordContexts(ctx.UserContext(), &req); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success update keyword contexts", nil))
}

func (c *runController) Current(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Current run", c.runs.CurrentRun(ctx.UserContext())))
}

func (c *runController) SetName(ctx *fiber.Ctx) error {
	var req dto.SetRunNameRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Invalid("current_run.name", "invalid body: %v", err)
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	run := c.runs.SetRunName(ctx.UserContext(), req.Data.Name, req.Data.Time)
	return ctx.JSON(serverutils.SuccessResponse("Current run name set", run))
}

func (c *runController) ChooseCollections(ctx *fiber.Ctx) error {
	var req dto.ChooseIdsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Invalid("current_run.collections", "invalid body: %v", err)
	}

	run := c.runs.ChooseCollections(ctx.UserContext(), req.Data)
	return ctx.JSON(serverutils.SuccessResponse("Current run collections updated", run))
}

func (c *runController) ChooseKeywordLists(ctx *fiber.Ctx) error {
	var req dto.ChooseIdsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Invalid("current_run.keyword_lists", "invalid body: %v", err)
	}

	run := c.runs.ChooseKeywordLists(ctx.UserContext(), req.Data)
	return ctx.JSON(serverutils.SuccessResponse("Current run keyword lists updated", run))
}

func (c *runController) ChooseMetadata(ctx *fiber.Ctx) error {
	var req dto.ChooseSelectionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Invalid("current_run.metadata", "invalid body: %v", err)
	}

	run := c.runs.ChooseInterviews(ctx.UserContext(), req.Data)
	return ctx.JSON(serverutils.SuccessResponse("Current run interview metadata updated", run))
}

func (c *runController) ChooseInterviewees(ctx *fiber.Ctx) error {
	var req dto.ChooseSelectionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Invalid("current_run.interviewees", "invalid body: %v", err)
	}

	run := c.runs.ChooseInterviewees(ctx.UserContext(), req.Data)
	return ctx.JSON(serverutils.SuccessResponse("Current run interviewees updated", run))
}

// Launch blocks until the tool has ended and returns its outcome. Progress
// is observed through the progress endpoint or the websocket meanwhile.
func (c *runController) Launch(ctx *fiber.Ctx) error {
	var req dto.LaunchRunRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return apperror.Invalid("current_run.launch", "invalid body: %v", err)
		}
	}

	outcome, err := c.runs.Launch(ctx.UserContext(), req.Data)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Run finished", outcome))
}

func (c *runController) Cancel(ctx *fiber.Ctx) error {
	if err := c.runs.Cancel(ctx.UserContext()); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Cancel requested", nil))
}

func (c *runController) Progress(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Run progress", c.runs.Progress(ctx.UserContext())))
}

func (c *runController) Outcome(ctx *fiber.Ctx) error {
	outcome, err := c.runs.Outcome(ctx.UserContext(), ctx.Params("attemptId"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Run outcome", outcome))
}

func (c *runController) Report(ctx *fiber.Ctx) error {
	report, err := c.runs.CurrentReport(ctx.UserContext())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Current run report", report))
}

func (c *runController) View(ctx *fiber.Ctx) error {
	var req dto.ViewReportRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Invalid("current_run.view", "invalid body: %v", err)
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	run := c.runs.MarkReportViewed(ctx.UserContext(), req.Data)
	return ctx.JSON(serverutils.SuccessResponse("Viewed report updated", run))
}
