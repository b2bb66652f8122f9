package controller

import (
	"ai-topic-notes/internal/dto"
	"ai-topic-notes/internal/pkg/serverutils"
	"ai-topic-notes/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	State(ctx *fiber.Ctx) error
	Select(ctx *fiber.Ctx) error
	UpdateNotes(ctx *fiber.Ctx) error
	Flush(ctx *fiber.Ctx) error
	Hidden(ctx *fiber.Ctx) error
	Chat(ctx *fiber.Ctx) error
	UpdateSummary(ctx *fiber.Ctx) error
	GenerateSummary(ctx *fiber.Ctx) error
}

type sessionController struct {
	sessionService service.ISessionService
}

func NewSessionController(sessionService service.ISessionService) ISessionController {
	return &sessionController{
		sessionService: sessionService,
	}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/session/v1")
	h.Get("", c.State)
	h.Put("select", c.Select)
	h.Put("notes", c.UpdateNotes)
	h.Post("flush", c.Flush)
	h.Post("hidden", c.Hidden)
	h.Post("chat", c.Chat)
	h.Put("summary", c.UpdateSummary)
	h.Post("summary/generate", c.GenerateSummary)
}

func (c *sessionController) State(ctx *fiber.Ctx) error {
	res := c.sessionService.State(ctx.UserContext())
	return ctx.JSON(serverutils.SuccessResponse("Success get session", res))
}

func (c *sessionController) Select(ctx *fiber.Ctx) error {
	var req dto.SelectConversationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res := c.sessionService.Select(ctx.UserContext(), &req)
	return ctx.JSON(serverutils.SuccessResponse("Success select conversation", res))
}

func (c *sessionController) UpdateNotes(ctx *fiber.Ctx) error {
	var req dto.UpdateNotesRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	res := c.sessionService.UpdateNotes(ctx.UserContext(), &req)
	return ctx.JSON(serverutils.SuccessResponse("Success update notes", res))
}

func (c *sessionController) Flush(ctx *fiber.Ctx) error {
	res := c.sessionService.Flush(ctx.UserContext())
	return ctx.JSON(serverutils.SuccessResponse("Success flush notes", res))
}

// Hidden is called by the shell when its window is hidden.
func (c *sessionController) Hidden(ctx *fiber.Ctx) error {
	res := c.sessionService.Hidden(ctx.UserContext())
	return ctx.JSON(serverutils.SuccessResponse("Success flush notes", res))
}

func (c *sessionController) Chat(ctx *fiber.Ctx) error {
	var req dto.SendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res := c.sessionService.SendMessage(ctx.UserContext(), &req)
	return ctx.JSON(serverutils.SuccessResponse("Success send message", res))
}

func (c *sessionController) UpdateSummary(ctx *fiber.Ctx) error {
	var req dto.UpdateSummaryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	res := c.sessionService.UpdateSummary(ctx.UserContext(), &req)
	return ctx.JSON(serverutils.SuccessResponse("Success update summary", res))
}

func (c *sessionController) GenerateSummary(ctx *fiber.Ctx) error {
	res := c.sessionService.GenerateSummary(ctx.UserContext())
	return ctx.JSON(serverutils.SuccessResponse("Success generate summary", res))
}
