package controller

import (
	"ai-topic-notes/internal/dto"
	"ai-topic-notes/internal/pkg/serverutils"
	"ai-topic-notes/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IConversationController interface {
	RegisterRoutes(r fiber.Router)
	List(ctx *fiber.Ctx) error
	Page(ctx *fiber.Ctx) error
	Create(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	Messages(ctx *fiber.Ctx) error
	GetMindMap(ctx *fiber.Ctx) error
	SaveMindMap(ctx *fiber.Ctx) error
}

type conversationController struct {
	conversationService service.IConversationService
	sessionService      service.ISessionService
}

func NewConversationController(conversationService service.IConversationService, sessionService service.ISessionService) IConversationController {
	return &conversationController{
		conversationService: conversationService,
		sessionService:      sessionService,
	}
}

func (c *conversationController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/conversation/v1")
	h.Get("", c.List)
	h.Get("page", c.Page)
	h.Post("", c.Create)
	h.Get(":id", c.Show)
	h.Delete(":id", c.Delete)
	h.Get(":id/messages", c.Messages)
	h.Get(":id/mindmap", c.GetMindMap)
	h.Put(":id/mindmap", c.SaveMindMap)
}

func (c *conversationController) List(ctx *fiber.Ctx) error {
	res := c.conversationService.List(ctx.UserContext())
	return ctx.JSON(serverutils.SuccessResponse("Success get conversations", res))
}

func (c *conversationController) Page(ctx *fiber.Ctx) error {
	req := dto.ConversationPageRequest{Limit: 20}
	if err := ctx.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid query")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.conversationService.Page(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get conversations page", res))
}

// Create goes through the session so the new conversation becomes current.
func (c *conversationController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateConversationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res := c.sessionService.Create(ctx.UserContext(), &req)
	return ctx.JSON(serverutils.SuccessResponse("Success create conversation", res))
}

func (c *conversationController) Show(ctx *fiber.Ctx) error {
	id, err := conversationID(ctx)
	if err != nil {
		return err
	}

	res, err := c.conversationService.Show(ctx.UserContext(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show conversation", res))
}

func (c *conversationController) Delete(ctx *fiber.Ctx) error {
	id, err := conversationID(ctx)
	if err != nil {
		return err
	}

	res := c.sessionService.Delete(ctx.UserContext(), id)
	return ctx.JSON(serverutils.SuccessResponse("Success delete conversation", res))
}

func (c *conversationController) Messages(ctx *fiber.Ctx) error {
	id, err := conversationID(ctx)
	if err != nil {
		return err
	}

	res, err := c.conversationService.Messages(ctx.UserContext(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get messages", res))
}

func (c *conversationController) GetMindMap(ctx *fiber.Ctx) error {
	id, err := conversationID(ctx)
	if err != nil {
		return err
	}

	res, err := c.conversationService.GetMindMap(ctx.UserContext(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get mind map", res))
}

func (c *conversationController) SaveMindMap(ctx *fiber.Ctx) error {
	id, err := conversationID(ctx)
	if err != nil {
		return err
	}

	var req dto.SaveMindMapRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	req.ConversationId = id

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.conversationService.SaveMindMap(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success save mind map", res))
}

func conversationID(ctx *fiber.Ctx) (int64, error) {
	id, err := ctx.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid conversation id")
	}
	return int64(id), nil
}
