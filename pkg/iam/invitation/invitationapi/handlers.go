package invitationapi

import (
	"github.com/Abraxas-365/lingua/pkg/iam"
	"github.com/Abraxas-365/lingua/pkg/iam/auth"
	"github.com/Abraxas-365/lingua/pkg/iam/invitation/invitationsrv"
	"github.com/gofiber/fiber/v2"
)

type InvitationHandlers struct {
	service *invitationsrv.InvitationService
}

func NewInvitationHandlers(service *invitationsrv.InvitationService) *InvitationHandlers {
	return &InvitationHandlers{service: service}
}

// RegisterRoutes mounts the invitation endpoints behind authentication.
func (h *InvitationHandlers) RegisterRoutes(app fiber.Router, mw *auth.TokenMiddleware) {
	group := app.Group("/v2/invitations", mw.Authenticate())
	group.Post("/", h.CreateInvitation)
	group.Get("/:code/accept", h.AcceptInvitation)
	group.Delete("/:id", h.RevokeInvitation)
}

type createInvitationRequest struct {
	Email string `json:"email"`
}

func (h *InvitationHandlers) CreateInvitation(c *fiber.Ctx) error {
	caller, ok := auth.AuthFrom(c)
	if !ok {
		return iam.ErrUnauthenticated()
	}

	var req createInvitationRequest
	if err := c.BodyParser(&req); err != nil {
		return auth.ErrInvalidRequest("invalid request body")
	}
	if req.Email == "" {
		return auth.ErrInvalidRequest("email is required")
	}

	inv, err := h.service.CreateInvitation(c.UserContext(), caller, req.Email)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(inv)
}

func (h *InvitationHandlers) AcceptInvitation(c *fiber.Ctx) error {
	caller, ok := auth.AuthFrom(c)
	if !ok {
		return iam.ErrUnauthenticated()
	}

	inv, err := h.service.AcceptInvitation(c.UserContext(), c.Params("code"), caller.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"id":       inv.ID,
		"status":   inv.Status,
		"tenantId": inv.TenantID,
	})
}

func (h *InvitationHandlers) RevokeInvitation(c *fiber.Ctx) error {
	caller, ok := auth.AuthFrom(c)
	if !ok {
		return iam.ErrUnauthenticated()
	}
	if err := h.service.RevokeInvitation(c.UserContext(), caller, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
