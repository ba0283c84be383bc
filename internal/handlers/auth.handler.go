package handlers

import (
	"labventory/internal/app"
	authController "labventory/internal/controllers/auth"
	"labventory/internal/services"

	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	Handler
	controller authController.AuthControllerInterface
}

func NewAuthHandler(app app.App, router fiber.Router) *AuthHandler {
	return &AuthHandler{
		Handler:    newHandler(app, router, "auth_handler"),
		controller: app.Controllers.Auth,
	}
}

func (h *AuthHandler) Register() {
	auth := h.router.Group("/auth")
	auth.Post("/signup", h.signUp)
	auth.Post("/signin", h.signIn)
}

func (h *AuthHandler) signUp(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("signUp")

	var request services.SignUpRequest
	if err := parseBody(c, &request); err != nil {
		return respondError(c, log, err, "Failed to sign up")
	}

	session, err := h.controller.SignUp(c.UserContext(), &request)
	if err != nil {
		return respondError(c, log, err, "Failed to sign up")
	}

	return c.Status(fiber.StatusCreated).JSON(session)
}

func (h *AuthHandler) signIn(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("signIn")

	var request services.SignInRequest
	if err := parseBody(c, &request); err != nil {
		return respondError(c, log, err, "Failed to sign in")
	}

	session, err := h.controller.SignIn(c.UserContext(), &request)
	if err != nil {
		return respondError(c, log, err, "Failed to sign in")
	}

	return c.JSON(session)
}
