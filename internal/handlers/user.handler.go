package handlers

import (
	"labventory/internal/app"
	"labventory/internal/authz"
	userController "labventory/internal/controllers/users"
	"labventory/internal/handlers/middleware"

	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	Handler
	controller userController.UserControllerInterface
}

func NewUserHandler(app app.App, router fiber.Router) *UserHandler {
	return &UserHandler{
		Handler:    newHandler(app, router, "user_handler"),
		controller: app.Controllers.User,
	}
}

func (h *UserHandler) Register() {
	users := h.router.Group("/users")
	users.Get("/me", h.getCurrentUser)

	manage := users.Group("", h.middleware.RequirePermission(authz.UsersManage))
	manage.Get("/", h.listUsers)
	manage.Put("/:id/role", h.changeRole)
	manage.Delete("/:id", h.deleteUser)
}

func (h *UserHandler) getCurrentUser(c *fiber.Ctx) error {
	user := middleware.GetUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	return c.JSON(fiber.Map{"user": user})
}

func (h *UserHandler) listUsers(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("listUsers")

	users, err := h.controller.List(c.UserContext())
	if err != nil {
		return respondError(c, log, err, "Failed to list users")
	}

	return c.JSON(fiber.Map{"users": users})
}

func (h *UserHandler) changeRole(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("changeRole")

	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, log, err, "Failed to change role")
	}

	var request userController.ChangeRoleRequest
	if err := parseBody(c, &request); err != nil {
		return respondError(c, log, err, "Failed to change role")
	}

	user, err := h.controller.ChangeRole(c.UserContext(), middleware.GetUser(c), id, &request)
	if err != nil {
		return respondError(c, log, err, "Failed to change role")
	}

	log.Info("Role changed", "userID", id, "role", user.Role)
	return c.JSON(fiber.Map{"user": user})
}

func (h *UserHandler) deleteUser(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("deleteUser")

	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, log, err, "Failed to delete user")
	}

	if err := h.controller.Delete(c.UserContext(), middleware.GetUser(c), id); err != nil {
		return respondError(c, log, err, "Failed to delete user")
	}

	return c.SendStatus(fiber.StatusNoContent)
}
