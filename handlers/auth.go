// handlers/auth.go - Registration and login
package handlers

import (
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"teammatcher/middleware"
	"teammatcher/models"
	"teammatcher/services"
)

var userService *services.UserService

// InitUserHandlers wires the user service into this package's handlers.
func InitUserHandlers(users *services.UserService) {
	userService = users
}

type RegisterRequest struct {
	Account         string `json:"account"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type LoginRequest struct {
	Account  string `json:"account"`
	Password string `json:"password"`
}

// Register creates a new account
// POST /api/user/register
func Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}

	userID, err := userService.Register(c.Context(), req.Account, req.Password, req.ConfirmPassword)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{"user_id": userID})
}

// Login authenticates a user and issues a bearer token
// POST /api/user/login
func Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}

	user, err := userService.Login(c.Context(), req.Account, req.Password)
	if err != nil {
		return fail(c, err)
	}

	token, err := generateToken(user)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to generate token"})
	}
	return ok(c, fiber.Map{"token": token, "user": user})
}

// Logout ends the session. Tokens are stateless, so this only confirms the
// client may drop its copy.
// POST /api/user/logout
func Logout(c *fiber.Ctx) error {
	return ok(c, fiber.Map{})
}

// GetCurrentUser returns the authenticated user's profile
// GET /api/user/current
func GetCurrentUser(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}
	user, err := userService.GetByID(c.Context(), userID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{"user": user})
}

func generateToken(user *models.User) (string, error) {
	ttlHours := 24
	if v, err := strconv.Atoi(os.Getenv("JWT_TTL_HOURS")); err == nil && v > 0 {
		ttlHours = v
	}
	claims := jwt.MapClaims{
		"user_id":  user.ID,
		"is_admin": user.IsAdmin,
		"exp":      time.Now().Add(time.Duration(ttlHours) * time.Hour).Unix(),
		"iat":      time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("JWT_SECRET")))
}
