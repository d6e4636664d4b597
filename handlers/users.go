// handlers/users.go - Profile, search and matching endpoints
package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"teammatcher/middleware"
	"teammatcher/services"
)

// SearchUsersByTags finds users holding every supplied tag
// GET /api/user/search/tags?tags=go,redis
func SearchUsersByTags(c *fiber.Ctx) error {
	raw := c.Query("tags")
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}

	users, err := userService.SearchByTags(c.Context(), tags)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{"users": users})
}

// UpdateUser updates a profile (self, or anyone for administrators)
// POST /api/user/update
func UpdateUser(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	var req services.UserUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}

	if err := userService.UpdateUser(c.Context(), req, userID, middleware.IsAdmin(c)); err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{})
}

// RecommendUsers returns a cached page of candidate users
// GET /api/user/recommend?page=1&size=20
func RecommendUsers(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	size, _ := strconv.Atoi(c.Query("size", "20"))

	users, err := userService.Recommend(c.Context(), userID, page, size)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{"users": users})
}

// MatchUsers ranks users by tag similarity to the caller
// GET /api/user/match?num=10
func MatchUsers(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	num, _ := strconv.Atoi(c.Query("num", "10"))

	user, err := userService.GetByID(c.Context(), userID)
	if err != nil {
		return fail(c, err)
	}
	matches, err := userService.MatchUsers(c.Context(), num, user)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{"users": matches})
}
