// handlers/teams.go - Team endpoints
package handlers

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"teammatcher/apperr"
	"teammatcher/middleware"
	"teammatcher/services"
)

var teamService *services.TeamService

// InitTeamHandlers wires the team service into this package's handlers.
func InitTeamHandlers(teams *services.TeamService) {
	teamService = teams
}

// lockWait bounds how long a request may wait on a team's exclusive section
// before giving up with a retryable error.
func lockWait() time.Duration {
	if v, err := strconv.Atoi(os.Getenv("LOCK_WAIT_MS")); err == nil && v > 0 {
		return time.Duration(v) * time.Millisecond
	}
	return 5 * time.Second
}

// AddTeam creates a team with the caller as leader and first member
// POST /api/team/add
func AddTeam(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	var req services.CreateTeamRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}

	ctx, cancel := context.WithTimeout(c.Context(), lockWait())
	defer cancel()

	teamID, err := teamService.CreateTeam(ctx, req, userID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{"team_id": teamID})
}

// GetTeam fetches a single team
// GET /api/team/get?id=1
func GetTeam(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Query("id"), 10, 32)
	if err != nil || id == 0 {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid team ID"})
	}

	team, err := teamService.GetTeam(c.Context(), uint(id))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{"team": team})
}

// ListTeams lists non-expired teams matching the query filters
// GET /api/team/list
func ListTeams(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	query, err := parseTeamQuery(c)
	if err != nil {
		return fail(c, err)
	}

	teams, err := teamService.ListTeams(c.Context(), query, userID, middleware.IsAdmin(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{"teams": teams})
}

// ListMyCreatedTeams lists teams the caller leads
// GET /api/team/list/my/create
func ListMyCreatedTeams(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	query, err := parseTeamQuery(c)
	if err != nil {
		return fail(c, err)
	}

	teams, err := teamService.ListCreatedTeams(c.Context(), query, userID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{"teams": teams})
}

// ListMyJoinedTeams lists teams the caller belongs to
// GET /api/team/list/my/join
func ListMyJoinedTeams(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	query, err := parseTeamQuery(c)
	if err != nil {
		return fail(c, err)
	}

	teams, err := teamService.ListJoinedTeams(c.Context(), query, userID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{"teams": teams})
}

type JoinTeamRequest struct {
	TeamID   uint   `json:"team_id"`
	Password string `json:"password"`
}

// JoinTeam admits the caller into a team
// POST /api/team/join
func JoinTeam(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	var req JoinTeamRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}

	ctx, cancel := context.WithTimeout(c.Context(), lockWait())
	defer cancel()

	if err := teamService.JoinTeam(ctx, req.TeamID, req.Password, userID); err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{})
}

type QuitTeamRequest struct {
	TeamID uint `json:"team_id"`
}

// QuitTeam removes the caller's membership
// POST /api/team/quit
func QuitTeam(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	var req QuitTeamRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}

	ctx, cancel := context.WithTimeout(c.Context(), lockWait())
	defer cancel()

	if err := teamService.QuitTeam(ctx, req.TeamID, userID); err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{})
}

// UpdateTeam applies a change to a team the caller leads (or any team for
// administrators)
// POST /api/team/update
func UpdateTeam(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	var req services.TeamUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}

	if err := teamService.UpdateTeam(c.Context(), req, userID, middleware.IsAdmin(c)); err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{})
}

type DeleteTeamRequest struct {
	ID uint `json:"id"`
}

// DeleteTeam dissolves a team the caller leads
// POST /api/team/delete
func DeleteTeam(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	var req DeleteTeamRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}

	if err := teamService.DeleteTeam(c.Context(), req.ID, userID); err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{})
}

func parseTeamQuery(c *fiber.Ctx) (services.TeamQuery, error) {
	var query services.TeamQuery
	if err := c.QueryParser(&query); err != nil {
		return query, apperr.Invalid("invalid query parameters")
	}
	return query, nil
}
