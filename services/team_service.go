// services/team_service.go - Team membership coordination engine
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"teammatcher/apperr"
	"teammatcher/lock"
	"teammatcher/models"
)

const (
	maxTeamCapacity   = 20
	maxTeamNameLen    = 20
	maxDescriptionLen = 512
	maxPasswordLen    = 32

	// A user may lead at most this many teams, and belong to at most this
	// many teams overall.
	maxTeamsPerUser = 5
)

// TeamService orchestrates team creation, membership changes and leadership
// succession. Membership-count invariants are guarded by per-team locks from
// the Locker; multi-step writes run inside database transactions.
type TeamService struct {
	db     *gorm.DB
	locker lock.Locker
}

func NewTeamService(db *gorm.DB, locker lock.Locker) *TeamService {
	return &TeamService{db: db, locker: locker}
}

// teamLockKey guards membership-count changes for a single team. Joins and
// quits on the same team serialize here; unrelated teams proceed
// independently.
func teamLockKey(teamID uint) string {
	return fmt.Sprintf("teammatcher:team:%d", teamID)
}

// creatorLockKey serializes team creation per user so concurrent requests
// cannot race past the created-teams limit.
func creatorLockKey(userID uint) string {
	return fmt.Sprintf("teammatcher:create_team:%d", userID)
}

// CreateTeamRequest carries the candidate team payload.
type CreateTeamRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Capacity    int        `json:"capacity"`
	Status      string     `json:"status"`
	Password    string     `json:"password"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// CreateTeam validates the payload, then persists the team and its first
// membership (the creator's) as one unit of work. Returns the new team id.
func (s *TeamService) CreateTeam(ctx context.Context, req CreateTeamRequest, creatorID uint) (uint, error) {
	if req.Capacity < 1 || req.Capacity > maxTeamCapacity {
		return 0, apperr.Invalid("capacity must be between 1 and %d", maxTeamCapacity)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || utf8.RuneCountInString(req.Name) > maxTeamNameLen {
		return 0, apperr.Invalid("team name must be non-empty and at most %d characters", maxTeamNameLen)
	}
	if utf8.RuneCountInString(req.Description) > maxDescriptionLen {
		return 0, apperr.Invalid("description must be at most %d characters", maxDescriptionLen)
	}
	status, ok := models.ParseTeamStatus(req.Status)
	if !ok {
		return 0, apperr.Invalid("unknown team status %q", req.Status)
	}
	if status == models.TeamStatusSecret {
		if strings.TrimSpace(req.Password) == "" || utf8.RuneCountInString(req.Password) > maxPasswordLen {
			return 0, apperr.Invalid("secret teams require a password of at most %d characters", maxPasswordLen)
		}
	}
	now := time.Now()
	if req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
		return 0, apperr.Invalid("expiry must be in the future")
	}

	// The created-teams limit check and the insert must not interleave with
	// another creation by the same user.
	release, err := s.locker.Acquire(ctx, creatorLockKey(creatorID))
	if err != nil {
		return 0, err
	}
	defer release()

	var owned int64
	if err := s.db.WithContext(ctx).Model(&models.Team{}).
		Where("leader_id = ?", creatorID).
		Count(&owned).Error; err != nil {
		return 0, apperr.System("failed to count created teams", err)
	}
	if owned >= maxTeamsPerUser {
		return 0, apperr.Invalid("a user may create at most %d teams", maxTeamsPerUser)
	}

	team := &models.Team{
		Name:        req.Name,
		Description: req.Description,
		Capacity:    req.Capacity,
		Status:      status,
		Password:    req.Password,
		LeaderID:    creatorID,
		ExpiresAt:   req.ExpiresAt,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(team).Error; err != nil {
			return err
		}
		member := &models.Membership{
			TeamID:   team.ID,
			UserID:   creatorID,
			JoinedAt: now,
		}
		return tx.Create(member).Error
	})
	if err != nil {
		return 0, apperr.System("failed to create team", err)
	}
	return team.ID, nil
}

// TeamQuery filters ListTeams. Zero values mean "not filtered".
type TeamQuery struct {
	ID          uint   `query:"id"`
	IDList      []uint `query:"id_list"`
	Name        string `query:"name"`
	Description string `query:"description"`
	SearchText  string `query:"search_text"`
	Capacity    int    `query:"capacity"`
	LeaderID    uint   `query:"leader_id"`
	Status      string `query:"status"`
}

// TeamView is a team enriched with its leader's redacted profile and
// membership info for the calling user.
type TeamView struct {
	models.Team
	Leader      *models.User `json:"leader,omitempty"`
	JoinedCount int          `json:"joined_count"`
	HasJoined   bool         `json:"has_joined"`
}

// ListTeams returns all non-expired teams matching the query, enriched with
// leader profiles. Non-administrators may not ask for PRIVATE teams; the
// status filter defaults to PUBLIC. callerID, when non-zero, is used to mark
// teams the caller already belongs to.
func (s *TeamService) ListTeams(ctx context.Context, query TeamQuery, callerID uint, isAdmin bool) ([]TeamView, error) {
	status, ok := models.ParseTeamStatus(query.Status)
	if !ok {
		status = models.TeamStatusPublic
	}
	if status == models.TeamStatusPrivate && !isAdmin {
		return nil, apperr.Denied("private teams are visible to administrators only")
	}

	q := s.db.WithContext(ctx).Model(&models.Team{}).Where("status = ?", status)
	if query.ID > 0 {
		q = q.Where("id = ?", query.ID)
	}
	if len(query.IDList) > 0 {
		q = q.Where("id IN ?", query.IDList)
	}
	if query.Name != "" {
		q = q.Where("name LIKE ?", "%"+query.Name+"%")
	}
	if query.Description != "" {
		q = q.Where("description LIKE ?", "%"+query.Description+"%")
	}
	if query.SearchText != "" {
		like := "%" + query.SearchText + "%"
		q = q.Where("name LIKE ? OR description LIKE ?", like, like)
	}
	if query.Capacity > 0 {
		q = q.Where("capacity = ?", query.Capacity)
	}
	if query.LeaderID > 0 {
		q = q.Where("leader_id = ?", query.LeaderID)
	}
	q = q.Where("expires_at IS NULL OR expires_at > ?", time.Now())

	var teams []models.Team
	if err := q.Order("created_at DESC").Find(&teams).Error; err != nil {
		return nil, apperr.System("failed to list teams", err)
	}
	if len(teams) == 0 {
		return []TeamView{}, nil
	}

	teamIDs := make([]uint, 0, len(teams))
	leaderIDs := make([]uint, 0, len(teams))
	for _, t := range teams {
		teamIDs = append(teamIDs, t.ID)
		leaderIDs = append(leaderIDs, t.LeaderID)
	}

	var leaders []models.User
	if err := s.db.WithContext(ctx).Where("id IN ?", leaderIDs).Find(&leaders).Error; err != nil {
		return nil, apperr.System("failed to load team leaders", err)
	}
	leaderByID := make(map[uint]models.User, len(leaders))
	for _, u := range leaders {
		leaderByID[u.ID] = u.Safe()
	}

	type teamCount struct {
		TeamID uint
		N      int
	}
	var counts []teamCount
	if err := s.db.WithContext(ctx).Model(&models.Membership{}).
		Select("team_id, COUNT(*) AS n").
		Where("team_id IN ?", teamIDs).
		Group("team_id").
		Scan(&counts).Error; err != nil {
		return nil, apperr.System("failed to count memberships", err)
	}
	countByTeam := make(map[uint]int, len(counts))
	for _, c := range counts {
		countByTeam[c.TeamID] = c.N
	}

	joined := make(map[uint]bool)
	if callerID > 0 {
		var mine []models.Membership
		if err := s.db.WithContext(ctx).
			Where("user_id = ? AND team_id IN ?", callerID, teamIDs).
			Find(&mine).Error; err != nil {
			return nil, apperr.System("failed to load caller memberships", err)
		}
		for _, m := range mine {
			joined[m.TeamID] = true
		}
	}

	views := make([]TeamView, 0, len(teams))
	for _, t := range teams {
		t.Password = ""
		view := TeamView{
			Team:        t,
			JoinedCount: countByTeam[t.ID],
			HasJoined:   joined[t.ID],
		}
		if leader, ok := leaderByID[t.LeaderID]; ok {
			view.Leader = &leader
		}
		views = append(views, view)
	}
	return views, nil
}

// ListCreatedTeams returns teams led by userID, any status.
func (s *TeamService) ListCreatedTeams(ctx context.Context, query TeamQuery, userID uint) ([]TeamView, error) {
	query.LeaderID = userID
	return s.ListTeams(ctx, query, userID, true)
}

// ListJoinedTeams returns teams userID belongs to, any status.
func (s *TeamService) ListJoinedTeams(ctx context.Context, query TeamQuery, userID uint) ([]TeamView, error) {
	var memberships []models.Membership
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&memberships).Error; err != nil {
		return nil, apperr.System("failed to load memberships", err)
	}
	if len(memberships) == 0 {
		return []TeamView{}, nil
	}
	seen := make(map[uint]bool, len(memberships))
	ids := make([]uint, 0, len(memberships))
	for _, m := range memberships {
		if !seen[m.TeamID] {
			seen[m.TeamID] = true
			ids = append(ids, m.TeamID)
		}
	}
	query.IDList = ids
	return s.ListTeams(ctx, query, userID, true)
}

// GetTeam returns a single team by id.
func (s *TeamService) GetTeam(ctx context.Context, teamID uint) (*models.Team, error) {
	return s.getTeamByID(ctx, teamID)
}

// JoinTeam admits userID into the team. Visibility and password checks run
// against a pre-lock snapshot to fail fast; existence, expiry, the
// count-based invariants and the insert all run against fresh state inside
// the team's exclusive section.
func (s *TeamService) JoinTeam(ctx context.Context, teamID uint, password string, userID uint) error {
	team, err := s.getTeamByID(ctx, teamID)
	if err != nil {
		return err
	}
	if team.Expired(time.Now()) {
		return apperr.Invalid("team has expired")
	}
	if team.Status == models.TeamStatusPrivate {
		return apperr.Invalid("cannot join a private team")
	}
	if team.Status == models.TeamStatusSecret {
		if password == "" || password != team.Password {
			return apperr.Invalid("wrong team password")
		}
	}

	release, err := s.locker.Acquire(ctx, teamLockKey(teamID))
	if err != nil {
		return err
	}
	defer release()

	// The pre-lock snapshot may be stale: a concurrent last-member quit can
	// dissolve the team before the lock is ours. Existence, expiry and
	// capacity come from a fresh row read inside the exclusive section.
	team, err = s.getTeamByID(ctx, teamID)
	if err != nil {
		return err
	}
	if team.Expired(time.Now()) {
		return apperr.Invalid("team has expired")
	}

	var joinedTotal int64
	if err := s.db.WithContext(ctx).Model(&models.Membership{}).
		Where("user_id = ?", userID).
		Count(&joinedTotal).Error; err != nil {
		return apperr.System("failed to count user memberships", err)
	}
	if joinedTotal >= maxTeamsPerUser {
		return apperr.Invalid("too many memberships")
	}

	var alreadyJoined int64
	if err := s.db.WithContext(ctx).Model(&models.Membership{}).
		Where("user_id = ? AND team_id = ?", userID, teamID).
		Count(&alreadyJoined).Error; err != nil {
		return apperr.System("failed to check membership", err)
	}
	if alreadyJoined > 0 {
		return apperr.Invalid("already joined")
	}

	members, err := s.countMembers(ctx, s.db, teamID)
	if err != nil {
		return err
	}
	if members >= int64(team.Capacity) {
		return apperr.Invalid("team full")
	}

	member := &models.Membership{
		TeamID:   teamID,
		UserID:   userID,
		JoinedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(member).Error; err != nil {
		return apperr.System("failed to insert membership", err)
	}
	return nil
}

// QuitTeam removes userID's membership. The last member quitting dissolves
// the team; a quitting leader hands leadership to the second-earliest-joined
// member first. The whole operation runs inside the same per-team exclusive
// section Join uses, and the writes form one transaction. The team row is
// loaded only after the lock is held: a leader read before the lock could
// have changed under a concurrent quit.
func (s *TeamService) QuitTeam(ctx context.Context, teamID, userID uint) error {
	release, err := s.locker.Acquire(ctx, teamLockKey(teamID))
	if err != nil {
		return err
	}
	defer release()

	team, err := s.getTeamByID(ctx, teamID)
	if err != nil {
		return err
	}

	var isMember int64
	if err := s.db.WithContext(ctx).Model(&models.Membership{}).
		Where("user_id = ? AND team_id = ?", userID, teamID).
		Count(&isMember).Error; err != nil {
		return apperr.System("failed to check membership", err)
	}
	if isMember == 0 {
		return apperr.Invalid("not a member of this team")
	}

	members, err := s.countMembers(ctx, s.db, teamID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if members == 1 {
			// Sole member leaving dissolves the team outright.
			if err := tx.Where("team_id = ?", teamID).Delete(&models.Membership{}).Error; err != nil {
				return apperr.System("failed to remove memberships", err)
			}
			if err := tx.Delete(&models.Team{}, teamID).Error; err != nil {
				return apperr.System("failed to delete team", err)
			}
			return nil
		}

		if team.LeaderID == userID {
			// Leadership passes to the second-earliest-joined member.
			var earliest []models.Membership
			if err := tx.Where("team_id = ?", teamID).
				Order("joined_at ASC, id ASC").
				Limit(2).
				Find(&earliest).Error; err != nil {
				return apperr.System("failed to load earliest members", err)
			}
			if len(earliest) < 2 {
				// A team with more than one member must have a successor.
				return apperr.System("leadership succession failed: no successor", nil)
			}
			next := earliest[1].UserID
			if err := tx.Model(&models.Team{}).
				Where("id = ?", teamID).
				Update("leader_id", next).Error; err != nil {
				return apperr.System("failed to transfer leadership", err)
			}
		}

		if err := tx.Where("user_id = ? AND team_id = ?", userID, teamID).
			Delete(&models.Membership{}).Error; err != nil {
			return apperr.System("failed to remove membership", err)
		}
		return nil
	})
	return err
}

// TeamUpdateRequest carries the mutable team fields. Pointer fields
// distinguish "absent" from zero values.
type TeamUpdateRequest struct {
	ID          uint       `json:"id"`
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	Password    *string    `json:"password"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// UpdateTeam applies the change when the actor is the team's leader or an
// administrator. A team ending up SECRET must have a password, either from
// the payload or the current record.
func (s *TeamService) UpdateTeam(ctx context.Context, req TeamUpdateRequest, actorID uint, isAdmin bool) error {
	if req.ID == 0 {
		return apperr.Invalid("team id is required")
	}
	team, err := s.getTeamByID(ctx, req.ID)
	if err != nil {
		return err
	}
	if team.LeaderID != actorID && !isAdmin {
		return apperr.Denied("only the team leader or an administrator may update the team")
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" || utf8.RuneCountInString(*req.Name) > maxTeamNameLen {
			return apperr.Invalid("team name must be non-empty and at most %d characters", maxTeamNameLen)
		}
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		if utf8.RuneCountInString(*req.Description) > maxDescriptionLen {
			return apperr.Invalid("description must be at most %d characters", maxDescriptionLen)
		}
		updates["description"] = *req.Description
	}

	status := team.Status
	if req.Status != nil {
		parsed, ok := models.ParseTeamStatus(*req.Status)
		if !ok {
			return apperr.Invalid("unknown team status %q", *req.Status)
		}
		status = parsed
		updates["status"] = parsed
	}
	if req.Password != nil {
		if utf8.RuneCountInString(*req.Password) > maxPasswordLen {
			return apperr.Invalid("password must be at most %d characters", maxPasswordLen)
		}
		updates["password"] = *req.Password
	}
	if status == models.TeamStatusSecret {
		password := team.Password
		if req.Password != nil {
			password = *req.Password
		}
		if strings.TrimSpace(password) == "" {
			return apperr.Invalid("secret teams require a password")
		}
	}
	if req.ExpiresAt != nil {
		updates["expires_at"] = *req.ExpiresAt
	}
	if len(updates) == 0 {
		return nil
	}

	if err := s.db.WithContext(ctx).Model(&models.Team{}).
		Where("id = ?", req.ID).
		Updates(updates).Error; err != nil {
		return apperr.System("failed to update team", err)
	}
	return nil
}

// DeleteTeam dissolves the team and removes all its memberships as one unit
// of work. Only the leader may dissolve.
func (s *TeamService) DeleteTeam(ctx context.Context, teamID, actorID uint) error {
	team, err := s.getTeamByID(ctx, teamID)
	if err != nil {
		return err
	}
	if team.LeaderID != actorID {
		return apperr.Denied("only the team leader may dissolve the team")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Memberships first: a surviving team row beats orphaned memberships.
		if err := tx.Where("team_id = ?", teamID).Delete(&models.Membership{}).Error; err != nil {
			return apperr.System("failed to remove memberships", err)
		}
		if err := tx.Delete(&models.Team{}, teamID).Error; err != nil {
			return apperr.System("failed to delete team", err)
		}
		return nil
	})
	return err
}

func (s *TeamService) getTeamByID(ctx context.Context, teamID uint) (*models.Team, error) {
	if teamID == 0 {
		return nil, apperr.Invalid("team id is required")
	}
	var team models.Team
	if err := s.db.WithContext(ctx).First(&team, teamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("team not found")
		}
		return nil, apperr.System("failed to load team", err)
	}
	return &team, nil
}

func (s *TeamService) countMembers(ctx context.Context, db *gorm.DB, teamID uint) (int64, error) {
	var n int64
	if err := db.WithContext(ctx).Model(&models.Membership{}).
		Where("team_id = ?", teamID).
		Count(&n).Error; err != nil {
		return 0, apperr.System("failed to count memberships", err)
	}
	return n, nil
}
