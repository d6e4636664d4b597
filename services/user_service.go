// services/user_service.go - User accounts, search and matching
package services

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"teammatcher/apperr"
	"teammatcher/cache"
	"teammatcher/models"
)

const (
	minAccountLen       = 4
	minPasswordLen      = 8
	maxMatchResults     = 20
	defaultRecommendLen = 20
)

// UserService handles registration, login checks, profile updates and the
// read-only recommendation/matching feature.
type UserService struct {
	db        *gorm.DB
	recommend *cache.RecommendCache
}

// NewUserService constructs a UserService. The recommendation cache may be
// nil, in which case every recommend call reads the database.
func NewUserService(db *gorm.DB, recommend *cache.RecommendCache) *UserService {
	return &UserService{db: db, recommend: recommend}
}

// Register creates an account and returns the new user id.
func (s *UserService) Register(ctx context.Context, account, password, confirm string) (uint, error) {
	if strings.TrimSpace(account) == "" || password == "" || confirm == "" {
		return 0, apperr.Invalid("account and password are required")
	}
	if len(account) < minAccountLen {
		return 0, apperr.Invalid("account must be at least %d characters", minAccountLen)
	}
	if len(password) < minPasswordLen {
		return 0, apperr.Invalid("password must be at least %d characters", minPasswordLen)
	}
	if !isAlphanumeric(account) {
		return 0, apperr.Invalid("account may contain letters and digits only")
	}
	if password != confirm {
		return 0, apperr.Invalid("passwords do not match")
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("account = ?", account).
		Count(&existing).Error; err != nil {
		return 0, apperr.System("failed to check account", err)
	}
	if existing > 0 {
		return 0, apperr.Invalid("account already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, apperr.System("failed to hash password", err)
	}

	user := &models.User{
		Account:  account,
		Username: account,
		Password: string(hash),
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return 0, apperr.System("failed to create user", err)
	}
	return user.ID, nil
}

// Login verifies credentials and returns the redacted user.
func (s *UserService) Login(ctx context.Context, account, password string) (*models.User, error) {
	if strings.TrimSpace(account) == "" || password == "" {
		return nil, apperr.Invalid("account and password are required")
	}
	var user models.User
	if err := s.db.WithContext(ctx).Where("account = ?", account).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Invalid("account and password do not match")
		}
		return nil, apperr.System("failed to load user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apperr.Invalid("account and password do not match")
	}
	safe := user.Safe()
	return &safe, nil
}

// GetByID returns the redacted user.
func (s *UserService) GetByID(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.System("failed to load user", err)
	}
	safe := user.Safe()
	return &safe, nil
}

// SearchByTags returns users holding every supplied tag. Filtering happens
// in memory over the JSON tags column.
func (s *UserService) SearchByTags(ctx context.Context, tags []string) ([]models.User, error) {
	if len(tags) == 0 {
		return nil, apperr.Invalid("at least one tag is required")
	}
	var users []models.User
	if err := s.db.WithContext(ctx).Find(&users).Error; err != nil {
		return nil, apperr.System("failed to load users", err)
	}
	matched := make([]models.User, 0)
	for _, u := range users {
		have := make(map[string]bool)
		for _, t := range u.TagList() {
			have[t] = true
		}
		all := true
		for _, t := range tags {
			if !have[t] {
				all = false
				break
			}
		}
		if all {
			matched = append(matched, u.Safe())
		}
	}
	return matched, nil
}

// UserUpdateRequest carries mutable profile fields.
type UserUpdateRequest struct {
	ID        uint    `json:"id"`
	Username  *string `json:"username"`
	AvatarURL *string `json:"avatar_url"`
	Gender    *int    `json:"gender"`
	Phone     *string `json:"phone"`
	Email     *string `json:"email"`
	Tags      *string `json:"tags"`
}

// UpdateUser applies a profile change. Administrators may update anyone,
// other users only themselves.
func (s *UserService) UpdateUser(ctx context.Context, req UserUpdateRequest, actorID uint, isAdmin bool) error {
	if req.ID == 0 {
		return apperr.Invalid("user id is required")
	}
	if req.ID != actorID && !isAdmin {
		return apperr.Denied("cannot update another user's profile")
	}
	var existing models.User
	if err := s.db.WithContext(ctx).First(&existing, req.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("user not found")
		}
		return apperr.System("failed to load user", err)
	}

	updates := map[string]interface{}{}
	if req.Username != nil {
		updates["username"] = *req.Username
	}
	if req.AvatarURL != nil {
		updates["avatar_url"] = *req.AvatarURL
	}
	if req.Gender != nil {
		updates["gender"] = *req.Gender
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Tags != nil {
		updates["tags"] = *req.Tags
	}
	if len(updates) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", req.ID).
		Updates(updates).Error; err != nil {
		return apperr.System("failed to update user", err)
	}
	return nil
}

// Recommend returns a page of users for userID, served from the Redis cache
// when a fresh entry exists. Cache failures are logged and ignored.
func (s *UserService) Recommend(ctx context.Context, userID uint, page, size int) ([]models.User, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = defaultRecommendLen
	}
	if page == 1 {
		if users, ok := s.recommend.Get(ctx, userID); ok {
			return users, nil
		}
	}

	var users []models.User
	if err := s.db.WithContext(ctx).
		Offset((page - 1) * size).
		Limit(size).
		Find(&users).Error; err != nil {
		return nil, apperr.System("failed to load users", err)
	}
	for i := range users {
		users[i] = users[i].Safe()
	}
	if page == 1 {
		if err := s.recommend.Set(ctx, userID, users); err != nil {
			log.Printf("recommend cache set failed for user %d: %v", userID, err)
		}
	}
	return users, nil
}

// WarmRecommend refreshes the cached first recommendation page for userID.
func (s *UserService) WarmRecommend(ctx context.Context, userID uint) error {
	var users []models.User
	if err := s.db.WithContext(ctx).Limit(defaultRecommendLen).Find(&users).Error; err != nil {
		return apperr.System("failed to load users", err)
	}
	for i := range users {
		users[i] = users[i].Safe()
	}
	return s.recommend.Set(ctx, userID, users)
}

// MatchUsers ranks all tagged users by tag similarity to the given user and
// returns the n closest, most similar first.
func (s *UserService) MatchUsers(ctx context.Context, n int, user *models.User) ([]models.User, error) {
	if n < 1 || n > maxMatchResults {
		return nil, apperr.Invalid("match count must be between 1 and %d", maxMatchResults)
	}
	var candidates []models.User
	if err := s.db.WithContext(ctx).
		Select("id", "tags").
		Where("tags IS NOT NULL AND tags <> ''").
		Find(&candidates).Error; err != nil {
		return nil, apperr.System("failed to load candidates", err)
	}

	ownTags := user.TagList()
	type scored struct {
		id    uint
		score int
	}
	ranked := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		if c.ID == user.ID {
			continue
		}
		tags := c.TagList()
		if len(tags) == 0 {
			continue
		}
		ranked = append(ranked, scored{id: c.ID, score: MatchScore(ownTags, tags)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score < ranked[j].score
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	if len(ranked) == 0 {
		return []models.User{}, nil
	}

	ids := make([]uint, len(ranked))
	for i, r := range ranked {
		ids[i] = r.id
	}
	var full []models.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&full).Error; err != nil {
		return nil, apperr.System("failed to load matched users", err)
	}
	byID := make(map[uint]models.User, len(full))
	for _, u := range full {
		byID[u.ID] = u.Safe()
	}
	// Preserve score order.
	result := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			result = append(result, u)
		}
	}
	return result, nil
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
