package services

import (
	"context"
	"testing"

	"teammatcher/apperr"
	"teammatcher/models"

	"gorm.io/gorm"
)

func newTestUserService(t *testing.T) (*UserService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return NewUserService(db, nil), db
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestUserService(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		account  string
		password string
		confirm  string
	}{
		{"blank account", "  ", "password1", "password1"},
		{"short account", "abc", "password1", "password1"},
		{"short password", "gopher", "short", "short"},
		{"account with symbols", "go-pher!", "password1", "password1"},
		{"confirm mismatch", "gopher", "password1", "password2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.account, tc.password, tc.confirm)
			if apperr.CodeOf(err) != apperr.CodeInvalidArgument {
				t.Fatalf("expected InvalidArgument, got %v", err)
			}
		})
	}
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestUserService(t)
	ctx := context.Background()

	id, err := svc.Register(ctx, "gopher", "password1", "password1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if id == 0 {
		t.Fatal("Register returned zero id")
	}

	if _, err := svc.Register(ctx, "gopher", "password1", "password1"); apperr.CodeOf(err) != apperr.CodeInvalidArgument {
		t.Fatalf("expected InvalidArgument for duplicate account, got %v", err)
	}

	user, err := svc.Login(ctx, "gopher", "password1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.ID != id {
		t.Fatalf("logged in as %d, want %d", user.ID, id)
	}
	if user.Password != "" {
		t.Fatal("login response carries the password hash")
	}

	if _, err := svc.Login(ctx, "gopher", "wrongwrong"); apperr.CodeOf(err) != apperr.CodeInvalidArgument {
		t.Fatalf("expected InvalidArgument for wrong password, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody", "password1"); apperr.CodeOf(err) != apperr.CodeInvalidArgument {
		t.Fatalf("expected InvalidArgument for unknown account, got %v", err)
	}
}

func TestSearchByTags(t *testing.T) {
	svc, db := newTestUserService(t)
	ctx := context.Background()

	seed := []struct {
		account string
		tags    string
	}{
		{"alice", `["go","redis"]`},
		{"bob", `["go"]`},
		{"carol", `["java"]`},
		{"dave", ""},
	}
	for _, s := range seed {
		if err := db.Create(&models.User{Account: s.account, Username: s.account, Password: "x", Tags: s.tags}).Error; err != nil {
			t.Fatalf("seed %s: %v", s.account, err)
		}
	}

	if _, err := svc.SearchByTags(ctx, nil); apperr.CodeOf(err) != apperr.CodeInvalidArgument {
		t.Fatalf("expected InvalidArgument for empty tag list, got %v", err)
	}

	users, err := svc.SearchByTags(ctx, []string{"go"})
	if err != nil {
		t.Fatalf("SearchByTags: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("got %d users for tag go, want 2", len(users))
	}

	users, err = svc.SearchByTags(ctx, []string{"go", "redis"})
	if err != nil {
		t.Fatalf("SearchByTags: %v", err)
	}
	if len(users) != 1 || users[0].Account != "alice" {
		t.Fatalf("all-tags filter wrong: %+v", users)
	}
	if users[0].Password != "" {
		t.Fatal("search result carries the password hash")
	}
}

func TestMatchUsers(t *testing.T) {
	svc, db := newTestUserService(t)
	ctx := context.Background()

	self := &models.User{Account: "self", Username: "self", Password: "x", Tags: `["go","redis","grpc"]`}
	near := &models.User{Account: "near", Username: "near", Password: "x", Tags: `["go","redis"]`}
	far := &models.User{Account: "far", Username: "far", Password: "x", Tags: `["java","spring"]`}
	untagged := &models.User{Account: "untagged", Username: "untagged", Password: "x"}
	for _, u := range []*models.User{self, near, far, untagged} {
		if err := db.Create(u).Error; err != nil {
			t.Fatalf("seed %s: %v", u.Account, err)
		}
	}

	if _, err := svc.MatchUsers(ctx, 0, self); apperr.CodeOf(err) != apperr.CodeInvalidArgument {
		t.Fatalf("expected InvalidArgument for n=0, got %v", err)
	}
	if _, err := svc.MatchUsers(ctx, maxMatchResults+1, self); apperr.CodeOf(err) != apperr.CodeInvalidArgument {
		t.Fatalf("expected InvalidArgument for n too large, got %v", err)
	}

	matches, err := svc.MatchUsers(ctx, 10, self)
	if err != nil {
		t.Fatalf("MatchUsers: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2 (self and untagged excluded)", len(matches))
	}
	if matches[0].Account != "near" || matches[1].Account != "far" {
		t.Fatalf("match order wrong: %s, %s", matches[0].Account, matches[1].Account)
	}

	matches, err = svc.MatchUsers(ctx, 1, self)
	if err != nil {
		t.Fatalf("MatchUsers: %v", err)
	}
	if len(matches) != 1 || matches[0].Account != "near" {
		t.Fatalf("top-1 match wrong: %+v", matches)
	}
}

func TestUpdateUserPermissions(t *testing.T) {
	svc, db := newTestUserService(t)
	ctx := context.Background()

	owner := seedUser(t, db, "owner")
	other := seedUser(t, db, "other")

	name := "renamed"
	if err := svc.UpdateUser(ctx, UserUpdateRequest{ID: owner.ID, Username: &name}, other.ID, false); apperr.CodeOf(err) != apperr.CodePermissionDenied {
		t.Fatalf("expected PermissionDenied, got %v", err)
	}
	if err := svc.UpdateUser(ctx, UserUpdateRequest{ID: owner.ID, Username: &name}, owner.ID, false); err != nil {
		t.Fatalf("self update: %v", err)
	}
	if err := svc.UpdateUser(ctx, UserUpdateRequest{ID: owner.ID, Username: &name}, other.ID, true); err != nil {
		t.Fatalf("admin update: %v", err)
	}

	var got models.User
	if err := db.First(&got, owner.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Username != name {
		t.Fatalf("username = %q, want %q", got.Username, name)
	}
}
