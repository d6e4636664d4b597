// models/team.go
package models

import "time"

type TeamStatus string

const (
	TeamStatusPublic  TeamStatus = "PUBLIC"
	TeamStatusPrivate TeamStatus = "PRIVATE"
	TeamStatusSecret  TeamStatus = "SECRET"
)

// ParseTeamStatus maps a request value onto a legal status. An empty value
// defaults to PUBLIC; anything else unknown is rejected.
func ParseTeamStatus(s string) (TeamStatus, bool) {
	switch TeamStatus(s) {
	case "":
		return TeamStatusPublic, true
	case TeamStatusPublic, TeamStatusPrivate, TeamStatusSecret:
		return TeamStatus(s), true
	}
	return "", false
}

type Team struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	Name        string     `json:"name" gorm:"not null;size:20"`
	Description string     `json:"description" gorm:"size:512"`
	Capacity    int        `json:"capacity" gorm:"not null"`
	Status      TeamStatus `json:"status" gorm:"not null;size:10;default:'PUBLIC';index"`
	Password    string     `json:"-" gorm:"size:72"`
	LeaderID    uint       `json:"leader_id" gorm:"not null;index"`
	Leader      *User      `json:"leader,omitempty" gorm:"foreignKey:LeaderID"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Team) TableName() string {
	return "teams"
}

// Expired reports whether the team has an expiry in the past. Teams without
// an expiry never expire.
func (t Team) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !t.ExpiresAt.After(now)
}
