// models/membership.go
package models

import "time"

// Membership records that a user belongs to a team. At most one row may
// exist per (team, user) pair.
type Membership struct {
	ID       uint      `json:"id" gorm:"primaryKey"`
	TeamID   uint      `json:"team_id" gorm:"not null;uniqueIndex:idx_memberships_team_user;index"`
	Team     *Team     `json:"team,omitempty" gorm:"foreignKey:TeamID"`
	UserID   uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_memberships_team_user;index"`
	User     *User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
	JoinedAt time.Time `json:"joined_at" gorm:"not null"`
}

func (Membership) TableName() string {
	return "memberships"
}
