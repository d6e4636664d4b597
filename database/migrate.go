// database/migrate.go - Schema migrations
package database

import (
	"log"

	"gorm.io/gorm"

	"teammatcher/models"
)

// RunMigrations creates or updates all tables and indexes.
func RunMigrations(db *gorm.DB) error {
	log.Println("Running migrations...")

	if err := db.AutoMigrate(
		&models.User{},
		&models.Team{},
		&models.Membership{},
	); err != nil {
		return err
	}

	createIndexes(db)

	log.Println("Migrations completed")
	return nil
}

// createIndexes adds indexes AutoMigrate does not cover.
func createIndexes(db *gorm.DB) {
	db.Exec("CREATE INDEX IF NOT EXISTS idx_teams_leader ON teams(leader_id)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_teams_status ON teams(status)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_teams_expires ON teams(expires_at)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_memberships_joined ON memberships(team_id, joined_at)")
}
