package database

import "nestkey/server/internal/models"

func (d *Database) RunMigrations() error {
	return d.db.AutoMigrate(
		&models.User{},
		&models.Property{},
		&models.Inspection{},
		&models.Purchase{},
		&models.Escrow{},
		&models.Notification{},
	)
}
