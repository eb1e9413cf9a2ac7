package database

import (
	"github.com/google/uuid"

	"nestkey/server/internal/models"
)

func (d *Database) CreateNotification(notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	return d.db.Create(notification).Error
}

func (d *Database) ListNotifications(userID string) ([]models.Notification, error) {
	var notifications []models.Notification
	err := d.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&notifications).Error
	return notifications, err
}

func (d *Database) CountNotifications(userID string) (int64, error) {
	var count int64
	err := d.db.Model(&models.Notification{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// MarkNotificationRead sets the read flag for one of the recipient's own
// notifications. Returns false if no matching unread notification exists.
func (d *Database) MarkNotificationRead(id, userID string) (bool, error) {
	res := d.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND read = ?", id, userID, false).
		Update("read", true)
	return res.RowsAffected > 0, res.Error
}
