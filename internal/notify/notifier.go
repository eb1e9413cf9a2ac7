package notify

import (
	"encoding/json"

	"github.com/sirupsen/logrus"

	"nestkey/server/internal/database"
	"nestkey/server/internal/models"
	"nestkey/server/internal/realtime"
)

// Notifier persists an audit notification and pushes it over the realtime
// hub. It is strictly best effort: a failed write or push is logged and
// never propagated to the calling workflow.
type Notifier struct {
	db     *database.Database
	hub    *realtime.Hub
	logger *logrus.Logger
}

func NewNotifier(db *database.Database, hub *realtime.Hub, logger *logrus.Logger) *Notifier {
	return &Notifier{
		db:     db,
		hub:    hub,
		logger: logger,
	}
}

// Notify writes a notification record for userID and pushes the event to
// any of the user's live connections.
func (n *Notifier) Notify(userID, title, message string, event models.Event) {
	event.UserID = userID
	event.Title = title
	event.Message = message

	meta, err := json.Marshal(event)
	if err != nil {
		n.logger.WithError(err).Error("Failed to marshal notification meta")
		meta = []byte("{}")
	}

	notification := &models.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Meta:    string(meta),
	}
	if err := n.db.CreateNotification(notification); err != nil {
		n.logger.WithError(err).WithField("user_id", userID).Error("Failed to persist notification")
	}

	if err := n.hub.Publish(userID, event); err != nil {
		n.logger.WithError(err).WithField("user_id", userID).Warn("Failed to push realtime event")
	}
}
