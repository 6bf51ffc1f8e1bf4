package notifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/gdg-garage/medislot-api/internal/models"
	"gorm.io/gorm"
)

// InApp stores the message in the recipient's notification inbox.
type InApp struct {
	db *gorm.DB
}

func NewInApp(db *gorm.DB) *InApp {
	return &InApp{db: db}
}

func (n *InApp) Notify(ctx context.Context, to Recipient, msg Message) error {
	if to.UserID == "" && to.Phone == "" {
		return nil
	}
	// "booking.confirmed" -> "booking"
	typ, _, _ := strings.Cut(string(msg.Kind), ".")
	row := models.UserNotification{
		UserID:        to.UserID,
		ContactNumber: to.Phone,
		Title:         msg.Title,
		Message:       msg.Body,
		Type:          typ,
		Reference:     msg.Reference,
	}
	if err := n.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("store in-app notification: %w", err)
	}
	return nil
}

// Inbox lists a user's notifications, newest first.
func (n *InApp) Inbox(ctx context.Context, userID string, unreadOnly bool) ([]models.UserNotification, error) {
	q := n.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	rows := []models.UserNotification{}
	err := q.Order("created_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

// MarkRead flags one of the user's notifications as read. It reports false
// when the user has no such notification.
func (n *InApp) MarkRead(ctx context.Context, userID string, id uint) (bool, error) {
	res := n.db.WithContext(ctx).Model(&models.UserNotification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	return res.RowsAffected > 0, res.Error
}
