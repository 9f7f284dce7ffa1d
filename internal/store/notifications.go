package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/aguntuk/jobora/internal/model"
)

var _ model.NotificationStore = (*Store)(nil)

// notificationTable maps a channel to its collection. Each channel keeps
// its own table because the payload shapes differ.
func notificationTable(channel model.Channel) (string, error) {
	switch channel {
	case model.ChannelEmail:
		return "email_notifications", nil
	case model.ChannelPush:
		return "push_notifications", nil
	case model.ChannelSMS:
		return "sms_notifications", nil
	default:
		return "", fmt.Errorf("unknown notification channel %q", channel)
	}
}

// CreateNotification persists the notification in its channel's collection.
func (s *Store) CreateNotification(ctx context.Context, n *model.Notification) error {
	table, err := notificationTable(n.Channel)
	if err != nil {
		return err
	}

	builder := sq.Insert(table)
	switch n.Channel {
	case model.ChannelEmail:
		builder = builder.
			Columns("id", "user_id", "recipient", "subject", "body", "text_body", "status", "created_at", "sent_at").
			Values(n.ID, n.UserID, n.Recipient, n.Subject, n.Body, n.TextBody, string(n.Status), n.CreatedAt, n.SentAt)
	case model.ChannelPush:
		builder = builder.
			Columns("id", "user_id", "recipient", "subject", "body", "url", "status", "created_at", "sent_at").
			Values(n.ID, n.UserID, n.Recipient, n.Subject, n.Body, n.URL, string(n.Status), n.CreatedAt, n.SentAt)
	case model.ChannelSMS:
		builder = builder.
			Columns("id", "user_id", "recipient", "body", "status", "created_at", "sent_at").
			Values(n.ID, n.UserID, n.Recipient, n.Body, string(n.Status), n.CreatedAt, n.SentAt)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build create notification query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("create %s notification %s: %w", n.Channel, n.ID, err)
	}
	return nil
}

// SetNotificationStatus moves the notification to its terminal state and
// mirrors the change onto the in-memory record.
func (s *Store) SetNotificationStatus(ctx context.Context, n *model.Notification, status model.NotificationStatus, sentAt *time.Time) error {
	table, err := notificationTable(n.Channel)
	if err != nil {
		return err
	}

	query, args, err := sq.Update(table).
		Set("status", string(status)).
		Set("sent_at", sentAt).
		Where(sq.Eq{"id": n.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set notification status query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set %s notification %s status: %w", n.Channel, n.ID, err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("notification %s not found", n.ID)
	}

	n.Status = status
	n.SentAt = sentAt
	return nil
}

// GetPreferences returns the user's contact details. A user without a row
// gets empty preferences, not an error; the dispatcher skips those channels.
func (s *Store) GetPreferences(ctx context.Context, userID string) (model.NotificationPreferences, error) {
	query, args, err := sq.Select("user_id", "email", "phone").
		From("notification_preferences").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return model.NotificationPreferences{}, fmt.Errorf("build get preferences query: %w", err)
	}

	var (
		prefs        model.NotificationPreferences
		email, phone sql.NullString
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&prefs.UserID, &email, &phone)
	if err == sql.ErrNoRows {
		return model.NotificationPreferences{UserID: userID}, nil
	}
	if err != nil {
		return model.NotificationPreferences{}, fmt.Errorf("get preferences for %s: %w", userID, err)
	}
	prefs.Email = email.String
	prefs.Phone = phone.String
	return prefs, nil
}

// SavePreferences inserts or replaces the user's contact details.
func (s *Store) SavePreferences(ctx context.Context, prefs model.NotificationPreferences) error {
	query, args, err := sq.Replace("notification_preferences").
		Columns("user_id", "email", "phone").
		Values(prefs.UserID, prefs.Email, prefs.Phone).
		ToSql()
	if err != nil {
		return fmt.Errorf("build save preferences query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save preferences for %s: %w", prefs.UserID, err)
	}
	return nil
}
