package model

import (
	"context"
	"time"
)

// NotificationStatus is the delivery state of a notification record.
type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// Notification is one rendered payload for one channel. It is created in
// pending state and transitions to exactly one terminal state (sent or
// failed); records are never reused.
type Notification struct {
	ID        string
	Channel   Channel
	UserID    string
	Recipient string // email address, device user id, or phone number
	Subject   string // email only
	Body      string // HTML body, push body, or SMS text
	TextBody  string // email plain-text alternative
	URL       string // push deep link
	Status    NotificationStatus
	CreatedAt time.Time
	SentAt    *time.Time
}

// NotificationPreferences carries a user's delivery addresses. Maintained by
// the user-facing application; read-only here.
type NotificationPreferences struct {
	UserID string
	Email  string
	Phone  string
}

// NotificationStore persists notification records and their status
// transitions.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *Notification) error
	SetNotificationStatus(ctx context.Context, n *Notification, status NotificationStatus, sentAt *time.Time) error
	GetPreferences(ctx context.Context, userID string) (NotificationPreferences, error)
}

// EmailSender delivers a rendered email. Fire-and-confirm: an error means
// the message was rejected synchronously.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, html, text string) error
}

// PushSender delivers a push notification to all of a user's devices.
type PushSender interface {
	SendPush(ctx context.Context, userID, title, body, url string) error
}

// SMSSender delivers a short text message.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) error
}
