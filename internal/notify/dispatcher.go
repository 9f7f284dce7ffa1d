// Package notify renders channel payloads for matched jobs and drives every
// notification record from pending to a terminal state.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aguntuk/jobora/internal/model"
)

// UserBatch is one user's matched jobs for one alert, destined for every
// channel that alert enables.
type UserBatch struct {
	Alert model.AlertSubscription
	Jobs  []MatchedJob
}

// Result counts the notifications of one dispatch.
type Result struct {
	Sent   int
	Failed int
}

// Dispatcher fans a user batch out to its channels. Channel sends within a
// batch run concurrently; each notification record has a single writer.
type Dispatcher struct {
	store   model.NotificationStore
	email   model.EmailSender
	push    model.PushSender
	sms     model.SMSSender
	baseURL string
	logger  *slog.Logger
}

// NewDispatcher wires a dispatcher. baseURL anchors push deep links.
func NewDispatcher(store model.NotificationStore, email model.EmailSender, push model.PushSender, sms model.SMSSender, baseURL string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:   store,
		email:   email,
		push:    push,
		sms:     sms,
		baseURL: baseURL,
		logger:  logger,
	}
}

// Dispatch renders and sends one payload per enabled channel. Every created
// record reaches sent or failed; a panicking sender marks its record failed
// rather than leaving it pending.
func (d *Dispatcher) Dispatch(ctx context.Context, batch UserBatch) Result {
	if len(batch.Jobs) == 0 {
		return Result{}
	}

	prefs, err := d.store.GetPreferences(ctx, batch.Alert.UserID)
	if err != nil {
		d.logger.Error("load notification preferences failed",
			"user_id", batch.Alert.UserID,
			"error", err,
		)
		return Result{}
	}

	var (
		mu  sync.Mutex
		res Result
		wg  sync.WaitGroup
	)
	record := func(sent bool) {
		mu.Lock()
		defer mu.Unlock()
		if sent {
			res.Sent++
		} else {
			res.Failed++
		}
	}

	for _, channel := range batch.Alert.Channels {
		n, send, ok := d.prepare(channel, batch, prefs)
		if !ok {
			continue
		}

		if err := d.store.CreateNotification(ctx, n); err != nil {
			d.logger.Error("create notification record failed",
				"channel", channel,
				"user_id", batch.Alert.UserID,
				"error", err,
			)
			continue
		}

		wg.Add(1)
		go func(channel model.Channel, n *model.Notification, send func(context.Context) error) {
			defer wg.Done()
			record(d.deliver(ctx, channel, n, send))
		}(channel, n, send)
	}
	wg.Wait()

	return res
}

// prepare renders the payload for one channel and returns the pending record
// plus the send closure. ok is false when the channel has no usable
// recipient or rendering fails.
func (d *Dispatcher) prepare(channel model.Channel, batch UserBatch, prefs model.NotificationPreferences) (*model.Notification, func(context.Context) error, bool) {
	n := &model.Notification{
		ID:        uuid.NewString(),
		Channel:   channel,
		UserID:    batch.Alert.UserID,
		Status:    model.NotificationPending,
		CreatedAt: time.Now(),
	}

	switch channel {
	case model.ChannelEmail:
		if prefs.Email == "" {
			d.logger.Warn("no email address on file, skipping channel", "user_id", batch.Alert.UserID)
			return nil, nil, false
		}
		subject, html, text, err := renderEmail(batch.Jobs)
		if err != nil {
			d.logger.Error("email render failed", "error", err)
			return nil, nil, false
		}
		n.Recipient = prefs.Email
		n.Subject = subject
		n.Body = html
		n.TextBody = text
		return n, func(ctx context.Context) error {
			return d.email.SendEmail(ctx, n.Recipient, n.Subject, n.Body, n.TextBody)
		}, true

	case model.ChannelPush:
		title, body, url := renderPush(batch.Jobs, d.baseURL)
		n.Recipient = batch.Alert.UserID
		n.Subject = title
		n.Body = body
		n.URL = url
		return n, func(ctx context.Context) error {
			return d.push.SendPush(ctx, n.Recipient, n.Subject, n.Body, n.URL)
		}, true

	case model.ChannelSMS:
		if prefs.Phone == "" {
			d.logger.Warn("no phone number on file, skipping channel", "user_id", batch.Alert.UserID)
			return nil, nil, false
		}
		n.Recipient = prefs.Phone
		n.Body = renderSMS(batch.Jobs)
		return n, func(ctx context.Context) error {
			return d.sms.SendSMS(ctx, n.Recipient, n.Body)
		}, true
	}

	d.logger.Warn("unknown notification channel", "channel", channel)
	return nil, nil, false
}

// deliver invokes send and records the terminal status. Returns true when
// the notification was sent.
func (d *Dispatcher) deliver(ctx context.Context, channel model.Channel, n *model.Notification, send func(context.Context) error) (sent bool) {
	var sendErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				sendErr = fmt.Errorf("sender panicked: %v", r)
			}
		}()
		sendErr = send(ctx)
	}()

	if sendErr != nil {
		d.logger.Error("notification send failed",
			"channel", channel,
			"recipient", n.Recipient,
			"error", sendErr,
		)
		if err := d.store.SetNotificationStatus(ctx, n, model.NotificationFailed, nil); err != nil {
			d.logger.Error("record failed status failed", "notification_id", n.ID, "error", err)
		}
		return false
	}

	now := time.Now()
	if err := d.store.SetNotificationStatus(ctx, n, model.NotificationSent, &now); err != nil {
		d.logger.Error("record sent status failed", "notification_id", n.ID, "error", err)
	}
	d.logger.Info("notification sent",
		"channel", channel,
		"recipient", n.Recipient,
		"notification_id", n.ID,
	)
	return true
}
