package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aguntuk/jobora/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeNotificationStore records created notifications and status changes.
type fakeNotificationStore struct {
	mu      sync.Mutex
	records []*model.Notification
	prefs   model.NotificationPreferences
}

func (s *fakeNotificationStore) CreateNotification(_ context.Context, n *model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, n)
	return nil
}

func (s *fakeNotificationStore) SetNotificationStatus(_ context.Context, n *model.Notification, status model.NotificationStatus, sentAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.Status = status
	n.SentAt = sentAt
	return nil
}

func (s *fakeNotificationStore) GetPreferences(_ context.Context, userID string) (model.NotificationPreferences, error) {
	p := s.prefs
	p.UserID = userID
	return p, nil
}

// fakeSenders implements all three channels with scripted errors.
type fakeSenders struct {
	mu       sync.Mutex
	emails   int
	pushes   int
	texts    int
	emailErr error
	pushErr  error
	smsPanic bool
}

func (f *fakeSenders) SendEmail(_ context.Context, _, _, _, _ string) error {
	f.mu.Lock()
	f.emails++
	f.mu.Unlock()
	return f.emailErr
}

func (f *fakeSenders) SendPush(_ context.Context, _, _, _, _ string) error {
	f.mu.Lock()
	f.pushes++
	f.mu.Unlock()
	return f.pushErr
}

func (f *fakeSenders) SendSMS(_ context.Context, _, _ string) error {
	f.mu.Lock()
	f.texts++
	f.mu.Unlock()
	if f.smsPanic {
		panic("sms transport exploded")
	}
	return nil
}

func testBatch(channels ...model.Channel) UserBatch {
	jobMin := 60000.0
	return UserBatch{
		Alert: model.AlertSubscription{
			ID:       "a1",
			UserID:   "u1",
			Channels: channels,
		},
		Jobs: []MatchedJob{
			{
				Job: model.JobRecord{
					ID:        "j1",
					Title:     "Senior Go Engineer",
					Company:   "Acme",
					Location:  "Berlin",
					SourceURL: "https://example.com/jobs/1",
					Salary:    model.Salary{Min: &jobMin},
				},
				Score:    0.8,
				Keywords: []string{"go"},
			},
		},
	}
}

func newTestDispatcher(store *fakeNotificationStore, senders *fakeSenders) *Dispatcher {
	return NewDispatcher(store, senders, senders, senders, "https://jobora.example", discardLogger())
}

func TestDispatch_AllChannelsSent(t *testing.T) {
	store := &fakeNotificationStore{prefs: model.NotificationPreferences{Email: "u@example.com", Phone: "+123"}}
	senders := &fakeSenders{}
	d := newTestDispatcher(store, senders)

	res := d.Dispatch(context.Background(), testBatch(model.ChannelEmail, model.ChannelPush, model.ChannelSMS))
	if res.Sent != 3 || res.Failed != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if senders.emails != 1 || senders.pushes != 1 || senders.texts != 1 {
		t.Fatalf("unexpected send counts: %+v", senders)
	}
	if len(store.records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(store.records))
	}
	for _, n := range store.records {
		if n.Status != model.NotificationSent {
			t.Errorf("record %s on %s not sent: %s", n.ID, n.Channel, n.Status)
		}
		if n.SentAt == nil {
			t.Errorf("record %s missing sent_at", n.ID)
		}
	}
}

func TestDispatch_FailedSendReachesTerminalState(t *testing.T) {
	store := &fakeNotificationStore{prefs: model.NotificationPreferences{Email: "u@example.com"}}
	senders := &fakeSenders{emailErr: errors.New("smtp down")}
	d := newTestDispatcher(store, senders)

	res := d.Dispatch(context.Background(), testBatch(model.ChannelEmail))
	if res.Sent != 0 || res.Failed != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	n := store.records[0]
	if n.Status != model.NotificationFailed {
		t.Fatalf("expected failed status, got %s", n.Status)
	}
	if n.SentAt != nil {
		t.Fatal("failed record must not carry sent_at")
	}
}

func TestDispatch_PanickingSenderStillRecordsFailure(t *testing.T) {
	store := &fakeNotificationStore{prefs: model.NotificationPreferences{Phone: "+123"}}
	senders := &fakeSenders{smsPanic: true}
	d := newTestDispatcher(store, senders)

	res := d.Dispatch(context.Background(), testBatch(model.ChannelSMS))
	if res.Failed != 1 {
		t.Fatalf("expected 1 failure, got %+v", res)
	}
	if store.records[0].Status != model.NotificationFailed {
		t.Fatalf("panicking sender left record in %s", store.records[0].Status)
	}
}

func TestDispatch_SkipsChannelsWithoutRecipient(t *testing.T) {
	store := &fakeNotificationStore{} // no email, no phone
	senders := &fakeSenders{}
	d := newTestDispatcher(store, senders)

	res := d.Dispatch(context.Background(), testBatch(model.ChannelEmail, model.ChannelSMS, model.ChannelPush))
	// Push needs only the user id; email and sms are skipped entirely.
	if res.Sent != 1 {
		t.Fatalf("expected only push to send, got %+v", res)
	}
	if len(store.records) != 1 || store.records[0].Channel != model.ChannelPush {
		t.Fatalf("unexpected records: %d", len(store.records))
	}
}

func TestDispatch_EmptyBatchIsNoop(t *testing.T) {
	store := &fakeNotificationStore{}
	d := newTestDispatcher(store, &fakeSenders{})
	res := d.Dispatch(context.Background(), UserBatch{Alert: model.AlertSubscription{Channels: []model.Channel{model.ChannelEmail}}})
	if res.Sent != 0 || res.Failed != 0 || len(store.records) != 0 {
		t.Fatalf("expected noop, got %+v", res)
	}
}

func TestRenderEmail_ListsJobsWithScoresAndKeywords(t *testing.T) {
	batch := testBatch(model.ChannelEmail)
	subject, html, text, err := renderEmail(batch.Jobs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subject != "1 new job match" {
		t.Errorf("unexpected subject: %q", subject)
	}
	for _, body := range []string{html, text} {
		if !strings.Contains(body, "Senior Go Engineer") || !strings.Contains(body, "Acme") {
			t.Errorf("body missing job details: %q", body)
		}
		if !strings.Contains(body, "80%") {
			t.Errorf("body missing score: %q", body)
		}
		if !strings.Contains(body, "go") {
			t.Errorf("body missing matched keywords: %q", body)
		}
	}
}

func TestRenderPush_SingleAndBatch(t *testing.T) {
	batch := testBatch(model.ChannelPush)
	_, body, url := renderPush(batch.Jobs, "https://jobora.example")
	if !strings.Contains(body, "Senior Go Engineer") {
		t.Errorf("unexpected body: %q", body)
	}
	if url != "https://example.com/jobs/1" {
		t.Errorf("expected deep link to the job, got %q", url)
	}

	jobs := append(batch.Jobs, batch.Jobs[0])
	_, _, url = renderPush(jobs, "https://jobora.example")
	if url != "https://jobora.example/matches" {
		t.Errorf("expected matches page link, got %q", url)
	}
}

func TestRenderSMS_StaysShort(t *testing.T) {
	batch := testBatch(model.ChannelSMS)
	batch.Jobs[0].Job.Title = strings.Repeat("Very Long Title ", 20)
	msg := renderSMS(batch.Jobs)
	if len(msg) > 160 {
		t.Fatalf("sms too long: %d chars", len(msg))
	}
}
