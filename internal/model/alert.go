package model

import (
	"context"
	"time"
)

// Frequency controls how often an alert's matches are dispatched.
type Frequency string

const (
	FrequencyInstant Frequency = "instant"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
)

// Channel is a notification delivery channel.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
	ChannelSMS   Channel = "sms"
)

// AlertSubscription is a user's saved search criteria. It is owned and
// mutated by the user-facing application; this subsystem only reads it.
// Empty criteria slices mean "no constraint on that factor". IsRemote is
// tri-state: nil means the user did not express a preference.
type AlertSubscription struct {
	ID               string
	UserID           string
	Keywords         []string
	Locations        []string
	JobTypes         []JobType
	ExperienceLevels []ExperienceLevel
	SalaryMin        *float64
	SalaryMax        *float64
	Categories       []string
	IsRemote         *bool
	Frequency        Frequency
	IsActive         bool
	Channels         []Channel
}

// WantsChannel reports whether the alert has the given channel enabled.
func (a AlertSubscription) WantsChannel(c Channel) bool {
	for _, ch := range a.Channels {
		if ch == c {
			return true
		}
	}
	return false
}

// AlertMatch is a scored pairing of one alert and one job. At most one match
// exists per (alert, job) pair; recomputation overwrites it.
type AlertMatch struct {
	AlertID         string
	JobID           string
	Score           float64
	MatchedKeywords []string
	SentAt          *time.Time // nil until the match has been dispatched
}

// AlertStore reads alert subscriptions.
type AlertStore interface {
	ListActiveAlerts(ctx context.Context) ([]AlertSubscription, error)
}

// MatchStore persists alert matches.
type MatchStore interface {
	UpsertMatch(ctx context.Context, m AlertMatch) error
	// ListUnsentMatches returns matches with no sent_at for alerts of the
	// given frequency, in no particular grouping; callers batch.
	ListUnsentMatches(ctx context.Context, freq Frequency) ([]AlertMatch, error)
	MarkMatchSent(ctx context.Context, alertID, jobID string, at time.Time) error
}
