package domain

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Stage is one outreach action a signup can receive.
type Stage string

const (
	StageInvite   Stage = "invite"
	StageFollowUp Stage = "follow_up"
)

func (s Stage) Valid() bool {
	return s == StageInvite || s == StageFollowUp
}

// Column is the stage marker column written once the stage is delivered and recorded.
func (s Stage) Column() string {
	switch s {
	case StageInvite:
		return "invite_sent_at"
	case StageFollowUp:
		return "follow_up_sent_at"
	default:
		return ""
	}
}

// StageState is the per-stage lifecycle. There is no transition back from StageSent.
type StageState string

const (
	StageNotSent StageState = "not_sent"
	StageSent    StageState = "sent"
)

// Signup is one waitlist entrant. Records are written by an external intake; this
// service only ever sets the stage markers.
type Signup struct {
	ID             int64             `gorm:"primaryKey" json:"id"`
	Email          string            `gorm:"column:email;not null;uniqueIndex" json:"email"`
	FirstName      *string           `gorm:"column:first_name" json:"first_name,omitempty"`
	LastName       *string           `gorm:"column:last_name" json:"last_name,omitempty"`
	ReferralCode   string            `gorm:"column:referral_code;uniqueIndex" json:"referral_code"`
	ReferredBy     *string           `gorm:"column:referred_by;index" json:"referred_by,omitempty"`
	UTMParameters  datatypes.JSONMap `gorm:"column:utm_parameters" json:"utm_parameters,omitempty"`
	InviteSentAt   *time.Time        `gorm:"column:invite_sent_at" json:"invite_sent_at,omitempty"`
	FollowUpSentAt *time.Time        `gorm:"column:follow_up_sent_at" json:"follow_up_sent_at,omitempty"`
	CreatedAt      time.Time         `gorm:"column:created_at;not null;index" json:"created_at"`
}

func (Signup) TableName() string { return "signups" }

// StageMarker returns the recorded send time for stage, or nil when not sent.
func (s *Signup) StageMarker(stage Stage) *time.Time {
	if s == nil {
		return nil
	}
	switch stage {
	case StageInvite:
		return s.InviteSentAt
	case StageFollowUp:
		return s.FollowUpSentAt
	default:
		return nil
	}
}

func (s *Signup) StageState(stage Stage) StageState {
	if s.StageMarker(stage) != nil {
		return StageSent
	}
	return StageNotSent
}

func (s *Signup) GivenName() string {
	if s == nil || s.FirstName == nil {
		return ""
	}
	return strings.TrimSpace(*s.FirstName)
}

// Activity is the slice of a signup the growth analysis needs.
type Activity struct {
	CreatedAt     time.Time         `gorm:"column:created_at"`
	UTMParameters datatypes.JSONMap `gorm:"column:utm_parameters"`
	ReferredBy    *string           `gorm:"column:referred_by"`
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
