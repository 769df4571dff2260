// Package guard decides whether an outreach stage may be dispatched to a signup.
// It only reads the record; the conditional write in the repository is what makes
// a second delivery impossible once a marker is recorded.
package guard

import (
	"errors"

	"github.com/smallbiznis/outreach/internal/signup/domain"
)

var (
	ErrNotFound      = errors.New("Not found")
	ErrAlreadySent   = errors.New("already_sent")
	ErrInviteMissing = errors.New("Invite not sent")
)

type Policy struct {
	RequireInviteForFollowUp bool
}

// Check returns nil when stage may be sent to rec.
func Check(rec *domain.Signup, stage domain.Stage, policy Policy) error {
	if !stage.Valid() {
		return domain.ErrInvalidStage
	}
	if rec == nil {
		return ErrNotFound
	}
	if rec.StageState(stage) == domain.StageSent {
		return ErrAlreadySent
	}
	if stage == domain.StageFollowUp && policy.RequireInviteForFollowUp &&
		rec.StageState(domain.StageInvite) != domain.StageSent {
		return ErrInviteMissing
	}
	return nil
}

func IsAlreadySent(err error) bool {
	return errors.Is(err, ErrAlreadySent)
}
