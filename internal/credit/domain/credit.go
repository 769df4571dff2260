package domain

import (
	"context"
	"errors"
)

const (
	SignupBonus       = 500
	PerReferralCredit = 500
	// GiftFloor is the minimum balance every signup starts with.
	GiftFloor = 1750
)

// Breakdown is derived from the live referral count on every request and is never stored.
type Breakdown struct {
	Total         int64 `json:"total"`
	Earned        int64 `json:"earned"`
	ReferralCount int64 `json:"referrals"`
	SignupBonus   int64 `json:"-"`
	ReferralBonus int64 `json:"-"`
	GiftBonus     int64 `json:"-"`
}

// Compute returns the credit breakdown for a signup with referralCount direct referrals.
// Total always equals SignupBonus + ReferralBonus + GiftBonus.
func Compute(referralCount int64) Breakdown {
	if referralCount < 0 {
		referralCount = 0
	}
	referralBonus := referralCount * PerReferralCredit
	earned := SignupBonus + referralBonus
	gift := max(0, GiftFloor-earned)

	return Breakdown{
		Total:         max(GiftFloor, earned),
		Earned:        earned,
		ReferralCount: referralCount,
		SignupBonus:   SignupBonus,
		ReferralBonus: referralBonus,
		GiftBonus:     gift,
	}
}

type Account struct {
	Email     string
	FirstName string
	Credits   Breakdown
}

type Service interface {
	Lookup(ctx context.Context, email string) (Account, error)
}

var (
	ErrInvalidEmail = errors.New("invalid_email")
	ErrNotFound     = errors.New("not_found")
)
