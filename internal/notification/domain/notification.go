package domain

import (
	"context"
	"errors"
)

// Payload is the intake webhook body sent when a signup row is inserted.
type Payload struct {
	Type   string  `json:"type"`
	Table  string  `json:"table"`
	Schema string  `json:"schema,omitempty"`
	Record *Record `json:"record"`
}

type Record struct {
	CreatedAt   string        `json:"created_at"`
	JSONPayload SignupPayload `json:"json_payload"`
}

type SignupPayload struct {
	Email        string `json:"email"`
	ReferredBy   string `json:"referredBy"`
	EarlyAccess  bool   `json:"earlyAccess"`
	ReferralCode string `json:"referralCode"`
}

// Summary is the operator-facing view of a new signup, with placeholders filled in.
type Summary struct {
	Email        string
	ReferredBy   string
	EarlyAccess  string
	ReferralCode string
	SignedUp     string
}

type Service interface {
	NotifyNewSignup(ctx context.Context, payload Payload) error
}

var (
	ErrMissingRecord = errors.New("No record in payload")
	ErrNoRecipient   = errors.New("notification recipient not configured")
	ErrDelivery      = errors.New("notification_delivery_failed")
)
