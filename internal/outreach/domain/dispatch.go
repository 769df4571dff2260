package domain

import (
	"context"
	"errors"

	signupdomain "github.com/smallbiznis/outreach/internal/signup/domain"
)

// Status is the terminal outcome of one batch item.
type Status string

const (
	StatusSent        Status = "sent"
	StatusAlreadySent Status = "already_sent"
	StatusError       Status = "error"
)

// Result is reported once per requested id, in request order.
type Result struct {
	ID     int64  `json:"id"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

type DispatchRequest struct {
	IDs   []int64
	Stage signupdomain.Stage

	// Subject and HTMLTemplate replace the configured copy when set.
	Subject      string
	HTMLTemplate string
}

type DispatchReport struct {
	BatchID string   `json:"batch_id"`
	Stage   string   `json:"stage"`
	Results []Result `json:"results"`
}

// Counts tallies the report by status.
func (r DispatchReport) Counts() map[Status]int {
	out := make(map[Status]int, 3)
	for _, res := range r.Results {
		out[res.Status]++
	}
	return out
}

type Preview struct {
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

type Service interface {
	Dispatch(ctx context.Context, req DispatchRequest) (DispatchReport, error)
	Preview(ctx context.Context, id int64, stage signupdomain.Stage) (Preview, error)
}

var (
	ErrEmptyBatch      = errors.New("ids[] is required")
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidTemplate = errors.New("invalid_template")
	// ErrOverrideNotAllowed rejects custom copy for stages with fixed copy.
	ErrOverrideNotAllowed = errors.New("custom copy is only supported for follow_up")
	ErrNotFound           = errors.New("not_found")
)
