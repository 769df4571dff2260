package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

//go:generate mockgen -source=repository.go -destination=../mocks/mock_repository.go -package=mocks

// Repository is the store adapter over signup records. Lookups return (nil, nil) when
// the record does not exist.
type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Signup, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*Signup, error)
	CountReferrals(ctx context.Context, db *gorm.DB, referralCode string) (int64, error)
	CountAll(ctx context.Context, db *gorm.DB) (int64, error)
	ListActivity(ctx context.Context, db *gorm.DB, page, pageSize int) ([]Activity, error)

	// MarkStageSent sets the stage marker only if it is still unset and reports the
	// number of rows changed. Zero rows is not an error.
	MarkStageSent(ctx context.Context, db *gorm.DB, id int64, stage Stage, at time.Time) (int64, error)
}

var ErrInvalidStage = errors.New("invalid_stage")
