package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/outreach/internal/signup/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const signupColumns = `id, email, first_name, last_name, referral_code, referred_by,
	utm_parameters, invite_sent_at, follow_up_sent_at, created_at`

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Signup, error) {
	var signup domain.Signup
	err := db.WithContext(ctx).Raw(
		`SELECT `+signupColumns+` FROM signups WHERE id = ?`,
		id,
	).Scan(&signup).Error
	if err != nil {
		return nil, err
	}
	if signup.ID == 0 {
		return nil, nil
	}
	return &signup, nil
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Signup, error) {
	var signup domain.Signup
	err := db.WithContext(ctx).Raw(
		`SELECT `+signupColumns+` FROM signups WHERE LOWER(email) = ? LIMIT 1`,
		domain.NormalizeEmail(email),
	).Scan(&signup).Error
	if err != nil {
		return nil, err
	}
	if signup.ID == 0 {
		return nil, nil
	}
	return &signup, nil
}

func (r *repo) CountReferrals(ctx context.Context, db *gorm.DB, referralCode string) (int64, error) {
	if referralCode == "" {
		return 0, nil
	}
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM signups WHERE referred_by = ?`,
		referralCode,
	).Scan(&count).Error
	return count, err
}

func (r *repo) CountAll(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(`SELECT COUNT(*) FROM signups`).Scan(&count).Error
	return count, err
}

func (r *repo) ListActivity(ctx context.Context, db *gorm.DB, page, pageSize int) ([]domain.Activity, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1000
	}
	var items []domain.Activity
	err := db.WithContext(ctx).Raw(
		`SELECT created_at, utm_parameters, referred_by
		 FROM signups
		 ORDER BY created_at ASC, id ASC
		 LIMIT ? OFFSET ?`,
		pageSize,
		(page-1)*pageSize,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) MarkStageSent(ctx context.Context, db *gorm.DB, id int64, stage domain.Stage, at time.Time) (int64, error) {
	column := stage.Column()
	if column == "" {
		return 0, domain.ErrInvalidStage
	}
	res := db.WithContext(ctx).Exec(
		`UPDATE signups SET `+column+` = ? WHERE id = ? AND `+column+` IS NULL`,
		at,
		id,
	)
	return res.RowsAffected, res.Error
}
