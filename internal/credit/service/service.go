package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/outreach/internal/credit/domain"
	signupdomain "github.com/smallbiznis/outreach/internal/signup/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo signupdomain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo signupdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("credit.service"),
		repo: p.Repo,
	}
}

func (s *Service) Lookup(ctx context.Context, email string) (domain.Account, error) {
	email = signupdomain.NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.Account{}, domain.ErrInvalidEmail
	}

	signup, err := s.repo.FindByEmail(ctx, s.db, email)
	if err != nil {
		return domain.Account{}, err
	}
	if signup == nil {
		return domain.Account{}, domain.ErrNotFound
	}

	referrals, err := s.repo.CountReferrals(ctx, s.db, signup.ReferralCode)
	if err != nil {
		return domain.Account{}, err
	}

	return domain.Account{
		Email:     signup.Email,
		FirstName: signup.GivenName(),
		Credits:   domain.Compute(referrals),
	}, nil
}
