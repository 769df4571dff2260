package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/outreach/internal/clock"
	"github.com/smallbiznis/outreach/internal/config"
	"github.com/smallbiznis/outreach/internal/forecast/domain"
	signupdomain "github.com/smallbiznis/outreach/internal/signup/domain"
	"github.com/smallbiznis/outreach/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Repo   signupdomain.Repository
	Clock  clock.Clock
	Config config.Config
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     signupdomain.Repository
	clock    clock.Clock
	target   int
	pageSize int
	location *time.Location
}

func New(p Params) (domain.Service, error) {
	loc, err := loadLocation(p.Config.Forecast.Timezone)
	if err != nil {
		return nil, fmt.Errorf("forecast timezone: %w", err)
	}
	target := p.Config.Forecast.Target
	if target <= 0 {
		target = domain.DefaultTarget
	}
	pageSize := p.Config.Forecast.PageSize
	if pageSize <= 0 {
		pageSize = 1000
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.System{}
	}

	return &Service{
		db:       p.DB,
		log:      p.Log.Named("forecast.service"),
		repo:     p.Repo,
		clock:    clk,
		target:   target,
		pageSize: pageSize,
		location: loc,
	}, nil
}

func (s *Service) Analyze(ctx context.Context) (domain.Projection, error) {
	activity, err := pagination.FetchAll(ctx, s.fetchPage, 0)
	if err != nil {
		return domain.Projection{}, err
	}

	timestamps := make([]time.Time, len(activity))
	for i, item := range activity {
		timestamps[i] = item.CreatedAt
	}

	projection := domain.Project(timestamps, s.target, s.clock.Now(), s.location)
	if projection.Total > 0 {
		projection.Sources = signupdomain.SourceBreakdown(activity)
	}

	s.log.Debug("forecast computed",
		zap.Int("total", projection.Total),
		zap.Int("target", projection.Target),
	)
	return projection, nil
}

func (s *Service) fetchPage(ctx context.Context, page int) (pagination.Page[signupdomain.Activity], error) {
	items, err := s.repo.ListActivity(ctx, s.db, page, s.pageSize)
	if err != nil {
		return pagination.Page[signupdomain.Activity]{}, err
	}
	out := pagination.Page[signupdomain.Activity]{Items: items}
	if page == 1 {
		count, err := s.repo.CountAll(ctx, s.db)
		if err != nil {
			return pagination.Page[signupdomain.Activity]{}, err
		}
		out.TotalPages = pagination.TotalPages(count, s.pageSize)
	}
	return out, nil
}

func loadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}
