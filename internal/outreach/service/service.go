package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/outreach/internal/clock"
	"github.com/smallbiznis/outreach/internal/config"
	creditdomain "github.com/smallbiznis/outreach/internal/credit/domain"
	"github.com/smallbiznis/outreach/internal/observability/metrics"
	"github.com/smallbiznis/outreach/internal/outreach/domain"
	"github.com/smallbiznis/outreach/internal/outreach/render"
	"github.com/smallbiznis/outreach/internal/providers/email"
	"github.com/smallbiznis/outreach/internal/ratelimit"
	signupdomain "github.com/smallbiznis/outreach/internal/signup/domain"
	"github.com/smallbiznis/outreach/internal/signup/guard"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Repo     signupdomain.Repository
	Provider email.Provider
	Renderer *render.Renderer
	Pacer    *ratelimit.Pacer
	Settings *config.OutreachHolder
	Config   config.Config
	Clock    clock.Clock
	GenID    *snowflake.Node

	Locker  *ratelimit.Locker        `optional:"true"`
	Metrics *metrics.OutreachMetrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     signupdomain.Repository
	provider email.Provider
	renderer *render.Renderer
	pacer    *ratelimit.Pacer
	locker   *ratelimit.Locker
	settings *config.OutreachHolder
	emailCfg config.EmailConfig
	clock    clock.Clock
	genID    *snowflake.Node
	metrics  *metrics.OutreachMetrics
	tracer   trace.Tracer
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("outreach.service"),
		repo:     p.Repo,
		provider: p.Provider,
		renderer: p.Renderer,
		pacer:    p.Pacer,
		locker:   p.Locker,
		settings: p.Settings,
		emailCfg: p.Config.Email,
		clock:    clk,
		genID:    p.GenID,
		metrics:  p.Metrics,
		tracer:   otel.Tracer("outreach/dispatch"),
	}
}

// batch is the state shared by every item of one Dispatch call.
type batch struct {
	id        string
	stage     signupdomain.Stage
	settings  config.OutreachSettings
	policy    guard.Policy
	overrides render.Overrides
}

// Dispatch runs every id through guard, send and record, in order. Only an
// invalid request is returned as an error; item failures land in the report.
func (s *Service) Dispatch(ctx context.Context, req domain.DispatchRequest) (domain.DispatchReport, error) {
	b, err := s.prepare(req)
	if err != nil {
		return domain.DispatchReport{}, err
	}

	// a client hanging up must not leave half a batch unprocessed
	ctx = context.WithoutCancel(ctx)
	ctx, span := s.tracer.Start(ctx, "outreach.dispatch", trace.WithAttributes(
		attribute.String("outreach.batch_id", b.id),
		attribute.String("outreach.stage", string(b.stage)),
		attribute.Int("outreach.batch_size", len(req.IDs)),
	))
	defer span.End()

	log := s.log.With(
		zap.String("batch_id", b.id),
		zap.String("stage", string(b.stage)),
	)
	log.Info("dispatch started", zap.Int("items", len(req.IDs)))
	s.metrics.ObserveBatch(string(b.stage))

	report := domain.DispatchReport{
		BatchID: b.id,
		Stage:   string(b.stage),
		Results: make([]domain.Result, 0, len(req.IDs)),
	}
	for _, id := range req.IDs {
		result := s.dispatchOne(ctx, b, id, log)
		report.Results = append(report.Results, result)
		s.metrics.ObserveItem(string(b.stage), string(result.Status))

		if s.pacer != nil {
			_ = s.pacer.Wait(ctx, b.stage)
		}
	}

	counts := report.Counts()
	log.Info("dispatch finished",
		zap.Int("sent", counts[domain.StatusSent]),
		zap.Int("already_sent", counts[domain.StatusAlreadySent]),
		zap.Int("failed", counts[domain.StatusError]),
	)
	if counts[domain.StatusError] > 0 {
		span.SetStatus(codes.Error, "batch has failed items")
	}
	return report, nil
}

func (s *Service) prepare(req domain.DispatchRequest) (batch, error) {
	if len(req.IDs) == 0 {
		return batch{}, domain.ErrEmptyBatch
	}
	if !req.Stage.Valid() {
		return batch{}, signupdomain.ErrInvalidStage
	}

	b := batch{
		id:       s.nextBatchID(),
		stage:    req.Stage,
		settings: s.settings.Get(),
	}
	b.policy = guard.Policy{RequireInviteForFollowUp: b.settings.RequireInviteForFollowUp}

	hasOverrides := strings.TrimSpace(req.Subject) != "" || strings.TrimSpace(req.HTMLTemplate) != ""
	if hasOverrides && b.stage != signupdomain.StageFollowUp {
		return batch{}, domain.ErrOverrideNotAllowed
	}

	if subject := strings.TrimSpace(req.Subject); subject != "" {
		if err := render.ValidateSubject(subject); err != nil {
			return batch{}, fmt.Errorf("%w: subject: %v", domain.ErrInvalidTemplate, err)
		}
		b.overrides.Subject = subject
	}
	if strings.TrimSpace(req.HTMLTemplate) != "" {
		body, err := s.renderer.ParseBody(req.HTMLTemplate)
		if err != nil {
			return batch{}, fmt.Errorf("%w: %v", domain.ErrInvalidTemplate, err)
		}
		b.overrides.Body = body
	}
	return b, nil
}

func (s *Service) dispatchOne(ctx context.Context, b batch, id int64, log *zap.Logger) domain.Result {
	ctx, span := s.tracer.Start(ctx, "outreach.dispatch_item", trace.WithAttributes(
		attribute.Int64("signup.id", id),
		attribute.String("outreach.stage", string(b.stage)),
	))
	defer span.End()

	log = log.With(zap.Int64("signup_id", id))
	result := s.process(ctx, b, id, log)

	span.SetAttributes(attribute.String("outreach.status", string(result.Status)))
	if result.Status == domain.StatusError {
		span.SetStatus(codes.Error, result.Error)
	}
	return result
}

func (s *Service) process(ctx context.Context, b batch, id int64, log *zap.Logger) domain.Result {
	fail := func(msg string) domain.Result {
		return domain.Result{ID: id, Status: domain.StatusError, Error: msg}
	}

	if id <= 0 {
		return fail(guard.ErrNotFound.Error())
	}

	rec, result, ok := s.eligible(ctx, b, id, log)
	if !ok {
		return result
	}

	release, err := s.locker.AcquireDispatch(ctx, b.stage, id)
	switch {
	case errors.Is(err, ratelimit.ErrLockHeld):
		return fail(err.Error())
	case err != nil:
		// the conditional write still guards the marker
		log.Warn("dispatch lock unavailable", zap.Error(err))
		release = func() {}
	case s.locker != nil:
		// another process may have sent between the first read and the lock
		if rec, result, ok = s.eligible(ctx, b, id, log); !ok {
			release()
			return result
		}
	}
	defer release()

	content, err := s.render(ctx, b, rec)
	if err != nil {
		log.Warn("failed to render email", zap.Error(err))
		return fail(err.Error())
	}

	start := time.Now()
	receipt, err := s.provider.Send(ctx, email.Message{
		From:    s.emailCfg.From,
		ReplyTo: s.emailCfg.ReplyTo,
		To:      []string{rec.Email},
		Subject: content.Subject,
		HTML:    content.HTML,
	})
	s.metrics.ObserveSend(string(b.stage), time.Since(start))
	if err == nil && strings.TrimSpace(receipt.MessageID) == "" {
		err = email.ErrNoMessageID
	}
	if err != nil {
		log.Warn("email send failed", zap.Error(err))
		return fail(err.Error())
	}

	rows, err := s.repo.MarkStageSent(ctx, s.db, id, b.stage, s.clock.Now().UTC())
	if err != nil || rows == 0 {
		s.metrics.ObserveRecordingFailure(string(b.stage))
		msg := recordingFailure(b.stage, err)
		log.Error("email delivered but stage not recorded",
			zap.String("message_id", receipt.MessageID),
			zap.String("detail", msg),
		)
		return fail(msg)
	}

	log.Debug("email sent", zap.String("message_id", receipt.MessageID))
	return domain.Result{ID: id, Status: domain.StatusSent}
}

// eligible loads the signup and runs the guard. ok is false when result is final.
func (s *Service) eligible(ctx context.Context, b batch, id int64, log *zap.Logger) (*signupdomain.Signup, domain.Result, bool) {
	rec, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		log.Warn("failed to load signup", zap.Error(err))
		return nil, domain.Result{ID: id, Status: domain.StatusError, Error: err.Error()}, false
	}
	if err := guard.Check(rec, b.stage, b.policy); err != nil {
		if guard.IsAlreadySent(err) {
			return nil, domain.Result{ID: id, Status: domain.StatusAlreadySent}, false
		}
		return nil, domain.Result{ID: id, Status: domain.StatusError, Error: err.Error()}, false
	}
	return rec, domain.Result{}, true
}

// recordingFailure describes a delivered email whose marker was not written.
func recordingFailure(stage signupdomain.Stage, err error) string {
	if err != nil {
		return fmt.Sprintf("Email sent but not recorded: %v", err)
	}
	return fmt.Sprintf("Email sent but not recorded: %s update affected 0 rows", stage.Column())
}

func (s *Service) render(ctx context.Context, b batch, rec *signupdomain.Signup) (render.Content, error) {
	vars := render.Vars{FirstName: rec.GivenName(), Credits: creditdomain.GiftFloor}
	if b.stage == signupdomain.StageInvite {
		referrals, err := s.repo.CountReferrals(ctx, s.db, rec.ReferralCode)
		if err != nil {
			return render.Content{}, err
		}
		vars.ReferralCount = referrals
		vars.Credits = creditdomain.Compute(referrals).Total
	}
	return s.renderer.Render(b.stage, b.settings, vars, b.overrides)
}

// Preview renders a stage exactly as Dispatch would, without sending or recording.
func (s *Service) Preview(ctx context.Context, id int64, stage signupdomain.Stage) (domain.Preview, error) {
	if id <= 0 {
		return domain.Preview{}, domain.ErrInvalidID
	}
	if !stage.Valid() {
		return domain.Preview{}, signupdomain.ErrInvalidStage
	}

	rec, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Preview{}, err
	}
	if rec == nil {
		return domain.Preview{}, domain.ErrNotFound
	}

	b := batch{stage: stage, settings: s.settings.Get()}
	content, err := s.render(ctx, b, rec)
	if err != nil {
		return domain.Preview{}, err
	}
	return domain.Preview{Subject: content.Subject, HTML: content.HTML}, nil
}

func (s *Service) nextBatchID() string {
	if s.genID == nil {
		return fmt.Sprintf("%d", s.clock.Now().UnixNano())
	}
	return s.genID.Generate().String()
}
