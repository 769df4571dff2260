package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang/mock/gomock"
	"github.com/smallbiznis/outreach/internal/clock"
	"github.com/smallbiznis/outreach/internal/config"
	"github.com/smallbiznis/outreach/internal/outreach/domain"
	"github.com/smallbiznis/outreach/internal/outreach/render"
	"github.com/smallbiznis/outreach/internal/providers/email"
	"github.com/smallbiznis/outreach/internal/ratelimit"
	signupdomain "github.com/smallbiznis/outreach/internal/signup/domain"
	"github.com/smallbiznis/outreach/internal/signup/mocks"
	"github.com/smallbiznis/outreach/internal/signup/repository"
	"github.com/smallbiznis/outreach/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2025, 6, 15, 15, 0, 0, 0, time.UTC)

type fakeProvider struct {
	mu   sync.Mutex
	sent []email.Message
	fail map[string]error
	noID map[string]bool
}

func (p *fakeProvider) Send(ctx context.Context, msg email.Message) (email.Receipt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	to := msg.To[0]
	if err := p.fail[to]; err != nil {
		return email.Receipt{}, err
	}
	p.sent = append(p.sent, msg)
	if p.noID[to] {
		return email.Receipt{}, nil
	}
	return email.Receipt{MessageID: "msg-" + to}, nil
}

func (p *fakeProvider) recipients() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.sent))
	for _, m := range p.sent {
		out = append(out, m.To[0])
	}
	return out
}

type fixture struct {
	conn     *gorm.DB
	provider *fakeProvider
	clock    *clock.FakeClock
	settings config.OutreachSettings
	repo     signupdomain.Repository
	locker   *ratelimit.Locker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&signupdomain.Signup{}))
	return &fixture{
		conn:     conn,
		provider: &fakeProvider{fail: map[string]error{}, noID: map[string]bool{}},
		clock:    clock.NewFakeClock(testNow),
		settings: config.DefaultOutreachSettings(),
		repo:     repository.Provide(),
	}
}

func (f *fixture) service(t *testing.T) domain.Service {
	t.Helper()
	renderer, err := render.New()
	require.NoError(t, err)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	holder := config.NewStaticOutreachHolder(f.settings)

	return New(Params{
		DB:       f.conn,
		Log:      zap.NewNop(),
		Repo:     f.repo,
		Provider: f.provider,
		Renderer: renderer,
		Pacer:    ratelimit.NewPacer(holder, f.clock),
		Settings: holder,
		Config: config.Config{Email: config.EmailConfig{
			From:    "Pixel <hello@getpixel.ai>",
			ReplyTo: "support@getpixel.ai",
		}},
		Clock:  f.clock,
		GenID:  node,
		Locker: f.locker,
	})
}

func strPtr(v string) *string { return &v }

func (f *fixture) seed(t *testing.T, rows ...signupdomain.Signup) {
	t.Helper()
	for i := range rows {
		if rows[i].CreatedAt.IsZero() {
			rows[i].CreatedAt = testNow.Add(-48 * time.Hour)
		}
		require.NoError(t, f.conn.Create(&rows[i]).Error)
	}
}

func (f *fixture) load(t *testing.T, id int64) *signupdomain.Signup {
	t.Helper()
	rec, err := f.repo.FindByID(context.Background(), f.conn, id)
	require.NoError(t, err)
	require.NotNil(t, rec)
	return rec
}

func TestDispatchInviteReportsEveryIDInOrder(t *testing.T) {
	f := newFixture(t)
	invited := testNow.Add(-time.Hour)
	f.seed(t,
		signupdomain.Signup{ID: 1, Email: "a@example.com", ReferralCode: "a", FirstName: strPtr("Ana")},
		signupdomain.Signup{ID: 2, Email: "b@example.com", ReferralCode: "b", InviteSentAt: &invited},
		signupdomain.Signup{ID: 3, Email: "c@example.com", ReferralCode: "c"},
	)
	f.provider.fail["c@example.com"] = errors.New("mailbox unavailable")
	svc := f.service(t)

	report, err := svc.Dispatch(context.Background(), domain.DispatchRequest{
		IDs:   []int64{3, 99, 2, 1},
		Stage: signupdomain.StageInvite,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, report.BatchID)
	assert.Equal(t, []domain.Result{
		{ID: 3, Status: domain.StatusError, Error: "mailbox unavailable"},
		{ID: 99, Status: domain.StatusError, Error: "Not found"},
		{ID: 2, Status: domain.StatusAlreadySent},
		{ID: 1, Status: domain.StatusSent},
	}, report.Results)

	assert.Equal(t, []string{"a@example.com"}, f.provider.recipients())
	assert.Nil(t, f.load(t, 3).InviteSentAt)
	got := f.load(t, 1).InviteSentAt
	require.NotNil(t, got)
	assert.True(t, got.Equal(testNow))
}

func TestDispatchRerunYieldsAlreadySent(t *testing.T) {
	f := newFixture(t)
	f.seed(t, signupdomain.Signup{ID: 1, Email: "a@example.com", ReferralCode: "a"})
	svc := f.service(t)
	req := domain.DispatchRequest{IDs: []int64{1, 1}, Stage: signupdomain.StageInvite}

	first, err := svc.Dispatch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSent, first.Results[0].Status)
	assert.Equal(t, domain.StatusAlreadySent, first.Results[1].Status)

	second, err := svc.Dispatch(context.Background(), req)
	require.NoError(t, err)
	for _, r := range second.Results {
		assert.Equal(t, domain.StatusAlreadySent, r.Status)
	}
	assert.Len(t, f.provider.recipients(), 1)
	assert.NotEqual(t, first.BatchID, second.BatchID)
}

func TestDispatchInviteCarriesReferralCredits(t *testing.T) {
	f := newFixture(t)
	f.seed(t,
		signupdomain.Signup{ID: 1, Email: "a@example.com", ReferralCode: "ana", FirstName: strPtr("Ana")},
		signupdomain.Signup{ID: 2, Email: "b@example.com", ReferralCode: "b", ReferredBy: strPtr("ana")},
		signupdomain.Signup{ID: 3, Email: "c@example.com", ReferralCode: "c", ReferredBy: strPtr("ana")},
		signupdomain.Signup{ID: 4, Email: "d@example.com", ReferralCode: "d", ReferredBy: strPtr("ana")},
	)
	svc := f.service(t)

	_, err := svc.Dispatch(context.Background(), domain.DispatchRequest{IDs: []int64{1}, Stage: signupdomain.StageInvite})
	require.NoError(t, err)

	require.Len(t, f.provider.sent, 1)
	msg := f.provider.sent[0]
	assert.Equal(t, "Pixel <hello@getpixel.ai>", msg.From)
	assert.Equal(t, "support@getpixel.ai", msg.ReplyTo)
	assert.Contains(t, msg.Subject, "2,000 credits")
	assert.Contains(t, msg.HTML, "Hey Ana, welcome")
	assert.Contains(t, msg.HTML, "Thanks for referring 3 people")
}

func TestDispatchRecordingFailure(t *testing.T) {
	f := newFixture(t)
	f.seed(t,
		signupdomain.Signup{ID: 1, Email: "a@example.com", ReferralCode: "a"},
		signupdomain.Signup{ID: 2, Email: "b@example.com", ReferralCode: "b"},
	)
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().FindByID(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(f.repo.FindByID).Times(2)
	repo.EXPECT().CountReferrals(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(0), nil).Times(2)
	repo.EXPECT().MarkStageSent(gomock.Any(), gomock.Any(), int64(1), signupdomain.StageInvite, gomock.Any()).Return(int64(0), nil)
	repo.EXPECT().MarkStageSent(gomock.Any(), gomock.Any(), int64(2), signupdomain.StageInvite, gomock.Any()).Return(int64(0), errors.New("connection reset"))
	f.repo = repo
	svc := f.service(t)

	report, err := svc.Dispatch(context.Background(), domain.DispatchRequest{IDs: []int64{1, 2}, Stage: signupdomain.StageInvite})
	require.NoError(t, err)

	require.Len(t, report.Results, 2)
	for _, r := range report.Results {
		assert.Equal(t, domain.StatusError, r.Status)
		assert.Contains(t, r.Error, "sent but not recorded")
	}
	assert.Contains(t, report.Results[0].Error, "invite_sent_at")
	assert.Contains(t, report.Results[1].Error, "connection reset")
	assert.Len(t, f.provider.recipients(), 2)
}

func TestDispatchMissingMessageIDIsFailure(t *testing.T) {
	f := newFixture(t)
	f.seed(t, signupdomain.Signup{ID: 1, Email: "a@example.com", ReferralCode: "a"})
	f.provider.noID["a@example.com"] = true
	svc := f.service(t)

	report, err := svc.Dispatch(context.Background(), domain.DispatchRequest{IDs: []int64{1}, Stage: signupdomain.StageInvite})
	require.NoError(t, err)
	assert.Equal(t, domain.Result{ID: 1, Status: domain.StatusError, Error: email.ErrNoMessageID.Error()}, report.Results[0])
	assert.Nil(t, f.load(t, 1).InviteSentAt)
}

func TestDispatchFollowUpRequiresInvite(t *testing.T) {
	f := newFixture(t)
	invited := testNow.Add(-72 * time.Hour)
	f.seed(t,
		signupdomain.Signup{ID: 1, Email: "a@example.com", ReferralCode: "a"},
		signupdomain.Signup{ID: 2, Email: "b@example.com", ReferralCode: "b", InviteSentAt: &invited},
	)
	svc := f.service(t)

	report, err := svc.Dispatch(context.Background(), domain.DispatchRequest{IDs: []int64{1, 2}, Stage: signupdomain.StageFollowUp})
	require.NoError(t, err)
	assert.Equal(t, domain.Result{ID: 1, Status: domain.StatusError, Error: "Invite not sent"}, report.Results[0])
	assert.Equal(t, domain.StatusSent, report.Results[1].Status)
	assert.NotNil(t, f.load(t, 2).FollowUpSentAt)
}

func TestDispatchFollowUpPermissive(t *testing.T) {
	f := newFixture(t)
	f.settings.RequireInviteForFollowUp = false
	f.seed(t, signupdomain.Signup{ID: 1, Email: "a@example.com", ReferralCode: "a"})
	svc := f.service(t)

	report, err := svc.Dispatch(context.Background(), domain.DispatchRequest{IDs: []int64{1}, Stage: signupdomain.StageFollowUp})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSent, report.Results[0].Status)
}

func TestDispatchPacesEveryItem(t *testing.T) {
	f := newFixture(t)
	invited := testNow.Add(-72 * time.Hour)
	f.seed(t,
		signupdomain.Signup{ID: 1, Email: "a@example.com", ReferralCode: "a", InviteSentAt: &invited},
		signupdomain.Signup{ID: 2, Email: "b@example.com", ReferralCode: "b", InviteSentAt: &invited},
	)
	svc := f.service(t)

	_, err := svc.Dispatch(context.Background(), domain.DispatchRequest{IDs: []int64{1, 404, 2}, Stage: signupdomain.StageFollowUp})
	require.NoError(t, err)

	delay := config.DefaultOutreachSettings().FollowUp.Delay
	assert.Equal(t, []time.Duration{delay, delay, delay}, f.clock.Sleeps())
}

func TestDispatchInviteIsUnpacedByDefault(t *testing.T) {
	f := newFixture(t)
	f.seed(t, signupdomain.Signup{ID: 1, Email: "a@example.com", ReferralCode: "a"})
	svc := f.service(t)

	_, err := svc.Dispatch(context.Background(), domain.DispatchRequest{IDs: []int64{1, 2}, Stage: signupdomain.StageInvite})
	require.NoError(t, err)
	assert.Empty(t, f.clock.Sleeps())
}

func TestDispatchCustomFollowUpCopy(t *testing.T) {
	f := newFixture(t)
	invited := testNow.Add(-72 * time.Hour)
	f.seed(t, signupdomain.Signup{ID: 1, Email: "a@example.com", ReferralCode: "a", FirstName: strPtr("Ana"), InviteSentAt: &invited})
	svc := f.service(t)

	_, err := svc.Dispatch(context.Background(), domain.DispatchRequest{
		IDs:          []int64{1},
		Stage:        signupdomain.StageFollowUp,
		Subject:      "Still there, {{.FirstName}}?",
		HTMLTemplate: "<p>{{.Greeting}} one more nudge.</p>",
	})
	require.NoError(t, err)
	require.Len(t, f.provider.sent, 1)
	assert.Equal(t, "Still there, Ana?", f.provider.sent[0].Subject)
	assert.Equal(t, "<p>Hey Ana, one more nudge.</p>", f.provider.sent[0].HTML)
}

func TestDispatchValidation(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t)
	ctx := context.Background()

	_, err := svc.Dispatch(ctx, domain.DispatchRequest{Stage: signupdomain.StageInvite})
	assert.ErrorIs(t, err, domain.ErrEmptyBatch)

	_, err = svc.Dispatch(ctx, domain.DispatchRequest{IDs: []int64{1}, Stage: "reminder"})
	assert.ErrorIs(t, err, signupdomain.ErrInvalidStage)

	_, err = svc.Dispatch(ctx, domain.DispatchRequest{IDs: []int64{1}, Stage: signupdomain.StageFollowUp, HTMLTemplate: "{{.Greeting"})
	assert.ErrorIs(t, err, domain.ErrInvalidTemplate)

	_, err = svc.Dispatch(ctx, domain.DispatchRequest{IDs: []int64{1}, Stage: signupdomain.StageFollowUp, Subject: "{{if}}"})
	assert.ErrorIs(t, err, domain.ErrInvalidTemplate)

	_, err = svc.Dispatch(ctx, domain.DispatchRequest{IDs: []int64{1}, Stage: signupdomain.StageInvite, Subject: "Hi"})
	assert.ErrorIs(t, err, domain.ErrOverrideNotAllowed)

	_, err = svc.Dispatch(ctx, domain.DispatchRequest{IDs: []int64{1}, Stage: signupdomain.StageInvite, HTMLTemplate: "<p>hi</p>"})
	assert.ErrorIs(t, err, domain.ErrOverrideNotAllowed)

	assert.Empty(t, f.provider.recipients())
}

func TestDispatchNonPositiveIDsAreItemErrors(t *testing.T) {
	f := newFixture(t)
	f.seed(t, signupdomain.Signup{ID: 1, Email: "a@example.com", ReferralCode: "a"})
	svc := f.service(t)

	report, err := svc.Dispatch(context.Background(), domain.DispatchRequest{IDs: []int64{1, 0, -3}, Stage: signupdomain.StageInvite})
	require.NoError(t, err)
	assert.Equal(t, []domain.Result{
		{ID: 1, Status: domain.StatusSent},
		{ID: 0, Status: domain.StatusError, Error: "Not found"},
		{ID: -3, Status: domain.StatusError, Error: "Not found"},
	}, report.Results)
	assert.Equal(t, []string{"a@example.com"}, f.provider.recipients())
}

func TestPreview(t *testing.T) {
	f := newFixture(t)
	f.seed(t, signupdomain.Signup{ID: 1, Email: "a@example.com", ReferralCode: "a", FirstName: strPtr("Ana")})
	svc := f.service(t)
	ctx := context.Background()

	p, err := svc.Preview(ctx, 1, signupdomain.StageInvite)
	require.NoError(t, err)
	assert.Contains(t, p.Subject, "1,750 credits")
	assert.Contains(t, p.HTML, "Hey Ana, welcome")

	p, err = svc.Preview(ctx, 1, signupdomain.StageFollowUp)
	require.NoError(t, err)
	assert.Contains(t, p.HTML, "Hey Ana,")

	_, err = svc.Preview(ctx, 42, signupdomain.StageInvite)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Empty(t, f.provider.recipients())
	assert.Nil(t, f.load(t, 1).InviteSentAt)
}
