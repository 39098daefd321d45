package service_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusflow/internal/channel"
	apperrors "focusflow/internal/errors"
	"focusflow/internal/model"
	"focusflow/internal/repository"
	"focusflow/internal/service"
	"focusflow/internal/testutil"
)

type recordingObserver struct {
	events []service.UseCaseEvent
}

func (o *recordingObserver) ObserveUseCase(_ context.Context, event service.UseCaseEvent) {
	o.events = append(o.events, event)
}

type fixture struct {
	svc      *service.SessionService
	hub      *channel.Hub
	clock    *clockwork.FakeClock
	observer *recordingObserver
	users    *repository.UserRepository
	userID   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database := testutil.NewTestDB(t, "sqlite3")
	users := repository.NewUserRepository(database)

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	user := model.User{ID: uuid.NewString(), Email: "ada@example.com", PasswordHash: "x", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, users.Create(context.Background(), &user))

	hub := channel.NewHub(4, nil)
	t.Cleanup(hub.Close)
	clock := clockwork.NewFakeClockAt(now)
	observer := &recordingObserver{}

	svc := service.NewSessionService(
		repository.NewSessionRepository(database),
		repository.NewActivityRepository(database),
		users,
		hub,
		service.SessionServiceConfig{MaxTotalCycles: 10, HistoryLimit: 2, Clock: clock, Observer: observer},
	)
	return &fixture{svc: svc, hub: hub, clock: clock, observer: observer, users: users, userID: user.ID}
}

func (f *fixture) create(t *testing.T) *model.Session {
	t.Helper()
	created, apiErr := f.svc.Create(context.Background(), f.userID, model.CreateSessionParams{
		FocusMinutes: 25, BreakMinutes: 5, LongBreakMinutes: 15, TotalCycles: 4,
	})
	require.Nil(t, apiErr)
	return created
}

func TestCreateGeneratesCode(t *testing.T) {
	f := newFixture(t)
	created := f.create(t)

	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{6}$`), created.Code)
	assert.Equal(t, f.clock.Now(), created.CreatedAt)
	assert.Equal(t, 1500, created.TimeLeftSeconds)
	require.NotEmpty(t, f.observer.events)
	assert.Equal(t, "create_session", f.observer.events[0].Name)
	assert.True(t, f.observer.events[0].Success)
}

func TestMutationsPublishSnapshots(t *testing.T) {
	f := newFixture(t)
	created := f.create(t)
	sub := f.hub.Subscribe(channel.SessionTopic(created.Code))
	defer sub.Close()

	f.clock.Advance(time.Minute)
	updated, apiErr := f.svc.SetStatus(context.Background(), created.ID, model.StatusActive, "client-7")
	require.Nil(t, apiErr)
	require.NotNil(t, updated.StartedAt)
	assert.Equal(t, f.clock.Now(), *updated.StartedAt)

	select {
	case raw := <-sub.C():
		assert.JSONEq(t,
			`{"timeLeftSeconds":1500,"isRunning":false,"isBreak":false,"currentCycle":1,"status":"ACTIVE","origin":"client-7"}`,
			string(raw))
	default:
		t.Fatal("expected a published snapshot")
	}

	// No-op completion checks publish nothing.
	_, apiErr = f.svc.CheckCompletion(context.Background(), created.ID, "client-7")
	require.Nil(t, apiErr)
	assert.Len(t, sub.C(), 0)
}

func TestTerminalRejectionIsObserved(t *testing.T) {
	f := newFixture(t)
	created := f.create(t)
	ctx := context.Background()

	_, apiErr := f.svc.SetStatus(ctx, created.ID, model.StatusEndedEarly, "")
	require.Nil(t, apiErr)
	_, apiErr = f.svc.SetStatus(ctx, created.ID, model.StatusActive, "")
	require.NotNil(t, apiErr)
	assert.Equal(t, apperrors.CodeSessionTerminal, apiErr.Code)

	last := f.observer.events[len(f.observer.events)-1]
	assert.Equal(t, "set_status", last.Name)
	assert.False(t, last.Success)
	assert.Equal(t, apperrors.CodeSessionTerminal, last.Code)
}

func TestHistoryUsesConfiguredDefaultLimit(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.create(t)
		f.clock.Advance(time.Second)
	}

	sessions, apiErr := f.svc.History(context.Background(), f.userID, 0)
	require.Nil(t, apiErr)
	assert.Len(t, sessions, 2)

	sessions, apiErr = f.svc.History(context.Background(), f.userID, 1000)
	require.Nil(t, apiErr)
	assert.Len(t, sessions, 3)
}

func TestJoinPublishesNotice(t *testing.T) {
	f := newFixture(t)
	created := f.create(t)
	sub := f.hub.Subscribe(channel.JoinedTopic(created.Code))
	defer sub.Close()

	_, apiErr := f.svc.Join(context.Background(), created.ID, f.userID)
	require.Nil(t, apiErr)

	select {
	case raw := <-sub.C():
		assert.Contains(t, string(raw), `"participant":"ada@example.com"`)
	default:
		t.Fatal("expected a join notice")
	}
}

func TestJoinNoticeUsesDisplayName(t *testing.T) {
	f := newFixture(t)
	created := f.create(t)
	now := f.clock.Now()
	guest := model.User{ID: uuid.NewString(), Email: "grace@example.com", DisplayName: "Grace", PasswordHash: "x", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, f.users.Create(context.Background(), &guest))

	sub := f.hub.Subscribe(channel.JoinedTopic(created.Code))
	defer sub.Close()

	_, apiErr := f.svc.Join(context.Background(), created.ID, guest.ID)
	require.Nil(t, apiErr)

	select {
	case raw := <-sub.C():
		assert.Contains(t, string(raw), `"participant":"Grace"`)
	default:
		t.Fatal("expected a join notice")
	}
}

func TestRandomTip(t *testing.T) {
	tips := service.NewTipService()
	for i := 0; i < 20; i++ {
		assert.NotEmpty(t, tips.Random())
	}
}
