package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusflow/internal/db"
	"focusflow/internal/model"
	"focusflow/internal/repository"
	"focusflow/internal/session"
	"focusflow/internal/testutil"
)

func newSession(code, creatorID string, createdAt time.Time) *model.Session {
	s := session.New(uuid.NewString(), code, model.CreateSessionParams{
		FocusMinutes:     0.05,
		BreakMinutes:     1.5,
		LongBreakMinutes: 15,
		TotalCycles:      4,
	})
	s.CreatorID = creatorID
	s.CreatedAt = createdAt
	s.UpdatedAt = createdAt
	return &s
}

func createUser(t *testing.T, repo *repository.UserRepository, email string) string {
	t.Helper()
	now := time.Now().UTC()
	user := model.User{ID: uuid.NewString(), Email: email, PasswordHash: "x", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.Create(context.Background(), &user))
	return user.ID
}

func TestSessionRepositoryRoundTrip(t *testing.T) {
	for _, driver := range []string{db.DriverCGO, db.DriverPure} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			database := testutil.NewTestDB(t, driver)
			repo := repository.NewSessionRepository(database)
			creator := createUser(t, repository.NewUserRepository(database), "owner@example.com")

			created := newSession("ABC123", creator, time.Now().UTC())
			require.NoError(t, repo.Create(ctx, created))

			got, err := repo.GetByCode(ctx, "ABC123")
			require.NoError(t, err)
			assert.Equal(t, created.ID, got.ID)
			assert.Equal(t, creator, got.CreatorID)
			assert.Equal(t, 0.05, got.FocusMinutes)
			assert.Equal(t, 3, got.TimeLeftSeconds)
			assert.Equal(t, model.StatusCreated, got.Status)
			assert.Nil(t, got.StartedAt)

			tx, err := repo.BeginTx(ctx)
			require.NoError(t, err)
			started := time.Now().UTC()
			got.Status = model.StatusActive
			got.IsRunning = true
			got.IsBreak = true
			got.CurrentCycle = 2
			got.StartedAt = &started
			require.NoError(t, repo.UpdateStateTx(ctx, tx, got))
			require.NoError(t, tx.Commit())

			updated, err := repo.GetByID(ctx, got.ID)
			require.NoError(t, err)
			assert.True(t, updated.IsRunning)
			assert.True(t, updated.IsBreak)
			assert.Equal(t, 2, updated.CurrentCycle)
			require.NotNil(t, updated.StartedAt)
			assert.WithinDuration(t, started, *updated.StartedAt, time.Millisecond)
		})
	}
}

func TestSessionRepositoryDuplicateCode(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewSessionRepository(testutil.NewTestDB(t, db.DriverCGO))

	require.NoError(t, repo.Create(ctx, newSession("DUP001", "", time.Now())))
	err := repo.Create(ctx, newSession("DUP001", "", time.Now()))

	assert.ErrorIs(t, err, repository.ErrDuplicateCode)
}

func TestSessionRepositoryNotFound(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewSessionRepository(testutil.NewTestDB(t, db.DriverCGO))

	_, err := repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	defer tx.Rollback()
	err = repo.UpdateStateTx(ctx, tx, newSession("NOPE00", "", time.Now()))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestListByCreatorNewestFirst(t *testing.T) {
	ctx := context.Background()
	database := testutil.NewTestDB(t, db.DriverCGO)
	repo := repository.NewSessionRepository(database)
	users := repository.NewUserRepository(database)
	alice := createUser(t, users, "alice@example.com")
	bob := createUser(t, users, "bob@example.com")

	base := time.Now().UTC()
	for i, code := range []string{"AAAAA1", "AAAAA2", "AAAAA3"} {
		require.NoError(t, repo.Create(ctx, newSession(code, alice, base.Add(time.Duration(i)*time.Minute))))
	}
	require.NoError(t, repo.Create(ctx, newSession("BBBBB1", bob, base)))

	sessions, err := repo.ListByCreator(ctx, alice, 2)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "AAAAA3", sessions[0].Code)
	assert.Equal(t, "AAAAA2", sessions[1].Code)
}

func TestActivityRepository(t *testing.T) {
	ctx := context.Background()
	database := testutil.NewTestDB(t, db.DriverPure)
	sessions := repository.NewSessionRepository(database)
	activities := repository.NewActivityRepository(database)

	s := newSession("ACT001", "", time.Now())
	require.NoError(t, sessions.Create(ctx, s))

	base := time.Now().UTC()
	for i, activityType := range []model.ActivityType{model.ActivityTimerStarted, model.ActivityBreakStarted} {
		require.NoError(t, activities.Create(ctx, &model.Activity{
			ID:        uuid.NewString(),
			SessionID: s.ID,
			Type:      activityType,
			Message:   string(activityType),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	list, err := activities.ListBySession(ctx, s.ID, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, model.ActivityBreakStarted, list[0].Type)
	assert.Empty(t, list[0].UserID)
}
