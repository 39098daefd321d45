package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"focusflow/internal/channel"
	apperrors "focusflow/internal/errors"
	"focusflow/internal/model"
	"focusflow/internal/repository"
	"focusflow/internal/session"
)

const (
	codeAlphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength       = 6
	codeAttempts     = 10
	maxHistoryLimit  = 200
	maxActivityLimit = 200
)

type SessionServiceConfig struct {
	MaxTotalCycles int
	HistoryLimit   int
	Clock          clockwork.Clock
	Observer       UseCaseObserver
	Logger         *slog.Logger
}

// SessionService is the authoritative session store. COMPLETED and
// ENDED_EARLY are absorbing: every mutation of a terminal session is
// rejected, except re-applying the same terminal status.
type SessionService struct {
	repo         *repository.SessionRepository
	activities   *repository.ActivityRepository
	users        *repository.UserRepository
	channel      *channel.Local
	maxCycles    int
	historyLimit int
	clock        clockwork.Clock
	observer     UseCaseObserver
	logger       *slog.Logger
}

func NewSessionService(
	repo *repository.SessionRepository,
	activities *repository.ActivityRepository,
	users *repository.UserRepository,
	hub *channel.Hub,
	cfg SessionServiceConfig,
) *SessionService {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Observer == nil {
		cfg.Observer = NewLogUseCaseObserver(cfg.Logger)
	}
	if cfg.HistoryLimit <= 0 || cfg.HistoryLimit > maxHistoryLimit {
		cfg.HistoryLimit = 50
	}
	return &SessionService{
		repo:         repo,
		activities:   activities,
		users:        users,
		channel:      channel.NewLocal(hub),
		maxCycles:    cfg.MaxTotalCycles,
		historyLimit: cfg.HistoryLimit,
		clock:        cfg.Clock,
		observer:     cfg.Observer,
		logger:       cfg.Logger,
	}
}

type TimerStateInput struct {
	TimeLeftSeconds *int  `json:"timeLeftSeconds"`
	IsRunning       *bool `json:"isRunning"`
	IsBreak         *bool `json:"isBreak"`
}

func (s *SessionService) Create(ctx context.Context, creatorID string, params model.CreateSessionParams) (result *model.Session, apiErr *apperrors.APIError) {
	defer s.observe(ctx, "create_session", s.clock.Now(), &apiErr, nil)

	if err := session.ValidateParams(params, s.maxCycles); err != nil {
		var verr *session.ValidationError
		if errors.As(err, &verr) {
			return nil, apperrors.Validation(apperrors.CodeInvalidSessionParams, "invalid session parameters", verr.Fields)
		}
		return nil, apperrors.BadRequest(apperrors.CodeInvalidSessionParams, err.Error())
	}

	for attempt := 0; attempt < codeAttempts; attempt++ {
		code, err := generateCode()
		if err != nil {
			return nil, apperrors.Internal("failed to generate session code")
		}

		now := s.clock.Now().UTC()
		created := session.New(uuid.NewString(), code, params)
		created.CreatorID = creatorID
		created.CreatedAt = now
		created.UpdatedAt = now

		err = s.repo.Create(ctx, &created)
		if errors.Is(err, repository.ErrDuplicateCode) {
			continue
		}
		if err != nil {
			return nil, apperrors.Internal("failed to create session")
		}
		return &created, nil
	}
	return nil, apperrors.Internal("failed to allocate a unique session code")
}

func (s *SessionService) GetByID(ctx context.Context, id string) (*model.Session, *apperrors.APIError) {
	found, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.SessionNotFound()
	}
	if err != nil {
		return nil, apperrors.Internal("failed to get session")
	}
	return found, nil
}

func (s *SessionService) GetByCode(ctx context.Context, code string) (*model.Session, *apperrors.APIError) {
	found, err := s.repo.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.SessionNotFound()
	}
	if err != nil {
		return nil, apperrors.Internal("failed to get session")
	}
	return found, nil
}

func (s *SessionService) SetStatus(ctx context.Context, id string, status model.Status, origin string) (result *model.Session, apiErr *apperrors.APIError) {
	defer s.observe(ctx, "set_status", s.clock.Now(), &apiErr, map[string]any{"session_id": id, "status": status})

	if !status.Valid() {
		return nil, apperrors.BadRequest(apperrors.CodeInvalidStatus, fmt.Sprintf("unknown status %q", status))
	}

	return s.mutate(ctx, id, origin, func(current *model.Session, now time.Time) (bool, *apperrors.APIError) {
		if current.Status.Terminal() {
			if current.Status == status {
				return false, nil
			}
			return false, apperrors.Terminal(string(current.Status))
		}
		if status == model.StatusCreated && current.Status != model.StatusCreated {
			return false, apperrors.BadRequest(apperrors.CodeInvalidStatus, "a started session cannot return to CREATED")
		}

		current.Status = status
		switch status {
		case model.StatusActive:
			if current.StartedAt == nil {
				current.StartedAt = &now
			}
		case model.StatusCompleted:
			markCompleted(current, now)
		case model.StatusEndedEarly:
			current.IsRunning = false
		}
		return true, nil
	})
}

func (s *SessionService) SetCycle(ctx context.Context, id string, cycle int, origin string) (result *model.Session, apiErr *apperrors.APIError) {
	defer s.observe(ctx, "set_cycle", s.clock.Now(), &apiErr, map[string]any{"session_id": id, "cycle": cycle})

	return s.mutate(ctx, id, origin, func(current *model.Session, _ time.Time) (bool, *apperrors.APIError) {
		if current.Status.Terminal() {
			return false, apperrors.Terminal(string(current.Status))
		}
		if cycle < 1 || cycle > current.TotalCycles {
			return false, apperrors.BadRequest(apperrors.CodeInvalidCycle,
				fmt.Sprintf("cycle must be between 1 and %d", current.TotalCycles))
		}
		current.CurrentCycle = cycle
		return true, nil
	})
}

func (s *SessionService) SetTimerState(ctx context.Context, id string, input TimerStateInput, origin string) (result *model.Session, apiErr *apperrors.APIError) {
	defer s.observe(ctx, "set_timer_state", s.clock.Now(), &apiErr, map[string]any{"session_id": id})

	if input.TimeLeftSeconds == nil || input.IsRunning == nil || input.IsBreak == nil {
		return nil, apperrors.BadRequest(apperrors.CodeInvalidTimerState, "timeLeftSeconds, isRunning and isBreak are required")
	}
	if *input.TimeLeftSeconds < 0 {
		return nil, apperrors.BadRequest(apperrors.CodeInvalidTimerState, "timeLeftSeconds must not be negative")
	}

	return s.mutate(ctx, id, origin, func(current *model.Session, _ time.Time) (bool, *apperrors.APIError) {
		if current.Status.Terminal() {
			return false, apperrors.Terminal(string(current.Status))
		}
		current.TimeLeftSeconds = *input.TimeLeftSeconds
		current.IsRunning = *input.IsRunning
		current.IsBreak = *input.IsBreak
		return true, nil
	})
}

// CheckCompletion re-derives completion from the stored fields. It is
// idempotent: a terminal session is returned unchanged.
func (s *SessionService) CheckCompletion(ctx context.Context, id string, origin string) (result *model.Session, apiErr *apperrors.APIError) {
	defer s.observe(ctx, "check_completion", s.clock.Now(), &apiErr, map[string]any{"session_id": id})

	return s.mutate(ctx, id, origin, func(current *model.Session, now time.Time) (bool, *apperrors.APIError) {
		if !session.CompletionDue(*current) {
			return false, nil
		}
		current.Status = model.StatusCompleted
		markCompleted(current, now)
		return true, nil
	})
}

// Join announces a participant on the session's joined topic.
func (s *SessionService) Join(ctx context.Context, id, userID string) (result *model.Session, apiErr *apperrors.APIError) {
	defer s.observe(ctx, "join_session", s.clock.Now(), &apiErr, map[string]any{"session_id": id})

	found, apiErr := s.GetByID(ctx, id)
	if apiErr != nil {
		return nil, apiErr
	}
	if found.Status.Terminal() {
		return nil, apperrors.Terminal(string(found.Status))
	}

	participant := userID
	user, err := s.users.GetByID(ctx, userID)
	if err == nil {
		participant = user.Participant()
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Internal("failed to get user")
	}

	notice := model.JoinNotice{Participant: participant, JoinedAt: s.clock.Now().UTC()}
	if err := s.channel.Join(found.Code, notice); err != nil {
		s.logger.Warn("publish join notice failed", "session_id", id, "error", err)
	}
	return found, nil
}

// History lists sessions created by userID, newest first.
func (s *SessionService) History(ctx context.Context, userID string, limit int) ([]model.Session, *apperrors.APIError) {
	if limit <= 0 {
		limit = s.historyLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	sessions, err := s.repo.ListByCreator(ctx, userID, limit)
	if err != nil {
		return nil, apperrors.Internal("failed to get history")
	}
	return sessions, nil
}

func (s *SessionService) RecordActivity(
	ctx context.Context,
	sessionID, userID string,
	activityType model.ActivityType,
	message string,
) (*model.Activity, *apperrors.APIError) {
	if !activityType.Valid() {
		return nil, apperrors.BadRequest(apperrors.CodeInvalidActivity, fmt.Sprintf("unknown activity type %q", activityType))
	}
	if _, apiErr := s.GetByID(ctx, sessionID); apiErr != nil {
		return nil, apiErr
	}

	activity := model.Activity{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		UserID:    userID,
		Type:      activityType,
		Message:   strings.TrimSpace(message),
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := s.activities.Create(ctx, &activity); err != nil {
		return nil, apperrors.Internal("failed to record activity")
	}
	return &activity, nil
}

func (s *SessionService) Activities(ctx context.Context, sessionID string, limit int) ([]model.Activity, *apperrors.APIError) {
	if _, apiErr := s.GetByID(ctx, sessionID); apiErr != nil {
		return nil, apiErr
	}
	if limit <= 0 || limit > maxActivityLimit {
		limit = maxActivityLimit
	}
	activities, err := s.activities.ListBySession(ctx, sessionID, limit)
	if err != nil {
		return nil, apperrors.Internal("failed to list activities")
	}
	return activities, nil
}

// PublishSnapshot relays a client snapshot on the session topic.
func (s *SessionService) PublishSnapshot(ctx context.Context, code string, snap model.Snapshot) *apperrors.APIError {
	if !snap.Status.Valid() {
		return apperrors.BadRequest(apperrors.CodeInvalidStatus, fmt.Sprintf("unknown status %q", snap.Status))
	}
	if snap.TimeLeftSeconds < 0 {
		return apperrors.BadRequest(apperrors.CodeInvalidTimerState, "timeLeftSeconds must not be negative")
	}
	found, apiErr := s.GetByCode(ctx, code)
	if apiErr != nil {
		return apiErr
	}
	if err := s.channel.Publish(ctx, found.Code, snap); err != nil {
		return apperrors.Internal("failed to publish snapshot")
	}
	return nil
}

type mutation func(current *model.Session, now time.Time) (bool, *apperrors.APIError)

// mutate applies fn inside a transaction and publishes the resulting
// snapshot when fn reports a change.
func (s *SessionService) mutate(ctx context.Context, id, origin string, fn mutation) (*model.Session, *apperrors.APIError) {
	now := s.clock.Now().UTC()
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to start transaction")
	}
	defer tx.Rollback()

	current, err := s.repo.GetByIDTx(ctx, tx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.SessionNotFound()
	}
	if err != nil {
		return nil, apperrors.Internal("failed to get session")
	}

	changed, apiErr := fn(current, now)
	if apiErr != nil {
		return nil, apiErr
	}
	if !changed {
		return current, nil
	}

	current.UpdatedAt = now
	if err := s.repo.UpdateStateTx(ctx, tx, current); err != nil {
		return nil, apperrors.Internal("failed to update session")
	}
	if commitErr := tx.Commit(); commitErr != nil {
		return nil, apperrors.Internal("failed to commit transaction")
	}

	snap := current.Snapshot()
	snap.Origin = origin
	if err := s.channel.Publish(ctx, current.Code, snap); err != nil {
		s.logger.Warn("publish session snapshot failed", "session_id", id, "error", err)
	}
	return current, nil
}

func (s *SessionService) observe(ctx context.Context, name string, started time.Time, apiErr **apperrors.APIError, fields map[string]any) {
	event := UseCaseEvent{
		Name:     name,
		Duration: s.clock.Since(started),
		Success:  *apiErr == nil,
		Fields:   fields,
	}
	if *apiErr != nil {
		event.Code = (*apiErr).Code
	}
	s.observer.ObserveUseCase(ctx, event)
}

func markCompleted(s *model.Session, now time.Time) {
	s.CurrentCycle = s.TotalCycles
	s.IsBreak = false
	s.TimeLeftSeconds = 0
	s.IsRunning = false
	if s.CompletedAt == nil {
		s.CompletedAt = &now
	}
}

func generateCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
