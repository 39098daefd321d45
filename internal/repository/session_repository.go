package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"focusflow/internal/model"
)

const sessionColumns = `id, code, creator_id, focus_minutes, break_minutes, long_break_minutes,
		        total_cycles, current_cycle, is_break, time_left_seconds, is_running, status,
		        created_at, started_at, completed_at, updated_at`

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return tx, nil
}

// Create inserts a new session. A code collision returns ErrDuplicateCode.
func (r *SessionRepository) Create(ctx context.Context, session *model.Session) error {
	var creatorID interface{}
	if session.CreatorID != "" {
		creatorID = session.CreatorID
	}

	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO sessions (
			id, code, creator_id, focus_minutes, break_minutes, long_break_minutes,
			total_cycles, current_cycle, is_break, time_left_seconds, is_running, status,
			created_at, started_at, completed_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.Code,
		creatorID,
		session.FocusMinutes,
		session.BreakMinutes,
		session.LongBreakMinutes,
		session.TotalCycles,
		session.CurrentCycle,
		session.IsBreak,
		session.TimeLeftSeconds,
		session.IsRunning,
		session.Status,
		formatTime(session.CreatedAt),
		formatTimePtr(session.StartedAt),
		formatTimePtr(session.CompletedAt),
		formatTime(session.UpdatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: sessions.code") {
			return ErrDuplicateCode
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*model.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

func (r *SessionRepository) GetByCode(ctx context.Context, code string) (*model.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE code = ?`, code)
	return scanSession(row)
}

func (r *SessionRepository) GetByIDTx(ctx context.Context, tx *sql.Tx, id string) (*model.Session, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

// UpdateStateTx writes the mutable fields of a session.
func (r *SessionRepository) UpdateStateTx(ctx context.Context, tx *sql.Tx, session *model.Session) error {
	result, err := tx.ExecContext(
		ctx,
		`UPDATE sessions
		 SET current_cycle = ?,
		     is_break = ?,
		     time_left_seconds = ?,
		     is_running = ?,
		     status = ?,
		     started_at = ?,
		     completed_at = ?,
		     updated_at = ?
		 WHERE id = ?`,
		session.CurrentCycle,
		session.IsBreak,
		session.TimeLeftSeconds,
		session.IsRunning,
		session.Status,
		formatTimePtr(session.StartedAt),
		formatTimePtr(session.CompletedAt),
		formatTime(session.UpdatedAt),
		session.ID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByCreator returns the creator's sessions, newest first.
func (r *SessionRepository) ListByCreator(ctx context.Context, creatorID string, limit int) ([]model.Session, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT `+sessionColumns+`
		 FROM sessions
		 WHERE creator_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		creatorID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]model.Session, 0, limit)
	for rows.Next() {
		session, scanErr := scanSession(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		sessions = append(sessions, *session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(s scanner) (*model.Session, error) {
	session := model.Session{}
	var creatorID sql.NullString
	var createdAt, updatedAt string
	var startedAt, completedAt sql.NullString
	err := s.Scan(
		&session.ID,
		&session.Code,
		&creatorID,
		&session.FocusMinutes,
		&session.BreakMinutes,
		&session.LongBreakMinutes,
		&session.TotalCycles,
		&session.CurrentCycle,
		&session.IsBreak,
		&session.TimeLeftSeconds,
		&session.IsRunning,
		&session.Status,
		&createdAt,
		&startedAt,
		&completedAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	session.CreatorID = creatorID.String

	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse session created_at: %w", err)
	}
	if session.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse session updated_at: %w", err)
	}
	if session.StartedAt, err = parseTimePtr(startedAt); err != nil {
		return nil, fmt.Errorf("parse session started_at: %w", err)
	}
	if session.CompletedAt, err = parseTimePtr(completedAt); err != nil {
		return nil, fmt.Errorf("parse session completed_at: %w", err)
	}

	return &session, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
