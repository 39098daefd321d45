package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"focusflow/internal/model"
)

type ActivityRepository struct {
	db *sql.DB
}

func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Create(ctx context.Context, activity *model.Activity) error {
	var userID interface{}
	if activity.UserID != "" {
		userID = activity.UserID
	}

	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO activity_logs (id, session_id, user_id, type, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		activity.ID,
		activity.SessionID,
		userID,
		activity.Type,
		activity.Message,
		formatTime(activity.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("create activity: %w", err)
	}
	return nil
}

// ListBySession returns a session's activity entries, newest first.
func (r *ActivityRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]model.Activity, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT id, session_id, user_id, type, message, created_at
		 FROM activity_logs
		 WHERE session_id = ?
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`,
		sessionID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	activities := make([]model.Activity, 0, limit)
	for rows.Next() {
		activity, scanErr := scanActivity(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		activities = append(activities, *activity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}
	return activities, nil
}

func scanActivity(s scanner) (*model.Activity, error) {
	activity := model.Activity{}
	var userID sql.NullString
	var createdAt string
	err := s.Scan(
		&activity.ID,
		&activity.SessionID,
		&userID,
		&activity.Type,
		&activity.Message,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan activity: %w", err)
	}
	activity.UserID = userID.String

	parsed, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse activity created_at: %w", err)
	}
	activity.CreatedAt = parsed
	return &activity, nil
}
