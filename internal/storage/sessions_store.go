/*
 * This file is part of Speechy (https://github.com/speechy/speechy).
 * Copyright (C) 2025 Speechy
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/speechy/speechy/internal/events"
	"github.com/speechy/speechy/internal/logging"
)

// ErrSessionNotFound means no session row matched the given UUID.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore handles database operations for dictation sessions.
type SessionStore struct {
	db *Database
}

// NewSessionStore creates a session store over an open database.
func NewSessionStore(db *Database) *SessionStore {
	return &SessionStore{db: db}
}

// Insert stores a finished session.
func (s *SessionStore) Insert(record *events.SessionRecord) error {
	if record.UUID == "" {
		return fmt.Errorf("session record missing UUID")
	}
	if record.Outcome == "" {
		return fmt.Errorf("session record missing outcome")
	}

	query := `
		INSERT INTO sessions (
			uuid, started_at, finished_at,
			audio_duration, sample_rate,
			raw_transcript, corrected_transcript,
			outcome, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.DB().Exec(query,
		record.UUID, record.StartedAt, record.FinishedAt,
		record.AudioDuration, record.SampleRate,
		record.RawTranscript, record.CorrectedTranscript,
		record.Outcome, record.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	logging.LogDatabaseOperation("insert", "sessions",
		zap.String("uuid", record.UUID),
		zap.String("outcome", record.Outcome),
	)
	return nil
}

// GetByUUID retrieves one session by its UUID.
func (s *SessionStore) GetByUUID(uuid string) (*events.SessionRecord, error) {
	query := `
		SELECT uuid, started_at, finished_at,
			   audio_duration, sample_rate,
			   raw_transcript, corrected_transcript,
			   outcome, error_message
		FROM sessions
		WHERE uuid = ?`

	record, err := scanSession(s.db.DB().QueryRow(query, uuid))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, uuid)
	}
	return record, err
}

// ListOptions defines filtering and pagination for session queries.
type ListOptions struct {
	Outcome   string
	StartTime *time.Time
	EndTime   *time.Time

	Limit  int
	Offset int
}

// List retrieves sessions newest first.
func (s *SessionStore) List(options ListOptions) ([]*events.SessionRecord, error) {
	query, args := buildListQuery(options)

	rows, err := s.db.DB().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*events.SessionRecord
	for rows.Next() {
		record, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}
	return records, nil
}

// Count returns the number of sessions matching the filter.
func (s *SessionStore) Count(options ListOptions) (int64, error) {
	options.Limit = 0
	options.Offset = 0
	query, args := buildListQuery(options)

	countQuery := "SELECT COUNT(*) FROM (" + query + ") AS filtered"

	var count int64
	if err := s.db.DB().QueryRow(countQuery, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}

// Delete removes one session by UUID.
func (s *SessionStore) Delete(uuid string) error {
	result, err := s.db.DB().Exec("DELETE FROM sessions WHERE uuid = ?", uuid)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, uuid)
	}
	logging.LogDatabaseOperation("delete", "sessions", zap.String("uuid", uuid))
	return nil
}

// PruneOlderThan clears out history past the retention window and returns
// how many rows went away.
func (s *SessionStore) PruneOlderThan(cutoff time.Time) (int64, error) {
	result, err := s.db.DB().Exec("DELETE FROM sessions WHERE started_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune sessions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected > 0 {
		logging.LogDatabaseOperation("prune", "sessions", zap.Int64("removed", affected))
	}
	return affected, nil
}

func buildListQuery(options ListOptions) (string, []interface{}) {
	query := `
		SELECT uuid, started_at, finished_at,
			   audio_duration, sample_rate,
			   raw_transcript, corrected_transcript,
			   outcome, error_message
		FROM sessions WHERE 1=1`

	var args []interface{}

	if options.Outcome != "" {
		query += " AND outcome = ?"
		args = append(args, options.Outcome)
	}
	if options.StartTime != nil {
		query += " AND started_at >= ?"
		args = append(args, *options.StartTime)
	}
	if options.EndTime != nil {
		query += " AND started_at <= ?"
		args = append(args, *options.EndTime)
	}

	query += " ORDER BY started_at DESC"

	if options.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, options.Limit)
		if options.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, options.Offset)
		}
	}

	return query, args
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row scanner) (*events.SessionRecord, error) {
	var record events.SessionRecord
	err := row.Scan(
		&record.UUID, &record.StartedAt, &record.FinishedAt,
		&record.AudioDuration, &record.SampleRate,
		&record.RawTranscript, &record.CorrectedTranscript,
		&record.Outcome, &record.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}
	return &record, nil
}
