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

package events

import (
	"time"

	"github.com/google/uuid"
)

// Session outcomes as persisted in the session history.
const (
	OutcomeCompleted = "completed" // transcript delivered, correction done or degraded
	OutcomeNoVoice   = "no_voice"  // transcription found no speech
	OutcomeTooShort  = "too_short" // recording under the minimum duration
	OutcomeFailed    = "failed"    // capture or transcription error
)

// SessionRecord captures one press-to-toggle cycle for history and
// troubleshooting. Created when recording starts, finalized when the
// session returns to idle.
type SessionRecord struct {
	UUID       string    `json:"uuid" db:"uuid"`
	StartedAt  time.Time `json:"started_at" db:"started_at"`
	FinishedAt time.Time `json:"finished_at" db:"finished_at"`

	// Audio metadata
	AudioDuration float64 `json:"audio_duration" db:"audio_duration"`
	SampleRate    int     `json:"sample_rate" db:"sample_rate"`

	// Pipeline results
	RawTranscript       string `json:"raw_transcript" db:"raw_transcript"`
	CorrectedTranscript string `json:"corrected_transcript" db:"corrected_transcript"`

	Outcome      string `json:"outcome" db:"outcome"`
	ErrorMessage string `json:"error_message,omitempty" db:"error_message"`
}

// NewSessionRecord creates a record with a fresh UUID, stamped now.
func NewSessionRecord() *SessionRecord {
	return &SessionRecord{
		UUID:      uuid.NewString(),
		StartedAt: time.Now(),
	}
}

// SetAudioMetadata records buffer duration and rate once capture stops.
func (sr *SessionRecord) SetAudioMetadata(samples int, sampleRate int) {
	if sampleRate > 0 {
		sr.AudioDuration = float64(samples) / float64(sampleRate)
	}
	sr.SampleRate = sampleRate
}

// Finish stamps the end of the session with its outcome.
func (sr *SessionRecord) Finish(outcome string) {
	sr.Outcome = outcome
	sr.FinishedAt = time.Now()
}

// FinishWithError marks the session failed.
func (sr *SessionRecord) FinishWithError(err error) {
	sr.Outcome = OutcomeFailed
	if err != nil {
		sr.ErrorMessage = err.Error()
	}
	sr.FinishedAt = time.Now()
}
