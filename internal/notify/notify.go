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

// Package notify surfaces desktop notifications for pipeline milestones.
package notify

import (
	"sync"

	"github.com/gen2brain/beeep"
	"go.uber.org/zap"

	"github.com/speechy/speechy/internal/logging"
)

const appTitle = "Speechy"

// Manager sends desktop notifications. All methods are no-ops when
// disabled, and notification failures are logged rather than returned
// because a missing notification daemon must never break dictation.
type Manager struct {
	mu      sync.Mutex
	enabled bool
}

func NewManager(enabled bool) *Manager {
	return &Manager{enabled: enabled}
}

func (m *Manager) SetEnabled(enabled bool) {
	m.mu.Lock()
	m.enabled = enabled
	m.mu.Unlock()
}

func (m *Manager) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

func (m *Manager) send(title, body string) {
	if !m.Enabled() {
		return
	}
	if err := beeep.Notify(title, body, ""); err != nil {
		logging.LogWarn("failed to send notification",
			zap.String("title", title), zap.Error(err),
		)
	}
}

// RecordingStarted announces that the microphone went live.
func (m *Manager) RecordingStarted() {
	m.send(appTitle, "Recording started")
}

// RecordingStopped announces that capture ended and processing began.
func (m *Manager) RecordingStopped() {
	m.send(appTitle, "Recording stopped, transcribing...")
}

// TranscriptionComplete shows a preview of the raw transcript.
func (m *Manager) TranscriptionComplete(text string) {
	m.send(appTitle+" - Transcribed", truncate(text, 100))
}

// ResponseReady shows a preview of the corrected text.
func (m *Manager) ResponseReady(text string) {
	m.send(appTitle+" - Corrected", truncate(text, 100))
}

// Error surfaces a pipeline failure.
func (m *Manager) Error(message string) {
	m.send(appTitle+" - Error", message)
}

func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
