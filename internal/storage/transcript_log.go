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
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/speechy/speechy/internal/logging"
)

// TranscriptLog appends accepted transcripts to a plain text file, one
// line per transcript, for users who want a greppable history outside
// the database.
type TranscriptLog struct {
	mu   sync.Mutex
	path string
}

// NewTranscriptLog creates a log writing to the given path. An empty
// path defaults to ~/.speechy/transcriptions.txt.
func NewTranscriptLog(path string) *TranscriptLog {
	if path == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, ".speechy", "transcriptions.txt")
		} else {
			path = "./transcriptions.txt"
		}
	}
	return &TranscriptLog{path: path}
}

// Path returns the log file location.
func (l *TranscriptLog) Path() string {
	return l.path
}

// Append writes one "[timestamp] text" line. The file is opened per call
// so an external rotation or deletion never wedges the logger.
func (l *TranscriptLog) Append(at time.Time, text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := ensureDir(filepath.Dir(l.path)); err != nil {
		return fmt.Errorf("failed to create transcript log directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open transcript log: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.LogWarn("failed to close transcript log", zap.Error(err))
		}
	}()

	line := fmt.Sprintf("[%s] %s\n", at.Format("2006-01-02 15:04:05"), text)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("failed to append transcript: %w", err)
	}
	return nil
}
