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

//go:build !whisper

package stt

import "fmt"

// WhisperEngine stub used when built without the whisper tag (no CGO
// toolchain / whisper.cpp available). The REST backend remains usable.
type WhisperEngine struct {
	modelPath string
	language  string
}

// NewWhisperEngine creates a stub engine.
func NewWhisperEngine(modelPath, language string) *WhisperEngine {
	return &WhisperEngine{modelPath: modelPath, language: language}
}

// Load stub implementation always fails.
func (we *WhisperEngine) Load() error {
	return fmt.Errorf("whisper transcription disabled (build with -tags whisper to enable)")
}

// Transcribe stub implementation returns no segments.
func (we *WhisperEngine) Transcribe(samples []float32, sampleRate int) ([]Segment, error) {
	return nil, fmt.Errorf("whisper transcription disabled (build with -tags whisper to enable)")
}

// Close stub implementation
func (we *WhisperEngine) Close() error {
	// Nothing to clean up in stub
	return nil
}
