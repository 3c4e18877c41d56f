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

//go:build whisper

package stt

import (
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/speechy/speechy/internal/logging"
)

// WhisperEngine transcribes locally through the whisper.cpp bindings.
type WhisperEngine struct {
	modelPath string
	language  string

	mu    sync.Mutex
	model whisper.Model
}

// NewWhisperEngine creates an engine for the ggml model at modelPath.
// The model is not loaded until Load.
func NewWhisperEngine(modelPath, language string) *WhisperEngine {
	return &WhisperEngine{modelPath: modelPath, language: language}
}

// Load reads the model file into memory. Idempotent.
func (we *WhisperEngine) Load() error {
	we.mu.Lock()
	defer we.mu.Unlock()

	if we.model != nil {
		return nil
	}

	if _, err := os.Stat(we.modelPath); os.IsNotExist(err) {
		return fmt.Errorf("whisper model not found at %s", we.modelPath)
	}

	model, err := whisper.New(we.modelPath)
	if err != nil {
		return fmt.Errorf("failed to load whisper model: %w", err)
	}

	we.model = model
	logging.Sugar.Infow("✅ Whisper model loaded", "path", we.modelPath)
	return nil
}

// Transcribe converts audio samples to segments. Each segment carries the
// average log-probability of its tokens as confidence.
func (we *WhisperEngine) Transcribe(samples []float32, sampleRate int) ([]Segment, error) {
	we.mu.Lock()
	model := we.model
	we.mu.Unlock()

	if model == nil {
		return nil, ErrModelNotLoaded
	}

	ctx, err := model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("failed to create whisper context: %w", err)
	}

	if we.language != "" {
		if err := ctx.SetLanguage(we.language); err != nil {
			logging.Sugar.Warnw("Failed to set whisper language, using auto-detect",
				"language", we.language, "error", err)
		}
	}

	if err := ctx.Process(samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("failed to process audio: %w", err)
	}

	var segments []Segment
	for {
		seg, err := ctx.NextSegment()
		if err != nil {
			break
		}
		segments = append(segments, Segment{
			Text:       seg.Text,
			Start:      seg.Start,
			End:        seg.End,
			Confidence: segmentConfidence(seg),
		})
	}

	return segments, nil
}

// segmentConfidence averages token probabilities in log space, matching
// the avg_logprob scale the confidence threshold is configured against.
func segmentConfidence(seg whisper.Segment) float64 {
	if len(seg.Tokens) == 0 {
		return 0
	}
	var sum float64
	for _, tok := range seg.Tokens {
		p := float64(tok.P)
		if p < 1e-10 {
			p = 1e-10
		}
		sum += math.Log(p)
	}
	return sum / float64(len(seg.Tokens))
}

// Close frees the model.
func (we *WhisperEngine) Close() error {
	we.mu.Lock()
	defer we.mu.Unlock()

	if we.model != nil {
		if err := we.model.Close(); err != nil {
			return err
		}
		we.model = nil
		logging.Sugar.Infow("🧠 Whisper model closed")
	}
	return nil
}
