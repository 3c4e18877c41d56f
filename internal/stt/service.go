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

package stt

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/speechy/speechy/internal/audio"
	"github.com/speechy/speechy/internal/logging"
	"go.uber.org/zap"
)

// Policy holds the acceptance thresholds applied around the engine.
type Policy struct {
	// ConfidenceThreshold drops segments whose confidence falls below it.
	ConfidenceThreshold float64
	// SilenceSkipThreshold skips the engine entirely when the recording's
	// peak amplitude (int16 scale) stays below it.
	SilenceSkipThreshold int
	// MinDuration is the shortest recording worth transcribing. The
	// coordinator rejects shorter ones before calling; the service
	// defends anyway.
	MinDuration time.Duration
}

// Service wraps a transcription engine with loading discipline and the
// segment filtering / silence policy.
type Service struct {
	mu      sync.Mutex
	engine  Engine
	loaded  bool
	loading bool
	// loadDone is closed when the in-flight load finishes, so waiters
	// can block without holding mu.
	loadDone chan struct{}
	policy   Policy
}

// NewService builds a transcription service over the given engine.
func NewService(engine Engine, policy Policy) *Service {
	return &Service{engine: engine, policy: policy}
}

// Load prepares the engine. Safe to call concurrently: duplicate loads are
// rejected with ErrLoadInProgress rather than racing the engine, and a
// load failure leaves the service retryable.
func (s *Service) Load() error {
	s.mu.Lock()
	if s.loaded {
		s.mu.Unlock()
		return nil
	}
	if s.loading {
		s.mu.Unlock()
		return ErrLoadInProgress
	}
	s.loading = true
	s.loadDone = make(chan struct{})
	engine := s.engine
	s.mu.Unlock()

	start := time.Now()
	err := engine.Load()

	s.mu.Lock()
	s.loading = false
	if err == nil {
		s.loaded = true
	}
	close(s.loadDone)
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrModelLoadFailed, err)
	}

	if logging.Sugar != nil {
		logging.Sugar.Infow("Transcription model loaded", "elapsed", time.Since(start))
	}
	return nil
}

// ensureLoaded blocks until the engine is usable. Unlike Load, a load
// already in flight (the startup worker, typically) is waited out
// rather than reported as an error; a session stopped during startup
// transcribes as soon as the model is up.
func (s *Service) ensureLoaded() error {
	for {
		s.mu.Lock()
		if s.loaded {
			s.mu.Unlock()
			return nil
		}
		if s.loading {
			done := s.loadDone
			s.mu.Unlock()
			<-done
			continue
		}
		s.mu.Unlock()

		err := s.Load()
		if errors.Is(err, ErrLoadInProgress) {
			continue
		}
		return err
	}
}

// Loaded reports whether the engine is ready.
func (s *Service) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Loading reports whether a load is in flight.
func (s *Service) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Transcribe runs the buffer through the engine and applies the
// acceptance policy. Auto-loads on first use. Blocks its caller for the
// duration of inference; run it on a worker goroutine.
func (s *Service) Transcribe(buf *audio.Buffer) (*Result, error) {
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}

	duration := buf.Duration()
	result := &Result{Duration: duration}

	// The coordinator should have rejected these already; defend anyway.
	if duration < s.policy.MinDuration {
		logging.LogWarn("recording below minimum duration, skipping transcription",
			zap.Duration("duration", duration))
		result.NoVoice = true
		return result, nil
	}

	// Silence pre-check: a recording whose peak amplitude never clears the
	// floor contains no speech; skip the engine entirely.
	if peak := audio.Peak(buf.Samples); peak < s.policy.SilenceSkipThreshold {
		if logging.Sugar != nil {
			logging.Sugar.Infow("Recording below silence threshold, skipping engine",
				"peak", peak, "threshold", s.policy.SilenceSkipThreshold)
		}
		result.NoVoice = true
		return result, nil
	}

	start := time.Now()
	segments, err := s.engineTranscribe(buf)
	if err != nil {
		return nil, err
	}

	var kept strings.Builder
	dropped := 0
	for _, seg := range segments {
		if seg.Confidence < s.policy.ConfidenceThreshold {
			dropped++
			if logging.Sugar != nil {
				logging.Sugar.Debugw("Dropping low-confidence segment",
					"text", seg.Text, "confidence", seg.Confidence)
			}
			continue
		}
		kept.WriteString(seg.Text)
	}

	result.Text = strings.TrimSpace(kept.String())
	if result.Text == "" {
		result.NoVoice = true
	}

	if logging.Sugar != nil {
		logging.Sugar.Infow("Transcription complete",
			"elapsed", time.Since(start),
			"segments", len(segments),
			"dropped", dropped,
			"no_voice", result.NoVoice,
		)
	}
	return result, nil
}

func (s *Service) engineTranscribe(buf *audio.Buffer) ([]Segment, error) {
	s.mu.Lock()
	engine := s.engine
	loaded := s.loaded
	s.mu.Unlock()

	if !loaded {
		return nil, ErrModelNotLoaded
	}
	return engine.Transcribe(buf.Float32(), buf.SampleRate)
}

// Reload swaps in a new engine (model change from settings). The old
// engine is closed after the new one loads, so a failed reload keeps the
// previous model serving. Rejected while another load is in flight.
func (s *Service) Reload(engine Engine) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return ErrLoadInProgress
	}
	s.loading = true
	s.loadDone = make(chan struct{})
	old := s.engine
	s.mu.Unlock()

	err := engine.Load()

	s.mu.Lock()
	s.loading = false
	if err == nil {
		s.engine = engine
		s.loaded = true
	}
	close(s.loadDone)
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrModelLoadFailed, err)
	}

	if old != nil {
		if cerr := old.Close(); cerr != nil {
			logging.LogWarn("failed to close previous engine", zap.Error(cerr))
		}
	}
	return nil
}

// Close releases the engine.
func (s *Service) Close() error {
	s.mu.Lock()
	engine := s.engine
	s.loaded = false
	s.mu.Unlock()

	if engine != nil {
		return engine.Close()
	}
	return nil
}
