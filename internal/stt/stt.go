/*
Copyright (c) 2025 Speechy

Licensed under the AGPLv3 License.
This file is part of speechy.
*/

package stt

import (
	"errors"
	"time"
)

var (
	ErrModelNotLoaded  = errors.New("transcription model not loaded")
	ErrModelLoadFailed = errors.New("failed to load transcription model")
	ErrLoadInProgress  = errors.New("model load already in progress")
)

// Segment is a time-bounded span of transcribed speech with its own
// confidence score (average token log-probability for whisper).
type Segment struct {
	Text       string
	Start      time.Duration
	End        time.Duration
	Confidence float64
}

// Result is the outcome of one transcription. NoVoice is a valid,
// non-error outcome meaning the recording contained no usable speech; the
// coordinator must not treat it as a failure.
type Result struct {
	Text     string
	NoVoice  bool
	Duration time.Duration
}

// Engine converts audio samples to transcript segments. Implementations:
// the local whisper.cpp bindings (build tag "whisper") and the
// OpenAI-compatible REST client.
type Engine interface {
	// Load prepares the engine. Idempotent; may take seconds to tens of
	// seconds for local models.
	Load() error

	// Transcribe converts normalized float32 samples to segments.
	Transcribe(samples []float32, sampleRate int) ([]Segment, error)

	// Close releases engine resources.
	Close() error
}
