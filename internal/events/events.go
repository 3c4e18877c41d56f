/*
Copyright (c) 2025 Speechy

Licensed under the AGPLv3 License.
This file is part of speechy.
*/

package events

// Sink receives coordinator events. The presentation layer (tray, GUI,
// NATS bridge) subscribes through this interface; the coordinator never
// holds a reference back into presentation code.
type Sink interface {
	// RecordingStateChanged fires on entry to and exit from Recording.
	RecordingStateChanged(active bool)

	// TranscribingStateChanged fires around the transcription stage.
	TranscribingStateChanged(active bool)

	// CorrectingStateChanged fires around the LLM correction stage.
	CorrectingStateChanged(active bool)

	// ModelLoadingStateChanged fires around model load/reload. Percent is
	// 0-100 and message describes the current step; both are meaningful
	// only while active.
	ModelLoadingStateChanged(active bool, percent int, message string)

	// AudioLevel delivers the most recent capture level in [0, 1].
	// Emitted only while recording.
	AudioLevel(level float64)

	// TranscriptReady delivers the accepted raw transcript.
	TranscriptReady(text string)

	// ResponseReady delivers the corrected transcript.
	ResponseReady(text string)

	// StatusMessage delivers a human-readable status line.
	StatusMessage(message string)
}

// Multi fans events out to several sinks in order.
type Multi []Sink

func (m Multi) RecordingStateChanged(active bool) {
	for _, s := range m {
		s.RecordingStateChanged(active)
	}
}

func (m Multi) TranscribingStateChanged(active bool) {
	for _, s := range m {
		s.TranscribingStateChanged(active)
	}
}

func (m Multi) CorrectingStateChanged(active bool) {
	for _, s := range m {
		s.CorrectingStateChanged(active)
	}
}

func (m Multi) ModelLoadingStateChanged(active bool, percent int, message string) {
	for _, s := range m {
		s.ModelLoadingStateChanged(active, percent, message)
	}
}

func (m Multi) AudioLevel(level float64) {
	for _, s := range m {
		s.AudioLevel(level)
	}
}

func (m Multi) TranscriptReady(text string) {
	for _, s := range m {
		s.TranscriptReady(text)
	}
}

func (m Multi) ResponseReady(text string) {
	for _, s := range m {
		s.ResponseReady(text)
	}
}

func (m Multi) StatusMessage(message string) {
	for _, s := range m {
		s.StatusMessage(message)
	}
}

// Nop discards every event. Useful as a default and in tests.
type Nop struct{}

func (Nop) RecordingStateChanged(bool) {}
func (Nop) TranscribingStateChanged(bool) {}
func (Nop) CorrectingStateChanged(bool) {}
func (Nop) ModelLoadingStateChanged(bool, int, string) {}
func (Nop) AudioLevel(float64) {}
func (Nop) TranscriptReady(string) {}
func (Nop) ResponseReady(string) {}
func (Nop) StatusMessage(string) {}
