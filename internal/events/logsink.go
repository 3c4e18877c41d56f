/*
Copyright (c) 2025 Speechy

Licensed under the AGPLv3 License.
This file is part of speechy.
*/

package events

import (
	"github.com/speechy/speechy/internal/logging"
	"go.uber.org/zap"
)

// LogSink mirrors coordinator events into the structured log. Audio level
// samples are deliberately not logged; at ~10/sec they would drown
// everything else.
type LogSink struct{}

func (LogSink) RecordingStateChanged(active bool) {
	logging.LogPipelineStage("", "recording", zap.Bool("active", active))
}

func (LogSink) TranscribingStateChanged(active bool) {
	logging.LogPipelineStage("", "transcribing", zap.Bool("active", active))
}

func (LogSink) CorrectingStateChanged(active bool) {
	logging.LogPipelineStage("", "correcting", zap.Bool("active", active))
}

func (LogSink) ModelLoadingStateChanged(active bool, percent int, message string) {
	logging.LogPipelineStage("", "model_loading",
		zap.Bool("active", active),
		zap.Int("percent", percent),
		zap.String("message", message))
}

func (LogSink) AudioLevel(float64) {}

func (LogSink) TranscriptReady(text string) {
	logging.LogPipelineStage("", "transcript", zap.Int("chars", len(text)))
}

func (LogSink) ResponseReady(text string) {
	logging.LogPipelineStage("", "response", zap.Int("chars", len(text)))
}

func (LogSink) StatusMessage(message string) {
	logging.LogPipelineStage("", "status", zap.String("message", message))
}
