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

// Package messaging mirrors pipeline events onto a NATS bus so external
// tooling (widgets, dashboards, automations) can follow the assistant
// without linking against it.
package messaging

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/speechy/speechy/internal/logging"
)

// NATS subjects for the event mirror.
const (
	SubjectSessionState      = "speechy.session.state"
	SubjectSessionTranscript = "speechy.session.transcript"
	SubjectSessionResponse   = "speechy.session.response"
	SubjectSystemStatus      = "speechy.system.status"
)

// StateEvent reports a pipeline stage turning on or off.
type StateEvent struct {
	Stage     string `json:"stage"` // recording, transcribing, correcting, model_loading
	Active    bool   `json:"active"`
	Percent   int    `json:"percent,omitempty"`
	Message   string `json:"message,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// TextEvent carries a transcript or corrected response.
type TextEvent struct {
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// StatusEvent carries a human-readable status line.
type StatusEvent struct {
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// NATSBridge publishes pipeline events to NATS. It implements
// events.Sink so the coordinator needs no messaging awareness.
type NATSBridge struct {
	conn          *nats.Conn
	url           string
	maxReconnect  int
	reconnectWait time.Duration
}

// NewNATSBridge creates a bridge for the given server URL. An empty URL
// falls back to NATS_URL, then the default local server. maxReconnect
// follows nats.go semantics (negative means retry forever); a zero
// reconnectWait gets the client default.
func NewNATSBridge(url string, maxReconnect int, reconnectWait time.Duration) *NATSBridge {
	if url == "" {
		url = os.Getenv("NATS_URL")
	}
	if url == "" {
		url = nats.DefaultURL
	}
	if reconnectWait <= 0 {
		reconnectWait = nats.DefaultReconnectWait
	}
	return &NATSBridge{
		url:           url,
		maxReconnect:  maxReconnect,
		reconnectWait: reconnectWait,
	}
}

// Connect establishes the NATS connection.
func (b *NATSBridge) Connect() error {
	opts := []nats.Option{
		nats.Name("speechy"),
		nats.ReconnectWait(b.reconnectWait),
		nats.MaxReconnects(b.maxReconnect),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logging.LogWarn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			if logging.Sugar != nil {
				logging.Sugar.Infow("🔄 NATS reconnected", "url", nc.ConnectedUrl())
			}
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			if logging.Sugar != nil {
				logging.Sugar.Infow("🔌 NATS connection closed")
			}
		}),
	}

	conn, err := nats.Connect(b.url, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	b.conn = conn

	if logging.Sugar != nil {
		logging.Sugar.Infow("✅ Connected to NATS", "url", conn.ConnectedUrl())
	}
	return nil
}

// Close drains and closes the connection.
func (b *NATSBridge) Close() {
	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
}

func (b *NATSBridge) publish(subject string, payload interface{}) {
	if b.conn == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		logging.LogWarn("failed to marshal NATS payload",
			zap.String("subject", subject), zap.Error(err),
		)
		return
	}
	// Event mirroring is best effort, a publish failure never stalls
	// the pipeline.
	if err := b.conn.Publish(subject, data); err != nil {
		logging.LogWarn("failed to publish to NATS",
			zap.String("subject", subject), zap.Error(err),
		)
	}
}

func (b *NATSBridge) publishState(stage string, active bool, percent int, message string) {
	b.publish(SubjectSessionState, StateEvent{
		Stage:     stage,
		Active:    active,
		Percent:   percent,
		Message:   message,
		Timestamp: time.Now().UnixMilli(),
	})
}

// RecordingStateChanged implements events.Sink.
func (b *NATSBridge) RecordingStateChanged(active bool) {
	b.publishState("recording", active, 0, "")
}

// TranscribingStateChanged implements events.Sink.
func (b *NATSBridge) TranscribingStateChanged(active bool) {
	b.publishState("transcribing", active, 0, "")
}

// CorrectingStateChanged implements events.Sink.
func (b *NATSBridge) CorrectingStateChanged(active bool) {
	b.publishState("correcting", active, 0, "")
}

// ModelLoadingStateChanged implements events.Sink.
func (b *NATSBridge) ModelLoadingStateChanged(active bool, percent int, message string) {
	b.publishState("model_loading", active, percent, message)
}

// AudioLevel implements events.Sink. Levels arrive per chunk and are
// meaningful only to a local meter, they are not mirrored.
func (b *NATSBridge) AudioLevel(level float64) {}

// TranscriptReady implements events.Sink.
func (b *NATSBridge) TranscriptReady(text string) {
	b.publish(SubjectSessionTranscript, TextEvent{Text: text, Timestamp: time.Now().UnixMilli()})
}

// ResponseReady implements events.Sink.
func (b *NATSBridge) ResponseReady(text string) {
	b.publish(SubjectSessionResponse, TextEvent{Text: text, Timestamp: time.Now().UnixMilli()})
}

// StatusMessage implements events.Sink.
func (b *NATSBridge) StatusMessage(message string) {
	b.publish(SubjectSystemStatus, StatusEvent{Message: message, Timestamp: time.Now().UnixMilli()})
}
