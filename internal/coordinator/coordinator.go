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

// Package coordinator owns the dictation session state machine and
// sequences the capture, transcription, correction and injection stages.
//
// All state transitions funnel through one mutex. Stage work runs on
// worker goroutines that re-enter the coordinator through completion
// methods taking the same lock, so no two sessions ever overlap and no
// stage result is applied against stale state.
package coordinator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/speechy/speechy/internal/audio"
	"github.com/speechy/speechy/internal/config"
	"github.com/speechy/speechy/internal/events"
	"github.com/speechy/speechy/internal/hotkey"
	"github.com/speechy/speechy/internal/logging"
	"github.com/speechy/speechy/internal/stt"
	"github.com/speechy/speechy/internal/typer"
)

// errInterrupted marks sessions cut off by application shutdown.
var errInterrupted = errors.New("interrupted by shutdown")

// State is the externally observable pipeline stage.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateTranscribing
	StateCorrecting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateTranscribing:
		return "transcribing"
	case StateCorrecting:
		return "correcting"
	default:
		return "unknown"
	}
}

// Recorder is the capture surface the coordinator drives.
type Recorder interface {
	Start() error
	Stop() (*audio.Buffer, error)
	Active() bool
}

// Transcriber is the speech-to-text surface.
type Transcriber interface {
	Load() error
	Loaded() bool
	Transcribe(buf *audio.Buffer) (*stt.Result, error)
}

// Corrector is the LLM cleanup surface.
type Corrector interface {
	IsAvailable(ctx context.Context) bool
	Correct(ctx context.Context, text string) (string, error)
	SetModel(model string)
	SetStrategy(strategy string) error
}

// Injector is the keystroke injection surface.
type Injector interface {
	TypeAsync(text string, done func(typer.Result))
	SetEnabled(enabled bool)
	SetDelay(delay time.Duration)
	SetSpeed(speed time.Duration)
	SetExcludedApps(apps []string)
}

// HotkeyControl is the slice of the hotkey listener the coordinator
// needs: pausing around injection and live chord swaps.
type HotkeyControl interface {
	Suspend()
	Resume()
	UpdateChord(chord hotkey.Chord)
}

// SessionWriter persists finished sessions.
type SessionWriter interface {
	Insert(record *events.SessionRecord) error
}

// TranscriptWriter appends accepted transcripts to the plain-text log.
type TranscriptWriter interface {
	Append(at time.Time, text string) error
}

// Notifier shows desktop notifications for pipeline milestones.
type Notifier interface {
	SetEnabled(enabled bool)
	RecordingStarted()
	RecordingStopped()
	TranscriptionComplete(text string)
	ResponseReady(text string)
	Error(message string)
}

// Deps wires the coordinator's collaborators. Sink defaults to a no-op;
// Sessions, Transcripts, Notifier, Clipboard and ReloadModel may be nil.
type Deps struct {
	Config      *config.Config
	Recorder    Recorder
	Transcriber Transcriber
	Corrector   Corrector
	Injector    Injector
	Hotkeys     HotkeyControl
	Sink        events.Sink
	Sessions    SessionWriter
	Transcripts TranscriptWriter
	Notifier    Notifier

	// Clipboard copies accepted transcripts; typically clipboard.WriteAll.
	Clipboard func(text string) error
	// ReloadModel swaps the transcription engine for new STT settings.
	ReloadModel func(cfg config.STTConfig) error
}

// Coordinator is the session state machine.
type Coordinator struct {
	mu sync.Mutex

	cfg          *config.Config
	state        State
	session      *events.SessionRecord
	modelLoading bool

	// recording mirrors state == StateRecording for the level path.
	// The capture goroutine delivers level samples synchronously while
	// Stop drains it, and Stop runs under mu; taking mu here would
	// deadlock the drain against its own caller.
	recording atomic.Bool

	recorder    Recorder
	transcriber Transcriber
	corrector   Corrector
	injector    Injector
	hotkeys     HotkeyControl
	sink        events.Sink
	sessions    SessionWriter
	transcripts TranscriptWriter
	notifier    Notifier
	clipboard   func(string) error
	reloadModel func(config.STTConfig) error
}

// New creates an idle coordinator.
func New(deps Deps) *Coordinator {
	sink := deps.Sink
	if sink == nil {
		sink = events.Nop{}
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Coordinator{
		cfg:         deps.Config,
		state:       StateIdle,
		recorder:    deps.Recorder,
		transcriber: deps.Transcriber,
		corrector:   deps.Corrector,
		injector:    deps.Injector,
		hotkeys:     deps.Hotkeys,
		sink:        sink,
		sessions:    deps.Sessions,
		transcripts: deps.Transcripts,
		notifier:    notifier,
		clipboard:   deps.Clipboard,
		reloadModel: deps.ReloadModel,
	}
}

// State returns the current pipeline stage.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Toggle handles one hotkey press: start recording from idle, stop and
// process from recording. While a session is transcribing or correcting
// the toggle is ignored, never queued.
func (c *Coordinator) Toggle() {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateIdle:
		c.startRecordingLocked()
	case StateRecording:
		c.stopRecordingLocked()
	default:
		logging.LogPipelineStage(c.sessionID(), "toggle_ignored",
			zap.String("state", c.state.String()),
		)
	}
}

// Shutdown discards an in-flight recording so the capture device is
// released before teardown. Sessions already past Recording finish on
// their own worker.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRecording {
		return
	}

	session := c.session
	c.recording.Store(false)
	if _, err := c.recorder.Stop(); err != nil {
		logging.LogError(err, "failed to stop recording during shutdown")
	}
	c.sink.RecordingStateChanged(false)
	session.FinishWithError(errInterrupted)
	c.finishLocked(session)
}

// OnAudioLevel forwards one capture level sample to observers. Samples
// arriving outside Recording are dropped. Must never block on mu: the
// capture goroutine calls it while a stop may be draining under mu.
func (c *Coordinator) OnAudioLevel(level float64) {
	if c.recording.Load() {
		c.sink.AudioLevel(level)
	}
}

func (c *Coordinator) startRecordingLocked() {
	session := events.NewSessionRecord()

	if err := c.recorder.Start(); err != nil {
		logging.LogError(err, "failed to start recording")
		c.sink.StatusMessage("Failed to start recording")
		c.notifier.Error("Failed to start recording")
		session.FinishWithError(err)
		c.persist(session)
		return
	}

	c.session = session
	c.state = StateRecording
	c.recording.Store(true)
	logging.LogPipelineStage(session.UUID, "recording_started")
	c.sink.RecordingStateChanged(true)
	c.notifier.RecordingStarted()
}

func (c *Coordinator) stopRecordingLocked() {
	session := c.session
	c.recording.Store(false)
	buf, err := c.recorder.Stop()

	c.sink.RecordingStateChanged(false)

	if err != nil {
		logging.LogError(err, "failed to stop recording")
		c.sink.StatusMessage("No audio recorded")
		session.FinishWithError(err)
		c.finishLocked(session)
		return
	}

	// The buffer is discarded when the press was too short to hold
	// meaningful speech. The stop above already ran, so the device is
	// released either way.
	if buf.Duration() < c.cfg.STT.MinDuration {
		logging.LogPipelineStage(session.UUID, "recording_too_short",
			zap.Duration("duration", buf.Duration()),
		)
		c.sink.StatusMessage("Recording too short - please speak a little longer")
		session.SetAudioMetadata(len(buf.Samples), buf.SampleRate)
		session.Finish(events.OutcomeTooShort)
		c.finishLocked(session)
		return
	}

	session.SetAudioMetadata(len(buf.Samples), buf.SampleRate)
	c.state = StateTranscribing
	logging.LogPipelineStage(session.UUID, "transcribing",
		zap.Duration("audio", buf.Duration()),
	)
	c.sink.TranscribingStateChanged(true)
	c.notifier.RecordingStopped()

	go func() {
		res, terr := c.transcriber.Transcribe(buf)
		c.onTranscribeDone(session, res, terr)
	}()
}

// onTranscribeDone re-enters the state machine with the transcription
// outcome.
func (c *Coordinator) onTranscribeDone(session *events.SessionRecord, res *stt.Result, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sink.TranscribingStateChanged(false)

	if err != nil {
		logging.LogError(err, "transcription failed", zap.String("session", session.UUID))
		c.sink.StatusMessage("Transcription failed")
		c.notifier.Error("Transcription failed")
		session.FinishWithError(err)
		c.finishLocked(session)
		return
	}

	if res.NoVoice {
		logging.LogPipelineStage(session.UUID, "no_voice")
		c.sink.StatusMessage("No voice detected")
		session.Finish(events.OutcomeNoVoice)
		c.finishLocked(session)
		return
	}

	session.RawTranscript = res.Text
	logging.LogPipelineStage(session.UUID, "transcript_accepted",
		zap.Int("length", len(res.Text)),
	)

	// Accepted-transcript side effects, in the same order the raw text
	// reaches the user: observers, log file, clipboard, keystrokes,
	// notification.
	c.sink.TranscriptReady(res.Text)

	if c.cfg.LogTranscriptions && c.transcripts != nil {
		if lerr := c.transcripts.Append(time.Now(), res.Text); lerr != nil {
			logging.LogError(lerr, "failed to log transcript")
		}
	}
	if c.cfg.CopyToClipboard && c.clipboard != nil {
		if cerr := c.clipboard(res.Text); cerr != nil {
			logging.LogError(cerr, "failed to copy transcript to clipboard")
		}
	}
	if c.typingWanted("raw") {
		c.injectLocked(res.Text, "raw")
	}
	c.notifier.TranscriptionComplete(res.Text)

	c.state = StateCorrecting
	c.sink.CorrectingStateChanged(true)

	go func() {
		corrected, cerr := c.corrector.Correct(context.Background(), res.Text)
		c.onCorrectDone(session, corrected, cerr)
	}()
}

// onCorrectDone re-enters the state machine with the correction outcome.
// Correction failure is a degradation, not a session failure: the raw
// transcript already reached the user.
func (c *Coordinator) onCorrectDone(session *events.SessionRecord, corrected string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sink.CorrectingStateChanged(false)

	if err != nil {
		logging.LogError(err, "correction failed", zap.String("session", session.UUID))
		c.sink.StatusMessage("AI correction failed")
	} else {
		session.CorrectedTranscript = corrected
		c.sink.ResponseReady(corrected)
		if c.typingWanted("corrected") {
			c.injectLocked(corrected, "corrected")
		}
		c.notifier.ResponseReady(corrected)
	}

	session.Finish(events.OutcomeCompleted)
	c.finishLocked(session)
}

// typingWanted reports whether the given mode tag should be injected
// under the current settings.
func (c *Coordinator) typingWanted(tag string) bool {
	if !c.cfg.Typing.Enabled {
		return false
	}
	mode := c.cfg.Typing.Mode
	return mode == tag || mode == "both"
}

// injectLocked hands text to the injector with the hotkey listener
// suspended for the duration. The typer fires done exactly once on
// every path, so each Suspend has exactly one Resume.
func (c *Coordinator) injectLocked(text, tag string) {
	c.hotkeys.Suspend()
	c.injector.TypeAsync(text, func(res typer.Result) {
		c.hotkeys.Resume()
		if res.Err != nil {
			logging.LogWarn("auto-typing failed",
				zap.String("kind", tag),
				zap.Int("typed", res.Typed),
				zap.Error(res.Err),
			)
			return
		}
		logging.LogInjection("done",
			zap.String("kind", tag),
			zap.Int("typed", res.Typed),
		)
	})
}

// finishLocked persists the session and returns the machine to idle.
func (c *Coordinator) finishLocked(session *events.SessionRecord) {
	c.persist(session)
	c.session = nil
	c.state = StateIdle
	logging.LogPipelineStage(session.UUID, "session_finished",
		zap.String("outcome", session.Outcome),
	)
}

func (c *Coordinator) persist(session *events.SessionRecord) {
	if c.sessions == nil {
		return
	}
	if err := c.sessions.Insert(session); err != nil {
		logging.LogError(err, "failed to persist session",
			zap.String("session", session.UUID),
		)
	}
}

func (c *Coordinator) sessionID() string {
	if c.session == nil {
		return ""
	}
	return c.session.UUID
}

// nopNotifier keeps notification call sites unconditional.
type nopNotifier struct{}

func (nopNotifier) SetEnabled(bool) {}
func (nopNotifier) RecordingStarted() {}
func (nopNotifier) RecordingStopped() {}
func (nopNotifier) TranscriptionComplete(string) {}
func (nopNotifier) ResponseReady(string) {}
func (nopNotifier) Error(string) {}
