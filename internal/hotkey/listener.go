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

package hotkey

import (
	"errors"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/speechy/speechy/internal/logging"
)

var (
	ErrAlreadyRunning = errors.New("hotkey listener already running")
	ErrNotRunning     = errors.New("hotkey listener not running")
)

// KeyEvent is a raw key transition from the OS hook.
type KeyEvent struct {
	Key  string
	Down bool
}

// Source delivers raw key events. Open starts the underlying hook and
// returns its event channel; the channel closes when Close tears the
// hook down.
type Source interface {
	Open() (<-chan KeyEvent, error)
	Close() error
}

type controlKind int

const (
	ctlSuspend controlKind = iota
	ctlResume
	ctlUpdateChord
)

type controlMsg struct {
	kind  controlKind
	chord Chord
}

// Listener turns raw key events into edge-triggered toggle callbacks.
//
// All listener state (the pressed set, the edge latch, the active chord,
// the suspension flag) lives on the single event-loop goroutine. Suspend,
// Resume and UpdateChord are delivered as control messages into that same
// loop, so the OS hook is never torn down to change behavior.
type Listener struct {
	source  Source
	toggled func()

	control chan controlMsg
	done    chan struct{}
	running atomic.Bool
}

// NewListener creates a listener that invokes toggled once per completed
// chord press edge. toggled runs on the listener goroutine and must not
// block.
func NewListener(source Source, toggled func()) *Listener {
	return &Listener{
		source:  source,
		toggled: toggled,
	}
}

// Start opens the source and begins evaluating events.
func (l *Listener) Start(chord Chord) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	events, err := l.source.Open()
	if err != nil {
		l.running.Store(false)
		return err
	}
	l.control = make(chan controlMsg, 16)
	l.done = make(chan struct{})

	if logging.Sugar != nil {
		logging.Sugar.Infow("🎹 Hotkey listener started", "chord", chord.String())
	}
	go l.loop(events, chord)
	return nil
}

// Stop closes the source and waits for the event loop to drain.
func (l *Listener) Stop() error {
	if !l.running.CompareAndSwap(true, false) {
		return ErrNotRunning
	}
	err := l.source.Close()
	<-l.done
	return err
}

// Suspend pauses chord evaluation and clears any latched partial state.
// Synthetic keystrokes from the injector are ignored while suspended.
// Suspensions nest: each Suspend needs a matching Resume, and chord
// evaluation restarts only when the last one is released.
func (l *Listener) Suspend() {
	l.send(controlMsg{kind: ctlSuspend})
}

// Resume releases one suspension.
func (l *Listener) Resume() {
	l.send(controlMsg{kind: ctlResume})
}

// UpdateChord swaps the active chord without restarting the hook.
func (l *Listener) UpdateChord(chord Chord) {
	l.send(controlMsg{kind: ctlUpdateChord, chord: chord})
}

func (l *Listener) send(msg controlMsg) {
	if !l.running.Load() {
		return
	}
	select {
	case l.control <- msg:
	case <-l.done:
	}
}

func (l *Listener) loop(events <-chan KeyEvent, chord Chord) {
	defer close(l.done)

	state := &loopState{
		pressed: make(map[string]bool),
		chord:   chord,
	}

	for {
		// Control messages take priority over key events, so a Suspend
		// issued before an injection is always applied before any key
		// event that injection produces.
		select {
		case msg := <-l.control:
			state.handleControl(msg)
			continue
		default:
		}

		select {
		case msg := <-l.control:
			state.handleControl(msg)

		case ev, ok := <-events:
			if !ok {
				if logging.Sugar != nil {
					logging.Sugar.Infow("Hotkey listener stopped")
				}
				return
			}
			if state.suspends > 0 {
				continue
			}
			if ev.Down {
				state.pressed[ev.Key] = true
			} else {
				delete(state.pressed, ev.Key)
			}

			if Match(state.pressed, state.chord) {
				if !state.latched {
					state.latched = true
					logging.LogPipelineStage("", "hotkey_toggle",
						zap.String("chord", state.chord.String()),
					)
					l.toggled()
				}
			} else if !anyChordKeyDown(state.pressed, state.chord) {
				// Re-arm only after the chord has fully released.
				state.latched = false
			}
		}
	}
}

// loopState is owned exclusively by the event-loop goroutine. Suspension
// is counted, not boolean: overlapping injections each suspend on start
// and resume on completion, and key delivery must stay off until the
// last one finishes.
type loopState struct {
	pressed  map[string]bool
	chord    Chord
	latched  bool
	suspends int
}

func (s *loopState) handleControl(msg controlMsg) {
	switch msg.kind {
	case ctlSuspend:
		s.suspends++
		// Keys observed so far may be synthetic, forget them.
		s.pressed = make(map[string]bool)
		s.latched = false
	case ctlResume:
		if s.suspends > 0 {
			s.suspends--
		}
	case ctlUpdateChord:
		s.chord = msg.chord
		s.pressed = make(map[string]bool)
		s.latched = false
		if logging.Sugar != nil {
			logging.Sugar.Infow("Hotkey updated", "chord", s.chord.String())
		}
	}
}

func anyChordKeyDown(pressed map[string]bool, chord Chord) bool {
	for _, key := range chord.Keys {
		if pressed[key] {
			return true
		}
	}
	return false
}
