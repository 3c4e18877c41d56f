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
	"testing"
	"time"
)

// fakeSource feeds scripted key events into the listener.
type fakeSource struct {
	events chan KeyEvent
}

func newFakeSource() *fakeSource {
	return &fakeSource{events: make(chan KeyEvent, 64)}
}

func (s *fakeSource) Open() (<-chan KeyEvent, error) { return s.events, nil }

func (s *fakeSource) Close() error {
	close(s.events)
	return nil
}

func (s *fakeSource) press(key string)   { s.events <- KeyEvent{Key: key, Down: true} }
func (s *fakeSource) release(key string) { s.events <- KeyEvent{Key: key, Down: false} }

// toggleCounter collects toggles with a timeout-bounded wait.
type toggleCounter struct {
	ch chan struct{}
}

func newToggleCounter() *toggleCounter {
	return &toggleCounter{ch: make(chan struct{}, 64)}
}

func (c *toggleCounter) callback() { c.ch <- struct{}{} }

func (c *toggleCounter) waitOne(t *testing.T) {
	t.Helper()
	select {
	case <-c.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a toggle, got none")
	}
}

func (c *toggleCounter) expectNone(t *testing.T) {
	t.Helper()
	select {
	case <-c.ch:
		t.Fatal("unexpected toggle")
	case <-time.After(50 * time.Millisecond):
	}
}

func startListener(t *testing.T, src Source, chordSpec string) (*Listener, *toggleCounter) {
	t.Helper()
	counter := newToggleCounter()
	l := NewListener(src, counter.callback)
	if err := l.Start(ParseChord(chordSpec)); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return l, counter
}

func TestSingleKeyToggle(t *testing.T) {
	src := newFakeSource()
	l, counter := startListener(t, src, "f9")
	defer l.Stop()

	src.press("f9")
	counter.waitOne(t)

	src.release("f9")
	src.press("f9")
	counter.waitOne(t)
}

func TestEdgeTriggeredNotLevelTriggered(t *testing.T) {
	src := newFakeSource()
	l, counter := startListener(t, src, "f9")
	defer l.Stop()

	src.press("f9")
	counter.waitOne(t)

	// Key repeat delivers more down events while held.
	src.press("f9")
	src.press("f9")
	counter.expectNone(t)

	src.release("f9")
	src.press("f9")
	counter.waitOne(t)
}

func TestChordRequiresAllKeys(t *testing.T) {
	src := newFakeSource()
	l, counter := startListener(t, src, "ctrl+space")
	defer l.Stop()

	src.press("ctrl")
	counter.expectNone(t)

	src.press("space")
	counter.waitOne(t)

	// Releasing one key and re-pressing it must not re-fire, the whole
	// chord has to come up first.
	src.release("space")
	src.press("space")
	counter.expectNone(t)

	src.release("space")
	src.release("ctrl")
	src.press("ctrl")
	src.press("space")
	counter.waitOne(t)
}

func TestSuspendDropsEventsAndClearsLatch(t *testing.T) {
	src := newFakeSource()
	l, counter := startListener(t, src, "ctrl+space")
	defer l.Stop()

	src.press("ctrl")
	counter.expectNone(t)

	l.Suspend()
	// Synthetic traffic during injection, including the chord itself.
	src.press("space")
	src.release("space")
	counter.expectNone(t)

	l.Resume()
	// The pre-suspend ctrl press was cleared, space alone must not fire.
	src.press("space")
	counter.expectNone(t)

	src.press("ctrl")
	counter.waitOne(t)
}

func TestUpdateChordWithoutRestart(t *testing.T) {
	src := newFakeSource()
	l, counter := startListener(t, src, "f9")
	defer l.Stop()

	l.UpdateChord(ParseChord("f12"))
	src.press("f9")
	counter.expectNone(t)

	src.press("f12")
	counter.waitOne(t)
}

func TestStartStopLifecycle(t *testing.T) {
	src := newFakeSource()
	l, _ := startListener(t, src, "f9")

	if err := l.Start(ParseChord("f9")); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start() error = %v, expected ErrAlreadyRunning", err)
	}
	if err := l.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := l.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("second Stop() error = %v, expected ErrNotRunning", err)
	}
}

func TestOverlappingSuspendsStayPaired(t *testing.T) {
	src := newFakeSource()
	l, counter := startListener(t, src, "f9")
	defer l.Stop()

	// Two injections in flight at once: the first Resume must not wake
	// the listener while the second injection is still typing.
	l.Suspend()
	l.Suspend()
	counter.expectNone(t)

	l.Resume()
	src.press("f9")
	src.release("f9")
	counter.expectNone(t)

	l.Resume()
	src.press("f9")
	counter.waitOne(t)
}

func TestSuspendAfterStopIsSafe(t *testing.T) {
	src := newFakeSource()
	l, _ := startListener(t, src, "f9")
	if err := l.Stop(); err != nil {
		t.Fatal(err)
	}

	// Must not panic or block.
	l.Suspend()
	l.Resume()
	l.UpdateChord(ParseChord("f10"))
}
