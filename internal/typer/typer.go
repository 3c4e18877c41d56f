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

// Package typer injects transcribed text into the focused application as
// synthetic keystrokes. Injection is policy gated so text never lands in
// password prompts or other sensitive windows.
package typer

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/speechy/speechy/internal/logging"
)

var (
	// ErrDisabled means auto-typing is switched off.
	ErrDisabled = errors.New("auto-typing disabled")
	// ErrEmptyText means there was nothing to type after trimming.
	ErrEmptyText = errors.New("empty text")
	// ErrBlockedByPolicy means the focused application is on the exclusion list.
	ErrBlockedByPolicy = errors.New("typing blocked in current application")
	// ErrPermissionDenied means the OS refused synthetic keystrokes.
	ErrPermissionDenied = errors.New("keyboard access denied, check accessibility permissions")
)

// Keyboard abstracts keystroke synthesis so tests can run without a
// display server.
type Keyboard interface {
	// TypeChar types a single printable character.
	TypeChar(ch rune) error
	// TapKey presses and releases a named key such as "enter" or "tab".
	TapKey(name string) error
}

// ForegroundAppFunc reports the name of the focused application. An empty
// string means the platform could not tell.
type ForegroundAppFunc func() string

// Result describes how an injection attempt ended.
type Result struct {
	Typed int
	Err   error
}

// AutoTyper types text at the cursor position, one character at a time,
// honoring a pre-typing delay and a per-application exclusion policy.
type AutoTyper struct {
	mu sync.Mutex
	// runMu serializes executions so two requests never interleave
	// keystrokes. A new request waits for the in-flight one, it does
	// not cancel it.
	runMu         sync.Mutex
	keyboard      Keyboard
	foregroundApp ForegroundAppFunc
	enabled       bool
	delay         time.Duration
	speed         time.Duration
	excludedApps  []string
}

// New creates an AutoTyper over the given keyboard. foregroundApp may be
// nil, in which case the exclusion policy always permits.
func New(keyboard Keyboard, foregroundApp ForegroundAppFunc) *AutoTyper {
	return &AutoTyper{
		keyboard:      keyboard,
		foregroundApp: foregroundApp,
		enabled:       true,
		delay:         time.Second,
		speed:         20 * time.Millisecond,
		excludedApps:  []string{"Keychain Access", "Login Window", "1Password"},
	}
}

func (t *AutoTyper) SetEnabled(enabled bool) {
	t.mu.Lock()
	t.enabled = enabled
	t.mu.Unlock()
	logging.LogInjection("enabled_changed", zap.Bool("enabled", enabled))
}

func (t *AutoTyper) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// SetDelay sets the pause before typing starts. Negative values clamp to zero.
func (t *AutoTyper) SetDelay(delay time.Duration) {
	if delay < 0 {
		delay = 0
	}
	t.mu.Lock()
	t.delay = delay
	t.mu.Unlock()
}

// SetSpeed sets the pause between characters. Values under one
// millisecond clamp up so the target application can keep pace.
func (t *AutoTyper) SetSpeed(speed time.Duration) {
	if speed < time.Millisecond {
		speed = time.Millisecond
	}
	t.mu.Lock()
	t.speed = speed
	t.mu.Unlock()
}

// SetExcludedApps replaces the exclusion list.
func (t *AutoTyper) SetExcludedApps(apps []string) {
	t.mu.Lock()
	t.excludedApps = append([]string(nil), apps...)
	t.mu.Unlock()
}

// ExcludedApps returns a copy of the exclusion list.
func (t *AutoTyper) ExcludedApps() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.excludedApps...)
}

// EmergencyStop disables auto-typing. A character already in flight may
// still land, but no further text is injected.
func (t *AutoTyper) EmergencyStop() {
	logging.LogInjection("emergency_stop")
	t.SetEnabled(false)
}

// TypeAsync types text on a background goroutine and calls done exactly
// once with the outcome, including when the worker panics. done may be nil.
func (t *AutoTyper) TypeAsync(text string, done func(Result)) {
	report := func(res Result) {
		if done != nil {
			done(res)
		}
	}

	if !t.Enabled() {
		report(Result{Err: ErrDisabled})
		return
	}
	if strings.TrimSpace(text) == "" {
		report(Result{Err: ErrEmptyText})
		return
	}

	go func() {
		var res Result
		defer func() {
			if r := recover(); r != nil {
				res.Err = fmt.Errorf("typing panicked: %v", r)
			}
			report(res)
		}()
		res = t.typeSync(text)
	}()
}

func (t *AutoTyper) typeSync(text string) Result {
	t.runMu.Lock()
	defer t.runMu.Unlock()

	t.mu.Lock()
	delay, speed := t.delay, t.speed
	t.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	// Re-check after the delay, EmergencyStop may have fired meanwhile.
	if !t.Enabled() {
		return Result{Err: ErrDisabled}
	}
	if err := t.checkPolicy(); err != nil {
		return Result{Err: err}
	}

	clean := normalize(text)
	logging.LogInjection("start",
		zap.Int("length", len(clean)),
		zap.Duration("speed", speed),
	)

	typed := 0
	for _, ch := range clean {
		if !t.Enabled() {
			logging.LogInjection("aborted", zap.Int("typed", typed))
			return Result{Typed: typed, Err: ErrDisabled}
		}

		var err error
		switch ch {
		case '\n':
			err = t.keyboard.TapKey("enter")
		case '\t':
			err = t.keyboard.TapKey("tab")
		default:
			err = t.keyboard.TypeChar(ch)
		}
		if err != nil {
			// One stuck character should not lose the rest of the text.
			logging.LogWarn("failed to type character",
				zap.String("char", string(ch)),
				zap.Int("position", typed),
				zap.Error(err),
			)
			continue
		}
		typed++

		if speed > 0 {
			time.Sleep(speed)
		}
	}

	logging.LogInjection("complete", zap.Int("typed", typed))
	return Result{Typed: typed}
}

// checkPolicy consults the foreground application against the exclusion
// list. Unknown foreground resolves to permit, matching the behavior of
// desktops where the window title cannot be read.
func (t *AutoTyper) checkPolicy() error {
	if t.foregroundApp == nil {
		return nil
	}
	app := t.foregroundApp()
	if app == "" {
		logging.LogWarn("cannot determine focused application, allowing typing")
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, excluded := range t.excludedApps {
		if strings.EqualFold(app, excluded) {
			logging.LogInjection("blocked", zap.String("app", app))
			return fmt.Errorf("%w: %s", ErrBlockedByPolicy, app)
		}
	}
	return nil
}

// normalize trims the text and appends a terminal period when the text
// reads like a full sentence but ends without punctuation.
func normalize(text string) string {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return clean
	}
	last := clean[len(clean)-1]
	if last != '.' && last != '!' && last != '?' && len(strings.Fields(clean)) > 2 {
		clean += "."
	}
	return clean
}
