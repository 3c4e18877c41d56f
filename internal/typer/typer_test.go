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

package typer

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeKeyboard records everything typed and can fail on chosen characters.
type fakeKeyboard struct {
	mu       sync.Mutex
	typed    []rune
	keys     []string
	failOn   map[rune]error
	panicOn  rune
	hasPanic bool
}

func (k *fakeKeyboard) TypeChar(ch rune) error {
	if k.hasPanic && ch == k.panicOn {
		panic("keyboard backend crashed")
	}
	if err, ok := k.failOn[ch]; ok {
		return err
	}
	k.mu.Lock()
	k.typed = append(k.typed, ch)
	k.mu.Unlock()
	return nil
}

func (k *fakeKeyboard) TapKey(name string) error {
	k.mu.Lock()
	k.keys = append(k.keys, name)
	k.mu.Unlock()
	return nil
}

func (k *fakeKeyboard) text() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return string(k.typed)
}

func (k *fakeKeyboard) tappedKeys() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]string(nil), k.keys...)
}

func newTestTyper(kb Keyboard, app ForegroundAppFunc) *AutoTyper {
	t := New(kb, app)
	t.SetDelay(0)
	t.SetSpeed(time.Millisecond)
	return t
}

func typeAndWait(t *testing.T, at *AutoTyper, text string) Result {
	t.Helper()
	results := make(chan Result, 1)
	at.TypeAsync(text, func(res Result) { results <- res })
	select {
	case res := <-results:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("typing did not complete in time")
		return Result{}
	}
}

func TestTypeAsyncHappyPath(t *testing.T) {
	kb := &fakeKeyboard{}
	at := newTestTyper(kb, nil)

	res := typeAndWait(t, at, "hello there world")
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if got := kb.text(); got != "hello there world." {
		t.Errorf("typed %q, expected terminal period appended", got)
	}
	if res.Typed != len("hello there world.") {
		t.Errorf("Typed = %d", res.Typed)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"hello there world", "hello there world."},
		{"hello there world!", "hello there world!"},
		{"is it done?", "is it done?"},
		{"  padded out text  ", "padded out text."},
		{"ok", "ok"},          // short fragments stay bare
		{"two words", "two words"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalize(tt.in); got != tt.out {
			t.Errorf("normalize(%q) = %q, expected %q", tt.in, got, tt.out)
		}
	}
}

func TestSpecialCharactersUseNamedKeys(t *testing.T) {
	kb := &fakeKeyboard{}
	at := newTestTyper(kb, nil)

	res := typeAndWait(t, at, "line one\nline two\tindented")
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	keys := kb.tappedKeys()
	if len(keys) != 2 || keys[0] != "enter" || keys[1] != "tab" {
		t.Errorf("tapped keys = %v, expected [enter tab]", keys)
	}
	if got := kb.text(); got != "line oneline twoindented." {
		t.Errorf("typed %q", got)
	}
}

func TestDisabledShortCircuits(t *testing.T) {
	kb := &fakeKeyboard{}
	at := newTestTyper(kb, nil)
	at.SetEnabled(false)

	res := typeAndWait(t, at, "should not appear")
	if !errors.Is(res.Err, ErrDisabled) {
		t.Errorf("error = %v, expected ErrDisabled", res.Err)
	}
	if kb.text() != "" {
		t.Error("nothing should have been typed")
	}
}

func TestEmptyTextShortCircuits(t *testing.T) {
	kb := &fakeKeyboard{}
	at := newTestTyper(kb, nil)

	res := typeAndWait(t, at, "   \n  ")
	if !errors.Is(res.Err, ErrEmptyText) {
		t.Errorf("error = %v, expected ErrEmptyText", res.Err)
	}
}

func TestExclusionPolicyBlocks(t *testing.T) {
	kb := &fakeKeyboard{}
	at := newTestTyper(kb, func() string { return "1Password" })

	res := typeAndWait(t, at, "hunter2 is my password")
	if !errors.Is(res.Err, ErrBlockedByPolicy) {
		t.Errorf("error = %v, expected ErrBlockedByPolicy", res.Err)
	}
	if kb.text() != "" {
		t.Error("nothing should have been typed into an excluded app")
	}
}

func TestExclusionPolicyCaseInsensitive(t *testing.T) {
	kb := &fakeKeyboard{}
	at := newTestTyper(kb, func() string { return "keychain access" })

	res := typeAndWait(t, at, "some secret text here")
	if !errors.Is(res.Err, ErrBlockedByPolicy) {
		t.Errorf("error = %v, expected ErrBlockedByPolicy", res.Err)
	}
}

func TestUnknownForegroundPermits(t *testing.T) {
	kb := &fakeKeyboard{}
	at := newTestTyper(kb, func() string { return "" })

	res := typeAndWait(t, at, "typing proceeds anyway")
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if kb.text() == "" {
		t.Error("text should have been typed when foreground is unknown")
	}
}

func TestPerCharacterFailureContinues(t *testing.T) {
	kb := &fakeKeyboard{failOn: map[rune]error{'x': errors.New("stuck key")}}
	at := newTestTyper(kb, nil)

	res := typeAndWait(t, at, "axbxc")
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if got := kb.text(); got != "abc" {
		t.Errorf("typed %q, expected failed characters skipped", got)
	}
	if res.Typed != 3 {
		t.Errorf("Typed = %d, expected 3", res.Typed)
	}
}

func TestPanicReportsExactlyOnce(t *testing.T) {
	kb := &fakeKeyboard{panicOn: 'b', hasPanic: true}
	at := newTestTyper(kb, nil)

	results := make(chan Result, 2)
	at.TypeAsync("alpha beta gamma", func(res Result) { results <- res })

	res := <-results
	if res.Err == nil {
		t.Fatal("expected an error from the panicking keyboard")
	}
	select {
	case <-results:
		t.Fatal("done callback fired more than once")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEmergencyStopAbortsMidway(t *testing.T) {
	kb := &fakeKeyboard{}
	at := newTestTyper(kb, nil)
	at.SetSpeed(5 * time.Millisecond)

	results := make(chan Result, 1)
	at.TypeAsync("a long sentence that takes a while to finish typing", func(res Result) { results <- res })

	time.Sleep(20 * time.Millisecond)
	at.EmergencyStop()

	res := <-results
	if !errors.Is(res.Err, ErrDisabled) {
		t.Errorf("error = %v, expected ErrDisabled after emergency stop", res.Err)
	}
	if res.Typed >= len("a long sentence that takes a while to finish typing.") {
		t.Error("typing should have stopped before completing")
	}
}

func TestNilDoneCallbackIsSafe(t *testing.T) {
	kb := &fakeKeyboard{}
	at := newTestTyper(kb, nil)

	at.TypeAsync("fire and forget text", nil)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if kb.text() == "fire and forget text." {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Errorf("typed %q, expected full text", kb.text())
}
