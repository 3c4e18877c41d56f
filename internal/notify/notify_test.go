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

package notify

import (
	"strings"
	"testing"
)

func TestTruncate(t *testing.T) {
	if got := truncate("short", 100); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	long := strings.Repeat("a", 150)
	got := truncate(long, 100)
	if len(got) != 103 || !strings.HasSuffix(got, "...") {
		t.Errorf("truncate length = %d", len(got))
	}

	// Multi-byte runes must not be split.
	got = truncate(strings.Repeat("ä", 150), 100)
	if []rune(got)[99] != 'ä' {
		t.Errorf("rune boundary broken: %q", got[:8])
	}
}

func TestDisabledManagerSendsNothing(t *testing.T) {
	m := NewManager(false)
	// Must all be quiet no-ops without a notification daemon.
	m.RecordingStarted()
	m.RecordingStopped()
	m.TranscriptionComplete("hello")
	m.ResponseReady("Hello.")
	m.Error("boom")

	if m.Enabled() {
		t.Error("manager should report disabled")
	}
	m.SetEnabled(true)
	if !m.Enabled() {
		t.Error("manager should report enabled")
	}
}
