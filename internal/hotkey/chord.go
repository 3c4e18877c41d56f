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

// Package hotkey watches global key events for a configured chord and
// raises one toggle per completed press edge.
package hotkey

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/speechy/speechy/internal/logging"
)

// Chord is the set of logical keys that must all be down at once to
// trigger a toggle. Keys are lowercase names such as "f9", "ctrl", "space".
type Chord struct {
	Keys []string
}

// supported chord spellings, matching the settings UI choices.
var knownChords = map[string][]string{
	"f9":         {"f9"},
	"f10":        {"f10"},
	"f11":        {"f11"},
	"f12":        {"f12"},
	"ctrl+space": {"ctrl", "space"},
	"alt+space":  {"alt", "space"},
}

// ParseChord maps a config spelling to a chord. Unknown spellings fall
// back to F9 with a warning rather than failing, so a typo in the config
// file never leaves the assistant without a hotkey.
func ParseChord(spec string) Chord {
	normalized := strings.ToLower(strings.TrimSpace(spec))
	if keys, ok := knownChords[normalized]; ok {
		return Chord{Keys: append([]string(nil), keys...)}
	}
	logging.LogWarn("unknown hotkey, falling back to F9",
		zap.String("hotkey", spec),
	)
	return Chord{Keys: []string{"f9"}}
}

// String returns the canonical spelling, keys joined by "+".
func (c Chord) String() string {
	keys := append([]string(nil), c.Keys...)
	sort.Strings(keys)
	return strings.Join(keys, "+")
}

// Match reports whether every key of the chord is in the pressed set.
// It is a pure function of its inputs so edge detection can be tested
// without an OS hook.
func Match(pressed map[string]bool, chord Chord) bool {
	if len(chord.Keys) == 0 {
		return false
	}
	for _, key := range chord.Keys {
		if !pressed[key] {
			return false
		}
	}
	return true
}
