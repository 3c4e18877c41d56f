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
	"reflect"
	"testing"
)

func TestParseChord(t *testing.T) {
	tests := []struct {
		spec string
		keys []string
	}{
		{"f9", []string{"f9"}},
		{"F12", []string{"f12"}},
		{"  f10  ", []string{"f10"}},
		{"ctrl+space", []string{"ctrl", "space"}},
		{"Alt+Space", []string{"alt", "space"}},
		{"super+q", []string{"f9"}}, // unknown falls back to F9
		{"", []string{"f9"}},
	}
	for _, tt := range tests {
		got := ParseChord(tt.spec)
		if !reflect.DeepEqual(got.Keys, tt.keys) {
			t.Errorf("ParseChord(%q).Keys = %v, expected %v", tt.spec, got.Keys, tt.keys)
		}
	}
}

func TestMatch(t *testing.T) {
	ctrlSpace := Chord{Keys: []string{"ctrl", "space"}}

	tests := []struct {
		name    string
		pressed map[string]bool
		chord   Chord
		want    bool
	}{
		{"all down", map[string]bool{"ctrl": true, "space": true}, ctrlSpace, true},
		{"extra keys down", map[string]bool{"ctrl": true, "space": true, "a": true}, ctrlSpace, true},
		{"partial", map[string]bool{"ctrl": true}, ctrlSpace, false},
		{"nothing down", map[string]bool{}, ctrlSpace, false},
		{"wrong keys", map[string]bool{"alt": true, "space": true}, ctrlSpace, false},
		{"empty chord never fires", map[string]bool{"f9": true}, Chord{}, false},
		{"single key", map[string]bool{"f9": true}, Chord{Keys: []string{"f9"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Match(tt.pressed, tt.chord); got != tt.want {
				t.Errorf("Match() = %v, expected %v", got, tt.want)
			}
		})
	}
}

func TestChordString(t *testing.T) {
	if got := ParseChord("ctrl+space").String(); got != "ctrl+space" {
		t.Errorf("String() = %q", got)
	}
	if got := ParseChord("f9").String(); got != "f9" {
		t.Errorf("String() = %q", got)
	}
}
