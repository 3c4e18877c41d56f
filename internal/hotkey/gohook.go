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
	"strings"

	hook "github.com/robotn/gohook"
)

// GohookSource adapts the global OS key hook to the Source interface.
// The hook is opened once and stays up for the life of the listener;
// chord changes never touch it.
type GohookSource struct {
	out chan KeyEvent
}

func NewGohookSource() *GohookSource {
	return &GohookSource{}
}

func (s *GohookSource) Open() (<-chan KeyEvent, error) {
	s.out = make(chan KeyEvent, 64)
	raw := hook.Start()

	go func() {
		defer close(s.out)
		for ev := range raw {
			var down bool
			switch ev.Kind {
			case hook.KeyDown, hook.KeyHold:
				down = true
			case hook.KeyUp:
				down = false
			default:
				continue
			}
			key := normalizeKey(ev)
			if key == "" {
				continue
			}
			select {
			case s.out <- KeyEvent{Key: key, Down: down}:
			default:
				// A full buffer means the consumer stalled. Dropping a
				// key transition is better than blocking the hook thread.
			}
		}
	}()
	return s.out, nil
}

func (s *GohookSource) Close() error {
	hook.End()
	return nil
}

// rawcodes differ per platform; gohook exposes a portable keychar for
// printable keys and a Rawcode for the rest. Map the handful of keys
// chords can name.
func normalizeKey(ev hook.Event) string {
	name := strings.ToLower(hook.RawcodetoKeychar(ev.Rawcode))
	switch name {
	case "f9", "f10", "f11", "f12":
		return name
	case " ", "space":
		return "space"
	case "ctrl", "lctrl", "rctrl", "control":
		return "ctrl"
	case "alt", "lalt", "ralt":
		return "alt"
	}
	return ""
}
