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
	"fmt"

	"github.com/go-vgo/robotgo"
)

// RobotgoKeyboard synthesizes keystrokes through the OS input system.
type RobotgoKeyboard struct{}

func NewRobotgoKeyboard() *RobotgoKeyboard {
	return &RobotgoKeyboard{}
}

func (k *RobotgoKeyboard) TypeChar(ch rune) error {
	robotgo.TypeStr(string(ch))
	return nil
}

func (k *RobotgoKeyboard) TapKey(name string) error {
	if err := robotgo.KeyTap(name); err != nil {
		return fmt.Errorf("key tap %q failed: %w", name, err)
	}
	return nil
}

// ForegroundApp reports the process name owning the focused window.
func ForegroundApp() string {
	pid := robotgo.GetPid()
	if pid <= 0 {
		return ""
	}
	name, err := robotgo.FindName(pid)
	if err != nil {
		return ""
	}
	return name
}
