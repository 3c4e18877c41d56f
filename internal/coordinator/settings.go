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

package coordinator

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/speechy/speechy/internal/config"
	"github.com/speechy/speechy/internal/hotkey"
	"github.com/speechy/speechy/internal/logging"
)

// ApplySettings diffs newCfg against the running configuration and pushes
// each change to the collaborator that owns it. Most settings apply live;
// a transcription model or backend change needs an engine reload and is
// rejected while a session is in flight.
func (c *Coordinator) ApplySettings(newCfg *config.Config) error {
	if newCfg == nil {
		return fmt.Errorf("settings: nil config")
	}
	if err := newCfg.Validate(); err != nil {
		return fmt.Errorf("settings: %w", err)
	}

	c.mu.Lock()
	old := c.cfg
	needsReload := old.STT.Model != newCfg.STT.Model ||
		old.STT.Backend != newCfg.STT.Backend ||
		old.STT.ModelDir != newCfg.STT.ModelDir ||
		old.STT.RestURL != newCfg.STT.RestURL
	if needsReload && (c.state != StateIdle || c.modelLoading) {
		c.mu.Unlock()
		c.sink.StatusMessage("Cannot change the model while a session is active")
		return fmt.Errorf("settings: model change rejected while busy")
	}
	c.cfg = newCfg
	if needsReload {
		c.modelLoading = true
	}
	c.mu.Unlock()

	if old.Hotkey != newCfg.Hotkey {
		c.hotkeys.UpdateChord(hotkey.ParseChord(newCfg.Hotkey))
		logging.LogPipelineStage("", "hotkey_updated",
			zap.String("hotkey", newCfg.Hotkey),
		)
	}

	if old.Ollama.Model != newCfg.Ollama.Model {
		c.corrector.SetModel(newCfg.Ollama.Model)
	}
	if old.Ollama.PromptStrategy != newCfg.Ollama.PromptStrategy {
		if err := c.corrector.SetStrategy(newCfg.Ollama.PromptStrategy); err != nil {
			logging.LogWarn("prompt strategy rejected",
				zap.String("strategy", newCfg.Ollama.PromptStrategy),
				zap.Error(err),
			)
		}
	}

	c.injector.SetEnabled(newCfg.Typing.Enabled)
	c.injector.SetDelay(time.Duration(newCfg.Typing.Delay * float64(time.Second)))
	c.injector.SetSpeed(time.Duration(newCfg.Typing.Speed * float64(time.Second)))
	c.injector.SetExcludedApps(newCfg.Typing.ExcludedApps)

	c.notifier.SetEnabled(newCfg.NotificationEnabled)

	if needsReload && c.reloadModel != nil {
		go c.reloadModelWorker(newCfg.STT)
	}

	return nil
}
