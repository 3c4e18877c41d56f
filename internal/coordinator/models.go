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
	"context"

	"github.com/speechy/speechy/internal/config"
	"github.com/speechy/speechy/internal/logging"
)

// LoadModels loads the transcription model and probes the correction
// server on a background worker, reporting progress through the sink.
// A load already in progress makes this a no-op.
func (c *Coordinator) LoadModels() {
	c.mu.Lock()
	if c.modelLoading {
		c.mu.Unlock()
		return
	}
	c.modelLoading = true
	c.mu.Unlock()

	go c.loadModelsWorker()
}

func (c *Coordinator) loadModelsWorker() {
	defer func() {
		c.mu.Lock()
		c.modelLoading = false
		c.mu.Unlock()
	}()

	c.sink.ModelLoadingStateChanged(true, 0, "Loading Whisper model...")
	c.sink.StatusMessage("Loading Whisper model...")

	if err := c.transcriber.Load(); err != nil {
		logging.LogError(err, "failed to load transcription model")
		c.sink.ModelLoadingStateChanged(false, 0, "")
		c.sink.StatusMessage("Failed to load Whisper model")
		c.notifier.Error("Failed to load Whisper model")
		return
	}

	c.sink.ModelLoadingStateChanged(true, 50, "Checking Ollama connection...")
	c.sink.StatusMessage("Checking Ollama connection...")

	if !c.corrector.IsAvailable(context.Background()) {
		// Correction degrades gracefully, so an unreachable server is a
		// warning here, not a startup failure.
		logging.LogWarn("Ollama server not available")
		c.sink.StatusMessage("Ollama server not available")
	}

	c.sink.ModelLoadingStateChanged(false, 100, "")
	c.sink.StatusMessage("Ready")
}

// RequestModelReload swaps the transcription engine for the current STT
// settings. Rejected while a session is in flight or a load is running.
func (c *Coordinator) RequestModelReload() {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		logging.LogWarn("model reload requested during an active session, ignoring")
		c.sink.StatusMessage("Cannot reload model while a session is active")
		return
	}
	if c.modelLoading || c.reloadModel == nil {
		c.mu.Unlock()
		return
	}
	c.modelLoading = true
	sttCfg := c.cfg.STT
	c.mu.Unlock()

	go c.reloadModelWorker(sttCfg)
}

func (c *Coordinator) reloadModelWorker(sttCfg config.STTConfig) {
	defer func() {
		c.mu.Lock()
		c.modelLoading = false
		c.mu.Unlock()
	}()

	c.sink.ModelLoadingStateChanged(true, 0, "Reloading Whisper model...")
	c.sink.StatusMessage("Reloading Whisper model...")

	if err := c.reloadModel(sttCfg); err != nil {
		logging.LogError(err, "model reload failed")
		c.sink.ModelLoadingStateChanged(false, 0, "")
		c.sink.StatusMessage("Failed to reload Whisper model")
		c.notifier.Error("Failed to reload Whisper model")
		return
	}

	c.sink.ModelLoadingStateChanged(false, 100, "")
	c.sink.StatusMessage("Ready")
}
