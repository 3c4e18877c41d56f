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

// Package app assembles the dictation pipeline: storage, transcription,
// correction, injection, hotkeys and the coordinator that glues them.
package app

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/atotto/clipboard"
	"go.uber.org/zap"

	"github.com/speechy/speechy/internal/audio"
	"github.com/speechy/speechy/internal/config"
	"github.com/speechy/speechy/internal/coordinator"
	"github.com/speechy/speechy/internal/events"
	"github.com/speechy/speechy/internal/hotkey"
	"github.com/speechy/speechy/internal/llm"
	"github.com/speechy/speechy/internal/logging"
	"github.com/speechy/speechy/internal/messaging"
	"github.com/speechy/speechy/internal/notify"
	"github.com/speechy/speechy/internal/storage"
	"github.com/speechy/speechy/internal/stt"
	"github.com/speechy/speechy/internal/typer"
)

// App owns every long-lived component of a running Speechy instance.
type App struct {
	cfg *config.Config

	db          *storage.Database
	sessions    *storage.SessionStore
	transcripts *storage.TranscriptLog

	sttService *stt.Service
	llmClient  *llm.Client
	autoTyper  *typer.AutoTyper
	notifier   *notify.Manager
	bridge     *messaging.NATSBridge
	recorder   *audio.Recorder
	listener   *hotkey.Listener

	coordinator *coordinator.Coordinator
}

// New wires the full pipeline from configuration. Nothing starts yet;
// Start brings the hotkey listener and model loading up.
func New(cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	a := &App{cfg: cfg}

	db, err := storage.NewDatabase(storage.DatabaseConfig{Path: cfg.Storage.DBPath})
	if err != nil {
		return nil, fmt.Errorf("app: open database: %w", err)
	}
	a.db = db
	a.sessions = storage.NewSessionStore(db)
	a.transcripts = storage.NewTranscriptLog(cfg.Storage.LogFile)

	engine, err := buildEngine(cfg.STT)
	if err != nil {
		a.db.Close()
		return nil, err
	}
	a.sttService = stt.NewService(engine, stt.Policy{
		ConfidenceThreshold:  cfg.STT.ConfidenceThreshold,
		SilenceSkipThreshold: cfg.STT.SilenceSkipThreshold,
		MinDuration:          cfg.STT.MinDuration,
	})

	prompts := llm.NewPromptManager(cfg.Ollama.PromptStrategy)
	a.llmClient = llm.NewClient(cfg.Ollama.URL(), cfg.Ollama.Model, prompts)

	a.autoTyper = typer.New(typer.NewRobotgoKeyboard(), typer.ForegroundApp)
	a.autoTyper.SetEnabled(cfg.Typing.Enabled)
	a.autoTyper.SetDelay(secondsToDuration(cfg.Typing.Delay))
	a.autoTyper.SetSpeed(secondsToDuration(cfg.Typing.Speed))
	a.autoTyper.SetExcludedApps(cfg.Typing.ExcludedApps)

	a.notifier = notify.NewManager(cfg.NotificationEnabled)

	sinks := events.Multi{events.LogSink{}}
	if cfg.NATS.Enabled {
		a.bridge = messaging.NewNATSBridge(cfg.NATS.URL, cfg.NATS.MaxReconnect, cfg.NATS.ReconnectWait)
		sinks = append(sinks, a.bridge)
	}

	a.recorder = audio.NewRecorder(
		cfg.Audio.DeviceIndex,
		cfg.Audio.SampleRate,
		cfg.Audio.ChunkSize,
		func(level float64) {
			if a.coordinator != nil {
				a.coordinator.OnAudioLevel(level)
			}
		},
	)

	a.listener = hotkey.NewListener(hotkey.NewGohookSource(), func() {
		a.coordinator.Toggle()
	})

	a.coordinator = coordinator.New(coordinator.Deps{
		Config:      cfg,
		Recorder:    a.recorder,
		Transcriber: a.sttService,
		Corrector:   a.llmClient,
		Injector:    a.autoTyper,
		Hotkeys:     a.listener,
		Sink:        sinks,
		Sessions:    a.sessions,
		Transcripts: a.transcripts,
		Notifier:    a.notifier,
		Clipboard:   clipboard.WriteAll,
		ReloadModel: a.reloadEngine,
	})

	return a, nil
}

// Start connects the event bridge, kicks off model loading and begins
// listening for the hotkey. Returns once everything is running.
func (a *App) Start() error {
	if a.bridge != nil {
		// Pipeline keeps working without the bus; publishes are
		// best-effort and the client reconnects on its own.
		if err := a.bridge.Connect(); err != nil {
			logging.LogWarn("event bus unavailable, continuing without it", zap.Error(err))
		}
	}

	a.coordinator.LoadModels()

	chord := hotkey.ParseChord(a.cfg.Hotkey)
	if err := a.listener.Start(chord); err != nil {
		return fmt.Errorf("app: start hotkey listener: %w", err)
	}

	if logging.Sugar != nil {
		logging.Sugar.Infow("🚀 Speechy running",
			"hotkey", a.cfg.Hotkey,
			"stt_backend", a.cfg.STT.Backend,
			"ollama_model", a.cfg.Ollama.Model,
			"db_path", a.db.GetPath(),
		)
	}
	return nil
}

// Stop tears the pipeline down in dependency order.
func (a *App) Stop() error {
	if logging.Sugar != nil {
		logging.Sugar.Infow("🛑 Speechy shutting down")
	}

	a.autoTyper.EmergencyStop()
	a.coordinator.Shutdown()

	if err := a.listener.Stop(); err != nil && err != hotkey.ErrNotRunning {
		logging.LogError(err, "failed to stop hotkey listener")
	}

	if err := a.sttService.Close(); err != nil {
		logging.LogError(err, "failed to close transcription engine")
	}

	if a.bridge != nil {
		a.bridge.Close()
	}

	if err := a.db.Close(); err != nil {
		logging.LogError(err, "failed to close database")
		return err
	}

	if logging.Sugar != nil {
		logging.Sugar.Infow("✅ Speechy shut down")
	}
	return nil
}

// Coordinator exposes the state machine for frontends (tray, settings).
func (a *App) Coordinator() *coordinator.Coordinator {
	return a.coordinator
}

// Sessions exposes the history store for frontends.
func (a *App) Sessions() *storage.SessionStore {
	return a.sessions
}

// reloadEngine swaps the transcription engine for fresh STT settings.
func (a *App) reloadEngine(sttCfg config.STTConfig) error {
	engine, err := buildEngine(sttCfg)
	if err != nil {
		return err
	}
	return a.sttService.Reload(engine)
}

func buildEngine(sttCfg config.STTConfig) (stt.Engine, error) {
	switch sttCfg.Backend {
	case "rest":
		return stt.NewRESTEngine(sttCfg.RestURL, sttCfg.Model, sttCfg.Language), nil
	case "whisper":
		modelPath := filepath.Join(sttCfg.ModelDir, "ggml-"+sttCfg.Model+".bin")
		return stt.NewWhisperEngine(modelPath, sttCfg.Language), nil
	default:
		return nil, fmt.Errorf("app: unknown stt backend %q", sttCfg.Backend)
	}
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
