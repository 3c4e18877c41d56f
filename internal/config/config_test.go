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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Hotkey != "f9" {
		t.Errorf("Hotkey = %q, expected f9", cfg.Hotkey)
	}
	if cfg.STT.Model != "small.en" {
		t.Errorf("STT.Model = %q, expected small.en", cfg.STT.Model)
	}
	if cfg.STT.ConfidenceThreshold != -0.5 {
		t.Errorf("ConfidenceThreshold = %f, expected -0.5", cfg.STT.ConfidenceThreshold)
	}
	if cfg.STT.SilenceSkipThreshold != 50 {
		t.Errorf("SilenceSkipThreshold = %d, expected 50", cfg.STT.SilenceSkipThreshold)
	}
	if cfg.STT.MinDuration != 500*time.Millisecond {
		t.Errorf("MinDuration = %v, expected 500ms", cfg.STT.MinDuration)
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, expected 16000", cfg.Audio.SampleRate)
	}
	if cfg.Typing.Mode != "raw" {
		t.Errorf("Typing.Mode = %q, expected raw", cfg.Typing.Mode)
	}
	if cfg.Typing.Enabled {
		t.Error("auto-typing should be disabled by default")
	}
	if len(cfg.Typing.ExcludedApps) != 3 {
		t.Errorf("ExcludedApps = %v, expected 3 defaults", cfg.Typing.ExcludedApps)
	}
	if !cfg.CopyToClipboard || !cfg.NotificationEnabled || !cfg.LogTranscriptions {
		t.Error("clipboard, notifications and transcript logging should default to on")
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		"hotkey": "ctrl+space",
		"stt": {"backend": "rest", "whisper_model": "base", "confidence_threshold": -1.0, "silence_skip_threshold": 100, "rest_url": "http://stt:9000"},
		"ollama": {"ollama_host": "10.0.0.2", "ollama_port": 11435, "ollama_model": "qwen2.5:7b", "prompt_strategy": "minimal", "temperature": 0.1},
		"auto_typing": {"enabled": true, "mode": "both", "delay": 0.5, "speed": 0.01, "excluded_apps": ["1Password"]},
		"min_recording_duration": 0.75,
		"copy_to_clipboard": false
	}`
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Hotkey != "ctrl+space" {
		t.Errorf("Hotkey = %q", cfg.Hotkey)
	}
	if cfg.STT.Backend != "rest" || cfg.STT.RestURL != "http://stt:9000" {
		t.Errorf("STT backend not applied: %+v", cfg.STT)
	}
	if cfg.Ollama.URL() != "http://10.0.0.2:11435" {
		t.Errorf("Ollama.URL() = %q", cfg.Ollama.URL())
	}
	if cfg.Typing.Mode != "both" || !cfg.Typing.Enabled {
		t.Errorf("Typing not applied: %+v", cfg.Typing)
	}
	if cfg.STT.MinDuration != 750*time.Millisecond {
		t.Errorf("MinDuration = %v, expected 750ms", cfg.STT.MinDuration)
	}
	if cfg.CopyToClipboard {
		t.Error("CopyToClipboard override not applied")
	}
	// Untouched keys keep their defaults.
	if cfg.Audio.ChunkSize != 1024 {
		t.Errorf("ChunkSize = %d, expected default 1024", cfg.Audio.ChunkSize)
	}
}

func TestLoad_InvalidConfiguration(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad typing mode", `{"auto_typing": {"mode": "shouty"}}`},
		{"bad backend", `{"stt": {"backend": "telepathy"}}`},
		{"confidence out of range", `{"stt": {"backend": "whisper", "confidence_threshold": 1.5}}`},
		{"silence threshold out of range", `{"stt": {"backend": "whisper", "confidence_threshold": -0.5, "silence_skip_threshold": 40000}}`},
		{"bad ollama port", `{"ollama": {"ollama_host": "x", "ollama_port": 99999}}`},
		{"negative typing delay", `{"auto_typing": {"mode": "raw", "delay": -1}}`},
		{"zero sample rate", `{"audio": {"audio_sample_rate": 0}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			if err := os.WriteFile(path, []byte(tt.body), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load() should have failed validation")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := Default()
	cfg.Hotkey = "alt+space"
	cfg.Typing.Enabled = true
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Hotkey != "alt+space" {
		t.Errorf("Hotkey = %q after round trip", loaded.Hotkey)
	}
	if !loaded.Typing.Enabled {
		t.Error("Typing.Enabled lost in round trip")
	}
}
