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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all configuration for Speechy. It is also the settings
// snapshot handed to the coordinator on settings changes.
type Config struct {
	Hotkey  string        `json:"hotkey"`
	STT     STTConfig     `json:"stt"`
	Ollama  OllamaConfig  `json:"ollama"`
	Audio   AudioConfig   `json:"audio"`
	Typing  TypingConfig  `json:"auto_typing"`
	Storage StorageConfig `json:"storage"`
	NATS    NATSConfig    `json:"nats"`

	LogTranscriptions   bool `json:"log_transcriptions"`
	NotificationEnabled bool `json:"notification_enabled"`
	CopyToClipboard     bool `json:"copy_to_clipboard"`
}

// STTConfig holds speech-to-text configuration
type STTConfig struct {
	// Backend selects the transcription engine: "whisper" (local
	// whisper.cpp) or "rest" (OpenAI-compatible REST service).
	Backend string `json:"backend"`
	Model   string `json:"whisper_model"`
	// ModelDir is where whisper ggml model files live; the model path is
	// ModelDir/ggml-<Model>.bin.
	ModelDir string `json:"model_dir"`
	RestURL  string `json:"rest_url"`
	Language string `json:"language"`

	// ConfidenceThreshold is the minimum average log-probability a
	// transcript segment must reach to be kept. Range [-5, 0].
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	// SilenceSkipThreshold is the peak-amplitude floor (on the int16
	// sample scale, 0..32767) below which a recording is treated as
	// silence and never handed to the engine.
	SilenceSkipThreshold int `json:"silence_skip_threshold"`
	// MinDuration is the shortest recording worth transcribing.
	MinDuration time.Duration `json:"-"`
}

// OllamaConfig holds LLM correction service configuration
type OllamaConfig struct {
	Host           string  `json:"ollama_host"`
	Port           int     `json:"ollama_port"`
	Model          string  `json:"ollama_model"`
	PromptStrategy string  `json:"prompt_strategy"`
	Temperature    float64 `json:"temperature"`
}

// URL returns the base URL of the Ollama server.
func (o OllamaConfig) URL() string {
	return fmt.Sprintf("http://%s:%d", o.Host, o.Port)
}

// AudioConfig holds microphone capture configuration
type AudioConfig struct {
	// DeviceIndex selects the input device; -1 means system default.
	DeviceIndex int `json:"audio_device_index"`
	SampleRate  int `json:"audio_sample_rate"`
	ChunkSize   int `json:"audio_chunk_size"`
}

// TypingConfig holds keystroke injection configuration
type TypingConfig struct {
	Enabled bool `json:"enabled"`
	// Mode routes which transcript gets typed: "raw", "corrected" or "both".
	Mode string `json:"mode"`
	// Delay is the pause before typing starts, in seconds.
	Delay float64 `json:"delay"`
	// Speed is the pause between characters, in seconds.
	Speed        float64  `json:"speed"`
	ExcludedApps []string `json:"excluded_apps"`
}

// StorageConfig holds persistence configuration
type StorageConfig struct {
	DBPath  string `json:"db_path"`
	LogFile string `json:"log_file"`
}

// NATSConfig holds the optional event-bridge configuration
type NATSConfig struct {
	Enabled       bool          `json:"enabled"`
	URL           string        `json:"url"`
	MaxReconnect  int           `json:"max_reconnect"`
	ReconnectWait time.Duration `json:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Hotkey: "f9",
		STT: STTConfig{
			Backend:              "whisper",
			Model:                "small.en",
			ModelDir:             defaultDataDir("models"),
			RestURL:              "http://localhost:8000",
			Language:             "en",
			ConfidenceThreshold:  -0.5,
			SilenceSkipThreshold: 50,
			MinDuration:          500 * time.Millisecond,
		},
		Ollama: OllamaConfig{
			Host:           getEnvString("OLLAMA_HOST", "localhost"),
			Port:           getEnvInt("OLLAMA_PORT", 11434),
			Model:          "llama3:latest",
			PromptStrategy: "transcription",
			Temperature:    0.2,
		},
		Audio: AudioConfig{
			DeviceIndex: -1,
			SampleRate:  16000,
			ChunkSize:   1024,
		},
		Typing: TypingConfig{
			Enabled:      false,
			Mode:         "raw",
			Delay:        1.0,
			Speed:        0.02,
			ExcludedApps: []string{"Keychain Access", "Login Window", "1Password"},
		},
		Storage: StorageConfig{
			DBPath:  defaultDataDir("speechy.db"),
			LogFile: defaultDataDir("transcriptions.log"),
		},
		NATS: NATSConfig{
			Enabled:       getEnvBool("SPEECHY_NATS_ENABLED", false),
			URL:           getEnvString("NATS_URL", "nats://localhost:4222"),
			MaxReconnect:  getEnvInt("NATS_MAX_RECONNECT", 10),
			ReconnectWait: getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		},
		LogTranscriptions:   true,
		NotificationEnabled: true,
		CopyToClipboard:     true,
	}
}

// Load reads the configuration file at path, merging over the defaults.
// A missing file is not an error: defaults are returned so first launch
// works out of the box, matching the original key/value contract.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if verr := cfg.Validate(); verr != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", verr)
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	// Durations are stored in the file as fractional seconds.
	var raw struct {
		MinDurationSec float64 `json:"min_recording_duration"`
	}
	if err := json.Unmarshal(data, &raw); err == nil && raw.MinDurationSec > 0 {
		cfg.STT.MinDuration = time.Duration(raw.MinDurationSec * float64(time.Second))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// DefaultPath returns the per-user configuration file location.
func DefaultPath() string {
	if p := os.Getenv("SPEECHY_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.json"
	}
	return filepath.Join(home, ".speechy", "config.json")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Hotkey == "" {
		return fmt.Errorf("hotkey must be provided")
	}

	switch c.STT.Backend {
	case "whisper", "rest":
	default:
		return fmt.Errorf("unknown stt backend: %q", c.STT.Backend)
	}

	if c.STT.ConfidenceThreshold < -5 || c.STT.ConfidenceThreshold > 0 {
		return fmt.Errorf("confidence threshold out of range [-5, 0]: %f", c.STT.ConfidenceThreshold)
	}

	if c.STT.SilenceSkipThreshold < 0 || c.STT.SilenceSkipThreshold > 32767 {
		return fmt.Errorf("silence skip threshold out of range [0, 32767]: %d", c.STT.SilenceSkipThreshold)
	}

	if c.STT.MinDuration <= 0 {
		return fmt.Errorf("minimum recording duration must be positive: %v", c.STT.MinDuration)
	}

	if c.Ollama.Port <= 0 || c.Ollama.Port > 65535 {
		return fmt.Errorf("invalid ollama port: %d", c.Ollama.Port)
	}

	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio sample rate must be positive: %d", c.Audio.SampleRate)
	}

	if c.Audio.ChunkSize <= 0 {
		return fmt.Errorf("audio chunk size must be positive: %d", c.Audio.ChunkSize)
	}

	switch c.Typing.Mode {
	case "raw", "corrected", "both":
	default:
		return fmt.Errorf("unknown auto-typing mode: %q", c.Typing.Mode)
	}

	if c.Typing.Delay < 0 {
		return fmt.Errorf("auto-typing delay must not be negative: %f", c.Typing.Delay)
	}

	if c.Typing.Speed < 0 {
		return fmt.Errorf("auto-typing speed must not be negative: %f", c.Typing.Speed)
	}

	return nil
}

// Save writes the configuration back to path as JSON.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

func defaultDataDir(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("data", name)
	}
	return filepath.Join(home, ".speechy", name)
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
