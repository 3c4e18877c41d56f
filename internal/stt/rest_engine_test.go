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

package stt

import (
	"encoding/binary"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRESTEngineLoadHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	engine := NewRESTEngine(server.URL, "small.en", "en")
	assert.NoError(t, engine.Load())
}

func TestRESTEngineLoadUnhealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	engine := NewRESTEngine(server.URL, "small.en", "en")
	err := engine.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "health check failed")
}

func TestRESTEngineTranscribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "small.en", r.FormValue("model"))
		assert.Equal(t, "en", r.FormValue("language"))
		assert.Equal(t, "json", r.FormValue("response_format"))

		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		wav, err := io.ReadAll(file)
		require.NoError(t, err)

		// RIFF header plus IEEE float format tag.
		require.Greater(t, len(wav), 44)
		assert.Equal(t, "RIFF", string(wav[0:4]))
		assert.Equal(t, "WAVE", string(wav[8:12]))
		assert.Equal(t, uint16(3), binary.LittleEndian.Uint16(wav[20:22]))
		assert.Equal(t, uint32(16000), binary.LittleEndian.Uint32(wav[24:28]))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text": "turn on the lights"}`))
	}))
	defer server.Close()

	engine := NewRESTEngine(server.URL, "small.en", "en")
	segments, err := engine.Transcribe(make([]float32, 16000), 16000)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, "turn on the lights", segments[0].Text)
	assert.Equal(t, float64(0), segments[0].Confidence)
}

func TestRESTEngineTranscribeEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"text": ""}`))
	}))
	defer server.Close()

	engine := NewRESTEngine(server.URL, "small.en", "en")
	segments, err := engine.Transcribe(make([]float32, 16000), 16000)
	require.NoError(t, err)
	assert.Empty(t, segments)
}

func TestRESTEngineTranscribeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer server.Close()

	engine := NewRESTEngine(server.URL, "small.en", "en")
	_, err := engine.Transcribe(make([]float32, 16000), 16000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestRESTEngineTranscribeInputValidation(t *testing.T) {
	engine := NewRESTEngine("http://localhost:1", "small.en", "en")

	_, err := engine.Transcribe(nil, 16000)
	assert.Error(t, err)

	_, err = engine.Transcribe(make([]float32, 100), 0)
	assert.Error(t, err)
}
