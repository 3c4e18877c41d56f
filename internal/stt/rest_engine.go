/*
Copyright (c) 2025 Speechy

Licensed under the AGPLv3 License.
This file is part of speechy.
*/

package stt

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/speechy/speechy/internal/logging"
)

// RESTEngine implements Engine against any OpenAI-compatible
// Speech-to-Text REST service. Useful when the binary is built without
// the local whisper bindings.
type RESTEngine struct {
	baseURL    string
	model      string
	language   string
	httpClient *http.Client
}

// OpenAI-compatible response struct
type transcriptionResponse struct {
	Text string `json:"text"`
}

// NewRESTEngine creates an OpenAI-compatible STT engine client.
func NewRESTEngine(baseURL, model, language string) *RESTEngine {
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	return &RESTEngine{
		baseURL:  baseURL,
		model:    model,
		language: language,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Load verifies the remote service is reachable. There is no model to
// pull locally, so a passing health check is all "loaded" means here.
func (r *RESTEngine) Load() error {
	resp, err := r.httpClient.Get(r.baseURL + "/health")
	if err != nil {
		return fmt.Errorf("failed to connect to STT service at %s: %w", r.baseURL, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.LogWarn("failed to close response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("STT service health check failed with status: %d", resp.StatusCode)
	}
	return nil
}

// Transcribe posts the samples as a WAV file and returns the result as a
// single segment. The REST contract exposes no per-segment confidence, so
// the segment is reported at confidence 0 (the threshold scale is
// negative log-probabilities; 0 always passes).
func (r *RESTEngine) Transcribe(samples []float32, sampleRate int) ([]Segment, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("empty audio data")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	wavData := float32ToWAV(samples, sampleRate)

	var requestBody bytes.Buffer
	writer := multipart.NewWriter(&requestBody)

	audioWriter, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := audioWriter.Write(wavData); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}

	_ = writer.WriteField("model", r.model)
	_ = writer.WriteField("language", r.language)
	_ = writer.WriteField("temperature", "0.0")
	_ = writer.WriteField("response_format", "json")

	contentType := writer.FormDataContentType()
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, r.baseURL+"/v1/audio/transcriptions", &requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription HTTP request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.LogWarn("failed to close response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("transcription failed with status %d: %s", resp.StatusCode, string(body))
	}

	var transcriptionResp transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&transcriptionResp); err != nil {
		return nil, fmt.Errorf("failed to parse transcription response: %w", err)
	}

	if logging.Sugar != nil {
		logging.Sugar.Infow("REST transcription completed",
			"processing_time_ms", time.Since(start).Milliseconds(),
			"text_length", len(transcriptionResp.Text),
		)
	}

	if transcriptionResp.Text == "" {
		return nil, nil
	}

	end := time.Duration(float64(len(samples)) / float64(sampleRate) * float64(time.Second))
	return []Segment{{Text: transcriptionResp.Text, Start: 0, End: end, Confidence: 0}}, nil
}

// Close cleans up resources
func (r *RESTEngine) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}

// float32ToWAV converts float32 audio samples to WAV format bytes
// (mono, 32-bit IEEE float PCM).
func float32ToWAV(samples []float32, sampleRate int) []byte {
	numSamples := len(samples)
	dataSize := numSamples * 4
	fileSize := 36 + dataSize

	var buf bytes.Buffer

	buf.WriteString("RIFF")
	writeUint32(&buf, uint32(fileSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	writeUint32(&buf, 16) // Subchunk1Size (16 for PCM)
	writeUint16(&buf, 3)  // AudioFormat (3 = IEEE float)
	writeUint16(&buf, 1)  // NumChannels (mono)
	writeUint32(&buf, uint32(sampleRate))
	writeUint32(&buf, uint32(sampleRate*4)) // ByteRate
	writeUint16(&buf, 4)  // BlockAlign
	writeUint16(&buf, 32) // BitsPerSample
	buf.WriteString("data")
	writeUint32(&buf, uint32(dataSize))

	for _, sample := range samples {
		writeUint32(&buf, math.Float32bits(sample))
	}

	return buf.Bytes()
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	buf.Write(b)
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	buf.Write(b)
}
