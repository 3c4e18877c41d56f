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

package audio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/speechy/speechy/internal/logging"
	"go.uber.org/zap"
)

var (
	ErrAlreadyActive     = errors.New("recording already in progress")
	ErrNotActive         = errors.New("no recording in progress")
	ErrNoData            = errors.New("no audio data recorded")
	ErrDeviceUnavailable = errors.New("audio device unavailable")
)

// drainTimeout bounds how long Stop waits for the capture goroutine to
// release the device before giving up and proceeding anyway.
const drainTimeout = 5 * time.Second

// Buffer is a finalized recording. It is immutable once returned by Stop
// and owned by the caller.
type Buffer struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Duration returns the buffered audio length.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 || b.Channels <= 0 {
		return 0
	}
	frames := len(b.Samples) / b.Channels
	return time.Duration(float64(frames) / float64(b.SampleRate) * float64(time.Second))
}

// Float32 converts the int16 samples to normalized float32, the format
// the transcription engines consume.
func (b *Buffer) Float32() []float32 {
	out := make([]float32, len(b.Samples))
	for i, s := range b.Samples {
		out[i] = float32(s) / 32768.0
	}
	return out
}

// InputStream is the narrow seam over the underlying audio API. Read fills
// the chunk buffer handed to the opener and blocks until it is full.
type InputStream interface {
	Start() error
	Read() error
	Stop() error
	Close() error
}

// StreamOpener opens an input stream that reads into buf on every Read.
// deviceIndex < 0 selects the system default input device.
type StreamOpener func(deviceIndex, sampleRate, channels int, buf []int16) (InputStream, error)

// LevelFunc receives per-chunk level samples in [0, 1].
type LevelFunc func(level float64)

// Recorder owns the microphone stream. The capture loop runs on its own
// goroutine; Start and Stop are safe to call from any goroutine but the
// samples slice is touched only by the capture loop until Stop has drained
// it.
type Recorder struct {
	open        StreamOpener
	deviceIndex int
	sampleRate  int
	chunkSize   int
	channels    int
	onLevel     LevelFunc

	mu      sync.Mutex
	active  bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	samples []int16
	readErr error
}

// NewRecorder builds a recorder with the portaudio-backed opener.
func NewRecorder(deviceIndex, sampleRate, chunkSize int, onLevel LevelFunc) *Recorder {
	return NewRecorderWithOpener(portaudioOpener, deviceIndex, sampleRate, chunkSize, onLevel)
}

// NewRecorderWithOpener builds a recorder over a custom stream opener.
// Tests inject fakes through this.
func NewRecorderWithOpener(open StreamOpener, deviceIndex, sampleRate, chunkSize int, onLevel LevelFunc) *Recorder {
	if chunkSize <= 0 {
		chunkSize = 1024
	}
	return &Recorder{
		open:        open,
		deviceIndex: deviceIndex,
		sampleRate:  sampleRate,
		chunkSize:   chunkSize,
		channels:    1,
		onLevel:     onLevel,
	}
}

// Start begins capturing on a dedicated goroutine.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active {
		return ErrAlreadyActive
	}

	chunk := make([]int16, r.chunkSize*r.channels)
	stream, err := r.open(r.deviceIndex, r.sampleRate, r.channels, chunk)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	r.active = true
	r.samples = nil
	r.readErr = nil
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})

	go r.captureLoop(stream, chunk, r.stopCh, r.doneCh)

	logging.LogAudioCapture("start",
		zap.Int("sample_rate", r.sampleRate),
		zap.Int("chunk_size", r.chunkSize))
	return nil
}

// captureLoop reads chunks until told to stop, accumulating samples and
// reporting levels. It owns the stream handle and releases it on exit.
func (r *Recorder) captureLoop(stream InputStream, chunk []int16, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	defer func() {
		if err := stream.Stop(); err != nil {
			logging.LogWarn("failed to stop audio stream", zap.Error(err))
		}
		if err := stream.Close(); err != nil {
			logging.LogWarn("failed to close audio stream", zap.Error(err))
		}
	}()

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		if err := stream.Read(); err != nil {
			r.mu.Lock()
			r.readErr = err
			r.mu.Unlock()
			logging.LogError(err, "error reading audio chunk")
			return
		}

		r.mu.Lock()
		r.samples = append(r.samples, chunk...)
		r.mu.Unlock()

		if r.onLevel != nil {
			r.onLevel(Level(chunk))
		}
	}
}

// Stop ends the capture, waits (bounded) for the capture goroutine to
// drain and the device handle to be released, and returns the finalized
// buffer.
func (r *Recorder) Stop() (*Buffer, error) {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return nil, ErrNotActive
	}
	r.active = false
	stopCh, doneCh := r.stopCh, r.doneCh
	r.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
	case <-time.After(drainTimeout):
		logging.LogWarn("audio capture goroutine did not drain in time, proceeding anyway",
			zap.Duration("timeout", drainTimeout))
	}

	r.mu.Lock()
	samples := r.samples
	r.samples = nil
	readErr := r.readErr
	r.mu.Unlock()

	if len(samples) == 0 {
		if readErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, readErr)
		}
		return nil, ErrNoData
	}

	buf := &Buffer{
		Samples:    samples,
		SampleRate: r.sampleRate,
		Channels:   r.channels,
	}

	logging.LogAudioCapture("stop",
		zap.Int("samples", len(samples)),
		zap.Duration("duration", buf.Duration()))
	return buf, nil
}

// Active reports whether a capture is in progress.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}
