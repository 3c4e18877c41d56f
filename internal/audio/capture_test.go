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
	"sync/atomic"
	"testing"
	"time"
)

// fakeStream fills the chunk buffer with a constant value on every Read,
// pacing reads so tests can control how much audio accumulates.
type fakeStream struct {
	buf      []int16
	value    int16
	readGap  time.Duration
	reads    atomic.Int32
	readErr  error
	errAfter int32
	closed   atomic.Bool
}

func (f *fakeStream) Start() error { return nil }

func (f *fakeStream) Read() error {
	n := f.reads.Add(1)
	if f.readErr != nil && n > f.errAfter {
		return f.readErr
	}
	for i := range f.buf {
		f.buf[i] = f.value
	}
	if f.readGap > 0 {
		time.Sleep(f.readGap)
	}
	return nil
}

func (f *fakeStream) Stop() error  { return nil }
func (f *fakeStream) Close() error { f.closed.Store(true); return nil }

func fakeOpener(stream *fakeStream) StreamOpener {
	return func(deviceIndex, sampleRate, channels int, buf []int16) (InputStream, error) {
		stream.buf = buf
		return stream, nil
	}
}

func TestRecorderStartStop(t *testing.T) {
	var levels atomic.Int32
	stream := &fakeStream{value: 1000, readGap: time.Millisecond}
	rec := NewRecorderWithOpener(fakeOpener(stream), -1, 16000, 256, func(level float64) {
		if level <= 0 || level > 1 {
			t.Errorf("level %f out of range", level)
		}
		levels.Add(1)
	})

	if err := rec.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !rec.Active() {
		t.Error("recorder should be active after Start")
	}

	time.Sleep(20 * time.Millisecond)

	buf, err := rec.Stop()
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if rec.Active() {
		t.Error("recorder should be inactive after Stop")
	}
	if len(buf.Samples) == 0 {
		t.Fatal("expected buffered samples")
	}
	if buf.SampleRate != 16000 || buf.Channels != 1 {
		t.Errorf("buffer metadata = %d Hz / %d ch", buf.SampleRate, buf.Channels)
	}
	if levels.Load() == 0 {
		t.Error("expected level callbacks during capture")
	}
	if !stream.closed.Load() {
		t.Error("stream should be closed after drain")
	}
}

func TestRecorderStartWhileActive(t *testing.T) {
	stream := &fakeStream{value: 1, readGap: time.Millisecond}
	rec := NewRecorderWithOpener(fakeOpener(stream), -1, 16000, 256, nil)

	if err := rec.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer func() { _, _ = rec.Stop() }()

	if err := rec.Start(); !errors.Is(err, ErrAlreadyActive) {
		t.Errorf("second Start() error = %v, expected ErrAlreadyActive", err)
	}
}

func TestRecorderStopWhileInactive(t *testing.T) {
	rec := NewRecorderWithOpener(fakeOpener(&fakeStream{}), -1, 16000, 256, nil)
	if _, err := rec.Stop(); !errors.Is(err, ErrNotActive) {
		t.Errorf("Stop() error = %v, expected ErrNotActive", err)
	}
}

func TestRecorderOpenFailure(t *testing.T) {
	opener := func(deviceIndex, sampleRate, channels int, buf []int16) (InputStream, error) {
		return nil, errors.New("no such device")
	}
	rec := NewRecorderWithOpener(opener, 3, 16000, 256, nil)

	err := rec.Start()
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("Start() error = %v, expected ErrDeviceUnavailable", err)
	}
	if rec.Active() {
		t.Error("recorder must not be active after failed Start")
	}
}

func TestRecorderReadFailureSurfacesOnStop(t *testing.T) {
	stream := &fakeStream{readErr: errors.New("device yanked"), errAfter: 0}
	rec := NewRecorderWithOpener(fakeOpener(stream), -1, 16000, 256, nil)

	if err := rec.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	_, err := rec.Stop()
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("Stop() error = %v, expected ErrDeviceUnavailable", err)
	}
}

func TestRecorderRestartAfterStop(t *testing.T) {
	stream := &fakeStream{value: 500, readGap: time.Millisecond}
	rec := NewRecorderWithOpener(fakeOpener(stream), -1, 16000, 256, nil)

	for i := 0; i < 2; i++ {
		if err := rec.Start(); err != nil {
			t.Fatalf("Start() #%d error = %v", i+1, err)
		}
		time.Sleep(10 * time.Millisecond)
		buf, err := rec.Stop()
		if err != nil {
			t.Fatalf("Stop() #%d error = %v", i+1, err)
		}
		if len(buf.Samples) == 0 {
			t.Fatalf("no samples on cycle %d", i+1)
		}
	}
}

func TestBufferDuration(t *testing.T) {
	buf := &Buffer{Samples: make([]int16, 16000), SampleRate: 16000, Channels: 1}
	if d := buf.Duration(); d != time.Second {
		t.Errorf("Duration() = %v, expected 1s", d)
	}

	empty := &Buffer{SampleRate: 0, Channels: 1}
	if d := empty.Duration(); d != 0 {
		t.Errorf("degenerate Duration() = %v, expected 0", d)
	}
}

func TestBufferFloat32(t *testing.T) {
	buf := &Buffer{Samples: []int16{0, 16384, -32768}, SampleRate: 16000, Channels: 1}
	f := buf.Float32()
	if f[0] != 0 {
		t.Errorf("f[0] = %f", f[0])
	}
	if f[1] != 0.5 {
		t.Errorf("f[1] = %f, expected 0.5", f[1])
	}
	if f[2] != -1.0 {
		t.Errorf("f[2] = %f, expected -1", f[2])
	}
}
