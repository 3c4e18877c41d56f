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
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

var initOnce sync.Once

// ensureInitialized lazily initializes the portaudio runtime. Termination
// is left to process exit; re-initializing a torn-down runtime is a known
// source of crashes on some hosts.
func ensureInitialized() error {
	var err error
	initOnce.Do(func() {
		err = portaudio.Initialize()
	})
	return err
}

// Device describes an available input device.
type Device struct {
	Index      int     `json:"index"`
	Name       string  `json:"name"`
	Channels   int     `json:"channels"`
	SampleRate float64 `json:"sample_rate"`
}

// ListDevices enumerates audio input devices.
func ListDevices() ([]Device, error) {
	if err := ensureInitialized(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	var devices []Device
	for i, info := range infos {
		if info.MaxInputChannels <= 0 {
			continue
		}
		devices = append(devices, Device{
			Index:      i,
			Name:       info.Name,
			Channels:   info.MaxInputChannels,
			SampleRate: info.DefaultSampleRate,
		})
	}
	return devices, nil
}

// portaudioOpener is the production StreamOpener.
func portaudioOpener(deviceIndex, sampleRate, channels int, buf []int16) (InputStream, error) {
	if err := ensureInitialized(); err != nil {
		return nil, err
	}

	if deviceIndex < 0 {
		stream, err := portaudio.OpenDefaultStream(channels, 0, float64(sampleRate), len(buf)/channels, buf)
		if err != nil {
			return nil, err
		}
		return stream, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	if deviceIndex >= len(devices) {
		return nil, fmt.Errorf("audio device index %d out of range", deviceIndex)
	}

	params := portaudio.LowLatencyParameters(devices[deviceIndex], nil)
	params.Input.Channels = channels
	params.SampleRate = float64(sampleRate)
	params.FramesPerBuffer = len(buf) / channels

	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return nil, err
	}
	return stream, nil
}
