/*
Copyright (c) 2025 Speechy

Licensed under the AGPLv3 License.
This file is part of speechy.
*/

package audio

import "math"

// Level computes the RMS of a chunk of int16 samples, normalized to
// full scale and clamped to [0, 1]. Empty or degenerate chunks yield 0
// rather than an error; the level meter just shows silence.
func Level(chunk []int16) float64 {
	if len(chunk) == 0 {
		return 0
	}

	var sum float64
	for _, s := range chunk {
		f := float64(s)
		sum += f * f
	}

	mean := sum / float64(len(chunk))
	if mean <= 0 || math.IsNaN(mean) {
		return 0
	}

	level := math.Sqrt(mean) / 32768.0
	if level > 1 {
		level = 1
	}
	return level
}

// Peak returns the maximum absolute amplitude in the chunk, on the raw
// int16 scale. Used by the silence pre-check before transcription.
func Peak(samples []int16) int {
	var peak int
	for _, s := range samples {
		v := int(s)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	return peak
}
