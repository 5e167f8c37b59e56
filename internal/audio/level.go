package audio

import (
	"encoding/binary"
	"math"
)

// SilenceDB is reported for empty or all-zero buffers.
const SilenceDB = -96.0

// LevelDB returns the RMS level of little-endian 16-bit PCM in dBFS. A
// trailing odd byte is ignored.
func LevelDB(pcm []byte) float64 {
	samples := len(pcm) / 2
	if samples == 0 {
		return SilenceDB
	}

	var sum float64
	for i := 0; i < samples; i++ {
		v := float64(int16(binary.LittleEndian.Uint16(pcm[2*i:]))) / 32768.0
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(samples))
	if rms == 0 {
		return SilenceDB
	}

	db := 20 * math.Log10(rms)
	if db < SilenceDB {
		return SilenceDB
	}
	return db
}
