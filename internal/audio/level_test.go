package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestLevelDBSilence(t *testing.T) {
	t.Parallel()

	if got := LevelDB(nil); got != SilenceDB {
		t.Fatalf("expected silence for empty buffer, got %f", got)
	}
	if got := LevelDB([]byte{0}); got != SilenceDB {
		t.Fatalf("expected silence for a lone byte, got %f", got)
	}
	if got := LevelDB(make([]byte, 512)); got != SilenceDB {
		t.Fatalf("expected silence for zeros, got %f", got)
	}
}

func TestLevelDBFullScale(t *testing.T) {
	t.Parallel()

	pcm := make([]byte, 0, 8)
	for _, v := range []int16{math.MinInt16, math.MinInt16, math.MinInt16, math.MinInt16} {
		pcm = binary.LittleEndian.AppendUint16(pcm, uint16(v))
	}
	if got := LevelDB(pcm); math.Abs(got) > 1e-9 {
		t.Fatalf("expected 0 dBFS, got %f", got)
	}
}

func TestLevelDBHalfScale(t *testing.T) {
	t.Parallel()

	pcm := make([]byte, 0, 4)
	for _, v := range []int16{16384, -16384} {
		pcm = binary.LittleEndian.AppendUint16(pcm, uint16(v))
	}

	got := LevelDB(pcm)
	want := 20 * math.Log10(0.5)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected %f dBFS, got %f", want, got)
	}
}
