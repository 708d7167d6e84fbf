package audioio

import (
	"math"
	"path/filepath"
	"testing"
)

func TestWriteThenReadStereoWAV(t *testing.T) {
	const sampleRate = 44100
	frames := 1000
	data := make([]float32, frames*2)
	for i := 0; i < frames; i++ {
		data[i*2] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/sampleRate))
		data[i*2+1] = -data[i*2]
	}

	path := filepath.Join(t.TempDir(), "nested", "tone.wav")
	if err := WriteStereoWAV(path, data, sampleRate); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	left, right, rate, err := ReadStereoWAV(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if rate != sampleRate {
		t.Fatalf("sample rate mismatch: got=%d want=%d", rate, sampleRate)
	}
	if len(left) != frames || len(right) != frames {
		t.Fatalf("frame count mismatch: got=%d/%d want=%d", len(left), len(right), frames)
	}
	// 16-bit quantization.
	const tol = 2.0 / 32768.0
	for i := 0; i < frames; i++ {
		if math.Abs(float64(left[i]-data[i*2])) > tol || math.Abs(float64(right[i]-data[i*2+1])) > tol {
			t.Fatalf("sample %d mismatch: got=(%f,%f) want=(%f,%f)", i, left[i], right[i], data[i*2], data[i*2+1])
		}
	}

	mono, _, err := ReadMonoWAV(path)
	if err != nil {
		t.Fatalf("mono read failed: %v", err)
	}
	for i, v := range mono {
		if math.Abs(v) > tol {
			t.Fatalf("expected opposite channels to cancel at %d, got %f", i, v)
		}
	}
}

func TestWriteStereoWAVRejectsOddLength(t *testing.T) {
	path := filepath.Join(t.TempDir(), "odd.wav")
	if err := WriteStereoWAV(path, make([]float32, 3), 48000); err == nil {
		t.Fatalf("expected error for odd interleaved length")
	}
}

func TestReadStereoWAVMissingFile(t *testing.T) {
	if _, _, _, err := ReadStereoWAV(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestResampleChangesLength(t *testing.T) {
	in := make([]float32, 4800)
	for i := range in {
		in[i] = float32(math.Sin(2 * math.Pi * 100 * float64(i) / 48000))
	}
	out, err := Resample(in, 48000, 24000)
	if err != nil {
		t.Fatalf("resample failed: %v", err)
	}
	if math.Abs(float64(len(out))-2400) > 200 {
		t.Fatalf("unexpected resampled length: got=%d want~2400", len(out))
	}

	same, err := Resample(in, 48000, 48000)
	if err != nil || len(same) != len(in) {
		t.Fatalf("equal rates should pass through: len=%d err=%v", len(same), err)
	}
}

func TestStereoHelpers(t *testing.T) {
	st := []float32{1, 0, -0.5, 0.5}
	mono := StereoToMono(st)
	if len(mono) != 2 || mono[0] != 0.5 || mono[1] != 0 {
		t.Fatalf("unexpected mono mix: %v", mono)
	}
	if got := Peak(st); got != 1 {
		t.Fatalf("peak mismatch: got=%f want=1", got)
	}
	if got := RMS([]float32{1, -1}); got != 1 {
		t.Fatalf("rms mismatch: got=%f want=1", got)
	}
}
