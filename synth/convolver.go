package synth

import (
	"fmt"

	dspconv "github.com/cwbudde/algo-dsp/dsp/conv"
	dspcore "github.com/cwbudde/algo-dsp/dsp/core"

	"github.com/cwbudde/algo-synth/internal/audioio"
)

const (
	// Smallest partition is one render sub-block; it sets the wet latency.
	roomMinBlockOrder = 6
	roomMaxBlockOrder = 13
)

// RoomConvolver adds a stereo room reverb on top of the dry signal with
// non-uniformly partitioned convolution. The wet path runs Latency frames
// behind the dry path.
type RoomConvolver struct {
	sampleRate int
	wet        float32

	// Source IR as loaded, kept for re-rendering at a new sample rate.
	srcLeft  []float32
	srcRight []float32
	srcRate  int

	leftConv  *dspconv.PartitionedConvolution32
	rightConv *dspconv.PartitionedConvolution32

	// Pre-allocated wet buffers for zero-allocation processing
	wetL, wetR []float32
}

// NewRoomConvolver creates a convolver with an identity IR.
// wet scales the convolved signal before it is added to the dry signal.
func NewRoomConvolver(sampleRate int, wet float32) *RoomConvolver {
	c := &RoomConvolver{
		sampleRate: sampleRate,
		wet:        wet,
		wetL:       make([]float32, BlockSize),
		wetR:       make([]float32, BlockSize),
	}
	if err := c.SetIR([]float32{1.0}, []float32{1.0}); err != nil {
		panic(err)
	}
	return c
}

// SetIR configures left/right impulse responses at the convolver's rate.
// An empty right IR reuses the left one.
func (c *RoomConvolver) SetIR(leftIR []float32, rightIR []float32) error {
	if len(leftIR) == 0 {
		leftIR = []float32{1.0}
	}
	if len(rightIR) == 0 {
		rightIR = leftIR
	}
	leftConv, err := dspconv.NewPartitionedConvolution32(leftIR, roomMinBlockOrder, roomMaxBlockOrder)
	if err != nil {
		return fmt.Errorf("left room IR: %w", err)
	}
	rightConv, err := dspconv.NewPartitionedConvolution32(rightIR, roomMinBlockOrder, roomMaxBlockOrder)
	if err != nil {
		return fmt.Errorf("right room IR: %w", err)
	}
	c.leftConv = leftConv
	c.rightConv = rightConv
	c.srcLeft, c.srcRight, c.srcRate = leftIR, rightIR, c.sampleRate
	c.Reset()
	return nil
}

// SetIRFromWAV loads a mono/stereo IR from WAV, resampled to the
// convolver's rate.
func (c *RoomConvolver) SetIRFromWAV(path string) error {
	left, right, rate, err := audioio.ReadStereoWAV(path)
	if err != nil {
		return err
	}
	return c.setSourceIR(left, right, rate)
}

// SetSampleRate re-renders the loaded IR for a new rate and clears history.
func (c *RoomConvolver) SetSampleRate(sampleRate int) error {
	if sampleRate <= 0 || sampleRate == c.sampleRate {
		c.Reset()
		return nil
	}
	c.sampleRate = sampleRate
	return c.setSourceIR(c.srcLeft, c.srcRight, c.srcRate)
}

func (c *RoomConvolver) setSourceIR(left, right []float32, rate int) error {
	l, err := audioio.Resample(left, rate, c.sampleRate)
	if err != nil {
		return err
	}
	r, err := audioio.Resample(right, rate, c.sampleRate)
	if err != nil {
		return err
	}
	if err := c.SetIR(l, r); err != nil {
		return err
	}
	c.srcLeft, c.srcRight, c.srcRate = left, right, rate
	return nil
}

// Process adds the wet signal into left and right in place.
func (c *RoomConvolver) Process(left, right []float32) {
	n := min(len(left), len(right))
	for done := 0; done < n; {
		m := min(n-done, len(c.wetL))
		l := left[done : done+m]
		r := right[done : done+m]
		wl := c.wetL[:m]
		wr := c.wetR[:m]
		errL := c.leftConv.ProcessBlock(l, wl)
		errR := c.rightConv.ProcessBlock(r, wr)
		if errL == nil && errR == nil {
			for i := range l {
				l[i] += c.wet * float32(dspcore.FlushDenormals(float64(wl[i])))
				r[i] += c.wet * float32(dspcore.FlushDenormals(float64(wr[i])))
			}
		}
		done += m
	}
}

// Reset clears convolver history.
func (c *RoomConvolver) Reset() {
	if c.leftConv != nil {
		c.leftConv.Reset()
	}
	if c.rightConv != nil {
		c.rightConv.Reset()
	}
	clear(c.wetL)
	clear(c.wetR)
}

// Latency returns the wet-path delay in frames.
func (c *RoomConvolver) Latency() int {
	if c.leftConv == nil {
		return 0
	}
	return c.leftConv.Latency()
}
