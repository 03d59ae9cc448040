package audio

import (
	"io"
	"math"
	"sync"
	"time"

	oto "github.com/ebitengine/oto/v3"
)

// SampleFunc renders frames of interleaved stereo samples in [-1, 1].
type SampleFunc func(frames int) []float64

// Output streams a SampleFunc to the default sound device.
type Output struct {
	context    *oto.Context
	player     *oto.Player
	sampleRate int
	bufferSize int
	stopChan   chan struct{}
	stopOnce   sync.Once
}

func NewOutput(sampleRate, bufferSize int) (*Output, error) {
	otoContext, readyChan, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   100 * time.Millisecond,
	})
	if err != nil {
		return nil, err
	}

	<-readyChan

	return &Output{
		context:    otoContext,
		sampleRate: sampleRate,
		bufferSize: bufferSize,
		stopChan:   make(chan struct{}),
	}, nil
}

func (o *Output) SampleRate() int {
	return o.sampleRate
}

func (o *Output) Start(fn SampleFunc) {
	o.player = o.context.NewPlayer(newFrameReader(fn, o.bufferSize, o.stopChan))
	o.player.Play()
}

func (o *Output) Stop() {
	o.stopOnce.Do(func() {
		close(o.stopChan)
		if o.player != nil {
			o.player.Pause()
		}
	})
}

func (o *Output) Close() error {
	o.Stop()
	if o.player != nil {
		return o.player.Close()
	}
	return nil
}

// frameReader adapts a SampleFunc to the io.Reader oto pulls from.
type frameReader struct {
	fn       SampleFunc
	frames   int
	stopChan <-chan struct{}
	buffer   []byte
	bufPos   int
}

func newFrameReader(fn SampleFunc, frames int, stop <-chan struct{}) *frameReader {
	return &frameReader{fn: fn, frames: max(frames, 1), stopChan: stop}
}

func (r *frameReader) Read(buf []byte) (int, error) {
	total := 0

	for total < len(buf) {
		if r.bufPos >= len(r.buffer) {
			select {
			case <-r.stopChan:
				if total == 0 {
					return 0, io.EOF
				}
				return total, nil
			default:
			}

			r.buffer = encodeFloat32LE(r.buffer[:0], r.fn(r.frames))
			r.bufPos = 0
			if len(r.buffer) == 0 {
				// An empty render plays one buffer of silence.
				r.buffer = append(r.buffer, make([]byte, r.frames*2*4)...)
			}
		}

		n := copy(buf[total:], r.buffer[r.bufPos:])
		r.bufPos += n
		total += n
	}

	return total, nil
}

// encodeFloat32LE appends samples to dst as clamped little-endian float32.
func encodeFloat32LE(dst []byte, samples []float64) []byte {
	for _, sample := range samples {
		clamped := math.Max(-1, math.Min(1, sample))
		bits := math.Float32bits(float32(clamped))
		dst = append(dst, byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24))
	}
	return dst
}
