package audio

import "fmt"

// Format describes raw interleaved PCM.
type Format struct {
	SampleWidth int // bytes per sample
	SampleRate  int // frames per second
	Channels    int
}

// WireFormat is the only format producers may submit: 16-bit signed
// little-endian PCM, 16 kHz, mono. It is not negotiated per request.
var WireFormat = Format{
	SampleWidth: 2,
	SampleRate:  16000,
	Channels:    1,
}

// FrameSize returns the number of bytes in one frame (one sample per channel).
func (f Format) FrameSize() int {
	return f.SampleWidth * f.Channels
}

// ByteRate returns bytes per second of audio.
func (f Format) ByteRate() int {
	return f.SampleRate * f.FrameSize()
}

func (f Format) String() string {
	return fmt.Sprintf("s%dle/%dHz/%dch", f.SampleWidth*8, f.SampleRate, f.Channels)
}

func (f Format) validate() error {
	if f.SampleWidth != 1 && f.SampleWidth != 2 && f.SampleWidth != 4 {
		return fmt.Errorf("unsupported sample width: %d bytes", f.SampleWidth)
	}
	if f.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("invalid channel count: %d", f.Channels)
	}
	return nil
}
