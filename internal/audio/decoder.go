package audio

import (
	"errors"
	"fmt"
	"time"
)

// DecodeError reports a chunk that cannot be turned into a WAV container.
// The chunk is unusable and should be dropped.
type DecodeError struct {
	Size   int
	Format Format
	Err    error
}

func (e *DecodeError) Error() string {
	if e == nil || e.Err == nil {
		return "audio decode error"
	}
	return fmt.Sprintf("decode %d bytes as %s: %v", e.Size, e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsDecodeError reports whether err is, or wraps, a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

var (
	ErrEmptyBuffer   = errors.New("empty audio buffer")
	ErrPartialFrame  = errors.New("buffer length is not a whole number of frames")
	ErrBufferTooLong = errors.New("buffer exceeds WAV size limit")
)

// Decoder turns raw PCM buffers into a container a transcription engine can
// read.
type Decoder interface {
	Decode(raw []byte, format Format) ([]byte, error)
}

// WAVDecoder wraps raw PCM in a RIFF/WAVE container.
type WAVDecoder struct{}

// Decode validates raw against format and returns a new WAV file. The input
// slice is neither modified nor retained.
func (WAVDecoder) Decode(raw []byte, format Format) ([]byte, error) {
	fail := func(err error) error {
		return &DecodeError{Size: len(raw), Format: format, Err: err}
	}

	if err := format.validate(); err != nil {
		return nil, fail(err)
	}
	if len(raw) == 0 {
		return nil, fail(ErrEmptyBuffer)
	}
	if len(raw)%format.FrameSize() != 0 {
		return nil, fail(ErrPartialFrame)
	}
	if uint64(len(raw))+36 > uint64(^uint32(0)) {
		return nil, fail(ErrBufferTooLong)
	}

	wav, err := encodeWAV(raw, format)
	if err != nil {
		return nil, fail(err)
	}
	return wav, nil
}

// Duration returns how much audio a raw buffer of n bytes holds in format.
func Duration(n int, format Format) time.Duration {
	rate := format.ByteRate()
	if rate <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(rate)
}
