package audio

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/orcaman/writerseeker"
)

const pcmFormat = 1

// samples unpacks little-endian PCM into one int per sample. 8-bit WAV is
// unsigned, so those bytes pass through unchanged.
func samples(raw []byte, f Format) []int {
	out := make([]int, len(raw)/f.SampleWidth)
	for i := range out {
		b := raw[i*f.SampleWidth:]
		switch f.SampleWidth {
		case 1:
			out[i] = int(b[0])
		case 2:
			out[i] = int(int16(binary.LittleEndian.Uint16(b)))
		case 4:
			out[i] = int(int32(binary.LittleEndian.Uint32(b)))
		}
	}
	return out
}

func encodeWAV(raw []byte, f Format) ([]byte, error) {
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: f.Channels, SampleRate: f.SampleRate},
		Data:           samples(raw, f),
		SourceBitDepth: f.SampleWidth * 8,
	}

	out := &writerseeker.WriterSeeker{}
	enc := wav.NewEncoder(out, f.SampleRate, f.SampleWidth*8, f.Channels, pcmFormat)
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("encoder write buffer: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoder close: %w", err)
	}

	data, err := io.ReadAll(out.Reader())
	if err != nil {
		return nil, fmt.Errorf("read WAV into memory: %w", err)
	}
	return data, nil
}
