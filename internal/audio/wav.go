package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

// PCM is decoded 16-bit little-endian audio with interleaved channels.
type PCM struct {
	SampleRate int
	Channels   int
	Samples    []int16
}

// Duration returns the playback length.
func (p PCM) Duration() time.Duration {
	if p.SampleRate <= 0 || p.Channels <= 0 {
		return 0
	}
	frames := len(p.Samples) / p.Channels
	return time.Duration(frames) * time.Second / time.Duration(p.SampleRate)
}

// DecodeWAV reads a RIFF/WAVE file containing 16-bit PCM.
// Unknown chunks (LIST, fact) are skipped.
func DecodeWAV(r io.Reader) (PCM, error) {
	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return PCM{}, fmt.Errorf("read wav header: %w", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return PCM{}, errors.New("not a RIFF/WAVE file")
	}

	var (
		pcm       PCM
		sawFormat bool
	)
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return PCM{}, errors.New("wav data chunk not found")
			}
			return PCM{}, fmt.Errorf("read wav chunk: %w", err)
		}
		id := string(chunk[0:4])
		size := int64(binary.LittleEndian.Uint32(chunk[4:8]))

		switch id {
		case "fmt ":
			if size < 16 {
				return PCM{}, fmt.Errorf("wav fmt chunk too short (%d bytes)", size)
			}
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return PCM{}, fmt.Errorf("read wav fmt chunk: %w", err)
			}
			format := binary.LittleEndian.Uint16(body[0:2])
			bits := binary.LittleEndian.Uint16(body[14:16])
			if format != 1 || bits != 16 {
				return PCM{}, fmt.Errorf("unsupported wav encoding (format %d, %d bits)", format, bits)
			}
			pcm.Channels = int(binary.LittleEndian.Uint16(body[2:4]))
			pcm.SampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			if pcm.Channels < 1 || pcm.Channels > 2 || pcm.SampleRate <= 0 {
				return PCM{}, fmt.Errorf("unsupported wav layout (%d channels @ %d Hz)", pcm.Channels, pcm.SampleRate)
			}
			sawFormat = true
			if size%2 == 1 {
				_, _ = io.CopyN(io.Discard, r, 1)
			}
		case "data":
			if !sawFormat {
				return PCM{}, errors.New("wav data chunk precedes fmt chunk")
			}
			// Engines that stream their output often leave the size unset.
			var reader io.Reader = r
			if size > 0 && size != 0xFFFFFFFF {
				reader = io.LimitReader(r, size)
			}
			raw, err := io.ReadAll(reader)
			if err != nil {
				return PCM{}, fmt.Errorf("read wav data: %w", err)
			}
			pcm.Samples = make([]int16, len(raw)/2)
			for i := range pcm.Samples {
				pcm.Samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
			}
			return pcm, nil
		default:
			if _, err := io.CopyN(io.Discard, r, size+size%2); err != nil {
				return PCM{}, fmt.Errorf("skip wav chunk %q: %w", id, err)
			}
		}
	}
}

// EncodeWAV writes 16-bit PCM as a canonical 44-byte-header WAV.
func EncodeWAV(w io.Writer, pcm PCM) error {
	channels := pcm.Channels
	if channels <= 0 {
		channels = 1
	}
	const bitsPerSample = 16
	dataSize := len(pcm.Samples) * 2
	byteRate := pcm.SampleRate * channels * (bitsPerSample / 8)
	blockAlign := channels * (bitsPerSample / 8)

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataSize))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(pcm.SampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataSize))

	if _, err := w.Write(header); err != nil {
		return err
	}
	body := make([]byte, dataSize)
	for i, s := range pcm.Samples {
		binary.LittleEndian.PutUint16(body[i*2:], uint16(s))
	}
	_, err := w.Write(body)
	return err
}
