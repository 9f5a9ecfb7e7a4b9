package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// PCM format produced by the engine.
const (
	// SampleRate is the engine's output sample rate in Hz.
	SampleRate = 24000
	// Channels is the number of audio channels (mono).
	Channels = 1
	// BitDepth is the PCM bit depth.
	BitDepth = 16
)

// ErrUnsupportedFormat is returned for containers the player cannot decode.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// BytesPerSecond returns the PCM data rate for the engine format.
func BytesPerSecond() int {
	return SampleRate * Channels * BitDepth / 8
}

// Duration estimates the playback length in seconds of raw PCM data.
func Duration(pcmLen int) float64 {
	return float64(pcmLen) / float64(BytesPerSecond())
}

// DecodePCM converts engine audio in the given container format to raw
// signed 16-bit little-endian PCM ready for the player.
func DecodePCM(data []byte, format string) ([]byte, error) {
	switch format {
	case "pcm":
		return alignPCM(data), nil
	case "wav":
		return extractWAVData(data)
	case "mp3":
		return decodeMP3(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// alignPCM pads odd-length data so it splits into whole 16-bit samples.
func alignPCM(data []byte) []byte {
	if len(data)%2 != 0 {
		return append(data, 0)
	}
	return data
}

// extractWAVData returns the contents of the data chunk of a RIFF WAV
// file. Chunks other than data (fmt, LIST, fact) are skipped.
func extractWAVData(data []byte) ([]byte, error) {
	if len(data) < 12 || !bytes.Equal(data[0:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")) {
		return nil, errors.New("not a RIFF WAVE file")
	}

	offset := 12
	for offset+8 <= len(data) {
		chunkID := data[offset : offset+4]
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8

		if bytes.Equal(chunkID, []byte("data")) {
			end := body + chunkSize
			if end > len(data) {
				// Truncated file, take what is there.
				end = len(data)
			}
			return alignPCM(data[body:end]), nil
		}

		// Chunks are word aligned.
		if chunkSize%2 != 0 {
			chunkSize++
		}
		offset = body + chunkSize
	}

	return nil, errors.New("WAV file has no data chunk")
}

func decodeMP3(data []byte) ([]byte, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding mp3: %w", err)
	}

	var pcm bytes.Buffer
	if _, err := io.Copy(&pcm, decoder); err != nil {
		return nil, fmt.Errorf("reading mp3 frames: %w", err)
	}

	// go-mp3 always emits stereo. Downmix to mono by keeping the left
	// channel, which matches the engine's mono source.
	stereo := pcm.Bytes()
	mono := make([]byte, 0, len(stereo)/2)
	for i := 0; i+4 <= len(stereo); i += 4 {
		mono = append(mono, stereo[i], stereo[i+1])
	}

	// The audio device runs one context at the engine rate, so MP3s
	// encoded at another rate are resampled instead of playing at the
	// wrong pitch.
	return resamplePCM(mono, decoder.SampleRate(), SampleRate), nil
}

// resamplePCM converts mono 16-bit PCM from one sample rate to another
// by linear interpolation. Identical rates pass through untouched.
func resamplePCM(pcm []byte, from, to int) []byte {
	if from == to || from <= 0 || to <= 0 {
		return pcm
	}
	srcN := len(pcm) / 2
	if srcN == 0 {
		return pcm
	}
	dstN := int(int64(srcN) * int64(to) / int64(from))
	if dstN == 0 {
		dstN = 1
	}

	out := make([]byte, dstN*2)
	for i := 0; i < dstN; i++ {
		pos := float64(i) * float64(from) / float64(to)
		j := int(pos)
		frac := pos - float64(j)

		s0 := int16(binary.LittleEndian.Uint16(pcm[j*2:]))
		s1 := s0
		if j+1 < srcN {
			s1 = int16(binary.LittleEndian.Uint16(pcm[(j+1)*2:]))
		}
		v := float64(s0) + (float64(s1)-float64(s0))*frac
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v)))
	}
	return out
}
