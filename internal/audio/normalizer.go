package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// Canonical format required by the recognition providers.
const (
	CanonicalSampleRate = 16000
	CanonicalChannels   = 1
	CanonicalBitDepth   = 16

	headerSize = 44

	// Anything shorter than 100ms of canonical audio cannot contain speech.
	minViableBytes = headerSize + CanonicalSampleRate/10*2
)

var (
	ErrEmptyAudio        = errors.New("audio payload is empty or too short")
	ErrUnsupportedFormat = errors.New("unsupported or corrupt audio container")
	ErrUnsupportedRate   = errors.New("unsupported sample rate")
)

// Format describes the parameters parsed from a WAV header
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	PCM           bool
}

// Normalized is the output of a successful normalization: a WAV container
// guaranteed to hold mono 16-bit PCM at the canonical sample rate.
type Normalized struct {
	WAV    []byte
	Format Format
	// Resampled is true when the payload was rewritten to reach the
	// canonical rate, false on pass-through.
	Resampled bool
}

// ParseFormat validates the RIFF/WAVE header and extracts its parameters
func ParseFormat(data []byte) (Format, error) {
	if len(data) < headerSize {
		return Format{}, ErrUnsupportedFormat
	}
	if !bytes.Equal(data[0:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")) {
		return Format{}, ErrUnsupportedFormat
	}

	return Format{
		PCM:           binary.LittleEndian.Uint16(data[20:22]) == 1,
		Channels:      int(binary.LittleEndian.Uint16(data[22:24])),
		SampleRate:    int(binary.LittleEndian.Uint32(data[24:28])),
		BitsPerSample: int(binary.LittleEndian.Uint16(data[34:36])),
	}, nil
}

// Normalize validates raw audio bytes and reshapes them into the canonical
// container. The declared filename (or mime type) is only a hint used to
// reject formats the parser cannot handle with a clearer message; the header
// bytes are authoritative. Pure transform: no file-system or network access.
func Normalize(raw []byte, declared string) (*Normalized, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyAudio
	}

	format, err := ParseFormat(raw)
	if err != nil {
		if hint := containerHint(declared); hint != "" {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, hint)
		}
		return nil, err
	}

	if !format.PCM || format.BitsPerSample != CanonicalBitDepth || format.Channels != CanonicalChannels {
		return nil, fmt.Errorf("%w: want mono %d-bit PCM, got %d channels %d-bit",
			ErrUnsupportedFormat, CanonicalBitDepth, format.Channels, format.BitsPerSample)
	}

	if len(raw) < minViableBytes && format.SampleRate >= CanonicalSampleRate {
		return nil, ErrEmptyAudio
	}

	if format.SampleRate == CanonicalSampleRate {
		// Already canonical: pass through unchanged.
		return &Normalized{WAV: raw, Format: format}, nil
	}

	pcm := raw[headerSize:]
	var resampled []byte
	switch format.SampleRate {
	case 8000:
		resampled = upsamplePCM(pcm, 2)
	case 32000:
		resampled = downsamplePCM(pcm, 2)
	case 48000:
		resampled = downsamplePCM(pcm, 3)
	default:
		return nil, fmt.Errorf("%w: %d Hz", ErrUnsupportedRate, format.SampleRate)
	}

	out := WAVFromPCM(resampled, CanonicalSampleRate)
	if len(out) < minViableBytes {
		return nil, ErrEmptyAudio
	}

	return &Normalized{
		WAV: out,
		Format: Format{
			SampleRate:    CanonicalSampleRate,
			Channels:      CanonicalChannels,
			BitsPerSample: CanonicalBitDepth,
			PCM:           true,
		},
		Resampled: true,
	}, nil
}

// upsamplePCM duplicates each 16-bit sample factor times. Approximate,
// allocation-light resampling; band-limited interpolation is intentionally
// out of scope.
func upsamplePCM(pcm []byte, factor int) []byte {
	out := make([]byte, 0, len(pcm)*factor)
	for i := 0; i+1 < len(pcm); i += 2 {
		for n := 0; n < factor; n++ {
			out = append(out, pcm[i], pcm[i+1])
		}
	}
	return out
}

// downsamplePCM keeps every factor-th 16-bit sample
func downsamplePCM(pcm []byte, factor int) []byte {
	out := make([]byte, 0, len(pcm)/factor+2)
	for i := 0; i+1 < len(pcm); i += 2 * factor {
		out = append(out, pcm[i], pcm[i+1])
	}
	return out
}

// WAVFromPCM wraps raw mono 16-bit PCM in a 44-byte WAV header
func WAVFromPCM(pcm []byte, sampleRate int) []byte {
	header := make([]byte, headerSize)

	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(pcm)+36))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], CanonicalChannels)
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(sampleRate*CanonicalChannels*2))
	binary.LittleEndian.PutUint16(header[32:34], CanonicalChannels*2)
	binary.LittleEndian.PutUint16(header[34:36], CanonicalBitDepth)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(len(pcm)))

	return append(header, pcm...)
}

// GenerateSilence produces a canonical WAV of silence, mainly for tests and
// warmup calls against recognition providers
func GenerateSilence(seconds float64) []byte {
	samples := int(seconds * CanonicalSampleRate)
	return WAVFromPCM(make([]byte, samples*2), CanonicalSampleRate)
}

// DurationSeconds reports the playback length of canonical-format audio
func DurationSeconds(wav []byte) float64 {
	if len(wav) <= headerSize {
		return 0
	}
	return float64(len(wav)-headerSize) / float64(CanonicalSampleRate*2)
}

func containerHint(declared string) string {
	declared = strings.ToLower(declared)
	switch {
	case strings.Contains(declared, "webm"), strings.Contains(declared, "opus"):
		return "compressed webm/opus payloads must be decoded client-side"
	case strings.Contains(declared, "mp3"), strings.Contains(declared, "mpeg"):
		return "mp3 payloads are not accepted for recognition"
	case strings.Contains(declared, "ogg"):
		return "ogg payloads are not accepted for recognition"
	default:
		return ""
	}
}
