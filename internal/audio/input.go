package audio

import (
	"fmt"
	"strings"
)

const (
	// MaxUploadBytes is the upload size ceiling for a single recording.
	MaxUploadBytes = 10 << 20 // 10 MB

	// SampleRate and BytesPerSample describe the fixed encoding assumed
	// for uploaded recordings: 16 kHz mono PCM-16.
	SampleRate     = 16000
	BytesPerSample = 2
)

// Input is an uploaded audio recording with its request metadata.
// It is immutable once received.
type Input struct {
	Data     []byte
	MIMEType string
	Language string
}

// Validate checks the upload against the size and content-type rules.
func (in *Input) Validate() error {
	if len(in.Data) == 0 {
		return fmt.Errorf("audio payload is empty")
	}
	if len(in.Data) > MaxUploadBytes {
		return fmt.Errorf("audio payload is %d bytes, limit is %d", len(in.Data), MaxUploadBytes)
	}
	if !strings.HasPrefix(in.MIMEType, "audio/") {
		return fmt.Errorf("unsupported upload type %q, expected audio/*", in.MIMEType)
	}
	return nil
}

// EstimateMinutes converts a payload length into minutes of speech under the
// fixed 16 kHz mono PCM-16 encoding. Used for quota accounting only.
func EstimateMinutes(byteLen int) float64 {
	return float64(byteLen) / (SampleRate * BytesPerSample * 60)
}
