package audio

import (
	"bytes"
	"math"
	"testing"
)

func TestInputValidate(t *testing.T) {
	tests := []struct {
		name        string
		input       Input
		expectError bool
	}{
		{
			name:  "valid webm upload",
			input: Input{Data: []byte{0x1a, 0x45}, MIMEType: "audio/webm", Language: "korean"},
		},
		{
			name:  "valid wav upload",
			input: Input{Data: []byte("RIFF"), MIMEType: "audio/wav", Language: "russian"},
		},
		{
			name:        "empty payload",
			input:       Input{Data: nil, MIMEType: "audio/webm"},
			expectError: true,
		},
		{
			name:        "oversized payload",
			input:       Input{Data: bytes.Repeat([]byte{0}, MaxUploadBytes+1), MIMEType: "audio/webm"},
			expectError: true,
		},
		{
			name:        "non-audio content type",
			input:       Input{Data: []byte("%PDF"), MIMEType: "application/pdf"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if tt.expectError && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestEstimateMinutes(t *testing.T) {
	// One minute of 16 kHz mono PCM-16 is 1,920,000 bytes.
	oneMinute := SampleRate * BytesPerSample * 60

	tests := []struct {
		name    string
		byteLen int
		want    float64
	}{
		{"one minute", oneMinute, 1.0},
		{"thirty seconds", oneMinute / 2, 0.5},
		{"empty", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateMinutes(tt.byteLen)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("EstimateMinutes(%d) = %f, want %f", tt.byteLen, got, tt.want)
			}
		})
	}
}
