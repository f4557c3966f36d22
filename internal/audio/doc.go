// Package audio defines the uploaded audio payload and its validation rules.
// Uploads are assumed to carry 16 kHz mono PCM-16 content; duration estimates
// for quota accounting derive from that fixed encoding.
package audio
