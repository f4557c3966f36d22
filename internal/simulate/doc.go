// Package simulate produces deterministic canned counseling transcripts.
// It substitutes for the AI pipeline whenever provider credentials are absent
// or a provider call fails, so the intake flow keeps working offline.
package simulate
