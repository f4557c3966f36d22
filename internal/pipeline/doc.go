// Package pipeline orchestrates one counseling voice submission: quota
// check, AI transcription and translation with simulation fallback, priority
// classification, and record persistence.
package pipeline
