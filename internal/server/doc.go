// Package server implements the HTTP API for the counseling intake form.
// It handles the audio upload endpoint, record listing, usage reporting,
// and health/metadata endpoints, with permissive CORS for the browser form.
package server
