// Package translate wraps the external text-translation provider and
// enforces the daily character budget before each call.
package translate
