// Package speech wraps the external speech-recognition provider. It maps
// intake language tags to provider locale codes, submits recordings with the
// service's fixed encoding assumptions, and charges recognized audio against
// the daily speech quota.
package speech
