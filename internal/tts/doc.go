// Package tts defines the speech synthesis contracts used by the cache,
// the error taxonomy shared by all engines, and retry handling for
// transient engine failures.
package tts
