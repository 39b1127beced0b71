// Package audio holds the PCM primitives used to assemble drill tracks:
// clips in a fixed canonical format, silence, concatenation, speed
// re-rendering and the codecs that turn a finished clip into a file and
// measure it again afterwards.
package audio
