// Package engines contains the speech synthesis engines: gTTS (online,
// through gtts-cli and ffmpeg), Piper (offline) and a deterministic mock
// used for dry runs and tests. All of them return canonical PCM.
package engines
