// Package audio prepares recordings for diarization: it validates uploads,
// converts them to 16 kHz mono PCM WAV with ffmpeg, decides how long each
// chunk may be so a base64-encoded chunk fits the endpoint's request limit,
// and splits the WAV into ordered chunk files.
package audio
