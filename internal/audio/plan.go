package audio

import "math"

const (
	// DefaultMaxRequestBytes is the serving endpoint's request payload limit.
	DefaultMaxRequestBytes int64 = 16_777_216
	// DefaultMinChunkSeconds is the shortest chunk size-based planning produces.
	DefaultMinChunkSeconds = 60

	base64Overhead = 4.0 / 3.0
	payloadMargin  = 0.95
)

// Limits controls chunk planning.
type Limits struct {
	MaxRequestBytes   int64
	MinChunkSeconds   int
	FixedChunking     bool
	FixedChunkSeconds int
}

// MaxRawBytes returns the largest raw audio payload that still fits the
// request limit after base64 encoding, with a 5% margin for the envelope.
func (l Limits) MaxRawBytes() int64 {
	limit := l.MaxRequestBytes
	if limit <= 0 {
		limit = DefaultMaxRequestBytes
	}
	return int64(float64(limit) / base64Overhead * payloadMargin)
}

// PlanChunkSeconds returns the chunk length for a WAV file, or 0 when the
// whole file can be sent in one request.
func PlanChunkSeconds(info WAVInfo, limits Limits) int {
	if limits.FixedChunking {
		if limits.FixedChunkSeconds > 0 {
			return limits.FixedChunkSeconds
		}
		return DefaultMinChunkSeconds
	}

	maxRaw := limits.MaxRawBytes()
	if info.DataBytes <= maxRaw {
		return 0
	}
	bps := info.BytesPerSecond()
	if bps <= 0 {
		return 0
	}
	minSeconds := limits.MinChunkSeconds
	if minSeconds <= 0 {
		minSeconds = DefaultMinChunkSeconds
	}
	seconds := int(math.Floor(float64(maxRaw) / float64(bps)))
	return max(minSeconds, seconds)
}

// ChunkCount returns how many chunks of chunkSeconds cover info.
func ChunkCount(info WAVInfo, chunkSeconds int) int {
	if chunkSeconds <= 0 {
		return 1
	}
	bytesPerChunk := info.BytesPerSecond() * int64(chunkSeconds)
	if bytesPerChunk <= 0 {
		return 1
	}
	n := int((info.DataBytes + bytesPerChunk - 1) / bytesPerChunk)
	return max(n, 1)
}
