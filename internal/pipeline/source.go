package pipeline

import (
	"context"
	"fmt"
	"os"
)

// ChunkSource yields a recording's audio chunks in playback order.
type ChunkSource interface {
	Len() int
	Load(ctx context.Context, index int) ([]byte, error)
}

// FileChunks reads each chunk from a WAV file on demand.
type FileChunks []string

func (f FileChunks) Len() int { return len(f) }

func (f FileChunks) Load(_ context.Context, index int) ([]byte, error) {
	if index < 0 || index >= len(f) {
		return nil, fmt.Errorf("chunk %d out of range", index)
	}
	data, err := os.ReadFile(f[index])
	if err != nil {
		return nil, fmt.Errorf("read chunk %d: %w", index, err)
	}
	return data, nil
}

// MemoryChunks serves chunks already held in memory.
type MemoryChunks [][]byte

func (m MemoryChunks) Len() int { return len(m) }

func (m MemoryChunks) Load(_ context.Context, index int) ([]byte, error) {
	if index < 0 || index >= len(m) {
		return nil, fmt.Errorf("chunk %d out of range", index)
	}
	return m[index], nil
}
