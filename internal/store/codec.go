package store

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"parley/internal/speakers"
)

func encodeEmbedding(e speakers.Embedding) ([]byte, error) {
	data, err := msgpack.Marshal([]float64(e))
	if err != nil {
		return nil, fmt.Errorf("encode embedding: %w", err)
	}
	return data, nil
}

func decodeEmbedding(data []byte, dim int) (speakers.Embedding, error) {
	var values []float64
	if err := msgpack.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}
	if len(values) != dim {
		return nil, fmt.Errorf("decode embedding: %w: stored %d values, header says %d",
			speakers.ErrDimensionMismatch, len(values), dim)
	}
	return speakers.Embedding(values), nil
}
