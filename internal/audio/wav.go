package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// WAVInfo describes a PCM WAV file.
type WAVInfo struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	DataBytes     int64
}

// BytesPerSecond returns the byte rate of the sample data.
func (w WAVInfo) BytesPerSecond() int64 {
	return int64(w.SampleRate) * int64(w.Channels) * int64(w.BitsPerSample/8)
}

// Duration returns the playback length of the sample data.
func (w WAVInfo) Duration() time.Duration {
	bps := w.BytesPerSecond()
	if bps <= 0 {
		return 0
	}
	return time.Duration(float64(w.DataBytes) / float64(bps) * float64(time.Second))
}

var errNotWAV = errors.New("not a RIFF/WAVE file")

// ReadWAVInfo parses the RIFF header of a WAV file.
func ReadWAVInfo(path string) (WAVInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return WAVInfo{}, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()
	info, err := parseWAV(f)
	if err != nil {
		return WAVInfo{}, fmt.Errorf("read wav %s: %w", path, err)
	}
	return info, nil
}

func parseWAV(r io.Reader) (WAVInfo, error) {
	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return WAVInfo{}, errNotWAV
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return WAVInfo{}, errNotWAV
	}

	var info WAVInfo
	haveFormat := false
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			return WAVInfo{}, fmt.Errorf("missing data chunk: %w", err)
		}
		id := string(chunk[0:4])
		size := int64(binary.LittleEndian.Uint32(chunk[4:8]))
		switch id {
		case "fmt ":
			if size < 16 {
				return WAVInfo{}, fmt.Errorf("short fmt chunk (%d bytes)", size)
			}
			var fmtChunk [16]byte
			if _, err := io.ReadFull(r, fmtChunk[:]); err != nil {
				return WAVInfo{}, fmt.Errorf("read fmt chunk: %w", err)
			}
			info.Channels = int(binary.LittleEndian.Uint16(fmtChunk[2:4]))
			info.SampleRate = int(binary.LittleEndian.Uint32(fmtChunk[4:8]))
			info.BitsPerSample = int(binary.LittleEndian.Uint16(fmtChunk[14:16]))
			haveFormat = true
			if err := skip(r, size-16+size%2); err != nil {
				return WAVInfo{}, err
			}
		case "data":
			if !haveFormat {
				return WAVInfo{}, errors.New("data chunk before fmt chunk")
			}
			info.DataBytes = size
			return info, nil
		default:
			if err := skip(r, size+size%2); err != nil {
				return WAVInfo{}, err
			}
		}
	}
}

func skip(r io.Reader, n int64) error {
	if n <= 0 {
		return nil
	}
	if _, err := io.CopyN(io.Discard, r, n); err != nil {
		return fmt.Errorf("skip chunk: %w", err)
	}
	return nil
}
