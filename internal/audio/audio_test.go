package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"parley/internal/services"
)

// writeWAV writes a 16-bit PCM WAV with an extra LIST chunk before data.
func writeWAV(t *testing.T, path string, sampleRate, channels int, dataBytes int) {
	t.Helper()
	var buf bytes.Buffer
	list := []byte("INFOISFT\x05\x00\x00\x00test\x00\x00")
	riffSize := 4 + (8 + 16) + (8 + len(list)) + (8 + dataBytes)
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(riffSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*channels*2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(channels*2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("LIST")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(list)))
	buf.Write(list)
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(dataBytes))
	buf.Write(make([]byte, dataBytes))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write wav: %v", err)
	}
}

func TestReadWAVInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.wav")
	writeWAV(t, path, 16000, 1, 32000*3)

	info, err := ReadWAVInfo(path)
	if err != nil {
		t.Fatalf("ReadWAVInfo returned error: %v", err)
	}
	if info.SampleRate != 16000 || info.Channels != 1 || info.BitsPerSample != 16 {
		t.Fatalf("unexpected format: %+v", info)
	}
	if info.DataBytes != 96000 {
		t.Fatalf("unexpected data size: %d", info.DataBytes)
	}
	if info.Duration() != 3*time.Second {
		t.Fatalf("unexpected duration: %v", info.Duration())
	}
}

func TestReadWAVInfoRejectsOtherFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.wav")
	if err := os.WriteFile(path, []byte("ID3 not a wav at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadWAVInfo(path); err == nil {
		t.Fatal("expected error")
	}
}

func TestMaxRawBytes(t *testing.T) {
	if got := (Limits{}).MaxRawBytes(); got != 11953766 {
		t.Fatalf("MaxRawBytes = %d, want 11953766", got)
	}
}

func TestPlanChunkSeconds(t *testing.T) {
	mono16k := func(seconds int64) WAVInfo {
		return WAVInfo{SampleRate: 16000, Channels: 1, BitsPerSample: 16, DataBytes: seconds * 32000}
	}
	tests := []struct {
		name   string
		info   WAVInfo
		limits Limits
		want   int
	}{
		{"fits in one request", mono16k(300), Limits{}, 0},
		{"size based", mono16k(3600), Limits{}, 373},
		{"minimum enforced", mono16k(3600), Limits{MaxRequestBytes: 1 << 20, MinChunkSeconds: 60}, 60},
		{"fixed chunking", mono16k(300), Limits{FixedChunking: true, FixedChunkSeconds: 45}, 45},
		{"fixed default", mono16k(10), Limits{FixedChunking: true}, 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlanChunkSeconds(tt.info, tt.limits); got != tt.want {
				t.Fatalf("PlanChunkSeconds = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestChunkCount(t *testing.T) {
	info := WAVInfo{SampleRate: 16000, Channels: 1, BitsPerSample: 16, DataBytes: 130 * 32000}
	if got := ChunkCount(info, 60); got != 3 {
		t.Fatalf("ChunkCount = %d, want 3", got)
	}
	if got := ChunkCount(info, 0); got != 1 {
		t.Fatalf("ChunkCount without split = %d, want 1", got)
	}
}

func TestValidateUpload(t *testing.T) {
	if err := ValidateUpload("interview.M4A", 1024, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, tc := range []struct {
		name string
		size int64
	}{
		{"notes.txt", 10},
		{"noext", 10},
		{"empty.wav", 0},
		{"huge.wav", DefaultMaxUploadBytes + 1},
	} {
		if err := ValidateUpload(tc.name, tc.size, 0); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("ValidateUpload(%s) expected validation error, got %v", tc.name, err)
		}
	}
}

func TestConvertToWAVArgs(t *testing.T) {
	var gotName string
	var gotArgs []string
	svc := NewService("/opt/ffmpeg").WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		gotName = name
		gotArgs = args
		return nil
	})
	if err := svc.ConvertToWAV(context.Background(), "in.m4a", "out.wav"); err != nil {
		t.Fatalf("ConvertToWAV returned error: %v", err)
	}
	if gotName != "/opt/ffmpeg" {
		t.Fatalf("unexpected binary %q", gotName)
	}
	for _, want := range [][]string{{"-i", "in.m4a"}, {"-ac", "1"}, {"-ar", "16000"}, {"-c:a", "pcm_s16le"}} {
		i := slices.Index(gotArgs, want[0])
		if i < 0 || i+1 >= len(gotArgs) || gotArgs[i+1] != want[1] {
			t.Fatalf("expected %v in args %v", want, gotArgs)
		}
	}
	if gotArgs[len(gotArgs)-1] != "out.wav" {
		t.Fatalf("expected destination last, got %v", gotArgs)
	}
}

func TestConvertToWAVWrapsFailure(t *testing.T) {
	svc := NewService("").WithCommandRunner(func(context.Context, string, ...string) error {
		return errors.New("exit status 1")
	})
	err := svc.ConvertToWAV(context.Background(), "in.mp3", "out.wav")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestSplitIssuesOneCommandPerChunk(t *testing.T) {
	dir := t.TempDir()
	wav := filepath.Join(dir, "full.wav")
	writeWAV(t, wav, 16000, 1, 130*32000)

	var starts []string
	svc := NewService("ffmpeg").WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		i := slices.Index(args, "-ss")
		starts = append(starts, args[i+1])
		return nil
	})
	paths, err := svc.Split(context.Background(), wav, filepath.Join(dir, "chunks"), 60)
	if err != nil {
		t.Fatalf("Split returned error: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("expected 3 chunks, got %v", paths)
	}
	if !slices.Equal(starts, []string{"0", "60", "120"}) {
		t.Fatalf("unexpected chunk offsets %v", starts)
	}
	if filepath.Base(paths[2]) != "chunk-0002.wav" {
		t.Fatalf("unexpected chunk name %s", paths[2])
	}
}

func TestSplitWithoutChunkingReturnsSource(t *testing.T) {
	svc := NewService("ffmpeg").WithCommandRunner(func(context.Context, string, ...string) error {
		t.Fatal("no command expected")
		return nil
	})
	paths, err := svc.Split(context.Background(), "full.wav", t.TempDir(), 0)
	if err != nil || len(paths) != 1 || paths[0] != "full.wav" {
		t.Fatalf("unexpected result %v %v", paths, err)
	}
}
