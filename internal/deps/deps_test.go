package deps

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeStub(t *testing.T, path string, mode os.FileMode) {
	t.Helper()
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), mode); err != nil {
		t.Fatalf("write stub: %v", err)
	}
}

func TestRequiredDefaultsToFFmpegOnPath(t *testing.T) {
	for _, configured := range []string{"", "   "} {
		bins := Required(configured)
		if len(bins) != 1 || bins[0].Name != "FFmpeg" || bins[0].Command != "ffmpeg" || bins[0].Optional {
			t.Fatalf("Required(%q) = %+v", configured, bins)
		}
	}
	if bins := Required(" /opt/ffmpeg/bin/ffmpeg "); bins[0].Command != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("expected configured path to be kept, got %q", bins[0].Command)
	}
}

func TestCheckExplicitPath(t *testing.T) {
	tmp := t.TempDir()
	exe := filepath.Join(tmp, "ffmpeg")
	writeStub(t, exe, 0o755)
	plain := filepath.Join(tmp, "not-exec")
	writeStub(t, plain, 0o644)

	tests := []struct {
		name      string
		command   string
		available bool
		detail    string
	}{
		{"executable", exe, true, ""},
		{"not executable", plain, false, "is not executable"},
		{"missing", filepath.Join(tmp, "missing"), false, "not found"},
		{"directory", tmp, false, "is not executable"},
		{"blank", "  ", false, "command not configured"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := Check(Binary{Name: "FFmpeg", Command: tt.command})
			if status.Available != tt.available {
				t.Fatalf("available = %t, want %t (%+v)", status.Available, tt.available, status)
			}
			if !strings.Contains(status.Detail, tt.detail) {
				t.Fatalf("detail %q does not contain %q", status.Detail, tt.detail)
			}
		})
	}
}

func TestCheckAllResolvesFromPath(t *testing.T) {
	binDir := t.TempDir()
	ffmpeg := filepath.Join(binDir, "ffmpeg")
	writeStub(t, ffmpeg, 0o755)
	t.Setenv("PATH", binDir)

	results := CheckAll(append(Required(""), Binary{Name: "sox", Command: "sox", Optional: true}))
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !results[0].Available || results[0].Command != ffmpeg || results[0].Purpose == "" {
		t.Fatalf("expected PATH ffmpeg %q, got %+v", ffmpeg, results[0])
	}
	if results[1].Available || !results[1].Optional || results[1].Command != "sox" {
		t.Fatalf("expected optional sox to be missing, got %+v", results[1])
	}
}
