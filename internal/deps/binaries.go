// Package deps reports whether the external programs parley shells out to
// are installed.
package deps

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

const defaultFFmpeg = "ffmpeg"

// Binary is one external program a configuration needs.
type Binary struct {
	Name    string
	Command string
	Purpose string
	// Optional binaries degrade a feature instead of blocking processing.
	Optional bool
}

// Status reports whether a Binary can be executed.
type Status struct {
	Name      string `json:"name"`
	Command   string `json:"command"`
	Purpose   string `json:"purpose"`
	Optional  bool   `json:"optional"`
	Available bool   `json:"available"`
	Detail    string `json:"detail,omitempty"`
}

// Required lists the binaries audio preparation runs. An empty ffmpegBinary
// falls back to ffmpeg on PATH.
func Required(ffmpegBinary string) []Binary {
	command := strings.TrimSpace(ffmpegBinary)
	if command == "" {
		command = defaultFFmpeg
	}
	return []Binary{{
		Name:    "FFmpeg",
		Command: command,
		Purpose: "Converts uploads to 16 kHz mono WAV and cuts chunks",
	}}
}

// CheckAll runs Check on each binary in order.
func CheckAll(binaries []Binary) []Status {
	results := make([]Status, 0, len(binaries))
	for _, b := range binaries {
		results = append(results, Check(b))
	}
	return results
}

// Check resolves b.Command. A command containing a path separator must be an
// executable file; a bare name is looked up on PATH and reported by its
// resolved path.
func Check(b Binary) Status {
	command := strings.TrimSpace(b.Command)
	status := Status{
		Name:     b.Name,
		Command:  command,
		Purpose:  strings.TrimSpace(b.Purpose),
		Optional: b.Optional,
	}
	if command == "" {
		status.Detail = "command not configured"
		return status
	}

	if strings.ContainsRune(command, os.PathSeparator) {
		info, err := os.Stat(command)
		switch {
		case err != nil:
			status.Detail = fmt.Sprintf("binary %q not found", command)
		case !isExecutable(info):
			status.Detail = fmt.Sprintf("binary %q is not executable", command)
		default:
			status.Available = true
		}
		return status
	}

	resolved, err := exec.LookPath(command)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found on PATH", command)
		return status
	}
	status.Command = resolved
	status.Available = true
	return status
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
