package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"parley/internal/config"
	"parley/internal/deps"
)

const endpointCheckTimeout = 15 * time.Second

// HealthChecker is satisfied by diarization.Client.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// CheckEndpoint verifies that the diarization endpoint is configured,
// reachable, and ready. It makes a single attempt.
func CheckEndpoint(ctx context.Context, cfg *config.Config, endpoint HealthChecker) Result {
	const name = "Diarization endpoint"

	if err := cfg.ValidateDiarization(); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}

	checkCtx, cancel := context.WithTimeout(ctx, endpointCheckTimeout)
	defer cancel()

	if err := endpoint.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeEndpointError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s ready", cfg.Diarization.Endpoint)}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external binaries the config requires.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckAll(deps.Required(cfg.Audio.FFmpegBinary))
}

func summarizeEndpointError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (endpoint unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (endpoint unreachable)"
	}
	return err.Error()
}
