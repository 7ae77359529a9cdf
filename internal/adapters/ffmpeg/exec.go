// Package ffmpeg decodes uploads and meters loudness with an external
// ffmpeg binary.
package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// DefaultBinary is the executable looked up on PATH when none is configured.
const DefaultBinary = "ffmpeg"

// Locate resolves bin on PATH.
func Locate(bin string) (string, error) {
	if bin == "" {
		bin = DefaultBinary
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return "", fmt.Errorf("ffmpeg: binary %q not found: %w", bin, err)
	}
	return path, nil
}

// runCmd runs bin with a C locale and returns its combined output.
func runCmd(ctx context.Context, bin string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Env = append(os.Environ(), "LC_ALL=C")
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// tail returns at most the last n bytes of s.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
