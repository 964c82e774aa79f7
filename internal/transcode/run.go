// SPDX-License-Identifier: MIT

package transcode

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/mabrink/busybeat/internal/log"
)

// lineRing keeps the last N lines of subprocess stderr so failures carry
// useful context without buffering unbounded output.
type lineRing struct {
	mu    sync.Mutex
	lines []string
	head  int
	size  int
}

func newLineRing(capacity int) *lineRing {
	if capacity < 1 {
		capacity = 50
	}
	return &lineRing{
		lines: make([]string, capacity),
		size:  capacity,
	}
}

// Write implements io.Writer over line-oriented log output.
func (r *lineRing) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, line := range strings.Split(string(p), "\n") {
		if line == "" {
			continue
		}
		r.lines[r.head] = line
		r.head = (r.head + 1) % r.size
	}
	return len(p), nil
}

// LastN returns the last n lines in chronological order.
func (r *lineRing) LastN(n int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n > r.size {
		n = r.size
	}
	ordered := make([]string, 0, r.size)
	for i := 0; i < r.size; i++ {
		idx := (r.head + i) % r.size
		if r.lines[idx] != "" {
			ordered = append(ordered, r.lines[idx])
		}
	}
	if len(ordered) <= n {
		return ordered
	}
	return ordered[len(ordered)-n:]
}

// runTool executes one external tool invocation, honoring ctx
// cancellation. On non-zero exit the error carries the stderr tail.
func runTool(ctx context.Context, bin string, args ...string) error {
	logger := log.WithComponentFromContext(ctx, "transcode")

	ring := newLineRing(64)
	cmd := exec.CommandContext(ctx, bin, args...) // #nosec G204 -- bin resolved from config/PATH, args built internally
	cmd.Stderr = ring

	logger.Debug().Str("bin", bin).Strs("args", args).Msg("running tool")
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		tail := strings.Join(ring.LastN(5), "; ")
		if tail != "" {
			return fmt.Errorf("%s: %w (stderr: %s)", bin, err, tail)
		}
		return fmt.Errorf("%s: %w", bin, err)
	}
	return nil
}
