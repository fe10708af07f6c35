package util

import (
	"io"
	"log/slog"
)

// CloseFunc closes c and logs a failure instead of returning it; used in
// defers where the primary error is already decided.
func CloseFunc(c io.Closer) {
	if err := c.Close(); err != nil {
		slog.Warn("close failed", "err", err)
	}
}
