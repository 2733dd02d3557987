package transfer

import (
	"fmt"
	"io"
	"time"
)

// CountingWriter wraps an io.Writer and tracks the bytes written through it.
// It does not implement io.ReaderFrom, so io.CopyBuffer always uses the
// caller's buffer.
type CountingWriter struct {
	Writer     io.Writer
	Written    int64
	OnProgress ProgressFunc

	lastUpdate time.Time
}

func (cw *CountingWriter) Write(p []byte) (n int, err error) {
	n, err = cw.Writer.Write(p)
	if n > 0 {
		cw.Written += int64(n)

		now := time.Now()
		if cw.OnProgress != nil && now.Sub(cw.lastUpdate) >= 100*time.Millisecond {
			cw.OnProgress(cw.Written)
			cw.lastUpdate = now
		}
	}
	return
}

// FormatSize formats a byte count in human-readable form.
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
