package transfer

import (
	"fmt"
	"time"
)

// TransferTimer measures the wall time of one file transfer across attempts.
type TransferTimer struct {
	start time.Time
}

// NewTransferTimer starts a timer.
func NewTransferTimer() *TransferTimer {
	return &TransferTimer{start: time.Now()}
}

// Elapsed returns the time since the timer started.
func (tt *TransferTimer) Elapsed() time.Duration {
	return time.Since(tt.start)
}

// Report describes the outcome of one file download.
type Report struct {
	RemotePath string
	LocalPath  string
	Bytes      int64
	Attempts   int
	Elapsed    time.Duration
	Err        error
}

// Outcome is "ok" for a successful transfer and "failed" otherwise.
func (r Report) Outcome() string {
	if r.Err != nil {
		return "failed"
	}
	return "ok"
}

// ThroughputMBps returns the average throughput in MB/s.
func (r Report) ThroughputMBps() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Bytes) / r.Elapsed.Seconds() / (1024 * 1024)
}

// String returns a formatted one-line summary.
func (r Report) String() string {
	return fmt.Sprintf("%s: %s, %s in %v (%.2f MB/s), %d attempt(s)",
		r.RemotePath,
		r.Outcome(),
		FormatSize(r.Bytes),
		r.Elapsed.Round(time.Millisecond),
		r.ThroughputMBps(),
		r.Attempts,
	)
}
