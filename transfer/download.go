package transfer

import (
	"fmt"
	"io"
	"os"
)

// OpenFunc opens the remote side of one transfer attempt.
type OpenFunc func() (io.ReadCloser, error)

// ProgressFunc receives the running byte count of a transfer.
type ProgressFunc func(written int64)

// Retrieve runs a single transfer attempt: it opens the remote stream, copies
// it into w through buf and closes the stream. It returns the number of bytes
// written to w. progress may be nil.
func Retrieve(open OpenFunc, w io.Writer, buf []byte, progress ProgressFunc) (int64, error) {
	rc, err := open()
	if err != nil {
		return 0, err
	}

	cw := &CountingWriter{Writer: w, OnProgress: progress}
	_, copyErr := io.CopyBuffer(cw, rc, buf)
	closeErr := rc.Close()

	if copyErr != nil {
		return cw.Written, fmt.Errorf("read error: %w", copyErr)
	}
	if closeErr != nil {
		return cw.Written, fmt.Errorf("close error: %w", closeErr)
	}
	return cw.Written, nil
}

// RetrieveFile runs one attempt into localPath, creating or truncating it.
// A failed attempt removes the file it opened. A path that could not be
// opened is left untouched.
func RetrieveFile(open OpenFunc, localPath string, buf []byte, progress ProgressFunc) (int64, error) {
	file, err := os.OpenFile(localPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return 0, fmt.Errorf("failed to create local file: %w", err)
	}

	n, err := Retrieve(open, file, buf, progress)
	if closeErr := file.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close local file: %w", closeErr)
	}
	if err != nil {
		os.Remove(localPath)
	}
	return n, err
}
