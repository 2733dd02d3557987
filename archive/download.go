package archive

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/hashicorp/go-multierror"

	"github.com/UW-GAC/dbgap-ftp/transfer"
)

// BatchResult is the outcome of DownloadFiles. Every requested path ends up
// in exactly one of the two lists.
type BatchResult struct {
	Succeeded []string // local paths
	Failed    []string // remote paths

	failures []error
}

// Err returns the per-file failures as one error, or nil.
func (r BatchResult) Err() error {
	var errs *multierror.Error
	for _, err := range r.failures {
		errs = multierror.Append(errs, err)
	}
	return errs.ErrorOrNil()
}

// DownloadFile retrieves remotePath into localDir under its base name and
// returns the local path. A timeout restarts the whole transfer on a fresh
// session, up to the configured number of attempts; exhaustion returns a
// *transfer.ExhaustedError. Any other error is returned after one attempt.
// A failed download leaves no partial file behind.
func (c *Client) DownloadFile(remotePath, localDir string) (string, error) {
	name := path.Base(remotePath)
	if name == "." || name == ".." || name == "/" {
		return "", fmt.Errorf("%w: remote path %q does not name a file", ErrInvalidArgument, remotePath)
	}
	localPath := filepath.Join(localDir, name)
	timer := transfer.NewTransferTimer()

	retry := transfer.NewRetry(c.cfg.Attempts)
	retry.OnRetry = func(attempt int, err error) {
		c.logger.Warn("transfer timed out, retrying",
			"path", remotePath, "attempt", attempt, "max", retry.Max(), "error", err)
	}

	var written int64
	err := retry.Do(func(attempt int) error {
		conn, err := c.session()
		if err != nil {
			return err
		}
		open := func() (io.ReadCloser, error) {
			return conn.Retr(remotePath)
		}
		var progress transfer.ProgressFunc
		if c.OnProgress != nil {
			progress = func(n int64) { c.OnProgress(remotePath, n) }
		}
		written, err = transfer.RetrieveFile(open, localPath, c.buffer(), progress)
		c.observe(err)
		return err
	})

	report := transfer.Report{
		RemotePath: remotePath,
		LocalPath:  localPath,
		Bytes:      written,
		Attempts:   retry.Attempt(),
		Elapsed:    timer.Elapsed(),
		Err:        err,
	}
	if c.OnTransfer != nil {
		c.OnTransfer(report)
	}

	if err != nil {
		c.logger.Warn("download failed", "path", remotePath, "attempts", report.Attempts, "error", err)
		return "", fmt.Errorf("download %s: %w", remotePath, err)
	}
	c.logger.Debug("downloaded", "path", remotePath, "bytes", written, "attempts", report.Attempts)
	return localPath, nil
}

// DownloadFiles downloads remotePaths one after another into localDir.
// A file whose retries are exhausted is recorded in Failed and the batch
// continues; any other error, including cancellation of ctx, aborts the
// batch and no partial result is returned. Unless silent, a summary of the
// failed files is printed to the client's output.
func (c *Client) DownloadFiles(ctx context.Context, remotePaths []string, localDir string, silent bool) (BatchResult, error) {
	var result BatchResult
	for _, remotePath := range remotePaths {
		if err := ctx.Err(); err != nil {
			return BatchResult{}, err
		}

		localPath, err := c.DownloadFile(remotePath, localDir)
		switch {
		case err == nil:
			result.Succeeded = append(result.Succeeded, localPath)
		case transfer.Classify(err) == transfer.Recoverable:
			result.Failed = append(result.Failed, remotePath)
			result.failures = append(result.failures, err)
		default:
			return BatchResult{}, err
		}
	}

	if !silent {
		printSummary(c.out, result.Failed)
	}
	return result, nil
}

func printSummary(w io.Writer, failed []string) {
	if len(failed) > 0 {
		color.New(color.FgRed).Fprintf(w, "%d failed files:\n", len(failed))
		for _, remotePath := range failed {
			fmt.Fprintf(w, "  %s\n", remotePath)
		}
	}
	color.New(color.FgGreen).Fprintln(w, "done!")
}
