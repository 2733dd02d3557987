// Package archive is a client for a dbGaP-style study archive served over
// anonymous FTP. It resolves study and version directories, lists data
// dictionary documents and downloads them with bounded retry on timeout.
package archive

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"syscall"

	"github.com/jlaffaye/ftp"

	"github.com/UW-GAC/dbgap-ftp/config"
	"github.com/UW-GAC/dbgap-ftp/logging"
	"github.com/UW-GAC/dbgap-ftp/transfer"
)

const (
	anonymousUser     = "anonymous"
	anonymousPassword = "anonymous@"
)

// Client owns one anonymous FTP session. It is not safe for concurrent use.
type Client struct {
	cfg    config.ArchiveConfig
	conn   *ftp.ServerConn
	stale  bool // the session timed out and must be re-established
	closed bool
	buf    []byte

	logger *slog.Logger
	out    io.Writer

	// OnTransfer, if set, receives one report per downloaded file.
	OnTransfer func(transfer.Report)

	// OnProgress, if set, receives the running byte count of a download.
	OnProgress func(remotePath string, written int64)
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the diagnostic logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithOutput sets where the batch download summary is printed.
// The default is os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(c *Client) {
		c.out = w
	}
}

// Dial opens a session to cfg.Address and logs in anonymously. Zero fields
// of cfg take their defaults. Connection failures are not retried.
func Dial(cfg config.ArchiveConfig, opts ...Option) (*Client, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	c := &Client{
		cfg:    cfg,
		logger: logging.Discard(),
		out:    os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}

	conn, err := c.connect()
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return c, nil
}

// WithClient dials, runs fn and always closes the session. An error from
// fn takes precedence over a close error.
func WithClient(cfg config.ArchiveConfig, fn func(*Client) error, opts ...Option) (err error) {
	c, err := Dial(cfg, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := c.Close(); err == nil {
			err = closeErr
		}
	}()
	return fn(c)
}

// Config returns the effective configuration.
func (c *Client) Config() config.ArchiveConfig {
	return c.cfg
}

func (c *Client) connect() (*ftp.ServerConn, error) {
	addr := c.cfg.DialAddress()
	c.logger.Debug("connecting", "server", addr, "timeout", c.cfg.Timeout)

	conn, err := ftp.Dial(addr, ftp.DialWithDialFunc(transfer.DeadlineDialer(c.cfg.Timeout)))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	if err := conn.Login(anonymousUser, anonymousPassword); err != nil {
		conn.Quit()
		return nil, fmt.Errorf("anonymous login to %s failed: %w", addr, err)
	}

	c.logger.Debug("connected", "server", addr)
	return conn, nil
}

// session returns a usable connection, re-establishing it after a timeout
// left the control channel out of sync.
func (c *Client) session() (*ftp.ServerConn, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if c.conn != nil && !c.stale {
		return c.conn, nil
	}

	if c.conn != nil {
		c.conn.Quit()
		c.conn = nil
	}
	c.logger.Info("reconnecting", "server", c.cfg.DialAddress())
	conn, err := c.connect()
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.stale = false
	return conn, nil
}

// observe marks the session stale when err is a timeout.
func (c *Client) observe(err error) {
	if transfer.IsTimeout(err) {
		c.stale = true
	}
}

// Close ends the session. Closing twice, or closing a session whose
// connection has already dropped, is not an error.
func (c *Client) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	conn := c.conn
	c.conn = nil
	if conn == nil {
		return nil
	}
	if err := conn.Quit(); err != nil && !isNotConnected(err) {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

func isNotConnected(err error) bool {
	return errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET)
}

func (c *Client) buffer() []byte {
	if c.buf == nil {
		c.buf = make([]byte, c.cfg.BufferSize)
	}
	return c.buf
}
