// Package ftptest provides an in-process anonymous FTP server backed by a
// local directory, with fault injection for retrieval timeouts and errors.
package ftptest

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/UW-GAC/dbgap-ftp/logging"
)

// Server is a minimal FTP server listening on the loopback interface.
type Server struct {
	rootDir  string
	listener net.Listener
	logger   *slog.Logger

	mutex      sync.Mutex
	conns      map[io.Closer]struct{}
	stalls     map[string]int
	failures   map[string]int
	retrievals map[string]int
	logins     int
	closed     bool

	wg sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithLogger routes the server's command log to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New starts a server serving rootDir on 127.0.0.1 with an ephemeral port.
func New(rootDir string, opts ...Option) (*Server, error) {
	info, err := os.Stat(rootDir)
	if err != nil {
		return nil, fmt.Errorf("root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root directory %s is not a directory", rootDir)
	}

	// Force IPv4 for FTP compatibility
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to start FTP server: %w", err)
	}

	s := &Server{
		rootDir:    rootDir,
		listener:   listener,
		logger:     logging.Discard(),
		conns:      make(map[io.Closer]struct{}),
		stalls:     make(map[string]int),
		failures:   make(map[string]int),
		retrievals: make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.wg.Add(1)
	go s.serve()
	return s, nil
}

// Addr returns the host:port of the control listener.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// AddFile writes data to ftpPath, creating parent directories.
func (s *Server) AddFile(ftpPath string, data []byte) error {
	full := s.fullSystemPath(ftpPath)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0644)
}

// AddDir creates ftpPath and its parents.
func (s *Server) AddDir(ftpPath string) error {
	return os.MkdirAll(s.fullSystemPath(ftpPath), 0755)
}

// Stall makes the next n data transfers of ftpPath open the data connection
// and never send a byte. n < 0 stalls every transfer.
func (s *Server) Stall(ftpPath string, n int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.stalls[cleanPath(ftpPath)] = n
}

// Fail makes every data transfer of ftpPath answer with code.
func (s *Server) Fail(ftpPath string, code int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.failures[cleanPath(ftpPath)] = code
}

// Retrievals returns the number of RETR commands received for ftpPath.
func (s *Server) Retrievals(ftpPath string) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.retrievals[cleanPath(ftpPath)]
}

// Logins returns the number of successful logins.
func (s *Server) Logins() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.logins
}

// Close stops accepting connections, drops every open connection and waits
// for the session goroutines to exit.
func (s *Server) Close() error {
	s.mutex.Lock()
	if s.closed {
		s.mutex.Unlock()
		return nil
	}
	s.closed = true
	err := s.listener.Close()
	for conn := range s.conns {
		conn.Close()
	}
	s.mutex.Unlock()

	s.wg.Wait()
	return err
}

func (s *Server) serve() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("accept failed", "error", err)
			continue
		}
		if !s.track(conn) {
			conn.Close()
			return
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			newSession(s, conn).run()
		}()
	}
}

// track registers a connection or data listener so Close can drop it. It
// reports false once the server is closed.
func (s *Server) track(conn io.Closer) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn io.Closer) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.conns, conn)
	conn.Close()
}

func (s *Server) recordLogin() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.logins++
}

func (s *Server) recordRetrieval(ftpPath string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.retrievals[ftpPath]++
}

// fault returns the injected behaviour for the next transfer of ftpPath:
// a non-zero reply code, or stall == true. A counted stall is consumed.
func (s *Server) fault(ftpPath string) (code int, stall bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if code, ok := s.failures[ftpPath]; ok {
		return code, false
	}
	n, ok := s.stalls[ftpPath]
	switch {
	case !ok || n == 0:
		return 0, false
	case n > 0:
		s.stalls[ftpPath] = n - 1
	}
	return 0, true
}

// fullSystemPath converts an FTP path to a path under the root directory.
// Paths that try to escape the root resolve to the root.
func (s *Server) fullSystemPath(ftpPath string) string {
	rel := strings.TrimPrefix(cleanPath(ftpPath), "/")
	fullPath := filepath.Join(s.rootDir, filepath.FromSlash(rel))

	absRoot, _ := filepath.Abs(s.rootDir)
	absPath, _ := filepath.Abs(fullPath)
	if absPath != absRoot && !strings.HasPrefix(absPath, absRoot+string(filepath.Separator)) {
		return absRoot
	}
	return fullPath
}

func cleanPath(p string) string {
	return path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
}
