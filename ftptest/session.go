package ftptest

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"
)

const dataAcceptTimeout = 10 * time.Second

// session is the state of one control connection.
type session struct {
	server        *Server
	controlConn   net.Conn
	dataListener  net.Listener
	currentDir    string
	username      string
	authenticated bool
	transferType  string // A (ASCII) or I (Binary)
	utf8Enabled   bool
	quit          bool
	logger        *slog.Logger
}

func newSession(server *Server, conn net.Conn) *session {
	return &session{
		server:       server,
		controlConn:  conn,
		currentDir:   "/",
		transferType: "A",
		logger:       server.logger.With("client", conn.RemoteAddr().String()),
	}
}

func (sess *session) run() {
	defer sess.closeDataListener()

	sess.logger.Debug("client connected")
	sess.sendResponse(220, "dbGaP test FTP server ready")

	scanner := bufio.NewScanner(sess.controlConn)
	for !sess.quit && scanner.Scan() {
		command := strings.TrimSpace(scanner.Text())
		if command == "" {
			continue
		}

		logged := command
		if strings.HasPrefix(strings.ToUpper(command), "PASS ") {
			logged = "PASS [REDACTED]"
		}
		sess.logger.Debug("command", "line", logged)
		sess.handleCommand(command)
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		sess.logger.Debug("connection error", "error", err)
	}
	sess.logger.Debug("client disconnected")
}

func (sess *session) sendResponse(code int, message string) {
	if _, err := fmt.Fprintf(sess.controlConn, "%d %s\r\n", code, message); err != nil {
		sess.logger.Debug("failed to send response", "code", code, "error", err)
	}
}

// sendMultiline sends a multi-line reply: "code-first", the body lines
// indented by one space, then "code last".
func (sess *session) sendMultiline(code int, first string, lines []string, last string) {
	var b strings.Builder
	fmt.Fprintf(&b, "%d-%s\r\n", code, first)
	for _, line := range lines {
		fmt.Fprintf(&b, " %s\r\n", line)
	}
	fmt.Fprintf(&b, "%d %s\r\n", code, last)
	if _, err := sess.controlConn.Write([]byte(b.String())); err != nil {
		sess.logger.Debug("failed to send response", "code", code, "error", err)
	}
}

// resolvePath resolves p against the current directory into a clean
// absolute FTP path.
func (sess *session) resolvePath(p string) string {
	switch {
	case p == "":
		return sess.currentDir
	case strings.HasPrefix(p, "/"):
		return cleanPath(p)
	default:
		return cleanPath(sess.currentDir + "/" + p)
	}
}

// openPassive replaces any pending data listener with a fresh one on an
// ephemeral loopback port and returns the port.
func (sess *session) openPassive() (int, error) {
	sess.closeDataListener()

	host, _, err := net.SplitHostPort(sess.controlConn.LocalAddr().String())
	if err != nil {
		return 0, err
	}
	listener, err := net.Listen("tcp4", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, err
	}
	if !sess.server.track(listener) {
		listener.Close()
		return 0, net.ErrClosed
	}

	sess.dataListener = listener
	return listener.Addr().(*net.TCPAddr).Port, nil
}

// openDataConnection accepts the client's connection on the pending passive
// listener. The listener is consumed.
func (sess *session) openDataConnection() (net.Conn, error) {
	if sess.dataListener == nil {
		return nil, errors.New("no passive listener available")
	}
	defer sess.closeDataListener()

	if tcpListener, ok := sess.dataListener.(*net.TCPListener); ok {
		tcpListener.SetDeadline(time.Now().Add(dataAcceptTimeout))
	}

	conn, err := sess.dataListener.Accept()
	if err != nil {
		return nil, fmt.Errorf("data connection accept failed: %w", err)
	}
	if !sess.server.track(conn) {
		conn.Close()
		return nil, net.ErrClosed
	}
	return conn, nil
}

func (sess *session) closeDataConnection(conn net.Conn) {
	sess.server.untrack(conn)
}

func (sess *session) closeDataListener() {
	if sess.dataListener != nil {
		sess.server.untrack(sess.dataListener)
		sess.dataListener = nil
	}
}
