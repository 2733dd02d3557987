package ftptest

import (
	"fmt"
	"strings"
)

// handleUSER accepts only anonymous logins.
func (sess *session) handleUSER(username string) {
	switch strings.ToLower(username) {
	case "anonymous", "ftp":
		sess.username = username
		sess.authenticated = false
		sess.sendResponse(331, "Anonymous login ok, send your email as password")
	default:
		sess.sendResponse(530, "Only anonymous login is allowed")
	}
}

func (sess *session) handlePASS(string) {
	if sess.username == "" {
		sess.sendResponse(503, "Login with USER first")
		return
	}
	sess.authenticated = true
	sess.server.recordLogin()
	sess.sendResponse(230, "Anonymous access granted")
}

func (sess *session) handleQUIT() {
	sess.sendResponse(221, "Goodbye")
	sess.quit = true
}

func (sess *session) handleSYST() {
	sess.sendResponse(215, "UNIX Type: L8")
}

func (sess *session) handleFEAT() {
	sess.sendMultiline(211, "Features:", []string{"EPSV", "PASV", "SIZE", "UTF8"}, "End")
}

func (sess *session) handleOPTS(args string) {
	switch strings.ToUpper(args) {
	case "":
		sess.sendResponse(501, "OPTS command requires arguments")
	case "UTF8 ON":
		sess.utf8Enabled = true
		sess.sendResponse(200, "UTF8 set to on")
	case "UTF8 OFF":
		sess.utf8Enabled = false
		sess.sendResponse(200, "UTF8 set to off")
	default:
		sess.sendResponse(501, "Unsupported option")
	}
}

func (sess *session) handleTYPE(typeStr string) {
	sess.withAuth(func() {
		switch strings.ToUpper(typeStr) {
		case "A":
			sess.transferType = "A"
			sess.sendResponse(200, "Switching to ASCII mode")
		case "I", "L 8":
			sess.transferType = "I"
			sess.sendResponse(200, "Switching to Binary mode")
		default:
			sess.sendResponse(504, "Command not implemented for that parameter")
		}
	})
}

func (sess *session) handlePWD() {
	sess.withAuth(func() {
		sess.sendResponse(257, fmt.Sprintf(`"%s" is the current directory`, sess.currentDir))
	})
}

func (sess *session) handleCWD(dir string) {
	sess.withAuth(func() {
		sess.withValidParam(dir, func() {
			sess.withExistingDirectory(dir, func(ftpPath, _ string) {
				sess.currentDir = ftpPath
				sess.sendResponse(250, fmt.Sprintf(`CWD command successful. "%s" is current directory`, ftpPath))
			})
		})
	})
}
