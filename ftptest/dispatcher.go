package ftptest

import "strings"

// handleCommand routes one control line to its handler.
func (sess *session) handleCommand(command string) {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return
	}

	cmd := strings.ToUpper(parts[0])
	args := ""
	if len(parts) > 1 {
		args = strings.Join(parts[1:], " ")
	}

	switch cmd {
	// Login and session commands
	case "USER":
		sess.handleUSER(args)
	case "PASS":
		sess.handlePASS(args)
	case "QUIT":
		sess.handleQUIT()

	// Basic system commands
	case "SYST":
		sess.handleSYST()
	case "FEAT":
		sess.handleFEAT()
	case "OPTS":
		sess.handleOPTS(args)
	case "TYPE":
		sess.handleTYPE(args)

	// Directory commands
	case "PWD", "XPWD":
		sess.handlePWD()
	case "CWD":
		sess.handleCWD(args)

	// Data connection commands
	case "PASV":
		sess.handlePASV()
	case "EPSV":
		sess.handleEPSV(args)

	// Listing and transfer commands
	case "NLST":
		sess.handleNLST(args)
	case "LIST":
		sess.handleLIST(args)
	case "RETR":
		sess.handleRETR(args)
	case "SIZE":
		sess.handleSIZE(args)

	case "NOOP":
		sess.sendResponse(200, "NOOP command successful")

	default:
		sess.sendResponse(502, "Command not implemented")
	}
}
