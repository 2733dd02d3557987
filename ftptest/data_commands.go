package ftptest

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strings"
)

func (sess *session) handlePASV() {
	sess.withAuth(func() {
		port, err := sess.openPassive()
		if err != nil {
			sess.logger.Warn("passive listener failed", "error", err)
			sess.sendResponse(425, "Can't open data connection")
			return
		}

		host, _, _ := net.SplitHostPort(sess.controlConn.LocalAddr().String())
		ip := net.ParseIP(host).To4()
		if ip == nil {
			ip = net.IPv4(127, 0, 0, 1).To4()
		}

		sess.sendResponse(227, fmt.Sprintf("Entering Passive Mode (%d,%d,%d,%d,%d,%d)",
			ip[0], ip[1], ip[2], ip[3], port/256, port%256))
	})
}

func (sess *session) handleEPSV(string) {
	sess.withAuth(func() {
		port, err := sess.openPassive()
		if err != nil {
			sess.logger.Warn("passive listener failed", "error", err)
			sess.sendResponse(425, "Can't open data connection")
			return
		}
		sess.sendResponse(229, fmt.Sprintf("Entering Extended Passive Mode (|||%d|)", port))
	})
}

// handleNLST sends bare names for the current directory and full paths when
// a directory argument is given.
func (sess *session) handleNLST(arg string) {
	sess.withAuth(func() {
		arg = stripListFlags(arg)
		ftpPath := sess.resolvePath(arg)
		if code, stall := sess.server.fault(ftpPath); code != 0 {
			sess.sendResponse(code, "Requested action not taken")
			return
		} else if stall {
			sess.stallTransfer(ftpPath)
			return
		}

		fullPath := sess.server.fullSystemPath(ftpPath)
		info, err := os.Stat(fullPath)
		if err != nil {
			sess.sendResponse(550, "No such file or directory")
			return
		}

		var listing bytes.Buffer
		if !info.IsDir() {
			fmt.Fprintf(&listing, "%s\r\n", ftpPath)
		} else {
			entries, err := os.ReadDir(fullPath)
			if err != nil {
				sess.sendResponse(550, "Failed to list directory")
				return
			}
			for _, entry := range entries {
				name := entry.Name()
				if arg != "" {
					name = path.Join(ftpPath, name)
				}
				fmt.Fprintf(&listing, "%s\r\n", name)
			}
		}

		sess.sendData(fmt.Sprintf("Here comes the name list for %s", ftpPath), &listing)
	})
}

func (sess *session) handleLIST(arg string) {
	sess.withAuth(func() {
		arg = stripListFlags(arg)
		sess.withExistingDirectory(arg, func(ftpPath, fullPath string) {
			entries, err := os.ReadDir(fullPath)
			if err != nil {
				sess.sendResponse(550, "Failed to list directory")
				return
			}

			var listing bytes.Buffer
			for _, entry := range entries {
				info, err := entry.Info()
				if err != nil {
					continue
				}

				// Format: permissions, links, owner, group, size, date, name
				perms := "-rw-r--r--"
				if info.IsDir() {
					perms = "drwxr-xr-x"
				}
				fmt.Fprintf(&listing, "%s %3d %-8s %-8s %8d %s %s\r\n",
					perms, 1, "ftp", "ftp", info.Size(),
					info.ModTime().Format("Jan 02 15:04"), info.Name())
			}

			sess.sendData("Here comes the directory listing", &listing)
		})
	})
}

func (sess *session) handleRETR(filename string) {
	sess.withAuth(func() {
		sess.withValidParam(filename, func() {
			ftpPath := sess.resolvePath(filename)
			sess.server.recordRetrieval(ftpPath)

			if code, stall := sess.server.fault(ftpPath); code != 0 {
				sess.sendResponse(code, "Requested action not taken")
				return
			} else if stall {
				sess.stallTransfer(ftpPath)
				return
			}

			sess.withExistingFile(filename, func(ftpPath, fullPath string, info os.FileInfo) {
				file, err := os.Open(fullPath)
				if err != nil {
					sess.sendResponse(550, fmt.Sprintf("Failed to open file: %v", err))
					return
				}
				defer file.Close()

				sess.sendData(fmt.Sprintf("Opening BINARY mode data connection for %s (%d bytes)", ftpPath, info.Size()), file)
			})
		})
	})
}

func (sess *session) handleSIZE(filename string) {
	sess.withAuth(func() {
		sess.withValidParam(filename, func() {
			sess.withExistingFile(filename, func(_, _ string, info os.FileInfo) {
				sess.sendResponse(213, fmt.Sprintf("%d", info.Size()))
			})
		})
	})
}

// sendData accepts the data connection, announces the transfer, streams r
// and closes the data connection before the completion reply.
func (sess *session) sendData(announce string, r io.Reader) {
	dataConn, err := sess.openDataConnection()
	if err != nil {
		sess.sendResponse(425, "Can't open data connection")
		return
	}

	sess.sendResponse(150, announce)
	_, err = io.Copy(dataConn, r)
	sess.closeDataConnection(dataConn)
	if err != nil {
		sess.sendResponse(426, "Connection closed; transfer aborted")
		return
	}
	sess.sendResponse(226, "Transfer complete")
}

// stallTransfer opens the data connection and sends nothing until the client
// gives up and closes it.
func (sess *session) stallTransfer(ftpPath string) {
	dataConn, err := sess.openDataConnection()
	if err != nil {
		sess.sendResponse(425, "Can't open data connection")
		return
	}

	sess.logger.Debug("stalling transfer", "path", ftpPath)
	sess.sendResponse(150, fmt.Sprintf("Opening BINARY mode data connection for %s", ftpPath))
	io.Copy(io.Discard, dataConn)
	sess.closeDataConnection(dataConn)
	sess.sendResponse(426, "Connection closed; transfer aborted")
}

// stripListFlags drops ls-style options some clients prepend to LIST/NLST.
func stripListFlags(arg string) string {
	fields := strings.Fields(arg)
	for len(fields) > 0 && strings.HasPrefix(fields[0], "-") {
		fields = fields[1:]
	}
	return strings.Join(fields, " ")
}
