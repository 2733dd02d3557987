package ftptest

import "os"

func (sess *session) withAuth(handler func()) {
	if !sess.authenticated {
		sess.sendResponse(530, "Not logged in")
		return
	}
	handler()
}

func (sess *session) withValidParam(param string, handler func()) {
	if param == "" {
		sess.sendResponse(501, "Syntax error in parameters")
		return
	}
	handler()
}

func (sess *session) withExistingFile(filename string, handler func(ftpPath, fullPath string, info os.FileInfo)) {
	ftpPath := sess.resolvePath(filename)
	fullPath := sess.server.fullSystemPath(ftpPath)

	info, err := os.Stat(fullPath)
	if err != nil || info.IsDir() {
		sess.sendResponse(550, "File not found")
		return
	}
	handler(ftpPath, fullPath, info)
}

func (sess *session) withExistingDirectory(dirname string, handler func(ftpPath, fullPath string)) {
	ftpPath := sess.resolvePath(dirname)
	fullPath := sess.server.fullSystemPath(ftpPath)

	info, err := os.Stat(fullPath)
	if err != nil {
		sess.sendResponse(550, "Directory not found")
		return
	}
	if !info.IsDir() {
		sess.sendResponse(550, "Not a directory")
		return
	}
	handler(ftpPath, fullPath)
}
