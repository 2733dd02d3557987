package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"net"
	"os"
	"path"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UW-GAC/dbgap-ftp/archive"
	"github.com/UW-GAC/dbgap-ftp/config"
	"github.com/UW-GAC/dbgap-ftp/ftptest"
)

const summaries = "/archive/studies/phs000016/phs000016.v2.p1/pheno_variable_summaries"

var dictionaries = []string{
	"phs000016.v2.pht000001.v1.Subject.data_dict.xml",
	"phs000016.v2.pht000002.v1.Phenotype.data_dict.xml",
}

func newArchive(t *testing.T) *ftptest.Server {
	t.Helper()
	for _, key := range []string{"DBGAP_FTP_SERVER", "DBGAP_FTP_TIMEOUT", "DBGAP_FTP_ATTEMPTS", "DBGAP_FTP_LOG_LEVEL", "DBGAP_FTP_METRICS_CSV"} {
		t.Setenv(key, "")
	}

	srv, err := ftptest.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	require.NoError(t, srv.AddDir("/archive/studies/phs000016/phs000016.v1.p1"))
	for _, name := range dictionaries {
		require.NoError(t, srv.AddFile(path.Join(summaries, name), []byte("<data_table/>")))
	}
	require.NoError(t, srv.AddFile(path.Join(summaries, "phs000016.v2.pht000002.v1.p1.var_report.xml"), []byte("<var_report/>")))
	return srv
}

type result struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, srv *ftptest.Server, dir string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	flags := []string{"-no-color", "-timeout", "300ms", "-dir", dir}
	if srv != nil {
		flags = append(flags, "-server", srv.Addr())
	}
	code := run(context.Background(), append(flags, args...), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func TestRun_Usage(t *testing.T) {
	newArchive(t)

	r := runCLI(t, nil, t.TempDir())
	assert.Equal(t, 2, r.code)
	assert.Contains(t, r.stderr, "Usage: dbgapftp")
	assert.Contains(t, r.stderr, "download <accession> [version]")

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, run(context.Background(), []string{"-h"}, &stdout, &stderr))
	assert.Equal(t, 2, run(context.Background(), []string{"-attempts", "many"}, &stdout, &stderr))
}

func TestRun_UnknownCommandAndArity(t *testing.T) {
	srv := newArchive(t)

	r := runCLI(t, srv, t.TempDir(), "upload", "16")
	assert.Equal(t, 2, r.code)
	assert.Contains(t, r.stderr, `unknown command "upload"`)

	r = runCLI(t, srv, t.TempDir(), "versions")
	assert.Equal(t, 2, r.code)
	assert.Contains(t, r.stderr, "versions <accession>")

	r = runCLI(t, srv, t.TempDir(), "highest", "sixteen")
	assert.Equal(t, 2, r.code)
	assert.Contains(t, r.stderr, "accession must be an integer")
}

func TestRun_InvalidLocalDir(t *testing.T) {
	srv := newArchive(t)
	r := runCLI(t, srv, filepath.Join(t.TempDir(), "missing"), "versions", "16")
	assert.Equal(t, 2, r.code)
	assert.Contains(t, r.stderr, "local directory")
}

func TestRun_Versions(t *testing.T) {
	srv := newArchive(t)

	r := runCLI(t, srv, t.TempDir(), "versions", "16")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "phs000016.v1.p1")
	assert.Contains(t, r.stdout, "phs000016.v2.p1")
}

func TestRun_Highest(t *testing.T) {
	srv := newArchive(t)

	r := runCLI(t, srv, t.TempDir(), "highest", "phs000016")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "2\n", r.stdout)
}

func TestRun_HighestInvalidAccession(t *testing.T) {
	srv := newArchive(t)

	r := runCLI(t, srv, t.TempDir(), "highest", "0")
	assert.Equal(t, 2, r.code)
	assert.Contains(t, r.stderr, "study accession must be an integer > 0")
}

func TestRun_Dicts(t *testing.T) {
	srv := newArchive(t)

	r := runCLI(t, srv, t.TempDir(), "dicts", "16")
	require.Equal(t, 0, r.code, r.stderr)
	for _, name := range dictionaries {
		assert.Contains(t, r.stdout, name)
	}
	assert.NotContains(t, r.stdout, "var_report")
}

func TestRun_DictsMissingVersion(t *testing.T) {
	srv := newArchive(t)

	r := runCLI(t, srv, t.TempDir(), "dicts", "16", "99")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "phs000016.v99 does not exist")
}

func TestRun_Download(t *testing.T) {
	srv := newArchive(t)
	dir := t.TempDir()
	metrics := filepath.Join(t.TempDir(), "transfers.csv")

	r := runCLI(t, srv, dir, "-metrics-csv", metrics, "download", "16")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "done!")
	assert.NotContains(t, r.stdout, "failed files")

	for _, name := range dictionaries {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, "<data_table/>", string(data))
	}
	_, err := os.Stat(filepath.Join(dir, "phs000016.v2.pht000002.v1.p1.var_report.xml"))
	assert.True(t, os.IsNotExist(err))

	f, err := os.Open(metrics)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 1+len(dictionaries))
}

func TestRun_DownloadSilent(t *testing.T) {
	srv := newArchive(t)

	r := runCLI(t, srv, t.TempDir(), "-silent", "download", "16", "2")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Empty(t, r.stdout)
}

func TestRun_DownloadWithTimedOutFile(t *testing.T) {
	srv := newArchive(t)
	stalled := path.Join(summaries, dictionaries[0])
	srv.Stall(stalled, -1)
	dir := t.TempDir()

	r := runCLI(t, srv, dir, "-attempts", "2", "download", "16")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stdout, "1 failed files:")
	assert.Contains(t, r.stdout, "  "+stalled)
	assert.Contains(t, r.stdout, "done!")
	assert.Contains(t, r.stderr, "1 of 2 files failed to download")
	assert.Equal(t, 2, srv.Retrievals(stalled))

	_, err := os.Stat(filepath.Join(dir, dictionaries[1]))
	assert.NoError(t, err, "the healthy file is still downloaded")
}

func TestRun_Get(t *testing.T) {
	srv := newArchive(t)
	dir := t.TempDir()

	r := runCLI(t, srv, dir, "get", path.Join(summaries, dictionaries[1]))
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "Downloaded "+filepath.Join(dir, dictionaries[1]))
}

func TestRun_GetPathWithoutFileName(t *testing.T) {
	srv := newArchive(t)
	dir := filepath.Join(t.TempDir(), "downloads")
	require.NoError(t, os.Mkdir(dir, 0755))

	r := runCLI(t, srv, dir, "get", "/")
	assert.Equal(t, 2, r.code)
	assert.Contains(t, r.stderr, "does not name a file")
	assert.DirExists(t, dir)
}

func TestRun_ConnectionRefused(t *testing.T) {
	newArchive(t)
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-no-color", "-server", addr, "-dir", t.TempDir(), "highest", "16"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "failed to connect")
}

func TestRun_ShellRequiresTerminal(t *testing.T) {
	srv := newArchive(t)
	r := runCLI(t, srv, t.TempDir(), "shell")
	assert.Equal(t, 2, r.code)
	assert.Contains(t, r.stderr, "interactive terminal")
}

func TestShellExecute(t *testing.T) {
	srv := newArchive(t)
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dicts"), 0755))

	cfg := &config.CLIConfig{
		Archive:  config.ArchiveConfig{Address: srv.Addr(), Timeout: config.DefaultTimeout},
		LogLevel: "error",
		LocalDir: dir,
		Silent:   true,
		NoColor:  true,
	}
	var out bytes.Buffer
	a := newApp(cfg, &out, &out)
	c, err := archive.Dial(cfg.Archive, a.clientOptions()...)
	require.NoError(t, err)
	a.attach(c)
	t.Cleanup(func() { c.Close() })

	ctx := context.Background()
	a.execute(ctx, "versions 16")
	assert.Contains(t, out.String(), "phs000016.v2.p1")

	out.Reset()
	a.execute(ctx, "lcd dicts")
	assert.Equal(t, filepath.Join(dir, "dicts"), a.cfg.LocalDir)

	a.execute(ctx, "download 16")
	for _, name := range dictionaries {
		assert.FileExists(t, filepath.Join(dir, "dicts", name))
	}

	out.Reset()
	a.execute(ctx, "local")
	assert.Contains(t, out.String(), dictionaries[0])

	out.Reset()
	a.execute(ctx, "upload 16")
	assert.Contains(t, out.String(), `unknown command "upload"`)
	assert.False(t, a.quit, "a failed command keeps the session open")

	a.execute(ctx, "theme light")
	assert.Equal(t, "light", a.theme.GetThemeName())

	out.Reset()
	a.execute(ctx, "help")
	assert.Contains(t, out.String(), "dicts <accession> [version]")

	a.execute(ctx, "quit")
	assert.True(t, a.quit)
}

type failingCloser struct{ err error }

func (f failingCloser) Close() error { return f.err }

func TestShellRelease_LogsCloseError(t *testing.T) {
	cfg := &config.CLIConfig{
		Archive:  config.ArchiveConfig{Address: "127.0.0.1:2121"},
		LogLevel: "warn",
		NoColor:  true,
	}
	var stdout, stderr bytes.Buffer
	a := newApp(cfg, &stdout, &stderr)

	a.release(failingCloser{err: errors.New("421 service not available")})
	assert.Contains(t, stderr.String(), "failed to close session")
	assert.Contains(t, stderr.String(), "421 service not available")

	stderr.Reset()
	a.release(failingCloser{})
	assert.Empty(t, stderr.String())
}

func TestShellExecute_ShowsProgress(t *testing.T) {
	srv := newArchive(t)
	dir := t.TempDir()

	cfg := &config.CLIConfig{
		Archive:  config.ArchiveConfig{Address: srv.Addr(), Timeout: config.DefaultTimeout},
		LogLevel: "error",
		LocalDir: dir,
		NoColor:  true,
	}
	var out bytes.Buffer
	a := newApp(cfg, &out, &out)
	a.interactive = true
	c, err := archive.Dial(cfg.Archive, a.clientOptions()...)
	require.NoError(t, err)
	a.attach(c)
	t.Cleanup(func() { c.Close() })

	a.execute(context.Background(), "get "+path.Join(summaries, dictionaries[0]))
	assert.Contains(t, out.String(), "\r"+dictionaries[0]+"  ")
	assert.Contains(t, out.String(), " B\nDownloaded ")
	assert.Contains(t, out.String(), "Downloaded "+filepath.Join(dir, dictionaries[0]))
	assert.False(t, a.progressShown)
}
