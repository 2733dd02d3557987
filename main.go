package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"strconv"
	"strings"
	"syscall"

	"github.com/UW-GAC/dbgap-ftp/archive"
	"github.com/UW-GAC/dbgap-ftp/config"
	"github.com/UW-GAC/dbgap-ftp/logging"
	"github.com/UW-GAC/dbgap-ftp/perfmetrics"
	"github.com/UW-GAC/dbgap-ftp/terminal"
	"github.com/UW-GAC/dbgap-ftp/transfer"
)

const appName = "dbgapftp"

var errUsage = errors.New("usage error")

// command is one subcommand shared by the command line and the shell.
type command struct {
	usage   string
	summary string
	minArgs int
	maxArgs int
	run     func(a *app, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"versions": {"versions <accession>", "List the versions of a study", 1, 1, (*app).versions},
	"highest":  {"highest <accession>", "Show the highest version of a study", 1, 1, (*app).highest},
	"dicts":    {"dicts <accession> [version]", "List data dictionaries (default: highest version)", 1, 2, (*app).dicts},
	"download": {"download <accession> [version]", "Download all data dictionaries into -dir", 1, 2, (*app).download},
	"get":      {"get <remote-path>", "Download one remote file into -dir", 1, 1, (*app).get},
}

var commandOrder = []string{"versions", "highest", "dicts", "download", "get"}

// app holds the state of one invocation.
type app struct {
	cfg       *config.CLIConfig
	stdout    io.Writer
	stderr    io.Writer
	logger    *slog.Logger
	theme     *terminal.ThemeManager
	tables    *terminal.TableFormatter
	completer *terminal.CommandCompleter
	client    *archive.Client
	quit      bool

	interactive   bool
	progressShown bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command line and returns the process exit code:
// 0 on success, 1 on failure, 2 on usage errors.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(fs) }

	cfg, rest, err := config.ParseCLI(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}
	if cfg.NoColor {
		terminal.DisableColor()
	}

	a := newApp(cfg, stdout, stderr)
	if len(rest) == 0 {
		fs.Usage()
		return 2
	}
	if err := cfg.Validate(); err != nil {
		a.theme.Errorf(stderr, "Error: %v", err)
		return 2
	}

	name, operands := rest[0], rest[1:]
	if name == "shell" {
		err = a.runShell(ctx)
	} else {
		err = a.runOnce(ctx, name, operands)
	}
	if err != nil {
		a.theme.Errorf(stderr, "Error: %v", err)
		return exitCode(err)
	}
	return 0
}

func newApp(cfg *config.CLIConfig, stdout, stderr io.Writer) *app {
	return &app{
		cfg:       cfg,
		stdout:    stdout,
		stderr:    stderr,
		logger:    logging.NewWithWriter(stderr, appName, cfg.LogLevel),
		theme:     terminal.NewThemeManager(),
		tables:    terminal.NewTableFormatter(stdout),
		completer: terminal.NewCommandCompleter(),
	}
}

func exitCode(err error) int {
	if errors.Is(err, errUsage) || errors.Is(err, archive.ErrInvalidArgument) {
		return 2
	}
	return 1
}

func printUsage(fs *flag.FlagSet) {
	out := fs.Output()
	fmt.Fprintf(out, "Usage: %s [flags] <command> [args]\n\nCommands:\n", appName)
	for _, name := range commandOrder {
		cmd := commands[name]
		fmt.Fprintf(out, "  %-32s %s\n", cmd.usage, cmd.summary)
	}
	fmt.Fprintf(out, "  %-32s %s\n", "shell", "Start an interactive session")
	fmt.Fprintln(out, "\nFlags:")
	fs.PrintDefaults()
}

// runOnce dials, runs one command and closes the session.
func (a *app) runOnce(ctx context.Context, name string, args []string) error {
	cmd, err := lookup(name, args)
	if err != nil {
		return err
	}
	return archive.WithClient(a.cfg.Archive, func(c *archive.Client) error {
		a.attach(c)
		defer a.attach(nil)
		return cmd.run(a, ctx, args)
	}, a.clientOptions()...)
}

func lookup(name string, args []string) (command, error) {
	cmd, ok := commands[name]
	if !ok {
		return command{}, fmt.Errorf("%w: unknown command %q", errUsage, name)
	}
	if len(args) < cmd.minArgs || len(args) > cmd.maxArgs {
		return command{}, fmt.Errorf("%w: %s", errUsage, cmd.usage)
	}
	return cmd, nil
}

func (a *app) clientOptions() []archive.Option {
	return []archive.Option{
		archive.WithLogger(a.logger),
		archive.WithOutput(a.stdout),
	}
}

// attach makes c the active client and wires the transfer log and, in
// the shell, the progress line.
func (a *app) attach(c *archive.Client) {
	a.client = c
	if c == nil {
		return
	}
	if a.interactive && !a.cfg.Silent {
		c.OnProgress = a.showProgress
	}
	c.OnTransfer = func(r transfer.Report) {
		a.endProgress()
		if a.cfg.MetricsFile == "" {
			return
		}
		if err := perfmetrics.LogTransfer(a.cfg.MetricsFile, r); err != nil {
			a.logger.Warn("failed to write transfer metrics", "file", a.cfg.MetricsFile, "error", err)
		}
	}
}

func (a *app) showProgress(remotePath string, written int64) {
	a.theme.GetInfoColor().Fprintf(a.stdout, "\r%s  %s", path.Base(remotePath), transfer.FormatSize(written))
	a.progressShown = true
}

func (a *app) endProgress() {
	if a.progressShown {
		fmt.Fprintln(a.stdout)
		a.progressShown = false
	}
}

func (a *app) versions(_ context.Context, args []string) error {
	accession, err := a.accession(args[0])
	if err != nil {
		return err
	}
	versions, err := a.client.StudyVersions(accession)
	if err != nil {
		return err
	}
	return a.tables.FormatStudyVersions(versions)
}

func (a *app) highest(_ context.Context, args []string) error {
	accession, err := a.accession(args[0])
	if err != nil {
		return err
	}
	version, err := a.client.HighestStudyVersion(accession)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, version)
	return nil
}

func (a *app) dicts(_ context.Context, args []string) error {
	files, err := a.dataDictionaries(args)
	if err != nil {
		return err
	}
	return a.tables.FormatRemoteFiles(files)
}

func (a *app) download(ctx context.Context, args []string) error {
	files, err := a.dataDictionaries(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		a.theme.Infof(a.stdout, "No data dictionaries found")
		return nil
	}

	result, err := a.client.DownloadFiles(ctx, files, a.cfg.LocalDir, a.cfg.Silent)
	if err != nil {
		return err
	}
	if len(result.Failed) > 0 {
		return fmt.Errorf("%d of %d files failed to download", len(result.Failed), len(files))
	}
	a.logger.Info("download complete", "files", len(result.Succeeded), "dir", a.cfg.LocalDir)
	return nil
}

func (a *app) get(_ context.Context, args []string) error {
	local, err := a.client.DownloadFile(args[0], a.cfg.LocalDir)
	if err != nil {
		return err
	}
	a.theme.Successf(a.stdout, "Downloaded %s", local)
	return nil
}

// dataDictionaries resolves "<accession> [version]", defaulting to the
// highest version.
func (a *app) dataDictionaries(args []string) ([]string, error) {
	accession, err := a.accession(args[0])
	if err != nil {
		return nil, err
	}

	var version int
	if len(args) > 1 {
		if version, err = parseNumber(args[1], "version"); err != nil {
			return nil, err
		}
	} else {
		if version, err = a.client.HighestStudyVersion(accession); err != nil {
			return nil, err
		}
		a.logger.Debug("using highest version", "accession", accession, "version", version)
	}

	files, err := a.client.DataDictionaries(accession, version)
	if err != nil {
		return nil, err
	}
	a.completer.UpdateRemoteFiles(files)
	return files, nil
}

// accession accepts "16" or "phs000016".
func (a *app) accession(arg string) (int, error) {
	accession, err := parseNumber(strings.TrimPrefix(strings.ToLower(arg), "phs"), "accession")
	if err != nil {
		return 0, err
	}
	if accession > 0 {
		a.completer.RememberAccession(accession)
	}
	return accession, nil
}

func parseNumber(arg, what string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", errUsage, what, arg)
	}
	return n, nil
}
