package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/c-bata/go-prompt"
	"golang.org/x/term"

	"github.com/UW-GAC/dbgap-ftp/archive"
)

// runShell holds one archive session open and reads commands until quit.
func (a *app) runShell(ctx context.Context) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("%w: shell requires an interactive terminal", errUsage)
	}

	c, err := archive.Dial(a.cfg.Archive, a.clientOptions()...)
	if err != nil {
		return err
	}
	a.interactive = true
	a.attach(c)
	defer func() {
		a.release(c)
		a.attach(nil)
	}()
	a.completer.UpdateLocalDir(a.cfg.LocalDir)

	a.theme.GetPromptColor().Fprintf(a.stdout, "Connected to %s\n", a.cfg.Archive.DialAddress())
	a.theme.GetTextColor().Fprintln(a.stdout, "Type 'help' for available commands")
	fmt.Fprintln(a.stdout)

	p := prompt.New(
		func(input string) { a.execute(ctx, input) },
		a.completer.Completer,
		prompt.OptionTitle(appName),
		prompt.OptionLivePrefix(func() (string, bool) {
			return "[" + appName + "] " + a.cfg.LocalDir + "> ", true
		}),
		prompt.OptionPrefixTextColor(prompt.Green),
		prompt.OptionPreviewSuggestionTextColor(prompt.Blue),
		prompt.OptionSelectedSuggestionBGColor(prompt.LightGray),
		prompt.OptionSuggestionBGColor(prompt.DarkGray),
		prompt.OptionCompletionWordSeparator(" "),
		prompt.OptionSetExitCheckerOnInput(func(string, bool) bool {
			return a.quit || ctx.Err() != nil
		}),
		// Ctrl+C leaves the shell through the same path as quit
		prompt.OptionAddKeyBind(prompt.KeyBind{
			Key: prompt.ControlC,
			Fn: func(buf *prompt.Buffer) {
				a.quit = true
			},
		}),
	)
	p.Run()

	fmt.Fprintln(a.stdout, "Exiting...")
	return nil
}

// execute runs one shell line. Errors are printed, never returned, so the
// session survives a failed command.
func (a *app) execute(ctx context.Context, input string) {
	words := strings.Fields(strings.TrimSpace(input))
	if len(words) == 0 {
		return
	}
	name, args := strings.ToLower(words[0]), words[1:]

	var err error
	switch name {
	case "quit", "exit":
		a.quit = true
	case "help":
		a.showHelp()
	case "theme":
		if len(args) != 1 {
			err = fmt.Errorf("%w: theme <dark|light>", errUsage)
		} else {
			err = a.theme.SetTheme(args[0])
		}
	case "lcd":
		err = a.changeLocalDir(args)
	case "local":
		err = a.tables.FormatLocalDirectory(a.cfg.LocalDir)
	default:
		var cmd command
		if cmd, err = lookup(name, args); err == nil {
			err = cmd.run(a, ctx, args)
		}
	}

	if err != nil {
		a.theme.Errorf(a.stdout, "Error: %v", err)
		if errors.Is(err, context.Canceled) {
			a.quit = true
		}
	}
}

// release closes the shell's session, logging rather than returning a
// failure since the shell is already exiting.
func (a *app) release(c io.Closer) {
	if err := c.Close(); err != nil {
		a.logger.Warn("failed to close session", "server", a.cfg.Archive.DialAddress(), "error", err)
	}
}

func (a *app) changeLocalDir(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: lcd <directory>", errUsage)
	}
	dir := args[0]
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(a.cfg.LocalDir, dir)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	a.cfg.LocalDir = dir
	a.completer.UpdateLocalDir(dir)
	a.theme.Infof(a.stdout, "Local directory is now %s", dir)
	return nil
}

func (a *app) showHelp() {
	text := a.theme.GetTextColor()
	text.Fprintln(a.stdout, "\nArchive commands:")
	for _, name := range commandOrder {
		cmd := commands[name]
		text.Fprintf(a.stdout, "  %-32s %s\n", cmd.usage, cmd.summary)
	}
	text.Fprintln(a.stdout, "\nShell commands:")
	text.Fprintf(a.stdout, "  %-32s %s\n", "lcd <directory>", "Change the local download directory")
	text.Fprintf(a.stdout, "  %-32s %s\n", "local", "List the local download directory")
	text.Fprintf(a.stdout, "  %-32s %s\n", "theme <dark|light>", "Change terminal theme")
	text.Fprintf(a.stdout, "  %-32s %s\n", "quit", "Close the session and exit")
}
