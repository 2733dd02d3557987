package terminal

import (
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/c-bata/go-prompt"
)

// CommandCompleter handles command and argument completion for the shell
type CommandCompleter struct {
	commands    []prompt.Suggest
	accessions  map[int]bool
	remoteFiles []string
	localDir    string
}

// NewCommandCompleter creates a new command completer
func NewCommandCompleter() *CommandCompleter {
	return &CommandCompleter{
		commands: []prompt.Suggest{
			{Text: "versions", Description: "List the versions of a study"},
			{Text: "highest", Description: "Show the highest version of a study"},
			{Text: "dicts", Description: "List data dictionaries of a study version"},
			{Text: "download", Description: "Download all data dictionaries of a study version"},
			{Text: "get", Description: "Download one remote file"},
			{Text: "lcd", Description: "Change the local download directory"},
			{Text: "local", Description: "List the local download directory"},
			{Text: "theme", Description: "Change terminal theme"},
			{Text: "help", Description: "Show help information"},
			{Text: "quit", Description: "Close the session and exit"},
		},
		accessions: make(map[int]bool),
		localDir:   ".",
	}
}

// RememberAccession adds an accession to the argument suggestions
func (c *CommandCompleter) RememberAccession(accession int) {
	c.accessions[accession] = true
}

// UpdateRemoteFiles replaces the remote paths suggested for get
func (c *CommandCompleter) UpdateRemoteFiles(paths []string) {
	c.remoteFiles = append(c.remoteFiles[:0], paths...)
}

// UpdateLocalDir sets the directory used for lcd suggestions
func (c *CommandCompleter) UpdateLocalDir(dir string) {
	c.localDir = dir
}

// Completer returns suggestions for the current input
func (c *CommandCompleter) Completer(d prompt.Document) []prompt.Suggest {
	text := d.TextBeforeCursor()
	words := strings.Fields(text)

	// If we're at the start of a new command
	if len(words) == 0 || (len(words) == 1 && !strings.HasSuffix(text, " ")) {
		return c.suggestCommands(words)
	}

	// Start a fresh argument after a trailing space
	if strings.HasSuffix(text, " ") {
		words = append(words, "")
	}
	return c.suggestArguments(words)
}

// suggestCommands returns suggestions for commands
func (c *CommandCompleter) suggestCommands(words []string) []prompt.Suggest {
	if len(words) == 0 {
		return c.commands
	}
	return prompt.FilterHasPrefix(c.commands, words[0], true)
}

// suggestArguments returns suggestions for command arguments
func (c *CommandCompleter) suggestArguments(words []string) []prompt.Suggest {
	cmd := strings.ToLower(words[0])
	lastWord := words[len(words)-1]
	argIndex := len(words) - 1

	switch cmd {
	case "versions", "highest", "dicts", "download":
		if argIndex == 1 {
			return c.suggestAccessions(lastWord)
		}
	case "get":
		if argIndex == 1 {
			return c.suggestRemoteFiles(lastWord)
		}
	case "lcd":
		if argIndex == 1 {
			return c.suggestLocalDirectories(lastWord)
		}
	case "theme":
		if argIndex == 1 {
			var suggestions []prompt.Suggest
			for _, name := range ThemeNames {
				suggestions = append(suggestions, prompt.Suggest{Text: name, Description: "Theme"})
			}
			return prompt.FilterHasPrefix(suggestions, lastWord, true)
		}
	}
	return nil
}

// suggestAccessions returns the accessions used earlier in the session
func (c *CommandCompleter) suggestAccessions(prefix string) []prompt.Suggest {
	accessions := make([]int, 0, len(c.accessions))
	for accession := range c.accessions {
		accessions = append(accessions, accession)
	}
	sort.Ints(accessions)

	var suggestions []prompt.Suggest
	for _, accession := range accessions {
		text := strconv.Itoa(accession)
		if strings.HasPrefix(text, prefix) {
			suggestions = append(suggestions, prompt.Suggest{Text: text, Description: "Study accession"})
		}
	}
	return suggestions
}

// suggestRemoteFiles returns paths from the last listing
func (c *CommandCompleter) suggestRemoteFiles(prefix string) []prompt.Suggest {
	var suggestions []prompt.Suggest
	for _, file := range c.remoteFiles {
		if strings.HasPrefix(file, prefix) {
			suggestions = append(suggestions, prompt.Suggest{
				Text:        file,
				Description: "Remote file",
			})
		}
	}
	return suggestions
}

// suggestLocalDirectories returns subdirectories of the local directory
func (c *CommandCompleter) suggestLocalDirectories(prefix string) []prompt.Suggest {
	entries, err := os.ReadDir(c.localDir)
	if err != nil {
		return nil
	}

	var suggestions []prompt.Suggest
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		// Skip hidden directories unless explicitly requested
		if strings.HasPrefix(entry.Name(), ".") && !strings.HasPrefix(prefix, ".") {
			continue
		}
		if strings.HasPrefix(strings.ToLower(entry.Name()), strings.ToLower(prefix)) {
			suggestions = append(suggestions, prompt.Suggest{
				Text:        entry.Name(),
				Description: "Local directory",
			})
		}
	}
	return suggestions
}
