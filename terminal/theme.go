package terminal

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Theme represents a terminal theme configuration
type Theme struct {
	Name         string
	PromptColor  string
	TextColor    string
	ErrorColor   string
	SuccessColor string
	InfoColor    string
}

// ThemeManager holds the active theme for one process
type ThemeManager struct {
	currentTheme Theme
}

// NewThemeManager creates a theme manager using the dark theme
func NewThemeManager() *ThemeManager {
	tm := &ThemeManager{}
	tm.SetTheme("dark")
	return tm
}

// ThemeNames lists the themes accepted by SetTheme.
var ThemeNames = []string{"dark", "light"}

// SetTheme sets a new theme
func (tm *ThemeManager) SetTheme(name string) error {
	switch name {
	case "light":
		tm.currentTheme = Theme{
			Name:         "light",
			PromptColor:  "black",
			TextColor:    "black",
			ErrorColor:   "red",
			SuccessColor: "green",
			InfoColor:    "blue",
		}
	case "dark":
		tm.currentTheme = Theme{
			Name:         "dark",
			PromptColor:  "green",
			TextColor:    "white",
			ErrorColor:   "red",
			SuccessColor: "green",
			InfoColor:    "cyan",
		}
	default:
		return fmt.Errorf("unknown theme: %s", name)
	}
	return nil
}

// GetThemeName returns the name of the current theme
func (tm *ThemeManager) GetThemeName() string {
	return tm.currentTheme.Name
}

// GetPromptColor returns the color for prompts
func (tm *ThemeManager) GetPromptColor() *color.Color {
	return getColorFromName(tm.currentTheme.PromptColor)
}

// GetTextColor returns the color for normal text
func (tm *ThemeManager) GetTextColor() *color.Color {
	return getColorFromName(tm.currentTheme.TextColor)
}

// GetErrorColor returns the color for error messages
func (tm *ThemeManager) GetErrorColor() *color.Color {
	return getColorFromName(tm.currentTheme.ErrorColor)
}

// GetSuccessColor returns the color for success messages
func (tm *ThemeManager) GetSuccessColor() *color.Color {
	return getColorFromName(tm.currentTheme.SuccessColor)
}

// GetInfoColor returns the color for info messages
func (tm *ThemeManager) GetInfoColor() *color.Color {
	return getColorFromName(tm.currentTheme.InfoColor)
}

// Errorf prints a line in the error color.
func (tm *ThemeManager) Errorf(w io.Writer, format string, args ...interface{}) {
	tm.GetErrorColor().Fprintf(w, format+"\n", args...)
}

// Successf prints a line in the success color.
func (tm *ThemeManager) Successf(w io.Writer, format string, args ...interface{}) {
	tm.GetSuccessColor().Fprintf(w, format+"\n", args...)
}

// Infof prints a line in the info color.
func (tm *ThemeManager) Infof(w io.Writer, format string, args ...interface{}) {
	tm.GetInfoColor().Fprintf(w, format+"\n", args...)
}

// DisableColor turns off ANSI colors for the whole process.
func DisableColor() {
	color.NoColor = true
}

// getColorFromName returns a color.Color based on the color name
func getColorFromName(name string) *color.Color {
	switch name {
	case "black":
		return color.New(color.FgBlack)
	case "red":
		return color.New(color.FgRed)
	case "green":
		return color.New(color.FgGreen)
	case "yellow":
		return color.New(color.FgYellow)
	case "blue":
		return color.New(color.FgBlue)
	case "magenta":
		return color.New(color.FgMagenta)
	case "cyan":
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgWhite)
	}
}
