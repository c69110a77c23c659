package tool

import (
	"fmt"
	"io"
	"os"
	"regexp"

	fcolor "github.com/fatih/color"
)

var tagPattern = regexp.MustCompile(`<(info|error)>(.*?)</(?:info|error)>`)

// ConsoleHelper writes console lines, rendering <info> tags in green and
// <error> tags in red.
type ConsoleHelper struct {
	Stdout io.Writer
	Stderr io.Writer
	// Colors toggles ANSI output. Tags are stripped when disabled.
	Colors bool
}

// NewConsoleHelper creates a helper. Colors follow fatih/color's terminal
// detection.
func NewConsoleHelper(stdout, stderr io.Writer) *ConsoleHelper {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return &ConsoleHelper{Stdout: stdout, Stderr: stderr, Colors: !fcolor.NoColor}
}

// WriteLine writes s followed by a newline to w.
func (h *ConsoleHelper) WriteLine(w io.Writer, s string) {
	_, _ = fmt.Fprintln(w, h.Colorize(s))
}

// WriteErrorMessage writes msg to Stderr as an error line.
func (h *ConsoleHelper) WriteErrorMessage(msg string) {
	h.WriteLine(h.Stderr, "<error>"+msg+"</error>")
}

// Colorize replaces console tags in s.
func (h *ConsoleHelper) Colorize(s string) string {
	return tagPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := tagPattern.FindStringSubmatch(match)
		if !h.Colors {
			return parts[2]
		}
		c := fcolor.New(fcolor.FgGreen)
		if parts[1] == "error" {
			c = fcolor.New(fcolor.FgRed)
		}
		c.EnableColor()
		return c.Sprint(parts[2])
	})
}
