// Package parser cleans and normalizes output read from a remote shell.
package parser

import (
	"regexp"
	"strings"
)

// frameMarker delimits the prompt/response boundary on some remote terminals.
const frameMarker = "%"

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]|\x1b\][^\x07]*\x07`)

// FormatOutput keeps the text before the first frame marker, drops NUL bytes
// and trims surrounding whitespace. It never fails.
func FormatOutput(raw string) string {
	head, _, _ := strings.Cut(raw, frameMarker)
	head = strings.ReplaceAll(head, "\x00", "")
	return strings.TrimSpace(head)
}

// CleanTerminal removes ANSI escape sequences and carriage returns written by
// a PTY.
func CleanTerminal(raw string) string {
	out := ansiEscape.ReplaceAllString(raw, "")
	return strings.ReplaceAll(out, "\r", "")
}

// LastLine returns the last non-blank line of text with trailing whitespace
// removed.
func LastLine(text string) string {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimRight(lines[i], " \t")
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}

// StripEcho removes the echoed command from the first line of a PTY response
// and the trailing prompt line, returning only the command's own output.
func StripEcho(text, command, prompt string) string {
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && command != "" && strings.Contains(lines[0], strings.TrimSpace(command)) {
		lines = lines[1:]
	}
	if n := len(lines); n > 0 && prompt != "" && strings.Contains(lines[n-1], prompt) {
		lines = lines[:n-1]
	}
	return strings.Join(lines, "\n")
}
