package client

import "strings"

// ShellQuote quotes s for a POSIX shell command line. Strings made only of
// safe characters are returned as is; anything else is single-quoted with
// embedded single quotes written as '\''.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, unsafeShellRune) == -1 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func unsafeShellRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}
	switch r {
	case '-', '_', '.', '/', '@', ':', ',', '+', '=':
		return false
	}
	return true
}
