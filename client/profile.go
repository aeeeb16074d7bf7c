package client

import (
	"fmt"
	"sort"
	"strings"
)

// Profile describes how to talk to one kind of remote device.
type Profile struct {
	Name string
	// Term is the terminal type requested for the PTY.
	Term string
	// Newline terminates every line written to the shell.
	Newline string
	// ListFormat and CopyFormat build commands from already quoted arguments.
	ListFormat string
	CopyFormat string
}

var profiles = map[string]Profile{
	"linux": {
		Name:       "linux",
		Term:       "xterm",
		Newline:    "\n",
		ListFormat: "ls %s",
		CopyFormat: "cp %s %s.old",
	},
	"unix": {
		Name:       "unix",
		Term:       "vt100",
		Newline:    "\n",
		ListFormat: "ls %s",
		CopyFormat: "cp %s %s.old",
	},
}

// LookupProfile returns the profile registered for a device type.
func LookupProfile(deviceType string) (Profile, error) {
	p, ok := profiles[strings.ToLower(strings.TrimSpace(deviceType))]
	if !ok {
		return Profile{}, fmt.Errorf("unsupported device type %q (known: %s)", deviceType, strings.Join(DeviceTypes(), ", "))
	}
	return p, nil
}

// DeviceTypes lists the supported device types in sorted order.
func DeviceTypes() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListCommand returns the command listing dir on the remote host.
func (p Profile) ListCommand(dir string) string {
	return fmt.Sprintf(p.ListFormat, ShellQuote(dir))
}

// BackupCommand returns the command copying path to path.old.
func (p Profile) BackupCommand(path string) string {
	q := ShellQuote(path)
	return fmt.Sprintf(p.CopyFormat, q, q)
}
