// Package actions maps menu selections to the console's operations and runs
// the menu loop.
package actions

import (
	"fmt"
	"strings"

	"github.com/pascal71/sysmanage-go/console"
)

// Key is a menu selection.
type Key string

const (
	KeyDateTime    Key = "1"
	KeyLocalIP     Key = "2"
	KeyListHome    Key = "3"
	KeyBackup      Key = "4"
	KeySaveWebPage Key = "5"
	KeyQuit        Key = "Q"
)

// Keys is the menu order.
var Keys = []Key{KeyDateTime, KeyLocalIP, KeyListHome, KeyBackup, KeySaveWebPage, KeyQuit}

// Description is the menu label for k.
func (k Key) Description() string {
	switch k {
	case KeyDateTime:
		return "Show date and time (local computer)"
	case KeyLocalIP:
		return "Show IP address (local computer)"
	case KeyListHome:
		return "Show Remote home directory listing"
	case KeyBackup:
		return "Backup remote file"
	case KeySaveWebPage:
		return "Save web page"
	case KeyQuit:
		return "Quit"
	default:
		return ""
	}
}

// ParseKey resolves a single key. "q" is accepted for KeyQuit.
func ParseKey(s string) (Key, error) {
	k := Key(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Keys {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown option %q", s)
}

// MenuItems renders Keys for the console menu.
func MenuItems() []console.MenuItem {
	items := make([]console.MenuItem, len(Keys))
	for i, k := range Keys {
		items[i] = console.MenuItem{Key: string(k), Label: k.Description()}
	}
	return items
}
