// Package infra implements infrastructure concerns.
package infra

import (
	"os"
	"os/user"
)

// DataDirName is the per-user directory holding the global registry,
// config file and scan history.
const DataDirName = ".bluecore"

// GetRealUserHome returns the invoking user's home directory, even under sudo.
// Under sudo, os.UserHomeDir() points at root's home, so SUDO_USER wins.
func GetRealUserHome() string {
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
		if u, err := user.Lookup(sudoUser); err == nil {
			return u.HomeDir
		}
	}
	home, _ := os.UserHomeDir()
	return home
}
