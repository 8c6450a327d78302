// Package pathutil resolves user-supplied filesystem paths from config and flags.
package pathutil

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// ErrNoHome is returned when no lookup yields an absolute home directory.
var ErrNoHome = errors.New("home directory not resolvable")

// Home returns the user's home directory. Values still starting with "~"
// are skipped, which happens when HOME is copied unexpanded from a unit file.
func Home() (string, error) {
	lookups := []func() string{
		func() string { return os.Getenv("HOME") },
		func() string {
			home, _ := os.UserHomeDir()
			return home
		},
		func() string {
			u, err := user.Current()
			if err != nil {
				return ""
			}
			return u.HomeDir
		},
	}
	for _, lookup := range lookups {
		if home := strings.TrimSpace(lookup()); home != "" && !strings.HasPrefix(home, "~") {
			return home, nil
		}
	}
	return "", ErrNoHome
}

// UnderHome joins elem onto the home directory, falling back to the working
// directory when there is none.
func UnderHome(elem ...string) string {
	home, err := Home()
	if err != nil {
		home = "."
	}
	return filepath.Join(append([]string{home}, elem...)...)
}

// Expand substitutes $VARS, resolves a leading "~" or "~/" and cleans the
// result. A blank path stays blank.
func Expand(path string) (string, error) {
	p := os.ExpandEnv(strings.TrimSpace(path))
	if p == "" {
		return "", nil
	}

	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := Home()
		if err != nil {
			return "", fmt.Errorf("expand %q: %w", path, err)
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return filepath.Clean(p), nil
}
