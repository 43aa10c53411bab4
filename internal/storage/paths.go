// Package storage provides persistent storage for engine options, cached
// analysis and search statistics.
package storage

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const appName = "boomchess"

// ResolveDataFile locates a network or book file. Paths that exist as given
// are returned unchanged; otherwise the XDG data directories are searched
// under the application directory. The name is returned as is when nothing
// matches, so the caller reports the original path.
func ResolveDataFile(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	if _, err := os.Stat(name); err == nil {
		return name
	}
	if p, err := xdg.SearchDataFile(filepath.Join(appName, name)); err == nil {
		return p
	}
	return name
}
