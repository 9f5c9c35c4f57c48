// Package locator maps example names to executable paths and checks that
// the expected binaries were built.
package locator

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/deixis/exrun/internal/config"
)

// platform holds the per-OS layout of the build output.
type platform struct {
	subdir string // build-configuration directory below the bin dir
	suffix string // executable file suffix
}

// platforms is keyed on runtime.GOOS. Anything not listed uses the zero value.
var platforms = map[string]platform{
	"windows": {subdir: "RelWithDebInfo", suffix: ".exe"},
}

// Location is the directory holding built executables and the suffix
// they carry on the current platform.
type Location struct {
	Dir    string
	Suffix string
}

// Resolve computes the Location for the running platform. It never
// fails; a missing directory is reported by CheckCatalog.
func Resolve(binDir string) Location {
	return ResolveFor(runtime.GOOS, binDir)
}

// ResolveFor computes the Location for goos.
func ResolveFor(goos, binDir string) Location {
	p := platforms[goos]
	dir := filepath.Clean(binDir)
	if p.subdir != "" {
		dir = filepath.Join(dir, p.subdir)
	}
	return Location{Dir: dir, Suffix: p.suffix}
}

// Path returns the executable path for name.
func (l Location) Path(name string) string {
	return filepath.Join(l.Dir, name+l.Suffix)
}

// Exists reports whether name resolves to a regular file.
func (l Location) Exists(name string) bool {
	fi, err := os.Stat(l.Path(name))
	return err == nil && fi.Mode().IsRegular()
}

// MissingError lists catalog entries whose binaries were not found.
type MissingError struct {
	Dir   string
	Names []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing executables in %s: %s", e.Dir, strings.Join(e.Names, ", "))
}

// Missing returns the catalog names with no binary at their resolved
// path, in catalog order. An empty result means every binary is present.
func Missing(catalog []config.Example, loc Location) []string {
	var missing []string
	for _, e := range catalog {
		if !loc.Exists(e.Name) {
			missing = append(missing, e.Name)
		}
	}
	return missing
}

// CheckCatalog returns a *MissingError when any catalog binary is absent.
func CheckCatalog(catalog []config.Example, loc Location) error {
	if missing := Missing(catalog, loc); len(missing) > 0 {
		return &MissingError{Dir: loc.Dir, Names: missing}
	}
	return nil
}
