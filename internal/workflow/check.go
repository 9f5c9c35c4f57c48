package workflow

import (
	"errors"
	"os"
	"strings"

	"github.com/deixis/exrun/internal/locator"
)

// Check verifies every catalog binary exists. It prints the result and
// returns a *locator.MissingError when anything is absent.
func (e *Engine) Check() error {
	if fi, err := os.Stat(e.Location.Dir); err != nil || !fi.IsDir() {
		e.printf("FAIL build directory %s does not exist; run the build first\n", e.Location.Dir)
		var names []string
		for _, ex := range e.Config.Catalog() {
			names = append(names, ex.Name)
		}
		return &locator.MissingError{Dir: e.Location.Dir, Names: names}
	}

	err := locator.CheckCatalog(e.Config.Catalog(), e.Location)
	var missing *locator.MissingError
	if errors.As(err, &missing) {
		e.printf("FAIL missing executables: %s\n", strings.Join(missing.Names, ", "))
		return err
	}
	e.printf("ok   all %d examples are built\n", len(e.Config.Catalog()))
	return nil
}
