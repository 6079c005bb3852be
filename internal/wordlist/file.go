package wordlist

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"go.uber.org/multierr"
)

// LoadDir reads one newline separated file per category from fsys. A missing
// file leaves its category empty; any other read failure is reported.
func LoadDir(fsys fs.FS, files map[string]string) (*Set, error) {
	set := New()
	var errs error

	for category, name := range files {
		set.Ensure(category)

		f, err := fsys.Open(name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("open %s: %w", name, err))
			continue
		}

		sc := bufio.NewScanner(f)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			set.Add(category, line)
		}
		if err := sc.Err(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("read %s: %w", name, err))
		}
		errs = multierr.Append(errs, f.Close())
	}

	return set, errs
}
