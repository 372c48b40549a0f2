package provision

import (
	"cmp"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Revision is the tenant part of one structural revision. A revision with
// empty SQL only stamps the version; it exists when the shared namespace
// changed without any partition change.
type Revision struct {
	Version int64
	Name    string
	SQL     string
}

var revisionFile = regexp.MustCompile(`^(\d+)_([a-z0-9_]+)\.sql$`)

// LoadRevisions reads every N_name.sql file in dir, ordered by N.
// Versions must be positive and unique.
func LoadRevisions(fsys fs.FS, dir string) ([]Revision, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRevisions, err)
	}

	revs := make([]Revision, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		m := revisionFile.FindStringSubmatch(entry.Name())
		if m == nil {
			return nil, fmt.Errorf("%w: bad file name %q", ErrInvalidRevisions, entry.Name())
		}
		version, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil || version <= 0 {
			return nil, fmt.Errorf("%w: bad version in %q", ErrInvalidRevisions, entry.Name())
		}
		body, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRevisions, err)
		}
		revs = append(revs, Revision{Version: version, Name: m[2], SQL: string(body)})
	}

	slices.SortFunc(revs, func(a, b Revision) int {
		return cmp.Compare(a.Version, b.Version)
	})
	for i := 1; i < len(revs); i++ {
		if revs[i].Version == revs[i-1].Version {
			return nil, fmt.Errorf("%w: duplicate version %d", ErrInvalidRevisions, revs[i].Version)
		}
	}
	return revs, nil
}

// Plan returns the steps that move a partition from revision from to to:
// every revision in (from, to], followed by a stamp-only step at to when no
// revision file carries that exact version.
func Plan(revs []Revision, from, to int64) []Revision {
	if to <= from {
		return nil
	}
	var steps []Revision
	for _, r := range revs {
		if r.Version > from && r.Version <= to {
			steps = append(steps, r)
		}
	}
	if len(steps) == 0 || steps[len(steps)-1].Version != to {
		steps = append(steps, Revision{Version: to, Name: "stamp"})
	}
	return steps
}
