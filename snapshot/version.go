package snapshot

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"

	"github.com/kay-lambdadelta/multiemu-sub003/naming"
)

// A VersionError reports a component whose saved state cannot be loaded by
// the current implementation.
type VersionError struct {
	ID      naming.ID
	Saved   string
	Current string
	Err     error
}

func (e *VersionError) Error() string {
	switch {
	case e.Current == "":
		return fmt.Sprintf("snapshot: %s (state %s) does not exist in this machine",
			e.ID, e.Saved)
	case e.Saved == "":
		return fmt.Sprintf("snapshot: %s (state %s) is missing from the snapshot",
			e.ID, e.Current)
	}

	return fmt.Sprintf("snapshot: %s state %s cannot be loaded by version %s: %v",
		e.ID, e.Saved, e.Current, e.Err)
}

func (e *VersionError) Unwrap() error {
	return e.Err
}

// Compatible checks that state saved with version saved can be loaded by an
// implementation at version current. The current version must satisfy the
// caret range of the saved one: same major version, and not older.
func Compatible(saved, current string) error {
	c, err := semver.NewConstraint("^" + saved)
	if err != nil {
		return fmt.Errorf("saved version %q: %w", saved, err)
	}

	v, err := semver.NewVersion(current)
	if err != nil {
		return fmt.Errorf("current version %q: %w", current, err)
	}

	if ok, errs := c.Validate(v); !ok {
		return errors.Join(errs...)
	}

	return nil
}

// CheckCompatibility checks every component of a snapshot against the state
// versions of the current machine. All problems are reported, ordered by
// component id.
func CheckCompatibility(saved Header, current map[naming.ID]string) error {
	ids := make([]naming.ID, 0, len(saved.Components)+len(current))
	seen := make(map[naming.ID]bool)

	for id := range saved.Components {
		ids = append(ids, id)
		seen[id] = true
	}

	for id := range current {
		if !seen[id] {
			ids = append(ids, id)
		}
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var errs []error
	for _, id := range ids {
		s, inSaved := saved.Components[id]
		c, inCurrent := current[id]

		switch {
		case !inCurrent:
			errs = append(errs, &VersionError{ID: id, Saved: s})
		case !inSaved:
			errs = append(errs, &VersionError{ID: id, Current: c})
		default:
			if err := Compatible(s, c); err != nil {
				errs = append(errs, &VersionError{
					ID: id, Saved: s, Current: c, Err: err,
				})
			}
		}
	}

	return errors.Join(errs...)
}
