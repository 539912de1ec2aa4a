package semver

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	mm "github.com/Masterminds/semver/v3"
)

// ErrWildcardMajor is returned when the first comparator of a requirement
// does not pin a major version, so no minimum can be derived from it.
var ErrWildcardMajor = errors.New("semver: first comparator has a wildcard major version")

// Comparator is a single operator/version pair of a requirement expression.
// Minor and Patch are nil when the expression omits them (or uses a wildcard).
type Comparator struct {
	Op    string
	Major uint64
	Minor *uint64
	Patch *uint64
}

// Version builds the minimum version described by c, defaulting omitted
// components to zero.
func (c Comparator) Version() Version {
	var minor, patch uint64
	if c.Minor != nil {
		minor = *c.Minor
	}
	if c.Patch != nil {
		patch = *c.Patch
	}
	return NewVersion(c.Major, minor, patch)
}

var comparatorPrefix = regexp.MustCompile(`^\s*(=|!=|>=|<=|=>|=<|>|<|~>|~|\^)?\s*v?([0-9]+|[xX*])(?:\.([0-9]+|[xX*]))?(?:\.([0-9]+|[xX*]))?`)

// FirstComparator validates expr as a version constraint and returns its
// first comparator.
//
// Examples:
// - "1.56"          -> {"", 1, 56, nil}
// - ">=1.40.2, <2"  -> {">=", 1, 40, 2}
// - "^1"            -> {"^", 1, nil, nil}
func FirstComparator(expr string) (Comparator, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return Comparator{}, fmt.Errorf("semver: parse constraint %q: empty expression", expr)
	}
	if _, err := mm.NewConstraint(trimmed); err != nil {
		return Comparator{}, fmt.Errorf("semver: parse constraint %q: %w", expr, err)
	}

	m := comparatorPrefix.FindStringSubmatch(trimmed)
	if m == nil {
		return Comparator{}, fmt.Errorf("semver: parse constraint %q: no comparator found", expr)
	}

	major, ok := component(m[2])
	if !ok {
		return Comparator{}, fmt.Errorf("semver: parse constraint %q: %w", expr, ErrWildcardMajor)
	}
	c := Comparator{Op: m[1], Major: *major}
	c.Minor, _ = component(m[3])
	if c.Minor != nil {
		c.Patch, _ = component(m[4])
	}
	return c, nil
}

func component(raw string) (*uint64, bool) {
	switch raw {
	case "", "x", "X", "*":
		return nil, false
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, false
	}
	return &n, true
}
