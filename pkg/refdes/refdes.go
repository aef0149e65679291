// Package refdes allocates reference designators (R1, U3, #PWR2).
//
// An Allocator is plain state owned by one build. There is no package-level
// instance; every build or test constructs its own with New.
package refdes

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrMalformed is returned when an explicit designator has no alphabetic
// prefix or no trailing number, or when a prefix is not alphabetic.
var ErrMalformed = errors.New("refdes: malformed designator")

var (
	designatorRe = regexp.MustCompile(`^(#?[A-Za-z]+)([0-9]+)$`)
	prefixRe     = regexp.MustCompile(`^#?[A-Za-z]+$`)
)

// Allocator hands out unique designators per prefix.
type Allocator struct {
	counters map[string]int
	issued   map[string]bool
}

// New creates an empty allocator.
func New() *Allocator {
	return &Allocator{
		counters: make(map[string]int),
		issued:   make(map[string]bool),
	}
}

// Allocate returns prefix followed by the smallest number above the prefix
// counter whose designator has not been issued yet, and records it. The
// prefix must be letters with an optional leading '#', so that every
// allocated designator would also pass Reserve.
func (a *Allocator) Allocate(prefix string) (string, error) {
	if !prefixRe.MatchString(prefix) {
		return "", fmt.Errorf("%w: prefix %q", ErrMalformed, prefix)
	}
	key := strings.ToLower(prefix)
	n := a.counters[key]
	var ref string
	for {
		n++
		ref = prefix + strconv.Itoa(n)
		if !a.issued[strings.ToLower(ref)] {
			break
		}
	}
	a.counters[key] = n
	a.issued[strings.ToLower(ref)] = true
	return ref, nil
}

// Reserve registers an explicitly chosen designator. It returns false when
// the designator was already issued. On success the prefix counter is raised
// to at least the designator's number, so later Allocate calls skip it.
func (a *Allocator) Reserve(designator string) (bool, error) {
	prefix, n, err := Split(designator)
	if err != nil {
		return false, err
	}
	norm := strings.ToLower(designator)
	if a.issued[norm] {
		return false, nil
	}
	a.issued[norm] = true

	key := strings.ToLower(prefix)
	if n > a.counters[key] {
		a.counters[key] = n
	}
	return true, nil
}

// Issued reports whether designator has been allocated or reserved.
func (a *Allocator) Issued(designator string) bool {
	return a.issued[strings.ToLower(designator)]
}

// Split parses a designator into its prefix and number.
func Split(designator string) (string, int, error) {
	m := designatorRe.FindStringSubmatch(designator)
	if m == nil {
		return "", 0, fmt.Errorf("%w: %q", ErrMalformed, designator)
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, fmt.Errorf("%w: %q: %v", ErrMalformed, designator, err)
	}
	return m[1], n, nil
}
