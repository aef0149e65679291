// Package kicadsexp provides a lossless S-expression tree for KiCad files.
//
// Unlike general-purpose sexp libraries, quoted strings and bare symbols are
// kept as distinct atom types so that a parsed document can be written back
// without changing its meaning. Lists are mutable in place, which is what the
// document merge engine relies on.
package kicadsexp

import (
	"strconv"
	"strings"
)

// Sexp represents an S-expression node.
// It can be either a leaf (atom) or a list.
type Sexp interface {
	// IsLeaf returns true if this is an atom (not a list)
	IsLeaf() bool

	// LeafCount returns the number of elements in a list (1 for atoms)
	LeafCount() int

	// Head returns the first element of a list (the atom itself for atoms)
	Head() Sexp

	// String returns the value of an atom, or the compact form of a list
	String() string
}

// Symbol is a bare atom: keywords, numbers, yes/no flags.
type Symbol string

func (s Symbol) IsLeaf() bool { return true }
func (s Symbol) LeafCount() int { return 1 }
func (s Symbol) Head() Sexp { return s }
func (s Symbol) String() string { return string(s) }

// String is a quoted atom. The value is stored unescaped.
type String string

func (s String) IsLeaf() bool { return true }
func (s String) LeafCount() int { return 1 }
func (s String) Head() Sexp { return s }
func (s String) String() string { return string(s) }

// List is a parenthesised sequence of S-expressions.
type List struct {
	items []Sexp
}

// NewList builds a list from the given items.
func NewList(items ...Sexp) *List {
	l := &List{items: make([]Sexp, 0, len(items))}
	for _, it := range items {
		if it != nil {
			l.items = append(l.items, it)
		}
	}
	return l
}

// Node builds a list whose head is the bare symbol key.
// Example: Node("at", Num(10), Num(20)) is (at 10 20).
func Node(key string, items ...Sexp) *List {
	return NewList(append([]Sexp{Symbol(key)}, items...)...)
}

// Num formats a float the way KiCad writes coordinates (no trailing zeros).
func Num(f float64) Symbol {
	return Symbol(strconv.FormatFloat(f, 'f', -1, 64))
}

// Int formats an integer atom.
func Int(i int) Symbol {
	return Symbol(strconv.Itoa(i))
}

// Bool formats a KiCad yes/no flag.
func Bool(b bool) Symbol {
	if b {
		return Symbol("yes")
	}
	return Symbol("no")
}

func (l *List) IsLeaf() bool { return false }
func (l *List) LeafCount() int { return len(l.items) }

func (l *List) Head() Sexp {
	if len(l.items) == 0 {
		return nil
	}
	return l.items[0]
}

// Key returns the head symbol of the list, or "" when the head is not a bare symbol.
func (l *List) Key() string {
	if len(l.items) == 0 {
		return ""
	}
	if sym, ok := l.items[0].(Symbol); ok {
		return string(sym)
	}
	return ""
}

func (l *List) String() string {
	var b strings.Builder
	writeCompact(&b, l)
	return b.String()
}

// Items returns the list elements. The slice must not be modified.
func (l *List) Items() []Sexp {
	return l.items
}

// Get returns the element at the given index
func (l *List) Get(index int) Sexp {
	if index < 0 || index >= len(l.items) {
		return nil
	}
	return l.items[index]
}

// Len returns the number of elements in the list
func (l *List) Len() int {
	return len(l.items)
}

// Append adds items at the end of the list.
func (l *List) Append(items ...Sexp) {
	l.items = append(l.items, items...)
}

// Insert places item at index, shifting later elements right.
// An index past the end appends.
func (l *List) Insert(index int, item Sexp) {
	if index >= len(l.items) {
		l.items = append(l.items, item)
		return
	}
	if index < 0 {
		index = 0
	}
	l.items = append(l.items, nil)
	copy(l.items[index+1:], l.items[index:])
	l.items[index] = item
}

// Set replaces the element at index. Out of range indexes are ignored.
func (l *List) Set(index int, item Sexp) {
	if index < 0 || index >= len(l.items) {
		return
	}
	l.items[index] = item
}

// Remove deletes the element at index.
func (l *List) Remove(index int) {
	if index < 0 || index >= len(l.items) {
		return
	}
	l.items = append(l.items[:index], l.items[index+1:]...)
}

// Filter keeps only the elements for which keep returns true.
func (l *List) Filter(keep func(Sexp) bool) {
	out := l.items[:0]
	for _, it := range l.items {
		if keep(it) {
			out = append(out, it)
		}
	}
	for i := len(out); i < len(l.items); i++ {
		l.items[i] = nil
	}
	l.items = out
}

// Clone returns a deep copy of the list.
func (l *List) Clone() *List {
	c := &List{items: make([]Sexp, len(l.items))}
	for i, it := range l.items {
		if sub, ok := it.(*List); ok {
			c.items[i] = sub.Clone()
			continue
		}
		c.items[i] = it
	}
	return c
}
