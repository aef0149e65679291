package kicadsexp

import (
	"bufio"
	"io"
	"strings"
)

// Write serializes node in KiCad's layout: lists made only of atoms stay on
// one line, every nested list starts on its own tab-indented line and the
// closing parenthesis of a multi-line list sits on its own line.
// The output is a fixed point: parsing it and writing again yields the same bytes.
func Write(w io.Writer, node Sexp) error {
	bw := bufio.NewWriter(w)
	writeIndented(bw, node, 0)
	bw.WriteByte('\n')
	return bw.Flush()
}

// Format returns the serialized form of node.
func Format(node Sexp) string {
	var b strings.Builder
	writeIndented(&b, node, 0)
	b.WriteByte('\n')
	return b.String()
}

type byteWriter interface {
	io.Writer
	io.ByteWriter
	io.StringWriter
}

func writeAtom(w byteWriter, s Sexp) {
	switch v := s.(type) {
	case String:
		w.WriteString(quote(string(v)))
	case Symbol:
		w.WriteString(string(v))
	}
}

func hasSubList(l *List) bool {
	for _, it := range l.items {
		if !it.IsLeaf() {
			return true
		}
	}
	return false
}

func writeIndented(w byteWriter, s Sexp, depth int) {
	l, ok := s.(*List)
	if !ok {
		writeAtom(w, s)
		return
	}
	if !hasSubList(l) {
		writeCompact(w, l)
		return
	}

	w.WriteByte('(')
	inHead := true
	for i, it := range l.items {
		if inHead && it.IsLeaf() {
			if i > 0 {
				w.WriteByte(' ')
			}
			writeAtom(w, it)
			continue
		}
		inHead = false
		w.WriteByte('\n')
		w.WriteString(strings.Repeat("\t", depth+1))
		writeIndented(w, it, depth+1)
	}
	w.WriteByte('\n')
	w.WriteString(strings.Repeat("\t", depth))
	w.WriteByte(')')
}

func writeCompact(w byteWriter, s Sexp) {
	l, ok := s.(*List)
	if !ok {
		writeAtom(w, s)
		return
	}
	w.WriteByte('(')
	for i, it := range l.items {
		if i > 0 {
			w.WriteByte(' ')
		}
		writeCompact(w, it)
	}
	w.WriteByte(')')
}
