package kicadsexp

import (
	"fmt"
	"io"
	"sync"

	"github.com/alecthomas/participle/v2"
)

// grammar types

type document struct {
	Nodes []*node `parser:"@@*"`
}

type node struct {
	List *list   `parser:"  @@"`
	Str  *string `parser:"| @String"`
	Sym  *string `parser:"| @Symbol"`
}

type list struct {
	Open  bool    `parser:"@\"(\""`
	Items []*node `parser:"@@* \")\""`
}

var (
	buildOnce sync.Once
	built     *participle.Parser[document]
	buildErr  error
)

func grammar() (*participle.Parser[document], error) {
	buildOnce.Do(func() {
		built, buildErr = participle.Build[document](
			participle.Lexer(Lexer),
			participle.Elide("Whitespace"),
		)
		if buildErr != nil {
			buildErr = fmt.Errorf("kicadsexp: failed to build parser: %w", buildErr)
		}
	})
	return built, buildErr
}

// Parse parses all top-level S-expressions from an io.Reader.
func Parse(r io.Reader) ([]Sexp, error) {
	p, err := grammar()
	if err != nil {
		return nil, err
	}
	doc, err := p.Parse("", r)
	if err != nil {
		return nil, fmt.Errorf("kicadsexp: parse error: %w", err)
	}
	return doc.convert(), nil
}

// ParseString parses S-expressions from a string (convenience function)
func ParseString(s string) ([]Sexp, error) {
	p, err := grammar()
	if err != nil {
		return nil, err
	}
	doc, err := p.ParseString("", s)
	if err != nil {
		return nil, fmt.Errorf("kicadsexp: parse error: %w", err)
	}
	return doc.convert(), nil
}

// ParseRoot parses input that must hold exactly one list, and returns it.
func ParseRoot(r io.Reader) (*List, error) {
	sexps, err := Parse(r)
	if err != nil {
		return nil, err
	}
	if len(sexps) == 0 {
		return nil, fmt.Errorf("kicadsexp: empty input")
	}
	root, ok := sexps[0].(*List)
	if !ok {
		return nil, fmt.Errorf("kicadsexp: root is an atom, expected list")
	}
	if len(sexps) > 1 {
		return nil, fmt.Errorf("kicadsexp: %d trailing expressions after root", len(sexps)-1)
	}
	return root, nil
}

func (d *document) convert() []Sexp {
	result := make([]Sexp, 0, len(d.Nodes))
	for _, n := range d.Nodes {
		result = append(result, n.convert())
	}
	return result
}

func (n *node) convert() Sexp {
	switch {
	case n.List != nil:
		l := &List{items: make([]Sexp, 0, len(n.List.Items))}
		for _, it := range n.List.Items {
			l.items = append(l.items, it.convert())
		}
		return l
	case n.Str != nil:
		return String(unquote(*n.Str))
	default:
		return Symbol(*n.Sym)
	}
}
