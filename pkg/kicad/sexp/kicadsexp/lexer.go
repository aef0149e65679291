package kicadsexp

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Lexer defines the lexical structure of KiCad S-expression files.
// Quoted strings and bare symbols are separate token types.
var Lexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[\s\t\n\r]+`},
	{Name: "LParen", Pattern: `\(`},
	{Name: "RParen", Pattern: `\)`},
	{Name: "String", Pattern: `"(?:[^"\\]|\\.)*"`},
	{Name: "Symbol", Pattern: `[^\s()"]+`},
})

// unquote strips the surrounding quotes of a String token and resolves
// KiCad escape sequences. Unknown escapes keep the escaped character.
func unquote(tok string) string {
	if len(tok) >= 2 && tok[0] == '"' && tok[len(tok)-1] == '"' {
		tok = tok[1 : len(tok)-1]
	}
	if !strings.ContainsRune(tok, '\\') {
		return tok
	}

	var b strings.Builder
	b.Grow(len(tok))
	for i := 0; i < len(tok); i++ {
		ch := tok[i]
		if ch != '\\' || i+1 >= len(tok) {
			b.WriteByte(ch)
			continue
		}
		i++
		switch tok[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		default:
			b.WriteByte(tok[i])
		}
	}
	return b.String()
}

// quote produces the escaped, quoted form of s.
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
