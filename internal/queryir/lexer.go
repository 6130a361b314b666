package queryir

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokParam
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of query"
	case tokString:
		return fmt.Sprintf("'%s'", t.text)
	case tokParam:
		return "?" + t.text
	default:
		return fmt.Sprintf("%q", t.text)
	}
}

// is reports whether t is the keyword or punctuation kw (keywords match
// case-insensitively).
func (t token) is(kw string) bool {
	switch t.kind {
	case tokIdent:
		return strings.EqualFold(t.text, kw)
	case tokPunct:
		return t.text == kw
	default:
		return false
	}
}

// SyntaxError reports a malformed query with the byte offset of the problem.
type SyntaxError struct {
	Offset  int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Offset, e.Message)
}

// lex splits a query into tokens.
func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		r, size := utf8.DecodeRuneInString(src[i:])
		switch {
		case unicode.IsSpace(r):
			i += size

		case r == '_' || unicode.IsLetter(r):
			start := i
			for i < len(src) {
				r, size = utf8.DecodeRuneInString(src[i:])
				if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
					break
				}
				i += size
			}
			toks = append(toks, token{kind: tokIdent, text: src[start:i], pos: start})

		case r >= '0' && r <= '9' || r == '-' && i+1 < len(src) && src[i+1] >= '0' && src[i+1] <= '9':
			start := i
			i++
			for i < len(src) && src[i] >= '0' && src[i] <= '9' {
				i++
			}
			if i < len(src) && src[i] == '.' && i+1 < len(src) && src[i+1] >= '0' && src[i+1] <= '9' {
				return nil, &SyntaxError{Offset: start, Message: "floating point literals are not supported"}
			}
			toks = append(toks, token{kind: tokNumber, text: src[start:i], pos: start})

		case r == '\'':
			start := i
			i++
			var sb strings.Builder
			closed := false
			for i < len(src) {
				if src[i] == '\'' {
					// '' escapes a quote
					if i+1 < len(src) && src[i+1] == '\'' {
						sb.WriteByte('\'')
						i += 2
						continue
					}
					i++
					closed = true
					break
				}
				sb.WriteByte(src[i])
				i++
			}
			if !closed {
				return nil, &SyntaxError{Offset: start, Message: "unterminated string literal"}
			}
			toks = append(toks, token{kind: tokString, text: sb.String(), pos: start})

		case r == '?':
			start := i
			i++
			digits := i
			for i < len(src) && src[i] >= '0' && src[i] <= '9' {
				i++
			}
			if i == digits {
				return nil, &SyntaxError{Offset: start, Message: "positional parameter requires an index (?1, ?2, ...)"}
			}
			toks = append(toks, token{kind: tokParam, text: src[digits:i], pos: start})

		case strings.ContainsRune("(),.", r):
			toks = append(toks, token{kind: tokPunct, text: string(r), pos: i})
			i++

		case strings.ContainsRune("=<>!", r):
			start := i
			op := string(r)
			i++
			if i < len(src) && (src[i] == '=' || r == '<' && src[i] == '>') {
				op += string(src[i])
				i++
			}
			if op == "!" {
				return nil, &SyntaxError{Offset: start, Message: "unexpected '!'"}
			}
			toks = append(toks, token{kind: tokPunct, text: op, pos: start})

		default:
			return nil, &SyntaxError{Offset: i, Message: fmt.Sprintf("unexpected character %q", r)}
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(src)})
	return toks, nil
}
