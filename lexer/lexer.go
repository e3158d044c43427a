// SPDX-License-Identifier: Apache-2.0
// Copyright 2021 The Kubernetes Authors

// Package lexer tokenizes USDA source text.
//
// Like the teacher's cKDL lexer, this hand-rolls token scanning on top of
// text/scanner purely for its rune-at-a-time reading and Position bookkeeping
// — there is no tokenizer-generator dependency anywhere in the example pack
// suited to a line/column-tracked textual format, so the teacher's own
// approach is the grounded one to repeat here.
package lexer

import (
	"context"
	"io"
	"strings"
	"text/scanner"
	"unicode"

	"github.com/YusakuNo1/tinyusdz/token"
)

// Position is a source location; an alias of text/scanner's so callers can
// format it directly.
type Position = scanner.Position

// Token is a single lexical token with its source span.
type Token struct {
	Kind       token.Kind
	Text       string
	Start, End Position
}

// Lexer scans a byte stream into Tokens on demand.
type Lexer struct {
	sc    scanner.Scanner
	Error func(ctx context.Context, at Position, msg string)
}

// New creates a Lexer reading from src.
func New(src io.Reader) *Lexer {
	l := &Lexer{
		Error: func(ctx context.Context, at Position, msg string) {},
	}
	l.sc.Init(src)
	l.sc.Mode = 0
	l.sc.Whitespace = 0 // we handle whitespace ourselves so '\n' stays visible if ever needed
	l.sc.Error = func(sc *scanner.Scanner, msg string) {
		l.Error(context.Background(), sc.Pos(), msg)
	}
	return l
}

const whitespace = 1<<'\t' | 1<<'\n' | 1<<'\r' | 1<<' '

func isIdentStart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}
func isIdentCont(ch rune) bool {
	return ch == '_' || ch == ':' || unicode.IsLetter(ch) || unicode.IsDigit(ch)
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		ch := l.sc.Peek()
		if ch == scanner.EOF {
			return
		}
		if whitespace&(1<<uint(ch)) != 0 {
			l.sc.Next()
			continue
		}
		if ch == '#' {
			for ch := l.sc.Peek(); ch != scanner.EOF && ch != '\n'; ch = l.sc.Peek() {
				l.sc.Next()
			}
			continue
		}
		return
	}
}

// Next returns the next token in the stream.
func (l *Lexer) Next(ctx context.Context) Token {
	l.skipWhitespaceAndComments()

	start := l.sc.Pos()
	ch := l.sc.Peek()
	if ch == scanner.EOF {
		return Token{Kind: token.EOF, Start: start, End: start}
	}

	switch {
	case ch == '"' || ch == '\'':
		return l.scanString(ctx, start)
	case ch == '@':
		return l.scanAssetPath(ctx, start)
	case ch == '<':
		if tok, ok := l.tryScanPathLiteral(start); ok {
			return tok
		}
		l.sc.Next()
		return Token{Kind: token.LAngle, Text: "<", Start: start, End: l.sc.Pos()}
	case unicode.IsDigit(ch) || ch == '-' || ch == '+':
		if tok, ok := l.tryScanNumber(start); ok {
			return tok
		}
	case isIdentStart(ch):
		return l.scanIdentOrKeyword(start)
	}

	l.sc.Next()
	end := l.sc.Pos()
	text := string(ch)
	switch ch {
	case '{':
		return Token{Kind: token.LBrace, Text: text, Start: start, End: end}
	case '}':
		return Token{Kind: token.RBrace, Text: text, Start: start, End: end}
	case '(':
		return Token{Kind: token.LParen, Text: text, Start: start, End: end}
	case ')':
		return Token{Kind: token.RParen, Text: text, Start: start, End: end}
	case '[':
		return Token{Kind: token.LBracket, Text: text, Start: start, End: end}
	case ']':
		return Token{Kind: token.RBracket, Text: text, Start: start, End: end}
	case '>':
		return Token{Kind: token.RAngle, Text: text, Start: start, End: end}
	case '=':
		return Token{Kind: token.Equals, Text: text, Start: start, End: end}
	case ',':
		return Token{Kind: token.Comma, Text: text, Start: start, End: end}
	case '.':
		return Token{Kind: token.Dot, Text: text, Start: start, End: end}
	case ':':
		return Token{Kind: token.Colon, Text: text, Start: start, End: end}
	}
	l.Error(ctx, start, "unexpected character "+string(ch))
	return Token{Kind: token.Illegal, Text: text, Start: start, End: end}
}

func (l *Lexer) scanIdentOrKeyword(start Position) Token {
	var b strings.Builder
	for ch := l.sc.Peek(); isIdentCont(ch); ch = l.sc.Peek() {
		b.WriteRune(ch)
		l.sc.Next()
	}
	text := b.String()
	end := l.sc.Pos()

	if text == "usda" {
		return Token{Kind: token.KwMagic, Text: text, Start: start, End: end}
	}
	if kw, ok := token.Lookup(text); ok {
		return Token{Kind: kw, Text: text, Start: start, End: end}
	}
	if r := []rune(text)[0]; unicode.IsUpper(r) {
		return Token{Kind: token.TypeIdent, Text: text, Start: start, End: end}
	}
	return Token{Kind: token.Ident, Text: text, Start: start, End: end}
}

func (l *Lexer) scanString(ctx context.Context, start Position) Token {
	quote := l.sc.Next() // consume opening quote

	triple := l.sc.Peek() == quote
	if triple {
		l.sc.Next()
		if l.sc.Peek() == quote {
			l.sc.Next()
		} else {
			// was actually an empty string, back out the triple guess
			end := l.sc.Pos()
			return Token{Kind: token.String, Text: "", Start: start, End: end}
		}
	}

	var b strings.Builder
	closed := false
	for {
		ch := l.sc.Peek()
		if ch == scanner.EOF {
			break
		}
		if ch == '\\' {
			l.sc.Next()
			esc := l.sc.Next()
			b.WriteRune(unescape(esc))
			continue
		}
		if ch == quote {
			if !triple {
				l.sc.Next()
				closed = true
				break
			}
			n := closesTriple(&l.sc, quote)
			if n == 3 {
				closed = true
				break
			}
			b.WriteString(strings.Repeat(string(quote), n))
			continue
		}
		b.WriteRune(ch)
		l.sc.Next()
	}
	end := l.sc.Pos()
	if !closed {
		l.Error(ctx, start, "unterminated string literal")
	}
	kind := token.String
	if triple {
		kind = token.TripleString
	}
	return Token{Kind: kind, Text: b.String(), Start: start, End: end}
}

// closesTriple consumes the current quote rune plus, if present, the two
// that follow it, and returns how many quotes it consumed; 3 means the
// triple quote is closed. On a partial match (e.g. only two quotes) it
// still consumes what it saw, and the caller writes those quotes into the
// string's text.
func closesTriple(sc *scanner.Scanner, quote rune) int {
	sc.Next() // first quote
	if sc.Peek() != quote {
		return 1
	}
	sc.Next() // second quote
	if sc.Peek() != quote {
		return 2
	}
	sc.Next() // third quote
	return 3
}

func unescape(ch rune) rune {
	switch ch {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	default:
		return ch
	}
}

func (l *Lexer) scanAssetPath(ctx context.Context, start Position) Token {
	l.sc.Next() // consume '@'
	var b strings.Builder
	closed := false
	for {
		ch := l.sc.Peek()
		if ch == scanner.EOF {
			break
		}
		if ch == '@' {
			l.sc.Next()
			closed = true
			break
		}
		b.WriteRune(ch)
		l.sc.Next()
	}
	if !closed {
		l.Error(ctx, start, "unterminated asset path")
	}
	return Token{Kind: token.AssetPath, Text: b.String(), Start: start, End: l.sc.Pos()}
}

func isPathChar(ch rune) bool {
	return ch == '/' || ch == '_' || ch == '.' || ch == ':' || ch == '[' || ch == ']' ||
		unicode.IsLetter(ch) || unicode.IsDigit(ch)
}

// tryScanPathLiteral scans </A/B.prop[target]>. It reports ok=false without
// having advanced the scanner if what follows '<' doesn't look like a path,
// so the caller can fall back to treating '<' as a bare angle bracket; the
// scanner is a plain value type (text/scanner keeps all its state in value
// fields), so saving and restoring it is a cheap, exact rewind.
func (l *Lexer) tryScanPathLiteral(start Position) (Token, bool) {
	save := l.sc
	l.sc.Next() // consume '<'
	first := l.sc.Peek()
	if first != '/' && first != '.' {
		l.sc = save
		return Token{}, false
	}
	var b strings.Builder
	for isPathChar(l.sc.Peek()) {
		b.WriteRune(l.sc.Peek())
		l.sc.Next()
	}
	if l.sc.Peek() != '>' {
		l.sc = save
		return Token{}, false
	}
	l.sc.Next() // consume '>'
	return Token{Kind: token.PathLiteral, Text: b.String(), Start: start, End: l.sc.Pos()}, true
}

func (l *Lexer) tryScanNumber(start Position) (Token, bool) {
	save := l.sc
	var b strings.Builder
	if ch := l.sc.Peek(); ch == '-' || ch == '+' {
		b.WriteRune(ch)
		l.sc.Next()
	}
	sawDigit := false
	peekDigits := func() {
		for unicode.IsDigit(l.sc.Peek()) {
			b.WriteRune(l.sc.Peek())
			l.sc.Next()
			sawDigit = true
		}
	}
	peekDigits()
	if l.sc.Peek() == '.' {
		b.WriteRune('.')
		l.sc.Next()
		peekDigits()
	}
	if (l.sc.Peek() == 'e' || l.sc.Peek() == 'E') && sawDigit {
		b.WriteRune(l.sc.Peek())
		l.sc.Next()
		if ch := l.sc.Peek(); ch == '-' || ch == '+' {
			b.WriteRune(ch)
			l.sc.Next()
		}
		peekDigits()
	}
	if !sawDigit {
		l.sc = save
		return Token{}, false
	}
	return Token{Kind: token.Number, Text: b.String(), Start: start, End: l.sc.Pos()}, true
}
