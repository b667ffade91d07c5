package interpolate

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind tags a Token produced by Tokenize.
type Kind int

const (
	// Literal is plain text copied to the output unchanged.
	Literal Kind = iota
	// Escaped is "$$", rendered as a single "$".
	Escaped
	// Positional is "$" followed by digits ("$1"). It is never a variable
	// and is rendered verbatim so SQL placeholders survive.
	Positional
	// Braced is "${NAME}" or "${NAME|default}".
	Braced
	// Bare is "$NAME" or "$NAME|default".
	Bare
)

func (k Kind) String() string {
	switch k {
	case Literal:
		return "literal"
	case Escaped:
		return "escaped"
	case Positional:
		return "positional"
	case Braced:
		return "braced"
	case Bare:
		return "bare"
	default:
		return "unknown"
	}
}

// Token is one span of scanned text.
type Token struct {
	Kind Kind
	// Raw is the exact source span, delimiters included.
	Raw string
	// Offset is the byte offset of Raw in the scanned text.
	Offset int
	// Name and Default are set for Braced and Bare tokens.
	Name       string
	Default    string
	HasDefault bool
	// Quote is the quote character directly before the '$', or 0.
	Quote byte
}

// IsVariable reports whether the token must be looked up in a context.
func (t Token) IsVariable() bool {
	return t.Kind == Braced || t.Kind == Bare
}

// Text returns the output of the token when it is not substituted.
func (t Token) Text() string {
	if t.Kind == Escaped {
		return "$"
	}
	return t.Raw
}

// Tokenize splits text into literal runs and '$' references. The scanner
// tries, in order: "$$" and "$<digits>", then "${...}", then a bare name.
// A '$' that starts none of them stays part of the surrounding literal.
func Tokenize(text string) []Token {
	var tokens []Token
	litStart := 0

	flush := func(end int) {
		if end > litStart {
			tokens = append(tokens, Token{Kind: Literal, Raw: text[litStart:end], Offset: litStart})
		}
	}

	for i := 0; i < len(text); {
		if text[i] != '$' {
			i++
			continue
		}

		tok, ok := scanReference(text, i)
		if !ok {
			i++
			continue
		}

		flush(i)
		tokens = append(tokens, tok)
		i += len(tok.Raw)
		litStart = i
	}
	flush(len(text))

	return tokens
}

// scanReference scans the reference starting at text[start] == '$'.
func scanReference(text string, start int) (Token, bool) {
	tok := Token{Offset: start}
	if start > 0 && isQuote(text[start-1]) {
		tok.Quote = text[start-1]
	}

	rest := text[start+1:]
	if rest == "" {
		return tok, false
	}

	switch {
	case rest[0] == '$':
		tok.Kind = Escaped
		tok.Raw = "$$"
		return tok, true

	case isDigit(rest[0]):
		n := 1
		for n < len(rest) && isDigit(rest[n]) {
			n++
		}
		tok.Kind = Positional
		tok.Raw = text[start : start+1+n]
		return tok, true

	case rest[0] == '{':
		return scanBraced(text, start, tok)

	default:
		return scanBare(text, start, tok)
	}
}

// scanBraced handles "${NAME}" and "${NAME|default}". The closing brace must
// be on the same line; the name ends at the first '|'.
func scanBraced(text string, start int, tok Token) (Token, bool) {
	body := text[start+2:]
	end := strings.IndexAny(body, "}\n")
	if end < 0 || body[end] != '}' {
		return tok, false
	}

	inner := body[:end]
	name, def, hasDefault := strings.Cut(inner, "|")
	if name == "" || allDigits(name) {
		// Swallow the whole span as literal text so that the braces are
		// not rescanned as a bare reference.
		tok.Kind = Literal
		tok.Raw = text[start : start+2+end+1]
		return tok, true
	}

	tok.Kind = Braced
	tok.Raw = text[start : start+2+end+1]
	tok.Name = name
	tok.Default = def
	tok.HasDefault = hasDefault
	return tok, true
}

// scanBare handles "$NAME" and "$NAME|default". An inline default runs to
// the end of the line, or to the closing quote when the reference was opened
// by a quote.
func scanBare(text string, start int, tok Token) (Token, bool) {
	pos := start + 1
	for pos < len(text) {
		r, size := utf8.DecodeRuneInString(text[pos:])
		if !isNameRune(r) {
			break
		}
		pos += size
	}
	if pos == start+1 {
		return tok, false
	}

	tok.Kind = Bare
	tok.Name = text[start+1 : pos]

	if pos < len(text) && text[pos] == '|' {
		defStart := pos + 1
		defEnd := lineEnd(text, defStart)
		if tok.Quote != 0 {
			if q := strings.IndexByte(text[defStart:defEnd], tok.Quote); q >= 0 {
				defEnd = defStart + q
			}
		}
		tok.Default = text[defStart:defEnd]
		tok.HasDefault = true
		pos = defEnd
	}

	tok.Raw = text[start:pos]
	return tok, true
}

// lineEnd returns the index of the line terminator at or after from,
// excluding a trailing '\r'.
func lineEnd(text string, from int) int {
	end := len(text)
	if nl := strings.IndexByte(text[from:], '\n'); nl >= 0 {
		end = from + nl
	}
	if end > from && text[end-1] == '\r' {
		end--
	}
	return end
}

func isNameRune(r rune) bool {
	return r == '_' || r == '-' || r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isQuote(b byte) bool {
	return b == '"' || b == '\''
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}
