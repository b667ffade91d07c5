package envyaml

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Format fills the "{name}" placeholders of the string stored at path with
// args. "{{" and "}}" produce literal braces. A placeholder may carry a
// width spec, "{name:[[fill]align]width}" with align one of '<', '>' or
// '^'; numbers align right and everything else left by default.
// Positional placeholders ("{}", "{0}"), conversions ("{name!r}") and other
// specs are rejected. Every failure is a *FormatError: absent key,
// non-string value, unknown or malformed placeholder.
func (c *Config) Format(path string, args map[string]any) (string, error) {
	v, err := c.Lookup(path)
	if err != nil {
		return "", &FormatError{Key: path, Reason: "lookup failed", Err: err}
	}
	tmpl, ok := v.(string)
	if !ok {
		return "", &FormatError{Key: path, Reason: fmt.Sprintf("value is %T, not a string", v)}
	}

	out, reason := expandPlaceholders(tmpl, args)
	if reason != "" {
		return "", &FormatError{Key: path, Reason: reason}
	}
	return out, nil
}

func expandPlaceholders(tmpl string, args map[string]any) (string, string) {
	var b strings.Builder
	b.Grow(len(tmpl))

	for i := 0; i < len(tmpl); i++ {
		ch := tmpl[i]
		switch ch {
		case '{':
			if i+1 < len(tmpl) && tmpl[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return "", "unclosed placeholder"
			}
			text, reason := expandField(tmpl[i+1:i+1+end], args)
			if reason != "" {
				return "", reason
			}
			b.WriteString(text)
			i += end + 1

		case '}':
			if i+1 < len(tmpl) && tmpl[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return "", "single '}' in template"

		default:
			b.WriteByte(ch)
		}
	}
	return b.String(), ""
}

// expandField renders one placeholder body, the text between the braces.
func expandField(field string, args map[string]any) (string, string) {
	name, spec, hasSpec := strings.Cut(field, ":")
	if name == "" || isDigits(name) {
		return "", fmt.Sprintf("positional placeholder {%s} is not supported, name it", field)
	}
	if before, conv, ok := strings.Cut(name, "!"); ok {
		return "", fmt.Sprintf("conversion !%s in {%s} is not supported", conv, before)
	}

	value, ok := args[name]
	if !ok {
		return "", fmt.Sprintf("placeholder {%s} is not set", name)
	}
	text := fmt.Sprint(value)
	if !hasSpec || spec == "" {
		return text, ""
	}

	fill, align, width, ok := parseWidthSpec(spec)
	if !ok {
		return "", fmt.Sprintf("format spec %q in {%s} is not supported", spec, name)
	}
	if align == 0 {
		align = '<'
		if isNumber(value) {
			align = '>'
		}
	}
	return pad(text, fill, align, width), ""
}

// parseWidthSpec accepts "[[fill]align]width" where width may be omitted.
// Zero padding ("05") is not a width.
func parseWidthSpec(spec string) (fill rune, align rune, width int, ok bool) {
	fill = ' '
	rest := spec
	first, size := utf8.DecodeRuneInString(spec)
	if second, size2 := utf8.DecodeRuneInString(spec[size:]); isAlign(second) {
		fill, align = first, second
		rest = spec[size+size2:]
	} else if isAlign(first) {
		align = first
		rest = spec[size:]
	}

	if rest == "" {
		return fill, align, 0, true
	}
	if !isDigits(rest) || rest[0] == '0' {
		return 0, 0, 0, false
	}
	width, err := strconv.Atoi(rest)
	if err != nil {
		return 0, 0, 0, false
	}
	return fill, align, width, true
}

func pad(text string, fill, align rune, width int) string {
	missing := width - utf8.RuneCountInString(text)
	if missing <= 0 {
		return text
	}
	switch align {
	case '>':
		return strings.Repeat(string(fill), missing) + text
	case '^':
		left := missing / 2
		return strings.Repeat(string(fill), left) + text + strings.Repeat(string(fill), missing-left)
	default:
		return text + strings.Repeat(string(fill), missing)
	}
}

func isAlign(r rune) bool {
	return r == '<' || r == '>' || r == '^'
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}
