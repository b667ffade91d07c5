package interpolate

import (
	"fmt"
	"sort"
	"strings"
)

// UndefinedVariableError lists references that had neither a context value
// nor an inline default while strict mode was enabled.
type UndefinedVariableError struct {
	Names []string
}

func (e *UndefinedVariableError) Error() string {
	parts := make([]string, len(e.Names))
	for i, name := range e.Names {
		parts[i] = "$" + name
	}
	return fmt.Sprintf("strict mode enabled, variables %s are not defined", strings.Join(parts, ", "))
}

// Replacement maps a matched span to the text that replaced it.
type Replacement struct {
	Span  string
	Value string
}

// Result is the outcome of Resolve.
type Result struct {
	// Text is the input with every resolvable reference substituted.
	Text string
	// Defaults lists variables that fell back to their inline default.
	Defaults []string
	// Missing lists variables left unresolved. It is only non-empty when
	// Resolve ran in non-strict mode.
	Missing []string
	// Replacements holds every substituted span, longest match first.
	Replacements []Replacement
}

// Resolve substitutes the references found in text using ctx.
//
// Full-line comments are stripped first. A reference resolves to its
// context value, then to its inline default; otherwise its name is recorded
// as missing and the span is kept verbatim. With strict set, any missing
// name makes Resolve fail with *UndefinedVariableError. "$$" always becomes
// "$" and "$<digits>" is always kept as typed.
func Resolve(text string, ctx map[string]string, strict bool) (*Result, error) {
	if !strings.Contains(text, "$") {
		return &Result{Text: text}, nil
	}

	tokens := Tokenize(StripComments(text))

	values := make([]string, len(tokens))
	resolved := make([]bool, len(tokens))
	replacements := make(map[string]string)
	defaults := make(map[string]struct{})
	missing := make(map[string]struct{})

	for i, tok := range tokens {
		if !tok.IsVariable() {
			continue
		}

		switch value, ok := ctx[tok.Name]; {
		case ok:
			values[i] = value
		case tok.HasDefault:
			values[i] = tok.Default
			defaults[tok.Name] = struct{}{}
		default:
			missing[tok.Name] = struct{}{}
			continue
		}

		resolved[i] = true
		replacements[tok.Raw] = values[i]
	}

	if strict && len(missing) > 0 {
		return nil, &UndefinedVariableError{Names: sortedKeys(missing)}
	}

	var b strings.Builder
	b.Grow(len(text))
	for i, tok := range tokens {
		if resolved[i] {
			b.WriteString(values[i])
			continue
		}
		b.WriteString(tok.Text())
	}

	return &Result{
		Text:         b.String(),
		Defaults:     sortedKeys(defaults),
		Missing:      sortedKeys(missing),
		Replacements: orderReplacements(replacements),
	}, nil
}

// StripComments drops every line that starts with '#'.
func StripComments(text string) string {
	if !strings.Contains(text, "#") {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, line := range strings.SplitAfter(text, "\n") {
		if strings.HasPrefix(line, "#") {
			continue
		}
		b.WriteString(line)
	}
	return b.String()
}

// orderReplacements sorts spans in descending lexicographic order, so a
// span always comes before any shorter span that is its prefix ("$XY" before
// "$X", "${X|d}" before "$X").
func orderReplacements(table map[string]string) []Replacement {
	if len(table) == 0 {
		return nil
	}

	spans := make([]string, 0, len(table))
	for span := range table {
		spans = append(spans, span)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(spans)))

	out := make([]Replacement, len(spans))
	for i, span := range spans {
		out[i] = Replacement{Span: span, Value: table[span]}
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
