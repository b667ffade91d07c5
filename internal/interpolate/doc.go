// Package interpolate resolves "$NAME", "${NAME}" and "${NAME|default}"
// references inside raw YAML text before it is parsed.
//
// The text is scanned, not parsed: references are recognised anywhere in the
// document, including inside quoted scalars, flow collections and mapping
// keys. Full-line comments (lines starting with '#') are removed beforehand so
// commented-out references never count as missing. "$$" is an escape for a
// literal '$', and "$1"-style positional placeholders are left untouched.
package interpolate
