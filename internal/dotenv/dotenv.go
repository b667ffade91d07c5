package dotenv

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode"
)

// File is the parsed content of a dotenv file.
type File struct {
	// Values holds the last assigned value for every name.
	Values map[string]string
	// Names lists every name in order of first declaration.
	Names []string
	// Duplicates lists names assigned more than once, sorted.
	Duplicates []string
}

// DuplicateKeyError reports names declared several times in a dotenv file.
type DuplicateKeyError struct {
	Names []string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("strict mode enabled, variables %s defined several times", dollarList(e.Names))
}

// Err returns a *DuplicateKeyError when the file declares a name twice, nil otherwise.
func (f *File) Err() error {
	if len(f.Duplicates) == 0 {
		return nil
	}
	names := make([]string, len(f.Duplicates))
	copy(names, f.Duplicates)
	return &DuplicateKeyError{Names: names}
}

// Read parses the dotenv file at path. An empty path yields an empty File.
func Read(path string) (*File, error) {
	if path == "" {
		return newFile(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dotenv file: %w", err)
	}
	defer f.Close()

	parsed, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse dotenv file %q: %w", path, err)
	}
	return parsed, nil
}

// Parse reads NAME=value lines from r. Comments, blank lines and lines that
// do not look like an assignment are skipped.
func Parse(r io.Reader) (*File, error) {
	out := newFile()
	seen := make(map[string]struct{})

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		name, value, ok := parseLine(scanner.Text())
		if !ok {
			continue
		}

		if _, exists := out.Values[name]; exists {
			if _, reported := seen[name]; !reported {
				seen[name] = struct{}{}
				out.Duplicates = append(out.Duplicates, name)
			}
		} else {
			out.Names = append(out.Names, name)
		}
		out.Values[name] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	sort.Strings(out.Duplicates)
	return out, nil
}

func newFile() *File {
	return &File{Values: map[string]string{}}
}

func parseLine(line string) (string, string, bool) {
	line = strings.TrimSuffix(line, "\r")
	if line == "" || line[0] == '#' {
		return "", "", false
	}

	eq := strings.IndexByte(line, '=')
	if eq <= 0 {
		return "", "", false
	}

	name := unquote(line[:eq])
	if name == "" || !validName(name) {
		return "", "", false
	}

	return name, unquote(line[eq+1:]), true
}

// validName accepts letters, digits, '_', '-' and '.', not starting with a digit.
func validName(name string) bool {
	for i, r := range name {
		if i == 0 && unicode.IsDigit(r) {
			return false
		}
		if !isNameRune(r) {
			return false
		}
	}
	return true
}

func isNameRune(r rune) bool {
	return r == '_' || r == '-' || r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// unquote drops one optional quote on each side of the value.
func unquote(value string) string {
	if value != "" && isQuote(value[0]) {
		value = value[1:]
	}
	if value != "" && isQuote(value[len(value)-1]) {
		value = value[:len(value)-1]
	}
	return value
}

func isQuote(b byte) bool {
	return b == '"' || b == '\''
}

func dollarList(names []string) string {
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = "$" + name
	}
	return strings.Join(parts, ", ")
}
