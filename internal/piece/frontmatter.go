package piece

import (
	"fmt"
	"strings"
)

// frontmatterDelimiter opens and closes the metadata block.
const frontmatterDelimiter = "---"

// FrontmatterValue is either a scalar or a list of scalars.
type FrontmatterValue struct {
	Scalar string
	List   []string
	IsList bool
}

// Frontmatter is the untyped key/value form of a piece's metadata block.
// It is validated into a Piece by Parse.
type Frontmatter map[string]FrontmatterValue

// Scalar returns the scalar value for key, or "" when absent or a list.
func (f Frontmatter) Scalar(key string) string {
	v, ok := f[key]
	if !ok || v.IsList {
		return ""
	}
	return v.Scalar
}

// List returns the list value for key.
func (f Frontmatter) List(key string) ([]string, bool) {
	v, ok := f[key]
	if !ok || !v.IsList {
		return nil, false
	}
	return v.List, true
}

// SplitMarkdown separates the leading frontmatter block from the body.
func SplitMarkdown(raw, filename string) (Frontmatter, string, error) {
	text := strings.TrimPrefix(strings.ReplaceAll(raw, "\r\n", "\n"), "\ufeff")
	lines := strings.Split(text, "\n")

	if !isDelimiter(lines[0]) {
		return nil, "", &InvalidDocumentError{File: filename, Reason: "missing frontmatter"}
	}

	for i := 1; i < len(lines); i++ {
		if !isDelimiter(lines[i]) {
			continue
		}
		data, err := ParseFrontmatter(strings.Join(lines[1:i], "\n"))
		if err != nil {
			return nil, "", &InvalidDocumentError{File: filename, Reason: err.Error()}
		}
		return data, strings.Join(lines[i+1:], "\n"), nil
	}

	return nil, "", &InvalidDocumentError{File: filename, Reason: "unterminated frontmatter"}
}

// ParseFrontmatter parses the constrained YAML subset used by pieces:
// "key: value" scalars and "key:" followed by "- item" lines.
func ParseFrontmatter(block string) (Frontmatter, error) {
	result := make(Frontmatter)
	currentList := ""

	for _, rawLine := range strings.Split(block, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "- ") || line == "-" {
			if currentList == "" {
				return nil, fmt.Errorf("list item %q without a key", line)
			}
			v := result[currentList]
			v.List = append(v.List, stripQuotes(strings.TrimSpace(strings.TrimPrefix(line, "-"))))
			result[currentList] = v
			continue
		}

		currentList = ""
		sep := strings.Index(line, ":")
		if sep == -1 {
			continue
		}

		key := strings.TrimSpace(line[:sep])
		value := strings.TrimSpace(line[sep+1:])
		if value == "" {
			currentList = key
			result[key] = FrontmatterValue{IsList: true, List: []string{}}
			continue
		}
		result[key] = FrontmatterValue{Scalar: stripQuotes(value)}
	}

	return result, nil
}

func isDelimiter(line string) bool {
	return strings.TrimRight(line, " \t") == frontmatterDelimiter
}

func stripQuotes(value string) string {
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return value[1 : len(value)-1]
		}
	}
	return value
}
