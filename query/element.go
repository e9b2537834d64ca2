package query

import "strings"

// Element is a single clause of a statement, a keyword followed by its parts
// joined by glue. Parts are unique and keep the order they were first added in.
type Element struct {
	name  string
	parts []string
	glue  string
}

// NewElement creates an element with the given keyword, glue and initial parts.
func NewElement(name string, glue string, parts ...string) *Element {
	e := &Element{
		name:  name,
		glue:  glue,
		parts: []string{},
	}
	e.Append(parts...)
	return e
}

// Append merges parts into the element. Parts that are already present are skipped.
func (e *Element) Append(parts ...string) {
	for _, part := range parts {
		if e.has(part) {
			continue
		}
		e.parts = append(e.parts, part)
	}
}

func (e *Element) has(part string) bool {
	for _, p := range e.parts {
		if p == part {
			return true
		}
	}
	return false
}

func (e *Element) Keyword() string {
	return e.name
}

func (e *Element) Glue() string {
	return e.glue
}

// Parts returns a copy of the element parts.
func (e *Element) Parts() []string {
	out := make([]string, len(e.parts))
	copy(out, e.parts)
	return out
}

func (e *Element) String() string {
	return "\n" + e.name + " " + strings.Join(e.parts, e.glue)
}
