// Package path compiles the field path language into segment lists.
//
// A path starts with a root marker ("$" or "root") followed by any number of
// ".key" and "[index]" segments:
//
//	$            the whole document
//	$.a.b        member b of member a
//	$.list[0]    first element of member list
//	root.a[2].c  same as $.a[2].c
//
// Keys are bare runs of any characters except '.', '[' and ']'. Indexes are
// non-negative decimal integers.
package path

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is one step of a path: either an object key or an array index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// KeySegment returns a key segment.
func KeySegment(key string) Segment {
	return Segment{Key: key}
}

// IndexSegment returns an index segment.
func IndexSegment(index int) Segment {
	return Segment{Index: index, IsIndex: true}
}

func (s Segment) String() string {
	if s.IsIndex {
		return "[" + strconv.Itoa(s.Index) + "]"
	}
	return "." + s.Key
}

// Path is an ordered list of segments. The empty path denotes the document root.
type Path []Segment

// Root is the path to the whole document.
var Root = Path{}

// Compile parses expr into a Path.
func Compile(expr string) (Path, error) {
	if expr == "" {
		return nil, syntaxError(expr, 0, "path cannot be empty")
	}

	i, err := parseRoot(expr)
	if err != nil {
		return nil, err
	}

	p := Path{}
	for i < len(expr) {
		var seg Segment
		switch expr[i] {
		case '.':
			seg, i, err = parseKey(expr, i+1)
		case '[':
			seg, i, err = parseIndex(expr, i+1)
		default:
			return nil, syntaxError(expr, i, fmt.Sprintf("unexpected %q, expected '.' or '['", expr[i]))
		}
		if err != nil {
			return nil, err
		}
		p = append(p, seg)
	}
	return p, nil
}

// MustCompile is like Compile but panics on error. It is intended for
// package-level path constants.
func MustCompile(expr string) Path {
	p, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return p
}

func parseRoot(expr string) (int, error) {
	switch {
	case strings.HasPrefix(expr, "$"):
		return 1, nil
	case strings.HasPrefix(expr, "root") && (len(expr) == 4 || expr[4] == '.' || expr[4] == '['):
		return 4, nil
	default:
		return 0, syntaxError(expr, 0, "path must start with '$' or 'root'")
	}
}

func parseKey(expr string, i int) (Segment, int, error) {
	start := i
	for i < len(expr) && expr[i] != '.' && expr[i] != '[' && expr[i] != ']' {
		i++
	}
	if i == start {
		return Segment{}, i, syntaxError(expr, start, "key cannot be empty")
	}
	if i < len(expr) && expr[i] == ']' {
		return Segment{}, i, syntaxError(expr, i, "unexpected ']'")
	}
	return KeySegment(expr[start:i]), i, nil
}

func parseIndex(expr string, i int) (Segment, int, error) {
	end := strings.IndexByte(expr[i:], ']')
	if end < 0 {
		return Segment{}, i, syntaxError(expr, i-1, "unterminated '['")
	}
	raw := expr[i : i+end]
	if raw == "" {
		return Segment{}, i, syntaxError(expr, i, "index cannot be empty")
	}
	for j := 0; j < len(raw); j++ {
		if raw[j] < '0' || raw[j] > '9' {
			return Segment{}, i, syntaxError(expr, i, fmt.Sprintf("index %q is not a non-negative integer", raw))
		}
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return Segment{}, i, syntaxError(expr, i, fmt.Sprintf("index %q is out of range", raw))
	}
	return IndexSegment(n), i + end + 1, nil
}

// IsRoot reports whether p addresses the whole document.
func (p Path) IsRoot() bool {
	return len(p) == 0
}

// Parent returns p without its last segment. The parent of the root is the root.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return p
	}
	return p[:len(p)-1]
}

// Last returns the final segment of a non-root path.
func (p Path) Last() (Segment, bool) {
	if len(p) == 0 {
		return Segment{}, false
	}
	return p[len(p)-1], true
}

// RequiredPrefix returns the longest prefix of p that must already exist in a
// document before a set at p can succeed. Key segments after the last index
// segment are created on demand, while index segments never create their
// container, so the prefix runs through the last index segment. A trailing
// index only needs its array to exist.
func (p Path) RequiredPrefix() Path {
	j := -1
	for i, seg := range p {
		if seg.IsIndex {
			j = i
		}
	}
	switch {
	case j < 0:
		return Root
	case j == len(p)-1:
		return p[:j]
	default:
		return p[:j+1]
	}
}

// String renders p in canonical form, e.g. "$.a[0].b".
func (p Path) String() string {
	var b strings.Builder
	b.WriteByte('$')
	for _, seg := range p {
		b.WriteString(seg.String())
	}
	return b.String()
}

// SQL renders p as a MySQL/SQLite JSON path literal. Keys that are not plain
// identifiers are double-quoted and escaped as JSON string content, with a
// quote written as \u0022 so that SQLite does not end the label early.
func (p Path) SQL() string {
	var b strings.Builder
	b.WriteByte('$')
	for _, seg := range p {
		if seg.IsIndex {
			b.WriteString(seg.String())
			continue
		}
		b.WriteByte('.')
		if isIdent(seg.Key) {
			b.WriteString(seg.Key)
			continue
		}
		b.WriteByte('"')
		for _, r := range seg.Key {
			switch {
			case r == '\\':
				b.WriteString(`\\`)
			case r == '"' || r < 0x20:
				fmt.Fprintf(&b, `\u%04x`, r)
			default:
				b.WriteRune(r)
			}
		}
		b.WriteByte('"')
	}
	return b.String()
}

// Normalized renders p as an RFC 9535 normalized path, e.g. "$['a'][0]".
func (p Path) Normalized() string {
	var b strings.Builder
	b.WriteByte('$')
	for _, seg := range p {
		if seg.IsIndex {
			b.WriteString(seg.String())
			continue
		}
		b.WriteString("['")
		for _, r := range seg.Key {
			switch {
			case r == '\'':
				b.WriteString(`\'`)
			case r == '\\':
				b.WriteString(`\\`)
			case r < 0x20:
				fmt.Fprintf(&b, `\u%04x`, r)
			default:
				b.WriteRune(r)
			}
		}
		b.WriteString("']")
	}
	return b.String()
}

// Equal reports whether p and other address the same location.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
