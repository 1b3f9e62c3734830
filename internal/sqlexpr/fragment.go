// Package sqlexpr renders path operations as native SQL JSON expressions.
//
// Every expression is a Fragment: SQL text with '?' placeholders plus its
// arguments. Fragments implement dbr.Builder, so they can be passed directly
// to dbr's Set, Where and Select methods and are interpolated by the session
// like any other builder.
package sqlexpr

import (
	"strings"

	"github.com/gocraft/dbr/v2"
)

// Fragment is a parameterized SQL expression.
type Fragment struct {
	SQL  string
	Args []any
}

// Build implements dbr.Builder.
func (f Fragment) Build(_ dbr.Dialect, buf dbr.Buffer) error {
	if _, err := buf.WriteString(f.SQL); err != nil {
		return err
	}
	return buf.WriteValue(f.Args...)
}

// String returns the SQL text with placeholders.
func (f Fragment) String() string {
	return f.SQL
}

// Interpolate renders f with its arguments inlined for dialect d.
func (f Fragment) Interpolate(d dbr.Dialect) (string, error) {
	return dbr.InterpolateForDialect(f.SQL, f.Args, d)
}

// And joins fragments with AND. An empty list yields a true condition.
func And(frags ...Fragment) Fragment {
	if len(frags) == 0 {
		return Fragment{SQL: "1 = 1"}
	}
	if len(frags) == 1 {
		return frags[0]
	}
	parts := make([]string, len(frags))
	var args []any
	for i, f := range frags {
		parts[i] = "(" + f.SQL + ")"
		args = append(args, f.Args...)
	}
	return Fragment{SQL: strings.Join(parts, " AND "), Args: args}
}

// builder accumulates a fragment piece by piece.
type builder struct {
	sb   strings.Builder
	args []any
}

func (b *builder) sql(s ...string) *builder {
	for _, p := range s {
		b.sb.WriteString(p)
	}
	return b
}

func (b *builder) arg(v any) *builder {
	b.sb.WriteByte('?')
	b.args = append(b.args, v)
	return b
}

func (b *builder) frag(f Fragment) *builder {
	b.sb.WriteString(f.SQL)
	b.args = append(b.args, f.Args...)
	return b
}

func (b *builder) done() Fragment {
	return Fragment{SQL: b.sb.String(), Args: b.args}
}
