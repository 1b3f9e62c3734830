package jsonfield

import (
	"context"

	"github.com/rzpsarthak13/jsonfield/internal/document"
	"github.com/rzpsarthak13/jsonfield/internal/path"
)

// Row is a loaded copy of one stored row. Mutations applied to the stored row
// do not change it until Reload.
type Row struct {
	field *Field

	// Key is the primary key as stored.
	Key any

	// Data is the decoded document, nil for SQL NULL.
	Data any

	raw []byte
}

// Raw returns the column text as loaded, nil for SQL NULL.
func (r *Row) Raw() []byte {
	return r.raw
}

// Field returns the descriptor the row was loaded through.
func (r *Row) Field() *Field {
	return r.field
}

// Reload replaces Data with the stored document.
func (r *Row) Reload(ctx context.Context) error {
	fresh, err := r.field.Load(ctx, r.Key)
	if err != nil {
		return err
	}
	r.Key, r.Data, r.raw = fresh.Key, fresh.Data, fresh.raw
	return nil
}

// Lookup returns the value at expr in the loaded document and whether it
// exists. An explicit null exists.
func (r *Row) Lookup(expr string) (any, bool, error) {
	p, err := path.Compile(expr)
	if err != nil {
		return nil, false, err
	}
	if r.raw == nil {
		return nil, false, nil
	}
	v, ok := document.Get(r.Data, p)
	return v, ok, nil
}

// Set stores value at expr in the stored row. The loaded copy is unchanged.
func (r *Row) Set(ctx context.Context, expr string, value any) error {
	m, err := r.field.SetOn(r, expr, value)
	if err != nil {
		return err
	}
	_, err = m.Execute(ctx)
	return err
}

// Remove deletes expr from the stored row. The loaded copy is unchanged.
func (r *Row) Remove(ctx context.Context, expr string) error {
	m, err := r.field.RemoveOn(r, expr)
	if err != nil {
		return err
	}
	_, err = m.Execute(ctx)
	return err
}
