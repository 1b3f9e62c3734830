package core

import (
	"fmt"

	"github.com/rzpsarthak13/jsonfield/internal/path"
)

// OpType is the kind of a mutation.
type OpType string

const (
	// OpSet stores a value at a path.
	OpSet OpType = "SET"

	// OpRemove deletes the value at a path.
	OpRemove OpType = "REMOVE"
)

// Mutation is a request to change one path of a JSON column.
type Mutation struct {
	Op   OpType
	Path path.Path

	// Raw is the encoded JSON value for OpSet.
	Raw []byte
}

// SetMutation returns an OpSet mutation of p to the encoded value raw.
func SetMutation(p path.Path, raw []byte) Mutation {
	return Mutation{Op: OpSet, Path: p, Raw: raw}
}

// RemoveMutation returns an OpRemove mutation of p.
func RemoveMutation(p path.Path) Mutation {
	return Mutation{Op: OpRemove, Path: p}
}

// Validate rejects mutations that no backend can compile.
func (m Mutation) Validate() error {
	switch m.Op {
	case OpSet:
		if m.Raw == nil {
			return fmt.Errorf("set of %s has no encoded value", m.Path)
		}
	case OpRemove:
		if m.Path.IsRoot() {
			return path.NewAddressingError(m.Path, "cannot remove the document root")
		}
	default:
		return fmt.Errorf("unknown mutation op %q", m.Op)
	}
	return nil
}

func (m Mutation) String() string {
	return string(m.Op) + " " + m.Path.String()
}
