// Package document applies path operations to decoded JSON documents.
//
// The functions here define the reference behavior that the SQL backends
// reproduce with native JSON functions. Documents are never mutated in place:
// Set and Remove copy every container along the modified path.
package document

import (
	"github.com/rzpsarthak13/jsonfield/internal/path"
)

// Get returns the value at p and whether it exists.
func Get(doc any, p path.Path) (any, bool) {
	cur := doc
	for _, seg := range p {
		next, ok := child(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Has reports whether p exists in doc.
func Has(doc any, p path.Path) bool {
	_, ok := Get(doc, p)
	return ok
}

// Set returns a copy of doc with v stored at p.
//
// Missing objects are created for key segments after p.RequiredPrefix(); an
// index at or past the end of an array appends. A path that Addressable
// rejects is an *path.AddressingError. Setting the root replaces the document.
func Set(doc any, p path.Path, v any) (any, error) {
	if p.IsRoot() {
		return v, nil
	}
	if !Addressable(doc, p) {
		if req := p.RequiredPrefix(); !Has(doc, req) {
			return nil, path.NewAddressingError(p, "required prefix "+req.String()+" does not exist")
		}
		return nil, path.NewAddressingError(p, "a parent value is not the container its segment needs")
	}
	out, _ := set(doc, p, v)
	return out, nil
}

// Addressable reports whether Set can store a value at p in doc. Every parent
// of p through p.RequiredPrefix() must exist; each parent must be an array
// when the next segment is an index and an object when it is a key. Parents
// past the required prefix may be missing, Set creates them as objects.
func Addressable(doc any, p path.Path) bool {
	req := len(p.RequiredPrefix())
	cur := doc
	for i, seg := range p {
		if seg.IsIndex {
			if _, ok := cur.([]any); !ok {
				return false
			}
		} else if _, ok := cur.(map[string]any); !ok {
			return false
		}
		if i == len(p)-1 {
			break
		}
		next, ok := child(cur, seg)
		if !ok {
			return i+1 > req
		}
		cur = next
	}
	return true
}

func set(cur any, p path.Path, v any) (any, bool) {
	if len(p) == 0 {
		return v, true
	}
	seg, rest := p[0], p[1:]

	if seg.IsIndex {
		arr, ok := cur.([]any)
		if !ok {
			return cur, false
		}
		if seg.Index >= len(arr) {
			if len(rest) > 0 {
				return cur, false
			}
			out := make([]any, len(arr), len(arr)+1)
			copy(out, arr)
			return append(out, v), true
		}
		next, changed := set(arr[seg.Index], rest, v)
		if !changed {
			return cur, false
		}
		out := make([]any, len(arr))
		copy(out, arr)
		out[seg.Index] = next
		return out, true
	}

	obj, ok := cur.(map[string]any)
	if !ok {
		return cur, false
	}
	existing, present := obj[seg.Key]
	if !present {
		existing = map[string]any{}
	}
	next, changed := set(existing, rest, v)
	if !changed {
		return cur, false
	}
	out := make(map[string]any, len(obj)+1)
	for k, e := range obj {
		out[k] = e
	}
	out[seg.Key] = next
	return out, true
}

// Remove returns a copy of doc without the value at p. Removing a path that
// does not exist returns doc unchanged. Removing the root is an
// *path.AddressingError.
func Remove(doc any, p path.Path) (any, error) {
	if p.IsRoot() {
		return nil, path.NewAddressingError(p, "cannot remove the document root")
	}
	out, _ := remove(doc, p)
	return out, nil
}

func remove(cur any, p path.Path) (any, bool) {
	seg, rest := p[0], p[1:]

	if seg.IsIndex {
		arr, ok := cur.([]any)
		if !ok || seg.Index >= len(arr) {
			return cur, false
		}
		if len(rest) == 0 {
			out := make([]any, 0, len(arr)-1)
			out = append(out, arr[:seg.Index]...)
			return append(out, arr[seg.Index+1:]...), true
		}
		next, changed := remove(arr[seg.Index], rest)
		if !changed {
			return cur, false
		}
		out := make([]any, len(arr))
		copy(out, arr)
		out[seg.Index] = next
		return out, true
	}

	obj, ok := cur.(map[string]any)
	if !ok {
		return cur, false
	}
	existing, present := obj[seg.Key]
	if !present {
		return cur, false
	}
	out := make(map[string]any, len(obj))
	for k, e := range obj {
		out[k] = e
	}
	if len(rest) == 0 {
		delete(out, seg.Key)
		return out, true
	}
	next, changed := remove(existing, rest)
	if !changed {
		return cur, false
	}
	out[seg.Key] = next
	return out, true
}

func child(cur any, seg path.Segment) (any, bool) {
	if seg.IsIndex {
		arr, ok := cur.([]any)
		if !ok || seg.Index >= len(arr) {
			return nil, false
		}
		return arr[seg.Index], true
	}
	obj, ok := cur.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := obj[seg.Key]
	return v, ok
}
