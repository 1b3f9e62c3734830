package codec

import (
	"encoding/base64"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/goccy/go-json"
)

type marshaler interface {
	MarshalJSON() ([]byte, error)
}

// normalizer converts Go values into the tree handed to the JSON encoder.
// seen holds the containers on the current descent path.
type normalizer struct {
	opts Options
	seen map[uintptr]struct{}
}

func (n *normalizer) value(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case bool, string:
		return x, nil
	case json.Number:
		return parseNumber(x.String())
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return n.unsigned(uint64(x)), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return n.unsigned(x), nil
	case float32:
		return encodeFloat(float64(x), n.opts)
	case float64:
		return encodeFloat(x, n.opts)
	case time.Time:
		s := x.Format(time.RFC3339Nano)
		if n.opts.Detailed {
			return tagged(tagDatetime, s), nil
		}
		return s, nil
	case []byte:
		s := base64.StdEncoding.EncodeToString(x)
		if n.opts.Detailed {
			return tagged(tagBytes, s), nil
		}
		return s, nil
	case map[string]any:
		return n.object(reflect.ValueOf(x))
	case []any:
		return n.array(reflect.ValueOf(x))
	case marshaler:
		return n.marshaled(x)
	}
	return n.reflectValue(reflect.ValueOf(v))
}

func (n *normalizer) unsigned(u uint64) any {
	if u <= math.MaxInt64 {
		return int64(u)
	}
	return u
}

func (n *normalizer) reflectValue(rv reflect.Value) (any, error) {
	switch rv.Kind() {
	case reflect.Invalid:
		return nil, nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		if rv.Kind() == reflect.Pointer {
			ptr := rv.Pointer()
			if err := n.enter(ptr); err != nil {
				return nil, err
			}
			defer n.leave(ptr)
		}
		return n.value(rv.Elem().Interface())
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return n.unsigned(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return encodeFloat(rv.Float(), n.opts)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, encodeError(fmt.Sprintf("map key type %s is not a string", rv.Type().Key()), nil)
		}
		if rv.IsNil() {
			return nil, nil
		}
		return n.object(rv)
	case reflect.Slice:
		if rv.IsNil() {
			return nil, nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return n.value(rv.Bytes())
		}
		return n.array(rv)
	case reflect.Array:
		return n.array(rv)
	case reflect.Struct:
		return n.marshaled(rv.Interface())
	default:
		return nil, encodeError(fmt.Sprintf("unsupported type %s", rv.Type()), nil)
	}
}

func (n *normalizer) object(rv reflect.Value) (any, error) {
	ptr := rv.Pointer()
	if err := n.enter(ptr); err != nil {
		return nil, err
	}
	defer n.leave(ptr)

	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		e, err := n.value(iter.Value().Interface())
		if err != nil {
			return nil, err
		}
		out[iter.Key().String()] = e
	}
	if _, ok := out[TypeKey]; ok && n.opts.Detailed {
		return tagged(tagObject, out), nil
	}
	return out, nil
}

func (n *normalizer) array(rv reflect.Value) (any, error) {
	if rv.Kind() == reflect.Slice && rv.Len() > 0 {
		ptr := rv.Pointer()
		if err := n.enter(ptr); err != nil {
			return nil, err
		}
		defer n.leave(ptr)
	}

	out := make([]any, rv.Len())
	for i := range out {
		e, err := n.value(rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

// marshaled normalizes structs and custom marshalers by round-tripping them
// through JSON.
func (n *normalizer) marshaled(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, encodeError(fmt.Sprintf("cannot marshal %T", v), err)
	}
	raw, err := Decode(b, Options{})
	if err != nil {
		return nil, encodeError(fmt.Sprintf("cannot normalize %T", v), err)
	}
	return n.value(raw)
}

func (n *normalizer) enter(ptr uintptr) error {
	if ptr == 0 {
		return nil
	}
	if _, ok := n.seen[ptr]; ok {
		return encodeError("cyclic document", nil)
	}
	n.seen[ptr] = struct{}{}
	return nil
}

func (n *normalizer) leave(ptr uintptr) {
	delete(n.seen, ptr)
}
