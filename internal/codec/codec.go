// Package codec serializes JSON documents stored in database columns.
//
// Encode first normalizes arbitrary Go values into the canonical document
// tree (nil, bool, int64, uint64, float64, string, []any, map[string]any),
// then marshals it with HTML escaping disabled. With Options.EnsureASCII every
// non-ASCII character is written as a \uXXXX escape. With Options.Detailed the
// values whose plain JSON form is lossy are written as tagged objects:
//
//	{"$type": "float", "$value": "10"}
//	{"$type": "datetime", "$value": "2024-01-02T03:04:05Z"}
//	{"$type": "bytes", "$value": "aGk="}
//	{"$type": "object", "$value": {"$type": "user data"}}
//
// Decode reverses the process. Tags are only interpreted in detailed mode.
package codec

import (
	"bytes"
	"encoding/base64"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

const (
	// TypeKey and ValueKey are the members of a tagged value.
	TypeKey  = "$type"
	ValueKey = "$value"

	tagFloat    = "float"
	tagDatetime = "datetime"
	tagBytes    = "bytes"
	tagObject   = "object"
)

// Encode serializes v according to opts.
func Encode(v any, opts Options) ([]byte, error) {
	n := normalizer{opts: opts, seen: make(map[uintptr]struct{})}
	tree, err := n.value(v)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(tree); err != nil {
		return nil, encodeError("marshal failed", err)
	}
	out := bytes.TrimRight(buf.Bytes(), "\n")

	if opts.EnsureASCII {
		out = escapeNonASCII(out)
	}
	return out, nil
}

// EncodeString is Encode returning a string, convenient for SQL parameters.
func EncodeString(v any, opts Options) (string, error) {
	b, err := Encode(v, opts)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Decode parses data into a canonical document according to opts.
func Decode(data []byte, opts Options) (any, error) {
	if !gjson.ValidBytes(data) {
		return nil, decodeError("invalid JSON", nil)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, decodeError("unmarshal failed", err)
	}
	return fromJSON(raw, opts)
}

func escapeNonASCII(in []byte) []byte {
	ascii := true
	for _, c := range in {
		if c >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	if ascii {
		return in
	}

	out := make([]byte, 0, len(in)+len(in)/2)
	for i := 0; i < len(in); {
		c := in[i]
		if c < utf8.RuneSelf {
			out = append(out, c)
			i++
			continue
		}
		r, size := utf8.DecodeRune(in[i:])
		i += size
		if r > 0xFFFF {
			r -= 0x10000
			out = appendEscape(out, 0xD800+(r>>10))
			out = appendEscape(out, 0xDC00+(r&0x3FF))
			continue
		}
		out = appendEscape(out, r)
	}
	return out
}

const hexDigits = "0123456789abcdef"

func appendEscape(out []byte, r rune) []byte {
	return append(out, '\\', 'u',
		hexDigits[(r>>12)&0xF], hexDigits[(r>>8)&0xF], hexDigits[(r>>4)&0xF], hexDigits[r&0xF])
}

func tagged(tag string, v any) map[string]any {
	return map[string]any{TypeKey: tag, ValueKey: v}
}

func fromJSON(v any, opts Options) (any, error) {
	switch x := v.(type) {
	case json.Number:
		return parseNumber(x.String())
	case map[string]any:
		if opts.Detailed {
			if tag, inner, ok := asTagged(x); ok {
				return untag(tag, inner, opts)
			}
		}
		return decodeMembers(x, opts)
	case []any:
		for i, e := range x {
			d, err := fromJSON(e, opts)
			if err != nil {
				return nil, err
			}
			x[i] = d
		}
		return x, nil
	default:
		return v, nil
	}
}

func decodeMembers(m map[string]any, opts Options) (map[string]any, error) {
	for k, e := range m {
		d, err := fromJSON(e, opts)
		if err != nil {
			return nil, err
		}
		m[k] = d
	}
	return m, nil
}

func asTagged(m map[string]any) (string, any, bool) {
	if len(m) != 2 {
		return "", nil, false
	}
	tag, ok := m[TypeKey].(string)
	if !ok {
		return "", nil, false
	}
	inner, ok := m[ValueKey]
	if !ok {
		return "", nil, false
	}
	switch tag {
	case tagFloat, tagDatetime, tagBytes, tagObject:
		return tag, inner, true
	}
	return "", nil, false
}

func untag(tag string, inner any, opts Options) (any, error) {
	switch tag {
	case tagFloat:
		s, ok := inner.(string)
		if !ok {
			return nil, decodeError("float tag value must be a string", nil)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, decodeError("invalid float tag value", err)
		}
		return f, nil
	case tagDatetime:
		s, ok := inner.(string)
		if !ok {
			return nil, decodeError("datetime tag value must be a string", nil)
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, decodeError("invalid datetime tag value", err)
		}
		return t, nil
	case tagBytes:
		s, ok := inner.(string)
		if !ok {
			return nil, decodeError("bytes tag value must be a string", nil)
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, decodeError("invalid bytes tag value", err)
		}
		return b, nil
	default:
		m, ok := inner.(map[string]any)
		if !ok {
			return nil, decodeError("object tag value must be an object", nil)
		}
		return decodeMembers(m, opts)
	}
}

func parseNumber(s string) (any, error) {
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
		if u, err := strconv.ParseUint(s, 10, 64); err == nil {
			return u, nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, decodeError("invalid number "+s, err)
	}
	return f, nil
}

func encodeFloat(f float64, opts Options) (any, error) {
	finite := !math.IsNaN(f) && !math.IsInf(f, 0)
	if !opts.Detailed {
		if !finite {
			return nil, encodeError("non-finite float "+strconv.FormatFloat(f, 'g', -1, 64)+" requires detailed mode", nil)
		}
		return f, nil
	}
	if !finite || f == math.Trunc(f) {
		return tagged(tagFloat, strconv.FormatFloat(f, 'g', -1, 64)), nil
	}
	return f, nil
}
