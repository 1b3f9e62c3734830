package codec

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	plain    = Options{}
	ascii    = Options{EnsureASCII: true}
	detailed = Options{Detailed: true}
)

func TestEncodeASCII(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		opts   Options
		expect string
	}{
		{name: "escaped_latin", in: "café", opts: ascii, expect: `"caf\u00e9"`},
		{name: "verbatim_latin", in: "café", opts: plain, expect: `"café"`},
		{name: "surrogate_pair", in: "😀", opts: ascii, expect: `"\ud83d\ude00"`},
		{name: "html_not_escaped", in: "<a&b>", opts: ascii, expect: `"<a&b>"`},
		{name: "escaped_key", in: map[string]any{"ключ": 1}, opts: ascii, expect: `{"\u043a\u043b\u044e\u0447":1}`},
		{name: "sorted_keys", in: map[string]any{"b": 1, "a": true}, opts: plain, expect: `{"a":true,"b":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Encode(tt.in, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.expect, string(out))
		})
	}
}

func TestRoundTrip(t *testing.T) {
	doc := map[string]any{
		"v_int":  int64(10),
		"v_neg":  int64(-3),
		"v_big":  uint64(math.MaxUint64),
		"v_frac": 1.5,
		"v_str":  "héllo",
		"v_bool": false,
		"v_null": nil,
		"v_list": []any{int64(1), "two", []any{}},
		"v_dict": map[string]any{"v_in_dict": int64(20)},
	}

	for _, opts := range []Options{plain, ascii, detailed, {EnsureASCII: true, Detailed: true}} {
		out, err := Encode(doc, opts)
		require.NoError(t, err)

		back, err := Decode(out, opts)
		require.NoError(t, err)
		assert.Equal(t, doc, back, "options %+v", opts)
	}
}

func TestDetailedPreservesTypes(t *testing.T) {
	when := time.Date(2024, 1, 2, 3, 4, 5, 600, time.UTC)
	doc := map[string]any{
		"integral": 10.0,
		"nan":      math.NaN(),
		"inf":      math.Inf(-1),
		"when":     when,
		"raw":      []byte("hi"),
		"user":     map[string]any{"$type": "mine", "n": int64(1)},
	}

	out, err := Encode(doc, detailed)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"integral":{"$type":"float","$value":"10"}`)
	assert.Contains(t, string(out), `"raw":{"$type":"bytes","$value":"aGk="}`)

	back, err := Decode(out, detailed)
	require.NoError(t, err)
	m := back.(map[string]any)

	assert.Equal(t, 10.0, m["integral"])
	assert.True(t, math.IsNaN(m["nan"].(float64)))
	assert.Equal(t, math.Inf(-1), m["inf"])
	assert.True(t, when.Equal(m["when"].(time.Time)))
	assert.Equal(t, []byte("hi"), m["raw"])
	assert.Equal(t, map[string]any{"$type": "mine", "n": int64(1)}, m["user"])
}

func TestPlainModeIsLossy(t *testing.T) {
	out, err := Encode(map[string]any{"f": 10.0, "when": time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}, plain)
	require.NoError(t, err)

	back, err := Decode(out, plain)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"f": int64(10), "when": "2024-01-02T00:00:00Z"}, back)

	tag := []byte(`{"$type":"float","$value":"10"}`)
	back, err = Decode(tag, plain)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"$type": "float", "$value": "10"}, back)
}

func TestEncodeNormalizesGoValues(t *testing.T) {
	type inner struct {
		Name string `json:"name"`
	}
	type payload struct {
		ID    int      `json:"id"`
		Tags  []string `json:"tags"`
		Inner *inner   `json:"inner"`
	}

	out, err := Encode(payload{ID: 7, Tags: []string{"x"}, Inner: &inner{Name: "n"}}, plain)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":7,"tags":["x"],"inner":{"name":"n"}}`, string(out))

	out, err = Encode(map[string][]int{"a": {1, 2}}, plain)
	require.NoError(t, err)
	assert.Equal(t, `{"a":[1,2]}`, string(out))

	out, err = Encode(uint8(200), plain)
	require.NoError(t, err)
	assert.Equal(t, `200`, string(out))
}

func TestEncodeErrors(t *testing.T) {
	cyclic := map[string]any{}
	cyclic["self"] = cyclic

	list := []any{nil}
	list[0] = list

	tests := []struct {
		name string
		in   any
		opts Options
	}{
		{name: "nan_plain", in: math.NaN(), opts: plain},
		{name: "inf_plain", in: math.Inf(1), opts: plain},
		{name: "cyclic_map", in: cyclic, opts: plain},
		{name: "cyclic_slice", in: list, opts: plain},
		{name: "non_string_keys", in: map[int]string{1: "a"}, opts: plain},
		{name: "channel", in: make(chan int), opts: plain},
		{name: "complex", in: complex(1, 2), opts: plain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.in, tt.opts)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrCodec))

			var codecErr *Error
			require.True(t, errors.As(err, &codecErr))
			assert.Equal(t, "encode", codecErr.Op)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	for _, in := range []string{``, `{`, `{"a":}`, `[1,]`, `nope`} {
		_, err := Decode([]byte(in), plain)
		require.Error(t, err, in)
		assert.True(t, errors.Is(err, ErrCodec), in)
	}

	_, err := Decode([]byte(`{"$type":"datetime","$value":"yesterday"}`), detailed)
	assert.True(t, errors.Is(err, ErrCodec))
}

func TestDecodeNumbers(t *testing.T) {
	back, err := Decode([]byte(`[1, -2, 18446744073709551615, 1.0, 2e3, 99999999999999999999]`), plain)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(-2), uint64(math.MaxUint64), 1.0, 2000.0, 1e20}, back)
}

func TestDefaultHolder(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	assert.Equal(t, DefaultOptions(), orig)
	SetDefault(Options{Detailed: true})
	assert.Equal(t, Options{Detailed: true}, Default())

	var h Holder
	assert.Equal(t, DefaultOptions(), h.Load())
	h.Store(Options{})
	assert.Equal(t, Options{}, h.Load())
	assert.Equal(t, plain, NewHolder(plain).Load())
}
