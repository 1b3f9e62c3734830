package document

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpsarthak13/jsonfield/internal/path"
)

func sample() map[string]any {
	return map[string]any{
		"v_int":  int64(10),
		"v_dict": map[string]any{"v_in_dict": int64(20)},
		"list":   []any{int64(1), map[string]any{"x": "y"}},
	}
}

func TestGet(t *testing.T) {
	doc := sample()

	tests := []struct {
		expr    string
		expect  any
		present bool
	}{
		{expr: "$", expect: doc, present: true},
		{expr: "$.v_int", expect: int64(10), present: true},
		{expr: "$.v_dict.v_in_dict", expect: int64(20), present: true},
		{expr: "$.list[1].x", expect: "y", present: true},
		{expr: "$.missing", present: false},
		{expr: "$.v_int.deeper", present: false},
		{expr: "$.list[5]", present: false},
		{expr: "$.v_dict[0]", present: false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			v, ok := Get(doc, path.MustCompile(tt.expr))
			assert.Equal(t, tt.present, ok)
			if tt.present {
				assert.Equal(t, tt.expect, v)
			}
		})
	}
}

func TestSet(t *testing.T) {
	tests := []struct {
		name   string
		expr   string
		value  any
		expect any
	}{
		{
			name:   "replace_scalar",
			expr:   "$.v_int",
			value:  int64(30),
			expect: map[string]any{"v_int": int64(30), "v_dict": map[string]any{"v_in_dict": int64(20)}, "list": []any{int64(1), map[string]any{"x": "y"}}},
		},
		{
			name:   "create_intermediates",
			expr:   "$.a.b.c",
			value:  true,
			expect: map[string]any{"v_int": int64(10), "v_dict": map[string]any{"v_in_dict": int64(20)}, "list": []any{int64(1), map[string]any{"x": "y"}}, "a": map[string]any{"b": map[string]any{"c": true}}},
		},
		{
			name:   "replace_array_element",
			expr:   "$.list[0]",
			value:  "first",
			expect: map[string]any{"v_int": int64(10), "v_dict": map[string]any{"v_in_dict": int64(20)}, "list": []any{"first", map[string]any{"x": "y"}}},
		},
		{
			name:   "append_past_end",
			expr:   "$.list[7]",
			value:  int64(3),
			expect: map[string]any{"v_int": int64(10), "v_dict": map[string]any{"v_in_dict": int64(20)}, "list": []any{int64(1), map[string]any{"x": "y"}, int64(3)}},
		},
		{
			name:   "create_below_array_element",
			expr:   "$.list[1].z.w",
			value:  nil,
			expect: map[string]any{"v_int": int64(10), "v_dict": map[string]any{"v_in_dict": int64(20)}, "list": []any{int64(1), map[string]any{"x": "y", "z": map[string]any{"w": nil}}}},
		},
		{
			name:   "root_replaces",
			expr:   "$",
			value:  []any{"new"},
			expect: []any{"new"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := sample()
			out, err := Set(doc, path.MustCompile(tt.expr), tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.expect, out)
			assert.Equal(t, sample(), doc, "input must not be mutated")
		})
	}
}

func TestSetAddressingErrors(t *testing.T) {
	for _, expr := range []string{
		"$.missing[0]",
		"$.missing[0].a",
		"$.list[4].a",
		"$.v_int.x",
		"$.v_int[0]",
		"$.v_dict[0]",
		"$.list.x",
		"$.list[0].x",
		"$.list[0][0]",
	} {
		t.Run(expr, func(t *testing.T) {
			_, err := Set(sample(), path.MustCompile(expr), int64(1))
			require.Error(t, err)
			assert.True(t, errors.Is(err, path.ErrAddressing))
		})
	}
}

func TestAddressable(t *testing.T) {
	tests := []struct {
		expr   string
		expect bool
	}{
		{"$", true},
		{"$.new", true},
		{"$.new.deeper.still", true},
		{"$.v_dict.v_in_dict", true},
		{"$.v_dict.other.x", true},
		{"$.list[9]", true},
		{"$.list[1].x.y", true},
		{"$.v_int.x", false},
		{"$.v_dict.v_in_dict.x", false},
		{"$.v_dict[0]", false},
		{"$.list.x", false},
		{"$.list[0].x", false},
		{"$.missing[0]", false},
		{"$.list[3].x", false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, tt.expect, Addressable(sample(), path.MustCompile(tt.expr)))
		})
	}

	assert.True(t, Addressable(map[string]any{}, path.MustCompile("$.a.b")))
	assert.False(t, Addressable(nil, path.MustCompile("$.a")))
	assert.False(t, Addressable([]any{}, path.MustCompile("$.a")))
	assert.True(t, Addressable([]any{}, path.MustCompile("$[0]")))
}

func TestRemove(t *testing.T) {
	tests := []struct {
		name   string
		expr   string
		expect any
	}{
		{
			name:   "remove_key",
			expr:   "$.v_int",
			expect: map[string]any{"v_dict": map[string]any{"v_in_dict": int64(20)}, "list": []any{int64(1), map[string]any{"x": "y"}}},
		},
		{
			name:   "remove_nested_key",
			expr:   "$.v_dict.v_in_dict",
			expect: map[string]any{"v_int": int64(10), "v_dict": map[string]any{}, "list": []any{int64(1), map[string]any{"x": "y"}}},
		},
		{
			name:   "remove_array_element_shifts",
			expr:   "$.list[0]",
			expect: map[string]any{"v_int": int64(10), "v_dict": map[string]any{"v_in_dict": int64(20)}, "list": []any{map[string]any{"x": "y"}}},
		},
		{name: "missing_key_is_noop", expr: "$.nope.deeper", expect: sample()},
		{name: "missing_index_is_noop", expr: "$.list[9]", expect: sample()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := sample()
			out, err := Remove(doc, path.MustCompile(tt.expr))
			require.NoError(t, err)
			assert.Equal(t, tt.expect, out)
			assert.Equal(t, sample(), doc)
		})
	}

	_, err := Remove(sample(), path.Root)
	assert.True(t, errors.Is(err, path.ErrAddressing))
}

func TestSetThenGet(t *testing.T) {
	p := path.MustCompile("$.v_dict.v_in_dict")
	out, err := Set(sample(), p, "changed")
	require.NoError(t, err)

	v, ok := Get(out, p)
	require.True(t, ok)
	assert.Equal(t, "changed", v)

	out, err = Remove(out, p)
	require.NoError(t, err)
	assert.False(t, Has(out, p))

	again, err := Remove(out, p)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestCompareAndEqual(t *testing.T) {
	c, ok := Compare(int64(10), 10.0)
	assert.True(t, ok)
	assert.Equal(t, 0, c)

	c, ok = Compare(uint64(1<<63), int64(1))
	assert.True(t, ok)
	assert.Equal(t, 1, c)

	c, ok = Compare("a", "b")
	assert.True(t, ok)
	assert.Equal(t, -1, c)

	_, ok = Compare("10", int64(10))
	assert.False(t, ok)
	_, ok = Compare(true, false)
	assert.False(t, ok)
	_, ok = Compare(nil, nil)
	assert.False(t, ok)

	assert.True(t, Equal(map[string]any{"a": []any{int64(1)}}, map[string]any{"a": []any{1.0}}))
	assert.False(t, Equal(map[string]any{"a": int64(1)}, map[string]any{"a": "1"}))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(nil, false))

	assert.Equal(t, KindNumber, KindOf(uint64(3)))
	assert.True(t, KindString.Ordered())
	assert.False(t, KindObject.Ordered())
}
