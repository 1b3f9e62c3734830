package core

import (
	"fmt"
	"strconv"
)

// NormalizeKey converts primary key values into a comparable canonical form:
// every integer type becomes int64, and byte strings returned by text-protocol
// drivers become int64 when they hold a decimal integer and string otherwise.
func NormalizeKey(key any) any {
	switch v := key.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case uint:
		return int64(v)
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		return int64(v)
	case []byte:
		return NormalizeKey(string(v))
	case string:
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
		return v
	default:
		return key
	}
}

// KeyString renders a key for use in cache keys and logs.
func KeyString(key any) string {
	return fmt.Sprint(NormalizeKey(key))
}
