package sandbox

import (
	"fmt"
	"sort"

	lua "github.com/Shopify/go-lua"
)

// pushValue marshals a native Go value onto the Lua stack. Maps become
// tables keyed by string, slices become sequences. Unsupported kinds push
// nil rather than corrupting the stack.
func pushValue(l *lua.State, value any) {
	switch v := value.(type) {
	case nil:
		l.PushNil()
	case bool:
		l.PushBoolean(v)
	case string:
		l.PushString(v)
	case float64:
		l.PushNumber(v)
	case float32:
		l.PushNumber(float64(v))
	case int:
		l.PushNumber(float64(v))
	case int64:
		l.PushNumber(float64(v))
	case map[string]any:
		l.NewTable()
		// Sorted insertion keeps table construction deterministic.
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			pushValue(l, v[key])
			l.SetField(-2, key)
		}
	case []any:
		l.NewTable()
		for i, elem := range v {
			pushValue(l, elem)
			l.RawSetInt(-2, i+1)
		}
	default:
		l.PushNil()
	}
}

// toGoValue converts the Lua value at index into its native Go counterpart.
func toGoValue(l *lua.State, index int) any {
	switch l.TypeOf(index) {
	case lua.TypeString:
		s, _ := l.ToString(index)
		return s
	case lua.TypeNumber:
		n, _ := l.ToNumber(index)
		return n
	case lua.TypeBoolean:
		return l.ToBoolean(index)
	case lua.TypeTable:
		return tableToGo(l, index)
	case lua.TypeUserData:
		return l.ToUserData(index)
	default:
		return nil
	}
}

// tableToGo converts a Lua table to either a []any (contiguous 1..n integer
// keys) or a map[string]any. Keys of other kinds are dropped.
func tableToGo(l *lua.State, index int) any {
	index = l.AbsIndex(index)

	byName := map[string]any{}
	byIndex := map[int]any{}
	maxIndex := 0

	l.PushNil()
	for l.Next(index) {
		switch l.TypeOf(-2) {
		case lua.TypeString:
			key, _ := l.ToString(-2)
			byName[key] = toGoValue(l, -1)
		case lua.TypeNumber:
			n, _ := l.ToNumber(-2)
			i := int(n)
			if float64(i) == n && i > 0 {
				byIndex[i] = toGoValue(l, -1)
				if i > maxIndex {
					maxIndex = i
				}
			}
		}
		l.Pop(1)
	}

	if len(byName) == 0 && len(byIndex) == maxIndex && maxIndex > 0 {
		seq := make([]any, maxIndex)
		for i := 1; i <= maxIndex; i++ {
			seq[i-1] = byIndex[i]
		}
		return seq
	}

	for i, v := range byIndex {
		byName[fmt.Sprintf("%d", i)] = v
	}
	return byName
}

// tableToMap converts the table at index to a map, ignoring non-string keys.
func tableToMap(l *lua.State, index int) map[string]any {
	out := map[string]any{}
	if l.TypeOf(index) != lua.TypeTable {
		return out
	}

	index = l.AbsIndex(index)
	l.PushNil()
	for l.Next(index) {
		if l.TypeOf(-2) == lua.TypeString {
			key, _ := l.ToString(-2)
			out[key] = toGoValue(l, -1)
		}
		l.Pop(1)
	}
	return out
}
