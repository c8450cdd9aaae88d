package goserdes

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Key is the identity tuple of a record: the values of its kind's key fields,
// in declaration order.
type Key []any

// Compare orders two keys element by element. Values of different families are
// ranked nil < bool < number < string < time < list < mapping < other; numbers
// compare by value regardless of their Go type. Lists compare element by
// element like keys do, and mappings by their sorted keys and then the values
// under them. A shorter key sorts before a longer key sharing its prefix.
func (k Key) Compare(other Key) int {
	for i := 0; i < len(k) && i < len(other); i++ {
		if c := compareValues(k[i], other[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(k), len(other))
}

// Equal reports whether both keys identify the same record.
func (k Key) Equal(other Key) bool { return k.Compare(other) == 0 }

func (k Key) String() string {
	parts := make([]string, len(k))
	for i, v := range k {
		parts[i] = fmt.Sprint(v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

const (
	rankNil = iota
	rankBool
	rankNumber
	rankString
	rankTime
	rankList
	rankMap
	rankOther
)

func rankOf(v any) int {
	switch v.(type) {
	case nil:
		return rankNil
	case bool:
		return rankBool
	case string:
		return rankString
	case time.Time:
		return rankTime
	case []any:
		return rankList
	case map[string]any:
		return rankMap
	}
	if _, ok := asNumber(v); ok {
		return rankNumber
	}
	return rankOther
}

func compareValues(a, b any) int {
	ra, rb := rankOf(a), rankOf(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch ra {
	case rankNil:
		return 0
	case rankBool:
		ab, bb := a.(bool), b.(bool)
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	case rankNumber:
		na, _ := asNumber(a)
		nb, _ := asNumber(b)
		return na.compare(nb)
	case rankString:
		return strings.Compare(a.(string), b.(string))
	case rankTime:
		return a.(time.Time).Compare(b.(time.Time))
	case rankList:
		return Key(a.([]any)).Compare(Key(b.([]any)))
	case rankMap:
		return compareMaps(a.(map[string]any), b.(map[string]any))
	default:
		return strings.Compare(fmt.Sprintf("%T %#v", a, a), fmt.Sprintf("%T %#v", b, b))
	}
}

func compareMaps(a, b map[string]any) int {
	ka, kb := slices.Sorted(maps.Keys(a)), slices.Sorted(maps.Keys(b))
	if c := slices.Compare(ka, kb); c != 0 {
		return c
	}
	for _, k := range ka {
		if c := compareValues(a[k], b[k]); c != 0 {
			return c
		}
	}
	return 0
}

// number holds either an exact integer or a float.
type number struct {
	i     int64
	f     float64
	isInt bool
}

func (n number) float() float64 {
	if n.isInt {
		return float64(n.i)
	}
	return n.f
}

func (n number) compare(o number) int {
	if n.isInt && o.isInt {
		return cmp.Compare(n.i, o.i)
	}
	return cmp.Compare(n.float(), o.float())
}

func asNumber(v any) (number, bool) {
	switch x := v.(type) {
	case int:
		return number{i: int64(x), isInt: true}, true
	case int8:
		return number{i: int64(x), isInt: true}, true
	case int16:
		return number{i: int64(x), isInt: true}, true
	case int32:
		return number{i: int64(x), isInt: true}, true
	case int64:
		return number{i: x, isInt: true}, true
	case uint:
		return number{f: float64(x), i: int64(x), isInt: x <= 1<<63-1}, true
	case uint8:
		return number{i: int64(x), isInt: true}, true
	case uint16:
		return number{i: int64(x), isInt: true}, true
	case uint32:
		return number{i: int64(x), isInt: true}, true
	case uint64:
		return number{f: float64(x), i: int64(x), isInt: x <= 1<<63-1}, true
	case float32:
		return number{f: float64(x)}, true
	case float64:
		return number{f: x}, true
	}
	return number{}, false
}
