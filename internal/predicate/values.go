package predicate

import (
	"math/big"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// LocalizedContains reports whether other occurs in s, ignoring case and diacritics.
func LocalizedContains(s, other string) bool {
	return strings.Contains(foldString(s), foldString(other))
}

// foldString strips combining marks and applies Unicode case folding.
func foldString(s string) string {
	// transformers carry state, build them per call
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return cases.Fold().String(stripped)
}

// isNil reports whether v is absent: untyped nil or a nil pointer, map, slice or interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// deref follows non-nil pointers down to the pointee.
func deref(v any) any {
	for {
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Pointer || rv.IsNil() {
			return v
		}
		v = rv.Elem().Interface()
	}
}

func asString(v any) (string, bool) {
	v = deref(v)
	if s, ok := v.(string); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rv.String(), true
	}
	return "", false
}

// ToDecimal converts any Go numeric value to a decimal. Booleans and strings are
// not numbers.
func ToDecimal(v any) (decimal.Decimal, bool) {
	v = deref(v)
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case decimal.NullDecimal:
		return n.Decimal, n.Valid
	case float32:
		return decimal.NewFromFloat32(n), true
	case float64:
		return decimal.NewFromFloat(n), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return decimal.NewFromInt(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(rv.Uint()), 0), true
	case reflect.Float32, reflect.Float64:
		return decimal.NewFromFloat(rv.Float()), true
	}
	return decimal.Decimal{}, false
}

func valuesEqual(a, b any) bool {
	aNil, bNil := isNil(a), isNil(b)
	if aNil || bNil {
		return aNil && bNil
	}
	a, b = deref(a), deref(b)

	if da, ok := ToDecimal(a); ok {
		if db, ok := ToDecimal(b); ok {
			return da.Equal(db)
		}
		return false
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	if sa, ok := asString(a); ok {
		sb, ok := asString(b)
		return ok && sa == sb
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Kind() == reflect.Bool && rb.Kind() == reflect.Bool {
		return ra.Bool() == rb.Bool()
	}
	return reflect.DeepEqual(a, b)
}

func compareValues(a, b any) (int, error) {
	a, b = deref(a), deref(b)
	if da, ok := ToDecimal(a); ok {
		if db, ok := ToDecimal(b); ok {
			return da.Cmp(db), nil
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb), nil
		}
	}
	if sa, ok := asString(a); ok {
		if sb, ok := asString(b); ok {
			return strings.Compare(sa, sb), nil
		}
	}
	return 0, &TypeError{Op: "compare", Expected: "two numbers, dates or strings", Got: a}
}

// SameValue compares two values the way Equal does: numbers by magnitude, dates
// by instant, strings by content regardless of their named type.
func SameValue(a, b any) bool {
	return valuesEqual(a, b)
}
