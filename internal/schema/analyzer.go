// Package schema derives row templates from record struct types.
package schema

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/nlstn/go-predicateview/internal/expression"
	"github.com/shopspring/decimal"
)

var (
	timeType    = reflect.TypeFor[time.Time]()
	decimalType = reflect.TypeFor[decimal.Decimal]()
)

var templateCache = struct {
	sync.RWMutex
	data map[reflect.Type][]*expression.Template
}{
	data: make(map[reflect.Type][]*expression.Template),
}

// Templates returns the row templates of a record struct. Results are cached
// per type, so repeated calls hand out the same template pointers.
//
// Field mapping:
//   - string kinds, bool, integers, floats and decimal.Decimal become string,
//     boolean and number rows
//   - time.Time becomes a date row
//   - types with registered cases, or integral types with EnumMembers(), become
//     enumeration rows
//   - pointers to any of the above become optional rows
//   - slices of structs become collections over the element's own rows
//   - nested structs contribute their rows with dotted field paths
//
// The `predicate` struct tag takes "-" to skip a field and "title=..." to set
// the row title, which otherwise is the field name split into words.
func Templates(model any) ([]*expression.Template, error) {
	t := reflect.TypeOf(model)
	if t == nil {
		return nil, fmt.Errorf("model cannot be nil")
	}
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("model must be a struct, got %s", t.Kind())
	}

	templateCache.RLock()
	cached, ok := templateCache.data[t]
	templateCache.RUnlock()
	if ok {
		return cached, nil
	}

	templates, err := analyzeStruct(t, "", "", map[reflect.Type]bool{})
	if err != nil {
		return nil, err
	}

	templateCache.Lock()
	defer templateCache.Unlock()
	if cached, ok := templateCache.data[t]; ok {
		return cached, nil
	}
	templateCache.data[t] = templates
	return templates, nil
}

func analyzeStruct(t reflect.Type, pathPrefix, titlePrefix string, visiting map[reflect.Type]bool) ([]*expression.Template, error) {
	if visiting[t] {
		return nil, nil
	}
	visiting[t] = true
	defer delete(visiting, t)

	var templates []*expression.Template
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := parseTag(field.Tag.Get("predicate"))
		if tag.skip {
			continue
		}
		if field.Anonymous && field.Type.Kind() == reflect.Struct && field.Type != timeType && field.Type != decimalType {
			// promoted fields keep the embedding struct's prefixes
			rows, err := analyzeStruct(field.Type, pathPrefix, titlePrefix, visiting)
			if err != nil {
				return nil, err
			}
			templates = append(templates, rows...)
			continue
		}
		if !field.IsExported() {
			continue
		}

		title := tag.title
		if title == "" {
			title = humanize(field.Name)
		}
		if titlePrefix != "" {
			title = titlePrefix + " " + title
		}
		path := pathPrefix + field.Name

		rows, err := analyzeField(field, path, title, visiting)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", path, err)
		}
		templates = append(templates, rows...)
	}
	return templates, nil
}

func analyzeField(field reflect.StructField, path, title string, visiting map[reflect.Type]bool) ([]*expression.Template, error) {
	ft := field.Type
	if ft.Kind() == reflect.Pointer {
		leaf, err := leafTemplate(ft.Elem(), path, title)
		if err != nil || leaf == nil {
			// optional nested structs are not filterable
			return nil, err
		}
		return []*expression.Template{expression.Optional(leaf)}, nil
	}

	leaf, err := leafTemplate(ft, path, title)
	if err != nil {
		return nil, err
	}
	if leaf != nil {
		return []*expression.Template{leaf}, nil
	}

	switch ft.Kind() {
	case reflect.Struct:
		return analyzeStruct(ft, path+".", title, visiting)
	case reflect.Slice, reflect.Array:
		elem := ft.Elem()
		if elem.Kind() == reflect.Pointer {
			elem = elem.Elem()
		}
		if elem.Kind() != reflect.Struct || elem == timeType || elem == decimalType {
			return nil, nil
		}
		elements, err := analyzeStruct(elem, "", "", visiting)
		if err != nil {
			return nil, err
		}
		return []*expression.Template{expression.CollectionField(title, path, elements...)}, nil
	}
	return nil, nil
}

// leafTemplate maps a scalar type to its row kind, or returns nil.
func leafTemplate(t reflect.Type, path, title string) (*expression.Template, error) {
	switch t {
	case timeType:
		return expression.DateField(title, path), nil
	case decimalType:
		return expression.NumberField(title, path), nil
	}

	cases, ok, err := ResolveEnumCases(t)
	if err != nil {
		return nil, err
	}
	if ok {
		return expression.EnumField(title, path, cases...), nil
	}

	switch t.Kind() {
	case reflect.String:
		return expression.StringField(title, path), nil
	case reflect.Bool:
		return expression.BoolField(title, path), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return expression.NumberField(title, path), nil
	}
	return nil, nil
}

type fieldTag struct {
	skip  bool
	title string
}

func parseTag(tag string) fieldTag {
	var ft fieldTag
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		switch {
		case part == "-":
			ft.skip = true
		case strings.HasPrefix(part, "title="):
			ft.title = strings.TrimPrefix(part, "title=")
		}
	}
	return ft
}

// humanize splits a Go identifier into words: "DueDate" becomes "Due Date",
// "HTTPStatus" becomes "HTTP Status".
func humanize(name string) string {
	runes := []rune(name)
	var sb strings.Builder
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || (unicode.IsUpper(runes[i-1]) && nextLower) {
				sb.WriteRune(' ')
			}
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
