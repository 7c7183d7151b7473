package predicateview

import (
	"fmt"
	"reflect"

	"github.com/nlstn/go-predicateview/internal/schema"
)

// RegisterEnumType registers the cases of an enumeration type, in menu order,
// so TemplatesFor turns fields of that type into enumeration rows.
// The enumValue parameter accepts either a zero value of the enum type or a pointer to the enum type.
// Integral types may instead declare EnumMembers() map[string]<integer>.
func RegisterEnumType(enumValue any, cases ...any) error {
	if enumValue == nil {
		return fmt.Errorf("enumValue cannot be nil")
	}
	if len(cases) == 0 {
		return fmt.Errorf("enum cases cannot be empty")
	}

	enumType := reflect.TypeOf(enumValue)
	if enumType.Kind() == reflect.Pointer {
		enumType = enumType.Elem()
	}
	return schema.RegisterEnumCases(enumType, cases)
}

// TemplatesFor derives the row templates of a record struct. See the package
// documentation for the field mapping.
func TemplatesFor(model any) ([]*Template, error) {
	return schema.Templates(model)
}
