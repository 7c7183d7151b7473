package schema

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"sync"
)

var enumRegistry = struct {
	sync.RWMutex
	data map[reflect.Type][]any
}{
	data: make(map[reflect.Type][]any),
}

// RegisterEnum registers the cases of an enumeration type, in menu order.
// Fields of that type then analyse to enumeration templates.
func RegisterEnum[T comparable](cases ...T) error {
	values := make([]any, len(cases))
	for i, c := range cases {
		values[i] = c
	}
	return RegisterEnumCases(reflect.TypeFor[T](), values)
}

// RegisterEnumCases is RegisterEnum for callers holding a reflect.Type.
// Every case must be a value of enumType, and cases must be unique.
// Registering drops cached templates, so later Templates calls see the new
// enumeration; templates handed out before keep their old rows.
func RegisterEnumCases(enumType reflect.Type, cases []any) error {
	if enumType == nil {
		return fmt.Errorf("enum type cannot be nil")
	}
	if !enumType.Comparable() {
		return fmt.Errorf("enum type %s must be comparable", enumType)
	}
	if len(cases) == 0 {
		return fmt.Errorf("enum type %s must have at least one case", enumType)
	}

	seen := make(map[any]struct{}, len(cases))
	normalized := make([]any, len(cases))
	for i, c := range cases {
		if c == nil || reflect.TypeOf(c) != enumType {
			return fmt.Errorf("enum type %s has a case of type %T", enumType, c)
		}
		if _, exists := seen[c]; exists {
			return fmt.Errorf("enum type %s has duplicate case %v", enumType, c)
		}
		seen[c] = struct{}{}
		normalized[i] = c
	}

	enumRegistry.Lock()
	enumRegistry.data[enumType] = normalized
	enumRegistry.Unlock()

	// analysed types may have fields of enumType
	templateCache.Lock()
	clear(templateCache.data)
	templateCache.Unlock()
	return nil
}

func registeredEnumCases(enumType reflect.Type) ([]any, bool) {
	enumRegistry.RLock()
	defer enumRegistry.RUnlock()
	cases, ok := enumRegistry.data[enumType]
	if !ok {
		return nil, false
	}
	copied := make([]any, len(cases))
	copy(copied, cases)
	return copied, true
}

// ResolveEnumCases returns the cases of enumType. Registered cases win;
// otherwise an integral type may declare EnumMembers() map[string]<integer>,
// whose values become the cases ordered by value. ok is false for types that
// are not enumerations.
func ResolveEnumCases(enumType reflect.Type) (cases []any, ok bool, err error) {
	if cases, ok := registeredEnumCases(enumType); ok {
		return cases, true, nil
	}
	if !isIntegral(enumType.Kind()) {
		return nil, false, nil
	}
	cases, err = enumCasesViaMethod(enumType)
	if err != nil || cases == nil {
		return nil, false, err
	}
	if err := RegisterEnumCases(enumType, cases); err != nil {
		return nil, false, err
	}
	return cases, true, nil
}

// enumCasesViaMethod calls EnumMembers() on a zero value of enumType.
func enumCasesViaMethod(enumType reflect.Type) ([]any, error) {
	pointerValue := reflect.New(enumType)
	method := pointerValue.MethodByName("EnumMembers")
	if !method.IsValid() {
		method = pointerValue.Elem().MethodByName("EnumMembers")
	}
	if !method.IsValid() {
		return nil, nil
	}

	if method.Type().NumIn() != 0 || method.Type().NumOut() != 1 {
		return nil, fmt.Errorf("EnumMembers method on type %s must have signature EnumMembers() map[string]<integer>", enumType.Name())
	}
	resultType := method.Type().Out(0)
	if resultType.Kind() != reflect.Map || resultType.Key().Kind() != reflect.String || !isIntegral(resultType.Elem().Kind()) {
		return nil, fmt.Errorf("EnumMembers method on type %s must return map[string]<integer>", enumType.Name())
	}

	mapValue := method.Call(nil)[0]
	if mapValue.IsNil() || mapValue.Len() == 0 {
		return nil, fmt.Errorf("EnumMembers method on type %s returned no members", enumType.Name())
	}

	type member struct {
		name  string
		value reflect.Value
		order int64
	}
	members := make([]member, 0, mapValue.Len())
	iter := mapValue.MapRange()
	for iter.Next() {
		order, err := enumOrder(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("enum type %s has invalid member %s: %w", enumType.Name(), iter.Key().String(), err)
		}
		members = append(members, member{name: iter.Key().String(), value: iter.Value(), order: order})
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].order == members[j].order {
			return members[i].name < members[j].name
		}
		return members[i].order < members[j].order
	})

	cases := make([]any, 0, len(members))
	seen := make(map[int64]struct{}, len(members))
	for _, m := range members {
		// aliases share a value and collapse into one case
		if _, dup := seen[m.order]; dup {
			continue
		}
		seen[m.order] = struct{}{}
		cases = append(cases, m.value.Convert(enumType).Interface())
	}
	return cases, nil
}

func isIntegral(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}

func enumOrder(value reflect.Value) (int64, error) {
	switch value.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return value.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		unsigned := value.Uint()
		if unsigned > math.MaxInt64 {
			return 0, fmt.Errorf("value %d exceeds maximum supported enum value", unsigned)
		}
		return int64(unsigned), nil
	default:
		return 0, fmt.Errorf("unsupported enum value kind %s", value.Kind())
	}
}
