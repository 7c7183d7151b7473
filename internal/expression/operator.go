package expression

// Operator is the comparison or combination a node applies. The string form is
// what a menu shows.
type Operator string

// String returns the menu label.
func (o Operator) String() string { return string(o) }

// String operators
const (
	OpEquals     Operator = "equals"
	OpContains   Operator = "contains"
	OpBeginsWith Operator = "begins with"
)

// Number operators (OpEquals is shared with strings)
const (
	OpNotEquals          Operator = "does not equal"
	OpLessThan           Operator = "is less than"
	OpLessThanOrEqual    Operator = "is less than or equal"
	OpGreaterThan        Operator = "is greater than"
	OpGreaterThanOrEqual Operator = "is greater than or equal"
)

// Boolean and enumeration operators
const (
	OpIs    Operator = "is"
	OpIsNot Operator = "is not"
)

// Date operators
const (
	OpBefore     Operator = "is before"
	OpAfter      Operator = "is after"
	OpOnOrBefore Operator = "is on or before"
	OpOnOrAfter  Operator = "is on or after"
	OpSameDay    Operator = "is same day"
	OpSameWeek   Operator = "is same week"
	OpSameMonth  Operator = "is same month"
)

// Optional wrapper operators
const (
	OpExists       Operator = "exists"
	OpDoesNotExist Operator = "has no value"
)

// Collection operators (OpContains is shared with strings)
const (
	OpDoesNotContain Operator = "does not contain"
	OpAllSatisfy     Operator = "all elements satisfy"
)

// Logical group operators
const (
	OpAll Operator = "all"
	OpAny Operator = "any"
)

var (
	stringOperators     = []Operator{OpEquals, OpContains, OpBeginsWith}
	numberOperators     = []Operator{OpEquals, OpNotEquals, OpLessThan, OpLessThanOrEqual, OpGreaterThan, OpGreaterThanOrEqual}
	boolOperators       = []Operator{OpIs, OpIsNot}
	enumOperators       = []Operator{OpIs, OpIsNot}
	dateOperators       = []Operator{OpBefore, OpAfter, OpOnOrBefore, OpOnOrAfter, OpSameDay, OpSameWeek, OpSameMonth}
	optionalOperators   = []Operator{OpExists, OpDoesNotExist}
	collectionOperators = []Operator{OpContains, OpDoesNotContain, OpAllSatisfy}
	logicalOperators    = []Operator{OpAll, OpAny}
)

func containsOperator(ops []Operator, op Operator) bool {
	for _, o := range ops {
		if o == op {
			return true
		}
	}
	return false
}
