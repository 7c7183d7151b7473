package predicate

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Format renders an expression as readable text for logs and diagnostics.
// The output is not meant to be parsed back.
func Format(e Expression) string {
	var sb strings.Builder
	writeExpression(&sb, e)
	return sb.String()
}

func writeExpression(sb *strings.Builder, e Expression) {
	switch n := e.(type) {
	case nil:
		sb.WriteString("<nil>")
	case *Variable:
		fmt.Fprintf(sb, "$%d", n.Key)
	case *KeyPath:
		writeExpression(sb, n.Root)
		sb.WriteString(".")
		sb.WriteString(n.Field)
	case *Value:
		sb.WriteString(formatLiteral(n.Value))
	case *NilLiteral:
		sb.WriteString("nil")
	case *Equal:
		writeBinary(sb, n.LHS, "==", n.RHS)
	case *NotEqual:
		writeBinary(sb, n.LHS, "!=", n.RHS)
	case *Comparison:
		writeBinary(sb, n.LHS, string(n.Op), n.RHS)
	case *Conjunction:
		writeBinary(sb, n.LHS, "&&", n.RHS)
	case *Disjunction:
		writeBinary(sb, n.LHS, "||", n.RHS)
	case *StringContains:
		writeCall(sb, "localizedStandardContains", n.Root, n.Other)
	case *StartsWith:
		writeCall(sb, "starts", n.Base, n.Prefix)
	case *SequencePredicate:
		writeExpression(sb, n.Sequence)
		fmt.Fprintf(sb, ".%s { $%d in ", n.Operation, n.Variable.Key)
		writeExpression(sb, n.Test)
		sb.WriteString(" }")
	case *ForcedUnwrap:
		writeExpression(sb, n.Wrapped)
		sb.WriteString("!")
	case *OptionalFlatMap:
		writeExpression(sb, n.Wrapped)
		fmt.Fprintf(sb, ".flatMap { $%d in ", n.Variable.Key)
		writeExpression(sb, n.Transform)
		sb.WriteString(" }")
	case *NilCoalesce:
		writeBinary(sb, n.LHS, "??", n.RHS)
	case fmt.Stringer:
		sb.WriteString(n.String())
	default:
		fmt.Fprintf(sb, "<%T>", e)
	}
}

func writeBinary(sb *strings.Builder, lhs Expression, op string, rhs Expression) {
	sb.WriteString("(")
	writeExpression(sb, lhs)
	sb.WriteString(" ")
	sb.WriteString(op)
	sb.WriteString(" ")
	writeExpression(sb, rhs)
	sb.WriteString(")")
}

func writeCall(sb *strings.Builder, name string, recv, arg Expression) {
	writeExpression(sb, recv)
	sb.WriteString(".")
	sb.WriteString(name)
	sb.WriteString("(")
	writeExpression(sb, arg)
	sb.WriteString(")")
}

func formatLiteral(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case decimal.Decimal:
		return x.String()
	case fmt.Stringer:
		return x.String()
	default:
		if s, ok := asString(v); ok {
			return strconv.Quote(s)
		}
		return fmt.Sprint(deref(v))
	}
}
