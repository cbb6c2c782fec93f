package dto

import (
	"fmt"
	"maps"
	"reflect"
	"strings"
)

const (
	FilterOperatorEq        = "eq"
	FilterOperatorNotEq     = "not_eq"
	FilterOperatorIn        = "in"
	FilterOperatorLessEq    = "less_eq"
	FilterOperatorGreaterEq = "greater_eq"
	FilterOperatorIsNull    = "is_null"
	FilterOperatorIsNotNull = "is_not_null"
)

const (
	FilterGroupOperatorAnd = "AND"
	FilterGroupOperatorOr  = "OR"
)

var comparisons = map[string]string{
	FilterOperatorEq:        "=",
	FilterOperatorNotEq:     "!=",
	FilterOperatorLessEq:    "<=",
	FilterOperatorGreaterEq: ">=",
}

// Condition renders one predicate of a where clause together with its named arguments.
type Condition interface {
	GetWhereClause() (string, map[string]any)
}

// Filter compares a single column. ArgName overrides the parameter name when the same
// column appears twice in one group.
type Filter struct {
	ArgName  string
	Field    string
	Value    any
	Operator string
	Table    string
}

func Eq(field string, value any) Filter {
	return Filter{Field: field, Value: value, Operator: FilterOperatorEq}
}

func (f Filter) GetWhereClause() (string, map[string]any) {
	args := map[string]any{}

	column := f.Field
	if f.Table != "" {
		column = f.Table + "." + f.Field
	}

	argName := f.ArgName
	if argName == "" {
		argName = f.Field
	}

	if op, ok := comparisons[f.Operator]; ok {
		args[argName] = f.Value

		return fmt.Sprintf("%s %s :%s", column, op, argName), args
	}

	switch f.Operator {
	case FilterOperatorIn:
		val := reflect.ValueOf(f.Value)
		if val.Kind() != reflect.Array && val.Kind() != reflect.Slice {
			return "", args
		}

		// an empty list matches nothing
		if val.Len() == 0 {
			return "FALSE", args
		}

		named := make([]string, val.Len())

		for idx := range val.Len() {
			name := fmt.Sprintf("%s_%d", argName, idx)
			args[name] = val.Index(idx).Interface()
			named[idx] = ":" + name
		}

		return fmt.Sprintf("%s IN (%s)", column, strings.Join(named, ", ")), args
	case FilterOperatorIsNull:
		return column + " IS NULL", args
	case FilterOperatorIsNotNull:
		return column + " IS NOT NULL", args
	default:
		return "", args
	}
}

type FilterGroup struct {
	Filters  []Condition
	Operator string
}

func And(conditions ...Condition) FilterGroup {
	return FilterGroup{Filters: conditions, Operator: FilterGroupOperatorAnd}
}

// With returns a copy of the group extended by more conditions.
func (f FilterGroup) With(conditions ...Condition) FilterGroup {
	operator := f.Operator
	if operator == "" {
		operator = FilterGroupOperatorAnd
	}

	return FilterGroup{
		Filters:  append(append([]Condition{}, f.Filters...), conditions...),
		Operator: operator,
	}
}

func (f FilterGroup) GetWhereClause() (string, map[string]any) {
	args := map[string]any{}
	clauses := []string{}

	operator := f.Operator
	if operator == "" {
		operator = FilterGroupOperatorAnd
	}

	for _, condition := range f.Filters {
		if condition == nil {
			continue
		}

		where, arg := condition.GetWhereClause()
		if where == "" {
			continue
		}

		clauses = append(clauses, where)

		maps.Copy(args, arg)
	}

	if len(clauses) == 0 {
		return "", args
	}

	return fmt.Sprintf("(%s)", strings.Join(clauses, " "+operator+" ")), args
}
