package query

import (
	"fmt"
	"strings"
)

type functionCall func(string) string

type aggregators struct {
	Min   functionCall
	Max   functionCall
	Count functionCall
	Avg   functionCall
	Sum   functionCall
}

// Aggregators wrap a column in an aggregate call, e.g. Aggregators.Count("id") is COUNT(id).
var Aggregators = &aggregators{
	Min:   makeFunctionFormatter("MIN"),
	Max:   makeFunctionFormatter("MAX"),
	Count: makeFunctionFormatter("COUNT"),
	Avg:   makeFunctionFormatter("AVG"),
	Sum:   makeFunctionFormatter("SUM"),
}

func makeFunctionFormatter(function string) func(string) string {
	return func(column string) string {
		return fmt.Sprintf("%s(%s)", function, column)
	}
}

// Equal returns a "column=value" condition. The value is used as given, quote it first.
func Equal(column, value string) string {
	return column + "=" + value
}

func Like(column, pattern string) string {
	return fmt.Sprintf("%s LIKE %s", column, pattern)
}

func In(column string, values ...string) string {
	return fmt.Sprintf("%s IN (%s)", column, strings.Join(values, ","))
}

func Between(column, lower, upper string) string {
	return fmt.Sprintf("%s BETWEEN %s AND %s", column, lower, upper)
}

func Not(cond string) string {
	return "NOT " + cond
}

// Alias returns "expr AS alias".
func Alias(expr, alias string) string {
	return expr + " AS " + alias
}
