// Package sqlgen assembles final SQL from a template skeleton and a condition
// set, and validates the result before it may reach the database.
package sqlgen

import (
	"fmt"
	"strings"

	"warehouse-askdb/internal/common/errors"
	"warehouse-askdb/internal/engine/conditions"
	"warehouse-askdb/internal/engine/templates"
)

const conditionsMarker = "{{conditions}}"

// Assemble substitutes the condition set into the template skeleton, rewrites
// "?" markers to $n placeholders, and guarantees a row limit. Returned args
// line up with the placeholders in order.
func Assemble(tmpl *templates.Template, set *conditions.Set, limit int) (string, []interface{}, error) {
	if strings.Count(tmpl.Skeleton, conditionsMarker) != 1 {
		return "", nil, errors.NewAssemblyFailedError(tmpl.ID,
			fmt.Errorf("skeleton must contain exactly one %s marker", conditionsMarker))
	}

	var frags []string
	var args []interface{}
	for _, c := range set.Conditions {
		if strings.Count(c.Fragment, "?") != len(c.Values) {
			return "", nil, errors.NewAssemblyFailedError(tmpl.ID,
				fmt.Errorf("fragment %q has mismatched markers and values", c.Fragment))
		}
		frags = append(frags, c.Fragment)
		args = append(args, c.Values...)
	}

	clause := "1=1"
	if len(frags) > 0 {
		clause = strings.Join(frags, " AND ")
	}

	sqlText := strings.Replace(tmpl.Skeleton, conditionsMarker, clause, 1)

	if !hasLimit(sqlText) {
		sqlText += " LIMIT ?"
		args = append(args, limit)
	}

	sqlText, err := numberPlaceholders(sqlText, len(args))
	if err != nil {
		return "", nil, errors.NewAssemblyFailedError(tmpl.ID, err)
	}

	return sqlText, args, nil
}

// numberPlaceholders rewrites each "?" outside string literals to $1..$n.
func numberPlaceholders(sqlText string, expected int) (string, error) {
	var b strings.Builder
	b.Grow(len(sqlText) + expected*2)

	n := 0
	inSingle := false
	for _, r := range sqlText {
		switch {
		case r == '\'':
			inSingle = !inSingle
			b.WriteRune(r)
		case r == '?' && !inSingle:
			n++
			fmt.Fprintf(&b, "$%d", n)
		default:
			b.WriteRune(r)
		}
	}

	if n != expected {
		return "", fmt.Errorf("placeholder count %d does not match %d args", n, expected)
	}
	return b.String(), nil
}

func hasLimit(sqlText string) bool {
	return limitKeywordPattern.MatchString(sqlText)
}
