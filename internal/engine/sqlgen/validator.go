package sqlgen

import (
	"regexp"
	"strings"

	"warehouse-askdb/internal/common/errors"
)

// forbiddenKeywords is the closed set of DDL/DML keywords that must never
// appear in generated SQL, checked outside string literals.
var forbiddenKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "ALTER", "TRUNCATE", "GRANT",
}

var (
	forbiddenKeywordPattern = regexp.MustCompile(
		`(?i)\b(` + strings.Join(forbiddenKeywords, "|") + `)\b`)
	limitKeywordPattern = regexp.MustCompile(`(?i)\bLIMIT\b`)
)

// Validate enforces the safety rules on assembled SQL: single SELECT
// statement, no statement separator, no forbidden keywords, and a row limit
// present. Every rejection is a SecurityError.
func Validate(sqlText string) error {
	stripped := stripStringLiterals(sqlText)

	if strings.Contains(stripped, ";") {
		return errors.NewMultipleStatementError()
	}

	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(sqlText)), "SELECT") {
		return errors.NewSQLRejectedError("statement is not a SELECT")
	}

	if m := forbiddenKeywordPattern.FindString(stripped); m != "" {
		return errors.NewForbiddenKeywordError(strings.ToUpper(m))
	}

	if !limitKeywordPattern.MatchString(stripped) {
		return errors.NewSQLRejectedError("statement has no row limit")
	}

	return nil
}

// stripStringLiterals blanks out single-quoted literals so their contents
// cannot trip the keyword or separator checks.
func stripStringLiterals(sqlText string) string {
	var b strings.Builder
	b.Grow(len(sqlText))

	inSingle := false
	for _, r := range sqlText {
		switch {
		case r == '\'':
			inSingle = !inSingle
			b.WriteRune(' ')
		case inSingle:
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
