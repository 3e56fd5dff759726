package collector

import "strings"

var literalEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// quoteLiteral renders s as a ClickHouse single-quoted string literal.
func quoteLiteral(s string) string {
	return "'" + literalEscaper.Replace(s) + "'"
}

// quoteList renders values as a comma-separated list of string literals.
func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quoteLiteral(v)
	}
	return strings.Join(quoted, ", ")
}

// tableFilter is the WHERE clause shared by the per-table collectors.
func tableFilter(database string, tables []string) string {
	if len(tables) == 0 {
		// IN () is a syntax error; an empty list must match nothing.
		return "database = " + quoteLiteral(database) + " AND 0"
	}
	return "database = " + quoteLiteral(database) + " AND table IN (" + quoteList(tables) + ")"
}
