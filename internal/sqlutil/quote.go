// Package sqlutil provides SQL identifier helpers shared by the planner and loader.
package sqlutil

import "strings"

// QuoteIdentifier quotes a SQL identifier (table name, column name, etc.)
// with backticks and escapes any backticks within the identifier.
func QuoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, "`", "``")
	return "`" + escaped + "`"
}

// QualifiedColumn renders `table`.`column`.
func QualifiedColumn(table, column string) string {
	return QuoteIdentifier(table) + "." + QuoteIdentifier(column)
}

// Alias renders an `expr AS alias` select item with a quoted alias.
func Alias(expr, alias string) string {
	return expr + " AS " + QuoteIdentifier(alias)
}
