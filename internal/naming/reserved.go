package naming

import "strings"

// graphqlReservedTypeWords contains GraphQL keywords, built-in types and the
// shared types every relay schema declares.
var graphqlReservedTypeWords = map[string]bool{
	"query":        true,
	"mutation":     true,
	"subscription": true,
	"type":         true,
	"schema":       true,
	"scalar":       true,
	"enum":         true,
	"input":        true,
	"interface":    true,
	"union":        true,
	"fragment":     true,
	"directive":    true,
	"extend":       true,
	"implements":   true,
	"on":           true,

	"int":     true,
	"float":   true,
	"string":  true,
	"boolean": true,
	"id":      true,

	"true":  true,
	"false": true,
	"null":  true,

	"pageinfo": true,
	"node":     true,
}

// isReservedTypeName checks if a type name is reserved.
func isReservedTypeName(name string) bool {
	lowerName := strings.ToLower(name)
	if strings.HasPrefix(lowerName, "__") {
		return true
	}
	if graphqlReservedTypeWords[lowerName] {
		return true
	}
	return isReservedPattern(name)
}

// isReservedFieldName checks if a field name is reserved.
func isReservedFieldName(name string) bool {
	return strings.HasPrefix(name, "__")
}

// isReservedPattern reports type names that would shadow generated
// connection and edge types.
func isReservedPattern(name string) bool {
	return strings.HasSuffix(name, "Connection") || strings.HasSuffix(name, "Edge")
}
