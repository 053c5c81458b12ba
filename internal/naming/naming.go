package naming

import (
	"log/slog"
	"strings"
)

// PaginatedPrefix prefixes the accessor name a model installs for each
// paginated relation.
const PaginatedPrefix = "paginated"

// PaginatedAccessor returns the accessor name for a relation field.
// Example: "tags" -> "paginatedTags"
func PaginatedAccessor(field string) string {
	return PaginatedPrefix + upperFirst(toPascalCase(field))
}

// Namer derives GraphQL names for models, columns and relations.
// It handles singularization, reserved words, and collisions.
type Namer struct {
	config   Config
	logger   *slog.Logger
	resolver *CollisionResolver
}

// New creates a Namer with the given configuration
func New(cfg Config, logger *slog.Logger) *Namer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Namer{
		config:   cfg,
		logger:   logger,
		resolver: NewCollisionResolver(logger),
	}
}

// Default returns a Namer with default configuration
func Default() *Namer {
	return New(DefaultConfig(), nil)
}

// Reset clears the collision resolver state so the namer can build another schema.
func (n *Namer) Reset() {
	n.resolver = NewCollisionResolver(n.logger)
}

// TypeName converts a table name to a singular PascalCase type name.
// Example: "card_tags" -> "CardTag"
func (n *Namer) TypeName(tableName string) string {
	name := toPascalCase(n.Singularize(tableName))
	return n.validateTypeAndSuffix(name)
}

// FieldName converts a column or relation name to camelCase.
// Example: "created_at" -> "createdAt"
func (n *Namer) FieldName(columnName string) string {
	return toCamelCase(columnName)
}

// ConnectionFieldName names the connection field exposed for a relation.
// Example: "tags" -> "tagsConnection"
func (n *Namer) ConnectionFieldName(relation string) string {
	return n.FieldName(relation) + "Connection"
}

// ConnectionTypeName names the connection type of a model type.
func (n *Namer) ConnectionTypeName(typeName string) string {
	return typeName + "Connection"
}

// EdgeTypeName names the edge type of a model type.
func (n *Namer) EdgeTypeName(typeName string) string {
	return typeName + "Edge"
}

// ListQueryField names the root field listing every row of a table.
// Example: "cards" -> "allCards"
func (n *Namer) ListQueryField(tableName string) string {
	return "all" + toPascalCase(n.Pluralize(tableName))
}

// LookupQueryField names the root field fetching one row by global ID.
// Example: "Card" -> "card"
func (n *Namer) LookupQueryField(typeName string) string {
	return n.validateFieldAndSuffix(lowerFirst(typeName))
}

// RegisterType registers a type name for a table, resolving collisions.
func (n *Namer) RegisterType(tableName string) string {
	return n.resolver.RegisterType(n.TypeName(tableName), tableName)
}

// RegisterField registers a field on a type, resolving collisions.
func (n *Namer) RegisterField(typeName, fieldName, source string) string {
	return n.resolver.RegisterField(typeName, n.validateFieldAndSuffix(fieldName), source)
}

// RegisterQueryField registers a root query field, resolving collisions.
func (n *Namer) RegisterQueryField(fieldName, source string) string {
	return n.resolver.RegisterQuery(n.validateFieldAndSuffix(fieldName), source)
}

func (n *Namer) validateTypeAndSuffix(name string) string {
	if isReservedTypeName(name) {
		safeName := name + "_"
		n.logger.Warn("GraphQL name conflicts with reserved word, auto-suffixed",
			slog.String("original", name),
			slog.String("renamed", safeName),
		)
		return safeName
	}
	return name
}

func (n *Namer) validateFieldAndSuffix(name string) string {
	if isReservedFieldName(name) {
		safeName := name + "_"
		n.logger.Warn("GraphQL name conflicts with reserved word, auto-suffixed",
			slog.String("original", name),
			slog.String("renamed", safeName),
		)
		return safeName
	}
	return name
}

// toPascalCase converts snake_case to PascalCase
func toPascalCase(s string) string {
	parts := strings.Split(s, "_")
	for i, part := range parts {
		parts[i] = upperFirst(part)
	}
	return strings.Join(parts, "")
}

// toCamelCase converts snake_case to camelCase
func toCamelCase(s string) string {
	return lowerFirst(toPascalCase(s))
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
