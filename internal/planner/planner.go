// Package planner builds the parameterized SQL for relation segments and the
// modifiers that shape them: ordering, self-exclusion and the paging range.
package planner
