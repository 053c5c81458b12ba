package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"github.com/graphql-go/graphql/language/source"
)

// graphQLRequest is the part of a GraphQL request body the middleware reads.
type graphQLRequest struct {
	Query         string `json:"query"`
	OperationName string `json:"operationName"`
}

// readGraphQLRequest pulls the document and operation name from a GET query
// string or a POST body. The body is restored for the next handler.
func readGraphQLRequest(r *http.Request) graphQLRequest {
	switch r.Method {
	case http.MethodGet:
		params := r.URL.Query()
		return graphQLRequest{Query: params.Get("query"), OperationName: params.Get("operationName")}
	case http.MethodPost:
	default:
		return graphQLRequest{}
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return graphQLRequest{}
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	if strings.Contains(r.Header.Get("Content-Type"), "application/graphql") {
		return graphQLRequest{Query: string(body)}
	}
	var req graphQLRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return graphQLRequest{}
	}
	return req
}

// operationShape summarizes the selected operation of a document.
type operationShape struct {
	kind      string
	fields    int
	depth     int
	variables int
	// paged counts fields carrying a first or after argument.
	paged int
}

// describe parses the request document and measures the operation it selects.
// It returns nil when there is no document or the named operation is missing.
func (req graphQLRequest) describe() (*operationShape, error) {
	if req.Query == "" {
		return nil, nil
	}
	doc, err := parser.Parse(parser.ParseParams{
		Source: source.NewSource(&source.Source{Body: []byte(req.Query), Name: "graphql"}),
	})
	if err != nil {
		return nil, err
	}

	w := shapeWalker{
		fragments: map[string]*ast.FragmentDefinition{},
		expanded:  map[string]bool{},
	}
	var op *ast.OperationDefinition
	for _, def := range doc.Definitions {
		switch d := def.(type) {
		case *ast.FragmentDefinition:
			w.fragments[d.Name.Value] = d
		case *ast.OperationDefinition:
			if req.OperationName == "" && op == nil {
				op = d
			}
			if req.OperationName != "" && d.Name != nil && d.Name.Value == req.OperationName {
				op = d
			}
		}
	}
	if op == nil {
		return nil, nil
	}

	shape := &operationShape{
		kind:      string(op.Operation),
		variables: len(op.VariableDefinitions),
	}
	shape.depth = w.walk(op.SelectionSet, 1, shape)
	return shape, nil
}

// shapeWalker expands each fragment at most once, which also breaks cycles.
type shapeWalker struct {
	fragments map[string]*ast.FragmentDefinition
	expanded  map[string]bool
}

// walk adds the fields under set to shape and returns the deepest level
// reached, where set itself sits at level.
func (w *shapeWalker) walk(set *ast.SelectionSet, level int, shape *operationShape) int {
	if set == nil {
		return level - 1
	}
	deepest := level
	for _, selection := range set.Selections {
		reached := level
		switch sel := selection.(type) {
		case *ast.Field:
			shape.fields++
			if hasWindowArgument(sel) {
				shape.paged++
			}
			if sel.SelectionSet != nil {
				reached = w.walk(sel.SelectionSet, level+1, shape)
			}
		case *ast.InlineFragment:
			reached = w.walk(sel.SelectionSet, level, shape)
		case *ast.FragmentSpread:
			name := sel.Name.Value
			frag, ok := w.fragments[name]
			if !ok || w.expanded[name] {
				continue
			}
			w.expanded[name] = true
			reached = w.walk(frag.SelectionSet, level, shape)
		}
		deepest = max(deepest, reached)
	}
	return deepest
}

func hasWindowArgument(field *ast.Field) bool {
	for _, arg := range field.Arguments {
		if arg.Name == nil {
			continue
		}
		if arg.Name.Value == "first" || arg.Name.Value == "after" {
			return true
		}
	}
	return false
}
