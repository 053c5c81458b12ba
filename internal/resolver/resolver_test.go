package resolver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"relay-paging/internal/eager"
	"relay-paging/internal/model"
	"relay-paging/internal/testutil/fakedb"
	"relay-paging/internal/testutil/fixtures"
)

type schemaFixture struct {
	fixtures.Cards
	exec   *fakedb.Executor
	schema graphql.Schema
}

func newSchemaFixture(t *testing.T, responses ...[][]any) *schemaFixture {
	t.Helper()
	fx := fixtures.NewCards()
	exec := &fakedb.Executor{Responses: responses}
	schema, err := BuildSchema(fx.Registry, eager.NewLoader(exec, fx.Registry), Config{
		MaxFirst:    50,
		ColumnTypes: map[string]map[string]string{"Card": {"author_id": "int"}},
	})
	require.NoError(t, err)
	return &schemaFixture{Cards: fx, exec: exec, schema: schema}
}

func (f *schemaFixture) run(t *testing.T, query string) *graphql.Result {
	t.Helper()
	return graphql.Do(graphql.Params{
		Schema:        f.schema,
		RequestString: query,
		Context:       context.Background(),
	})
}

func requireData(t *testing.T, result *graphql.Result, want string) {
	t.Helper()
	require.Empty(t, result.Errors)
	got, err := json.Marshal(result.Data)
	require.NoError(t, err)
	assert.JSONEq(t, want, string(got))
}

func hasArg(field *graphql.FieldDefinition, name string) bool {
	for _, arg := range field.Args {
		if arg != nil && arg.Name() == name {
			return true
		}
	}
	return false
}

func TestBuildSchema_Shape(t *testing.T) {
	f := newSchemaFixture(t)

	queryFields := f.schema.QueryType().Fields()
	for _, name := range []string{"node", "card", "allCards", "tag", "allTags", "user", "allUsers"} {
		assert.Contains(t, queryFields, name)
	}

	cardType, ok := f.schema.Type("Card").(*graphql.Object)
	require.True(t, ok)
	fields := cardType.Fields()
	for _, name := range []string{"id", "title", "authorId", "author", "tags", "tagsConnection"} {
		assert.Contains(t, fields, name)
	}
	assert.NotContains(t, fields, "authorConnection")
	assert.Equal(t, graphql.Int, fields["authorId"].Type)
	assert.True(t, hasArg(fields["tagsConnection"], "first"))
	assert.True(t, hasArg(fields["tagsConnection"], "after"))

	for _, name := range []string{"PageInfo", "TagConnection", "TagEdge", "CardConnection", "Node"} {
		assert.NotNil(t, f.schema.Type(name), name)
	}
	require.Len(t, cardType.Interfaces(), 1)
	assert.Equal(t, "Node", cardType.Interfaces()[0].Name())
}

func TestBuildSchema_RejectsUnknownTargets(t *testing.T) {
	card := model.New("Card", "cards", "title")
	require.NoError(t, card.AddRelation(model.Relation{Name: "owner", Kind: model.ManyToOne, Target: "User", LocalColumn: "owner_id"}))
	registry, err := model.NewRegistry(card)
	require.NoError(t, err)

	_, err = BuildSchema(registry, eager.NewLoader(&fakedb.Executor{}, registry), Config{})
	assert.EqualError(t, err, "relations target unknown models: [Card.owner -> User]")
}

func TestLookup_WithTagsConnection(t *testing.T) {
	f := newSchemaFixture(t,
		[][]any{{int64(1), "first test card", nil}},
		fixtures.TagRows(1, 1, 3),
		fixtures.Count(5),
	)

	result := f.run(t, `{
		card(id: "Q2FyZDox") {
			id
			title
			tagsConnection(first: 3) {
				totalCount
				pageInfo { hasNextPage hasPreviousPage startCursor }
				edges { cursor node { id name } }
			}
		}
	}`)

	requireData(t, result, `{
		"card": {
			"id": "Q2FyZDox",
			"title": "first test card",
			"tagsConnection": {
				"totalCount": 5,
				"pageInfo": {"hasNextPage": true, "hasPreviousPage": false, "startCursor": "YXJyYXljb25uZWN0aW9uOjA="},
				"edges": [
					{"cursor": "YXJyYXljb25uZWN0aW9uOjA=", "node": {"id": "VGFnOjE=", "name": "tag1"}},
					{"cursor": "YXJyYXljb25uZWN0aW9uOjE=", "node": {"id": "VGFnOjI=", "name": "tag2"}},
					{"cursor": "YXJyYXljb25uZWN0aW9uOjI=", "node": {"id": "VGFnOjM=", "name": "tag3"}}
				]
			}
		}
	}`)

	calls := f.exec.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, []any{"1"}, calls[0].Args)
	assert.Contains(t, calls[1].SQL, "LIMIT 3")
}

func TestLookup_ConnectionAfterCursor(t *testing.T) {
	f := newSchemaFixture(t,
		[][]any{{int64(1), "first test card", nil}},
		fixtures.TagRows(1, 4, 5),
		fixtures.Count(5),
	)

	result := f.run(t, `{
		card(id: "Q2FyZDox") {
			tagsConnection(after: "YXJyYXljb25uZWN0aW9uOjI=") {
				pageInfo { hasNextPage hasPreviousPage }
				edges { cursor }
			}
		}
	}`)

	requireData(t, result, `{
		"card": {
			"tagsConnection": {
				"pageInfo": {"hasNextPage": false, "hasPreviousPage": true},
				"edges": [
					{"cursor": "YXJyYXljb25uZWN0aW9uOjI="},
					{"cursor": "YXJyYXljb25uZWN0aW9uOjM="}
				]
			}
		}
	}`)
	assert.Contains(t, f.exec.Calls()[1].SQL, "LIMIT 10 OFFSET 2")
}

func TestLookup_TypeMismatch(t *testing.T) {
	f := newSchemaFixture(t)

	result := f.run(t, `{ card(id: "VGFnOjQ=") { id } }`)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Identifier VGFnOjQ= is a 'Tag' but we were expecting a 'Card'", result.Errors[0].Message)
	assert.Empty(t, f.exec.Calls())
}

func TestLookup_NotFound(t *testing.T) {
	f := newSchemaFixture(t)

	result := f.run(t, `{ card(id: "Q2FyZDox") { id } }`)
	requireData(t, result, `{"card": null}`)
}

func TestNode_ResolvesConcreteType(t *testing.T) {
	f := newSchemaFixture(t, [][]any{{int64(4), "tag4"}})

	result := f.run(t, `{ node(id: "VGFnOjQ=") { id ... on Tag { name } } }`)
	requireData(t, result, `{"node": {"id": "VGFnOjQ=", "name": "tag4"}}`)
}

func TestNode_UnknownType(t *testing.T) {
	f := newSchemaFixture(t)

	result := f.run(t, `{ node(id: "bm9wZQ==") { id } }`)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Identifier bm9wZQ== is not valid.", result.Errors[0].Message)
}

func TestSingleRelationships(t *testing.T) {
	f := newSchemaFixture(t)
	// Sibling fields resolve in no fixed order, so answer by table.
	f.exec.Routes = []fakedb.Route{
		{Contains: "FROM `cards`", Rows: [][]any{{int64(1), "first test card", int64(7)}}},
		{Contains: "FROM `users`", Rows: [][]any{{int64(7), "ada", int64(7)}}},
		{Contains: "FROM `tags`", Rows: fixtures.TagRows(1, 1, 2)},
	}

	result := f.run(t, `{
		card(id: "Q2FyZDox") {
			authorId
			author { id name }
			tags { name }
		}
	}`)

	requireData(t, result, `{
		"card": {
			"authorId": 7,
			"author": {"id": "VXNlcjo3", "name": "ada"},
			"tags": [{"name": "tag1"}, {"name": "tag2"}]
		}
	}`)
}

func TestConnectionAndListOfSameRelation(t *testing.T) {
	f := newSchemaFixture(t)
	f.exec.Routes = []fakedb.Route{
		{Contains: "COUNT(*)", Rows: fixtures.Count(5)},
		{Contains: "FROM `cards`", Rows: [][]any{{int64(1), "first test card", int64(7)}}},
		{Contains: "LIMIT 1", Rows: fixtures.TagRows(1, 1, 1)},
		{Contains: "FROM `tags`", Rows: fixtures.TagRows(1, 1, 5)},
	}

	// Sibling resolution order varies between runs.
	for i := 0; i < 20; i++ {
		result := f.run(t, `{
			card(id: "Q2FyZDox") {
				tagsConnection(first: 1) { totalCount }
				tags { name }
			}
		}`)
		requireData(t, result, `{
			"card": {
				"tagsConnection": {"totalCount": 5},
				"tags": [{"name": "tag1"}, {"name": "tag2"}, {"name": "tag3"}, {"name": "tag4"}, {"name": "tag5"}]
			}
		}`)
	}
}

func TestSingleRelationship_NullAuthor(t *testing.T) {
	f := newSchemaFixture(t, [][]any{{int64(1), "first test card", nil}})

	result := f.run(t, `{ card(id: "Q2FyZDox") { author { name } } }`)
	requireData(t, result, `{"card": {"author": null}}`)
	assert.Len(t, f.exec.Calls(), 1)
}

func TestList_FullCollection(t *testing.T) {
	f := newSchemaFixture(t, [][]any{{int64(1), "tag1"}, {int64(2), "tag2"}})

	result := f.run(t, `{ allTags { totalCount pageInfo { hasNextPage hasPreviousPage } edges { cursor node { name } } } }`)
	requireData(t, result, `{
		"allTags": {
			"totalCount": 2,
			"pageInfo": {"hasNextPage": false, "hasPreviousPage": false},
			"edges": [
				{"cursor": "YXJyYXljb25uZWN0aW9uOjA=", "node": {"name": "tag1"}},
				{"cursor": "YXJyYXljb25uZWN0aW9uOjE=", "node": {"name": "tag2"}}
			]
		}
	}`)
	assert.Equal(t, "SELECT `tags`.`id`, `tags`.`name` FROM `tags` ORDER BY `tags`.`id` ASC", f.exec.Calls()[0].SQL)
}

func TestList_Windowed(t *testing.T) {
	f := newSchemaFixture(t, [][]any{{int64(2), "tag2"}, {int64(3), "tag3"}}, fixtures.Count(5))

	result := f.run(t, `{ allTags(first: 2, after: "YXJyYXljb25uZWN0aW9uOjA=") { totalCount pageInfo { hasNextPage hasPreviousPage endCursor } edges { node { name } } } }`)
	requireData(t, result, `{
		"allTags": {
			"totalCount": 5,
			"pageInfo": {"hasNextPage": true, "hasPreviousPage": false, "endCursor": "YXJyYXljb25uZWN0aW9uOjE="},
			"edges": [{"node": {"name": "tag2"}}, {"node": {"name": "tag3"}}]
		}
	}`)
	assert.Equal(t, "SELECT `tags`.`id`, `tags`.`name` FROM `tags` ORDER BY `tags`.`id` ASC LIMIT 2", f.exec.Calls()[0].SQL)
}

func TestList_MaxFirst(t *testing.T) {
	f := newSchemaFixture(t, [][]any{}, fixtures.Count(0))

	result := f.run(t, `{ allTags(first: 500) { totalCount } }`)
	requireData(t, result, `{"allTags": {"totalCount": 0}}`)
	assert.Contains(t, f.exec.Calls()[0].SQL, "LIMIT 50")
}

func TestConnectionArgs(t *testing.T) {
	args := connectionArgs(map[string]interface{}{"after": "YXJyYXljb25uZWN0aW9uOjA=", "q": "x"}, 10, 0)
	assert.Equal(t, 10, args.First)
	assert.Equal(t, "YXJyYXljb25uZWN0aW9uOjA=", args.After)
	assert.Equal(t, map[string]any{"q": "x"}, args.Extra)

	assert.Equal(t, 20, connectionArgs(map[string]interface{}{"first": 100}, 10, 20).First)
	assert.Equal(t, 0, connectionArgs(map[string]interface{}{"first": -3}, 10, 0).First)
}

func TestConnectionField_RequiresPaginator(t *testing.T) {
	_, err := ConnectionField("tags", 10, 0)(graphql.ResolveParams{Source: map[string]any{"id": 1}, Context: context.Background()})
	assert.Error(t, err)
}

func TestIDField(t *testing.T) {
	fx := fixtures.NewCards()
	id, err := IDField("")(graphql.ResolveParams{Source: fx.CardInstance(1, "first")})
	require.NoError(t, err)
	assert.Equal(t, "Q2FyZDox", id)

	_, err = IDField("")(graphql.ResolveParams{Source: map[string]any{"id": 1}})
	assert.EqualError(t, err, "The passed model is not valid.")
}

func TestLookup_EmitsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	tp.RegisterSpanProcessor(recorder)
	oldProvider := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(oldProvider)
	}()

	f := newSchemaFixture(t, [][]any{{int64(4), "tag4"}})
	result := f.run(t, `{ tag(id: "VGFnOjQ=") { name } }`)
	require.Empty(t, result.Errors)

	var found bool
	for _, span := range recorder.Ended() {
		if span.Name() != "graphql.resolve.lookup" {
			continue
		}
		found = true
		assert.Contains(t, span.Attributes(), attribute.String("graphql.model", "Tag"))
		assert.Contains(t, span.Attributes(), attribute.String("graphql.resolver.outcome", "success"))
	}
	assert.True(t, found)
}
