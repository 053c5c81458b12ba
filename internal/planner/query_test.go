package planner

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay-paging/internal/dbexec"
	"relay-paging/internal/model"
)

const tagsForCardSQL = "SELECT `tags`.`id`, `tags`.`name`, `card_tags`.`card_id` AS `__parent_key` " +
	"FROM `tags` INNER JOIN `card_tags` ON `card_tags`.`tag_id` = `tags`.`id` " +
	"WHERE `card_tags`.`card_id` IN (?)"

func testModels(t *testing.T) (*model.Model, *model.Model) {
	t.Helper()
	card := model.New("Card", "cards", "title")
	tag := model.New("Tag", "tags", "name")
	require.NoError(t, card.AddRelation(model.Relation{
		Name:     "tags",
		Kind:     model.ManyToMany,
		Target:   "Tag",
		Junction: &model.Junction{Table: "card_tags", LocalColumn: "card_id", RemoteColumn: "tag_id"},
	}))
	require.NoError(t, tag.AddRelation(model.Relation{
		Name:     "cards",
		Kind:     model.ManyToMany,
		Target:   "Card",
		Junction: &model.Junction{Table: "card_tags", LocalColumn: "tag_id", RemoteColumn: "card_id"},
	}))
	require.NoError(t, card.AddRelation(model.Relation{
		Name:        "author",
		Kind:        model.ManyToOne,
		Target:      "User",
		LocalColumn: "author_id",
	}))
	return card, tag
}

func tagsRelationQuery(t *testing.T, keys ...interface{}) *Query {
	t.Helper()
	card, tag := testModels(t)
	rel, ok := card.Relation("tags")
	require.True(t, ok)
	q, err := RelationQuery(rel, tag, keys)
	require.NoError(t, err)
	return q
}

func TestNewQuery_SelectsModelColumns(t *testing.T) {
	_, tag := testModels(t)
	got, err := NewQuery(tag).ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT `tags`.`id`, `tags`.`name` FROM `tags`", got.SQL)
	assert.Empty(t, got.Args)
}

func TestQuery_OrderLimitOffset(t *testing.T) {
	q := tagsRelationQuery(t, int64(1))
	q.OrderBy("id", "asc").Limit(3).Offset(3)

	got, err := q.ToSQL()
	require.NoError(t, err)
	assert.Equal(t, tagsForCardSQL+" ORDER BY `tags`.`id` ASC LIMIT 3 OFFSET 3", got.SQL)
	assert.Equal(t, []interface{}{int64(1)}, got.Args)
}

func TestQuery_OrderByQualifiedColumn(t *testing.T) {
	card, _ := testModels(t)
	got, err := NewQuery(card).OrderBy("cards.id", "desc").ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT `cards`.`id`, `cards`.`title` FROM `cards` ORDER BY `cards`.`id` DESC", got.SQL)
}

func TestQuery_InvalidInputSurfaceOnRender(t *testing.T) {
	card, _ := testModels(t)

	_, err := NewQuery(card).OrderBy("id", "sideways").ToSQL()
	assert.ErrorContains(t, err, "invalid order direction")

	_, err = NewQuery(card).WhereColumn("id", "; DROP", 1).ToSQL()
	assert.ErrorContains(t, err, "unsupported operator")

	_, err = NewQuery(card).WhereColumn("id", "; DROP", 1).CountSQL()
	assert.Error(t, err)
}

func TestQuery_WhereColumn(t *testing.T) {
	card, _ := testModels(t)
	got, err := NewQuery(card).
		WhereColumn("title", "!=", "second test card").
		WhereColumn("id", ">", 0).
		ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT `cards`.`id`, `cards`.`title` FROM `cards` WHERE `cards`.`title` != ? AND `cards`.`id` > ?", got.SQL)
	assert.Equal(t, []interface{}{"second test card", 0}, got.Args)
}

func TestQuery_CloneIsIndependent(t *testing.T) {
	q := tagsRelationQuery(t, int64(1))
	q.OrderBy("id", "ASC")
	clone := q.Clone()
	clone.Limit(1).WhereColumn("name", "=", "x")

	original, err := q.ToSQL()
	require.NoError(t, err)
	assert.Equal(t, tagsForCardSQL+" ORDER BY `tags`.`id` ASC", original.SQL)

	cloned, err := clone.ToSQL()
	require.NoError(t, err)
	assert.Contains(t, cloned.SQL, "`tags`.`name` = ?")
	assert.Contains(t, cloned.SQL, "LIMIT 1")
}

func TestQuery_CountSQLStripsWindowAndOrder(t *testing.T) {
	q := tagsRelationQuery(t, int64(1))
	q.OrderBy("id", "ASC").Limit(3).Offset(3)

	got, err := q.CountSQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM ("+tagsForCardSQL+") AS __count", got.SQL)
	assert.Equal(t, []interface{}{int64(1)}, got.Args)
}

func TestQuery_ApplyRunsModifiersInOrder(t *testing.T) {
	card, _ := testModels(t)
	var order []string
	mark := func(name string) Modifier {
		return func(*Query) { order = append(order, name) }
	}
	NewQuery(card).Apply(mark("orderBy"), nil, mark("excludeSelf"), mark("filter"), mark("range"))
	assert.Equal(t, []string{"orderBy", "excludeSelf", "filter", "range"}, order)
}

func TestQuery_RunSideQueries(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	q := tagsRelationQuery(t, int64(1))
	d := NewDeferred()
	q.Apply(OrderByID, Range(3, 0, d))
	require.True(t, q.HasSideQueries())

	countSQL := "SELECT COUNT(*) FROM (" + tagsForCardSQL + ") AS __count"
	mock.ExpectQuery(regexp.QuoteMeta(countSQL)).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(5)))

	require.NoError(t, q.RunSideQueries(context.Background(), dbexec.NewStandardExecutor(db)))
	assert.False(t, q.HasSideQueries())

	total, err := d.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_RunSideQueriesFailureReachesDeferred(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("count failed")
	mock.ExpectQuery("SELECT COUNT").WillReturnError(boom)

	q := tagsRelationQuery(t, int64(1))
	d := NewDeferred()
	q.Apply(Range(3, 0, d))

	err = q.RunSideQueries(context.Background(), dbexec.NewStandardExecutor(db))
	assert.ErrorIs(t, err, boom)
	_, err = d.Wait(context.Background())
	assert.ErrorIs(t, err, boom)
}
