package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay-paging/internal/model"
)

func TestRelationQuery_ManyToMany(t *testing.T) {
	got, err := tagsRelationQuery(t, int64(1), int64(2)).ToSQL()
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT `tags`.`id`, `tags`.`name`, `card_tags`.`card_id` AS `__parent_key` "+
			"FROM `tags` INNER JOIN `card_tags` ON `card_tags`.`tag_id` = `tags`.`id` "+
			"WHERE `card_tags`.`card_id` IN (?,?)",
		got.SQL)
	assert.Equal(t, []interface{}{int64(1), int64(2)}, got.Args)
}

func TestRelationQuery_ManyToOne(t *testing.T) {
	card, _ := testModels(t)
	user := model.New("User", "users", "name")
	rel, _ := card.Relation("author")

	q, err := RelationQuery(rel, user, []interface{}{int64(7)})
	require.NoError(t, err)
	got, err := q.ToSQL()
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT `users`.`id`, `users`.`name`, `users`.`id` AS `__parent_key` FROM `users` WHERE `users`.`id` IN (?)",
		got.SQL)
}

func TestRelationQuery_ManyToOneCustomTargetID(t *testing.T) {
	card, _ := testModels(t)
	user := model.New("User", "users", "name")
	user.IDColumn = "user_id"
	user.Columns[0] = "user_id"
	rel, _ := card.Relation("author")

	q, err := RelationQuery(rel, user, []interface{}{int64(7)})
	require.NoError(t, err)
	got, err := q.ToSQL()
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT `users`.`user_id`, `users`.`name`, `users`.`user_id` AS `__parent_key` FROM `users` WHERE `users`.`user_id` IN (?)",
		got.SQL)
}

func TestRelationQuery_OneToMany(t *testing.T) {
	comment := model.New("Comment", "comments", "card_id", "body")
	rel := model.Relation{Name: "comments", Kind: model.OneToMany, Target: "Comment", LocalColumn: "id", RemoteColumn: "card_id"}

	q, err := RelationQuery(rel, comment, []interface{}{int64(1)})
	require.NoError(t, err)
	got, err := q.ToSQL()
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT `comments`.`id`, `comments`.`card_id`, `comments`.`body`, `comments`.`card_id` AS `__parent_key` "+
			"FROM `comments` WHERE `comments`.`card_id` IN (?)",
		got.SQL)
}

func TestRelationQuery_Errors(t *testing.T) {
	card, tag := testModels(t)
	rel, _ := card.Relation("tags")

	_, err := RelationQuery(rel, tag, nil)
	assert.Error(t, err)

	_, err = RelationQuery(rel, nil, []interface{}{1})
	assert.Error(t, err)

	broken := rel
	broken.Junction = nil
	_, err = RelationQuery(broken, tag, []interface{}{1})
	assert.ErrorContains(t, err, "requires a junction")
}

func TestExcludeSelf(t *testing.T) {
	card, tag := testModels(t)
	root := model.NewInstance(card, map[string]any{"id": int64(1)})

	cardsQuery := NewQuery(card).Apply(ExcludeSelf(root))
	got, err := cardsQuery.ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT `cards`.`id`, `cards`.`title` FROM `cards` WHERE `cards`.`id` != ?", got.SQL)
	assert.Equal(t, []interface{}{int64(1)}, got.Args)

	tagsQuery := NewQuery(tag).Apply(ExcludeSelf(root))
	got, err = tagsQuery.ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT `tags`.`id`, `tags`.`name` FROM `tags`", got.SQL)
}

func TestFindQuery(t *testing.T) {
	card, _ := testModels(t)
	got, err := FindQuery(card, "3").ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT `cards`.`id`, `cards`.`title` FROM `cards` WHERE `cards`.`id` = ? LIMIT 1", got.SQL)
	assert.Equal(t, []interface{}{"3"}, got.Args)
}
