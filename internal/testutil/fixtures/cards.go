// Package fixtures builds the card and tag models shared by package tests.
package fixtures

import (
	"fmt"

	"relay-paging/internal/model"
)

// Cards is a registry of Card and Tag joined many-to-many through card_tags,
// plus Card.author many-to-one to User.
type Cards struct {
	Registry *model.Registry
	Card     *model.Model
	Tag      *model.Model
	User     *model.Model
}

// NewCards builds the Cards fixture. It panics on a construction error.
func NewCards() Cards {
	card := model.New("Card", "cards", "title", "author_id")
	tag := model.New("Tag", "tags", "name")
	user := model.New("User", "users", "name")

	must(card.AddRelation(model.Relation{
		Name:     "tags",
		Kind:     model.ManyToMany,
		Target:   "Tag",
		Junction: &model.Junction{Table: "card_tags", LocalColumn: "card_id", RemoteColumn: "tag_id"},
	}))
	must(card.AddRelation(model.Relation{
		Name:        "author",
		Kind:        model.ManyToOne,
		Target:      "User",
		LocalColumn: "author_id",
	}))
	must(tag.AddRelation(model.Relation{
		Name:     "cards",
		Kind:     model.ManyToMany,
		Target:   "Card",
		Junction: &model.Junction{Table: "card_tags", LocalColumn: "tag_id", RemoteColumn: "card_id"},
	}))
	must(user.AddRelation(model.Relation{
		Name:         "cards",
		Kind:         model.OneToMany,
		Target:       "Card",
		RemoteColumn: "author_id",
	}))

	registry, err := model.NewRegistry(card, tag, user)
	must(err)
	must(registry.Validate())
	return Cards{Registry: registry, Card: card, Tag: tag, User: user}
}

// CardInstance returns a Card with the given id and title.
func (c Cards) CardInstance(id int64, title string) *model.Instance {
	return model.NewInstance(c.Card, map[string]any{"id": id, "title": title, "author_id": nil})
}

// CardRow is a Card result row owned by parent.
func CardRow(id int64, title string, parent int64) []any {
	return []any{id, title, nil, parent}
}

// TagRow is a Tag result row owned by parent.
func TagRow(id int64, name string, parent int64) []any {
	return []any{id, name, parent}
}

// TagRows returns rows for tags first..last, each owned by parent.
func TagRows(parent int64, first, last int64) [][]any {
	rows := make([][]any, 0, last-first+1)
	for id := first; id <= last; id++ {
		rows = append(rows, TagRow(id, fmt.Sprintf("tag%d", id), parent))
	}
	return rows
}

// Count is a single-row count result.
func Count(n int64) [][]any {
	return [][]any{{n}}
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
