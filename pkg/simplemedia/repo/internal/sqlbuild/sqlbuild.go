// Package sqlbuild assembles the filtered, ordered and paged queries shared
// by the SQL repositories.
package sqlbuild

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tendant/simple-media/pkg/simplemedia"
)

// Dialect describes how a database spells parameters and unbounded limits.
type Dialect struct {
	Placeholder func(n int) string
	// NoLimit is written as the LIMIT when only an offset is given. Empty
	// means OFFSET may stand alone.
	NoLimit string
}

var (
	Postgres = Dialect{
		Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	}
	SQLite = Dialect{
		Placeholder: func(int) string { return "?" },
		NoLimit:     "-1",
	}
)

// Columns
const (
	PlaylistColumns = "id, name"
	MediaColumns    = "id, name"
	BindingColumns  = "id, playlist_id, media_id, rank"
)

var (
	entityOrderColumns  = map[string]string{"id": "id", "name": "name"}
	bindingOrderColumns = map[string]string{"id": "id", "playlist_id": "playlist_id", "media_id": "media_id", "rank": "rank"}

	defaultEntityOrder  = []simplemedia.Order{{Field: "id"}}
	defaultBindingOrder = []simplemedia.Order{{Field: "playlist_id"}, {Field: "rank"}}
)

// Query accumulates WHERE conditions and their arguments.
type Query struct {
	dialect Dialect
	conds   []string
	Args    []any
}

// New starts a query in dialect d.
func New(d Dialect) *Query {
	return &Query{dialect: d}
}

// Arg binds v and returns its placeholder.
func (q *Query) Arg(v any) string {
	q.Args = append(q.Args, v)
	return q.dialect.Placeholder(len(q.Args))
}

// Eq adds col = v. An empty v adds nothing.
func (q *Query) Eq(col, v string) *Query {
	if v != "" {
		q.conds = append(q.conds, col+" = "+q.Arg(v))
	}
	return q
}

// In adds col IN (vs...). A nil vs adds nothing; an empty one matches no row.
func (q *Query) In(col string, vs []string) *Query {
	if vs == nil {
		return q
	}
	if len(vs) == 0 {
		q.conds = append(q.conds, "1 = 0")
		return q
	}
	ph := make([]string, len(vs))
	for i, v := range vs {
		ph[i] = q.Arg(v)
	}
	q.conds = append(q.conds, col+" IN ("+strings.Join(ph, ", ")+")")
	return q
}

// Key adds a lookup by ID or by name.
func (q *Query) Key(key simplemedia.Key) *Query {
	if key.ID != "" {
		return q.Eq("id", key.ID)
	}
	return q.Eq("name", key.Name)
}

// BindingKey adds a lookup by binding ID or by playlist position.
func (q *Query) BindingKey(key simplemedia.BindingKey) *Query {
	if key.ID != "" {
		return q.Eq("id", key.ID)
	}
	return q.Eq("playlist_id", key.PlaylistID).Eq("rank", key.Rank)
}

// PlaylistFilter adds the conditions of f.
func (q *Query) PlaylistFilter(f simplemedia.PlaylistFilter) *Query {
	return q.Eq("id", f.ID).Eq("name", f.Name).In("id", f.IDs)
}

// MediaFilter adds the conditions of f.
func (q *Query) MediaFilter(f simplemedia.MediaFilter) *Query {
	return q.Eq("id", f.ID).Eq("name", f.Name).In("id", f.IDs)
}

// BindingFilter adds the conditions of f.
func (q *Query) BindingFilter(f simplemedia.BindingFilter) *Query {
	return q.Eq("id", f.ID).Eq("playlist_id", f.PlaylistID).Eq("media_id", f.MediaID).In("id", f.IDs)
}

// Where renders the accumulated conditions, or "" when there are none.
func (q *Query) Where() string {
	if len(q.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(q.conds, " AND ")
}

// Page renders LIMIT and OFFSET. Zero values are omitted.
func (q *Query) Page(limit, offset int) string {
	var b strings.Builder
	switch {
	case limit > 0:
		b.WriteString(" LIMIT " + q.Arg(limit))
	case offset > 0 && q.dialect.NoLimit != "":
		b.WriteString(" LIMIT " + q.dialect.NoLimit)
	}
	if offset > 0 {
		b.WriteString(" OFFSET " + q.Arg(offset))
	}
	return b.String()
}

// EntityOrder renders ORDER BY for playlists and media.
func EntityOrder(order []simplemedia.Order) (string, error) {
	return orderBy(order, defaultEntityOrder, entityOrderColumns)
}

// BindingOrder renders ORDER BY for bindings.
func BindingOrder(order []simplemedia.Order) (string, error) {
	return orderBy(order, defaultBindingOrder, bindingOrderColumns)
}

func orderBy(order, defaults []simplemedia.Order, columns map[string]string) (string, error) {
	if len(order) == 0 {
		order = defaults
	}
	terms := make([]string, 0, len(order))
	for _, o := range order {
		col, ok := columns[o.Field]
		if !ok {
			return "", fmt.Errorf("cannot order by %q: %w", o.Field, simplemedia.ErrInvalidData)
		}
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		terms = append(terms, col+" "+dir)
	}
	return " ORDER BY " + strings.Join(terms, ", "), nil
}
