package sqlite

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/tendant/simple-media/pkg/simplemedia"
	"github.com/tendant/simple-media/pkg/simplemedia/repo/internal/sqlbuild"
)

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository implements simplemedia.MetadataStore using SQLite
type Repository struct {
	db   *sql.DB
	q    queryer
	inTx bool
}

// New creates a repository on a database opened with Open
func New(db *sql.DB) *Repository {
	return &Repository{db: db, q: db}
}

var _ simplemedia.MetadataStore = (*Repository)(nil)

// WithTx runs fn in a transaction. Calls nested inside fn join the outer
// transaction. Deferred foreign keys are verified before committing so a
// violation rolls back cleanly.
func (r *Repository) WithTx(ctx context.Context, fn func(tx simplemedia.Repository) error) error {
	if r.inTx {
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return handleSQLiteError("begin", err)
	}
	defer tx.Rollback()

	txRepo := &Repository{db: r.db, q: tx, inTx: true}
	if err := fn(txRepo); err != nil {
		return err
	}
	if err := txRepo.checkForeignKeys(ctx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return handleSQLiteError("commit", err)
	}
	return nil
}

func (r *Repository) checkForeignKeys(ctx context.Context) error {
	rows, err := r.q.QueryContext(ctx, "PRAGMA foreign_key_check(bindings)")
	if err != nil {
		return handleSQLiteError("foreign key check", err)
	}
	defer rows.Close()

	if rows.Next() {
		var (
			table, parent string
			rowid, fkid   sql.NullInt64
		)
		if err := rows.Scan(&table, &rowid, &parent, &fkid); err != nil {
			return handleSQLiteError("foreign key check", err)
		}
		return fmt.Errorf("binding row %d: %s: %w", rowid.Int64, parent, simplemedia.ErrReferenceNotFound)
	}
	if err := rows.Err(); err != nil {
		return handleSQLiteError("foreign key check", err)
	}
	return nil
}

func newQuery() *sqlbuild.Query {
	return sqlbuild.New(sqlbuild.SQLite)
}

func collect[T any](rows *sql.Rows, scan func(*sql.Rows) (*T, error)) ([]*T, error) {
	defer rows.Close()
	var out []*T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func collectOne[T any](rows *sql.Rows, scan func(*sql.Rows) (*T, error)) (*T, error) {
	out, err := collect(rows, scan)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, sql.ErrNoRows
	}
	return out[0], nil
}

// query runs a statement and collects its rows, mapping errors for op.
func query[T any](ctx context.Context, r *Repository, op string, scan func(*sql.Rows) (*T, error), stmt string, args ...any) ([]*T, error) {
	rows, err := r.q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, handleSQLiteError(op, err)
	}
	out, err := collect(rows, scan)
	if err != nil {
		return nil, handleSQLiteError(op, err)
	}
	return out, nil
}

func queryOne[T any](ctx context.Context, r *Repository, op string, scan func(*sql.Rows) (*T, error), stmt string, args ...any) (*T, error) {
	rows, err := r.q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, handleSQLiteError(op, err)
	}
	v, err := collectOne(rows, scan)
	if err != nil {
		return nil, handleSQLiteError(op, err)
	}
	return v, nil
}

func (r *Repository) count(ctx context.Context, op, table string, q *sqlbuild.Query) (int, error) {
	var n int
	if err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+q.Where(), q.Args...).Scan(&n); err != nil {
		return 0, handleSQLiteError(op, err)
	}
	return n, nil
}

func scanBinding(rows *sql.Rows) (*simplemedia.Binding, error) {
	var b simplemedia.Binding
	err := rows.Scan(&b.ID, &b.PlaylistID, &b.MediaID, &b.Rank)
	return &b, err
}

// bindingsOf loads the bindings whose column col is in ids, grouped by
// that column and ordered by rank.
func (r *Repository) bindingsOf(ctx context.Context, col string, ids []string) (map[string][]*simplemedia.Binding, error) {
	q := newQuery().In(col, ids)
	bindings, err := query(ctx, r, "load bindings", scanBinding,
		"SELECT "+sqlbuild.BindingColumns+" FROM bindings"+q.Where()+" ORDER BY rank, id", q.Args...)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]*simplemedia.Binding)
	for _, b := range bindings {
		parent := b.PlaylistID
		if col == "media_id" {
			parent = b.MediaID
		}
		grouped[parent] = append(grouped[parent], b)
	}
	return grouped, nil
}

// Playlist operations

func scanPlaylist(rows *sql.Rows) (*simplemedia.Playlist, error) {
	var p simplemedia.Playlist
	err := rows.Scan(&p.ID, &p.Name)
	return &p, err
}

func (r *Repository) attachPlaylistBindings(ctx context.Context, playlists []*simplemedia.Playlist) error {
	ids := make([]string, 0, len(playlists))
	for _, p := range playlists {
		ids = append(ids, p.ID)
	}
	grouped, err := r.bindingsOf(ctx, "playlist_id", ids)
	if err != nil {
		return err
	}
	for _, p := range playlists {
		p.Bindings = grouped[p.ID]
	}
	return nil
}

func (r *Repository) CountPlaylists(ctx context.Context, filter simplemedia.PlaylistFilter) (int, error) {
	return r.count(ctx, "count playlists", "playlists", newQuery().PlaylistFilter(filter))
}

func (r *Repository) ListPlaylists(ctx context.Context, params simplemedia.ListPlaylistsParams) ([]*simplemedia.Playlist, error) {
	order, err := sqlbuild.EntityOrder(params.Order)
	if err != nil {
		return nil, err
	}
	q := newQuery().PlaylistFilter(params.Filter)
	playlists, err := query(ctx, r, "list playlists", scanPlaylist,
		"SELECT "+sqlbuild.PlaylistColumns+" FROM playlists"+q.Where()+order+q.Page(params.Limit, params.Offset), q.Args...)
	if err != nil {
		return nil, err
	}
	if params.Include.Bindings && len(playlists) > 0 {
		if err := r.attachPlaylistBindings(ctx, playlists); err != nil {
			return nil, err
		}
	}
	return playlists, nil
}

func (r *Repository) GetPlaylist(ctx context.Context, key simplemedia.Key, include simplemedia.Include) (*simplemedia.Playlist, error) {
	q := newQuery().Key(key)
	p, err := queryOne(ctx, r, "get playlist", scanPlaylist,
		"SELECT "+sqlbuild.PlaylistColumns+" FROM playlists"+q.Where(), q.Args...)
	if err != nil {
		return nil, err
	}
	if include.Bindings {
		if err := r.attachPlaylistBindings(ctx, []*simplemedia.Playlist{p}); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (r *Repository) CreatePlaylist(ctx context.Context, playlist *simplemedia.Playlist) error {
	_, err := r.q.ExecContext(ctx, `INSERT INTO playlists (id, name) VALUES (?, ?)`, playlist.ID, playlist.Name)
	if err != nil {
		return handleSQLiteError("create playlist", err)
	}
	return nil
}

func (r *Repository) UpdatePlaylist(ctx context.Context, key simplemedia.Key, patch simplemedia.PlaylistPatch) (*simplemedia.Playlist, error) {
	q := newQuery()
	set := "id = COALESCE(" + q.Arg(patch.ID) + ", id), name = COALESCE(" + q.Arg(patch.Name) + ", name)"
	q.Key(key)
	return queryOne(ctx, r, "update playlist", scanPlaylist,
		"UPDATE playlists SET "+set+q.Where()+" RETURNING "+sqlbuild.PlaylistColumns, q.Args...)
}

func (r *Repository) DeletePlaylist(ctx context.Context, key simplemedia.Key) (*simplemedia.Playlist, error) {
	q := newQuery().Key(key)
	return queryOne(ctx, r, "delete playlist", scanPlaylist,
		"DELETE FROM playlists"+q.Where()+" RETURNING "+sqlbuild.PlaylistColumns, q.Args...)
}

// Media operations

func scanMedia(rows *sql.Rows) (*simplemedia.Media, error) {
	var m simplemedia.Media
	err := rows.Scan(&m.ID, &m.Name)
	return &m, err
}

func (r *Repository) attachMediaBindings(ctx context.Context, media []*simplemedia.Media) error {
	ids := make([]string, 0, len(media))
	for _, m := range media {
		ids = append(ids, m.ID)
	}
	grouped, err := r.bindingsOf(ctx, "media_id", ids)
	if err != nil {
		return err
	}
	for _, m := range media {
		m.Bindings = grouped[m.ID]
	}
	return nil
}

func (r *Repository) CountMedia(ctx context.Context, filter simplemedia.MediaFilter) (int, error) {
	return r.count(ctx, "count media", "media", newQuery().MediaFilter(filter))
}

func (r *Repository) ListMedia(ctx context.Context, params simplemedia.ListMediaParams) ([]*simplemedia.Media, error) {
	order, err := sqlbuild.EntityOrder(params.Order)
	if err != nil {
		return nil, err
	}
	q := newQuery().MediaFilter(params.Filter)
	media, err := query(ctx, r, "list media", scanMedia,
		"SELECT "+sqlbuild.MediaColumns+" FROM media"+q.Where()+order+q.Page(params.Limit, params.Offset), q.Args...)
	if err != nil {
		return nil, err
	}
	if params.Include.Bindings && len(media) > 0 {
		if err := r.attachMediaBindings(ctx, media); err != nil {
			return nil, err
		}
	}
	return media, nil
}

func (r *Repository) GetMedia(ctx context.Context, key simplemedia.Key, include simplemedia.Include) (*simplemedia.Media, error) {
	q := newQuery().Key(key)
	m, err := queryOne(ctx, r, "get media", scanMedia,
		"SELECT "+sqlbuild.MediaColumns+" FROM media"+q.Where(), q.Args...)
	if err != nil {
		return nil, err
	}
	if include.Bindings {
		if err := r.attachMediaBindings(ctx, []*simplemedia.Media{m}); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (r *Repository) CreateMedia(ctx context.Context, media *simplemedia.Media) error {
	_, err := r.q.ExecContext(ctx, `INSERT INTO media (id, name) VALUES (?, ?)`, media.ID, media.Name)
	if err != nil {
		return handleSQLiteError("create media", err)
	}
	return nil
}

func (r *Repository) UpdateMedia(ctx context.Context, key simplemedia.Key, patch simplemedia.MediaPatch) (*simplemedia.Media, error) {
	q := newQuery()
	set := "id = COALESCE(" + q.Arg(patch.ID) + ", id), name = COALESCE(" + q.Arg(patch.Name) + ", name)"
	q.Key(key)
	return queryOne(ctx, r, "update media", scanMedia,
		"UPDATE media SET "+set+q.Where()+" RETURNING "+sqlbuild.MediaColumns, q.Args...)
}

func (r *Repository) DeleteMedia(ctx context.Context, key simplemedia.Key) (*simplemedia.Media, error) {
	q := newQuery().Key(key)
	return queryOne(ctx, r, "delete media", scanMedia,
		"DELETE FROM media"+q.Where()+" RETURNING "+sqlbuild.MediaColumns, q.Args...)
}

// Binding operations

const insertBinding = `INSERT INTO bindings (id, playlist_id, media_id, rank) VALUES (?, ?, ?, ?)`

func (r *Repository) CountBindings(ctx context.Context, filter simplemedia.BindingFilter) (int, error) {
	return r.count(ctx, "count bindings", "bindings", newQuery().BindingFilter(filter))
}

func (r *Repository) ListBindings(ctx context.Context, params simplemedia.ListBindingsParams) ([]*simplemedia.Binding, error) {
	order, err := sqlbuild.BindingOrder(params.Order)
	if err != nil {
		return nil, err
	}
	q := newQuery().BindingFilter(params.Filter)
	return query(ctx, r, "list bindings", scanBinding,
		"SELECT "+sqlbuild.BindingColumns+" FROM bindings"+q.Where()+order+q.Page(params.Limit, params.Offset), q.Args...)
}

func (r *Repository) GetBinding(ctx context.Context, key simplemedia.BindingKey) (*simplemedia.Binding, error) {
	q := newQuery().BindingKey(key)
	return queryOne(ctx, r, "get binding", scanBinding,
		"SELECT "+sqlbuild.BindingColumns+" FROM bindings"+q.Where(), q.Args...)
}

func (r *Repository) CreateBinding(ctx context.Context, b *simplemedia.Binding) error {
	_, err := r.q.ExecContext(ctx, insertBinding, b.ID, b.PlaylistID, b.MediaID, b.Rank)
	if err != nil {
		return handleSQLiteError("create binding", err)
	}
	return nil
}

// CreateBindings inserts bindings atomically.
func (r *Repository) CreateBindings(ctx context.Context, bindings []*simplemedia.Binding) error {
	if len(bindings) == 0 {
		return nil
	}
	return r.WithTx(ctx, func(tx simplemedia.Repository) error {
		for _, b := range bindings {
			if err := tx.CreateBinding(ctx, b); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) UpdateBinding(ctx context.Context, key simplemedia.BindingKey, patch simplemedia.BindingPatch) (*simplemedia.Binding, error) {
	q := newQuery()
	set := "playlist_id = COALESCE(" + q.Arg(patch.PlaylistID) + ", playlist_id), " +
		"media_id = COALESCE(" + q.Arg(patch.MediaID) + ", media_id), " +
		"rank = COALESCE(" + q.Arg(patch.Rank) + ", rank)"
	q.BindingKey(key)
	return queryOne(ctx, r, "update binding", scanBinding,
		"UPDATE bindings SET "+set+q.Where()+" RETURNING "+sqlbuild.BindingColumns, q.Args...)
}

func (r *Repository) DeleteBinding(ctx context.Context, key simplemedia.BindingKey) (*simplemedia.Binding, error) {
	q := newQuery().BindingKey(key)
	return queryOne(ctx, r, "delete binding", scanBinding,
		"DELETE FROM bindings"+q.Where()+" RETURNING "+sqlbuild.BindingColumns, q.Args...)
}

func (r *Repository) DeleteBindings(ctx context.Context, filter simplemedia.BindingFilter) ([]*simplemedia.Binding, error) {
	q := newQuery().BindingFilter(filter)
	deleted, err := query(ctx, r, "delete bindings", scanBinding,
		"DELETE FROM bindings"+q.Where()+" RETURNING "+sqlbuild.BindingColumns, q.Args...)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(deleted, func(a, b *simplemedia.Binding) int {
		return cmp.Or(cmp.Compare(a.Rank, b.Rank), cmp.Compare(a.ID, b.ID))
	})
	return deleted, nil
}
