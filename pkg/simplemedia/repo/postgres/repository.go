package postgres

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/simple-media/pkg/simplemedia"
	"github.com/tendant/simple-media/pkg/simplemedia/repo/internal/sqlbuild"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	SendBatch(context.Context, *pgx.Batch) pgx.BatchResults
	Begin(context.Context) (pgx.Tx, error)
}

// Repository implements simplemedia.MetadataStore using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

var _ simplemedia.MetadataStore = (*Repository)(nil)

// WithTx runs fn in a transaction. Inside a transaction it uses a savepoint.
// Binding foreign keys are deferred, so they are checked when fn returns.
func (r *Repository) WithTx(ctx context.Context, fn func(tx simplemedia.Repository) error) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		return fn(&Repository{db: tx})
	})
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return handlePostgresError("commit", err)
	}
	return err
}

// Error handling helper
func handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s: %s: %w", operation, pgErr.ConstraintName, simplemedia.ErrDuplicate)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s: %s: %w", operation, pgErr.ConstraintName, simplemedia.ErrReferenceNotFound)
		case "23502", "23514", "22001": // not_null_violation, check_violation, string_data_right_truncation
			return fmt.Errorf("%s: %s: %w", operation, pgErr.Message, simplemedia.ErrInvalidData)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist, database migration required: %w", err)
		default:
			return fmt.Errorf("database error in %s (code: %s): %w", operation, pgErr.Code, err)
		}
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return simplemedia.ErrNotFound
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

func newQuery() *sqlbuild.Query {
	return sqlbuild.New(sqlbuild.Postgres)
}

func scanBinding(row pgx.CollectableRow) (*simplemedia.Binding, error) {
	var b simplemedia.Binding
	err := row.Scan(&b.ID, &b.PlaylistID, &b.MediaID, &b.Rank)
	return &b, err
}

// bindingsOf loads the bindings whose column col is in ids, grouped by
// that column and ordered by rank.
func (r *Repository) bindingsOf(ctx context.Context, col string, ids []string) (map[string][]*simplemedia.Binding, error) {
	q := newQuery().In(col, ids)
	rows, err := r.db.Query(ctx,
		"SELECT "+sqlbuild.BindingColumns+" FROM bindings"+q.Where()+" ORDER BY rank, id", q.Args...)
	if err != nil {
		return nil, handlePostgresError("load bindings", err)
	}
	bindings, err := pgx.CollectRows(rows, scanBinding)
	if err != nil {
		return nil, handlePostgresError("load bindings", err)
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

func scanPlaylist(row pgx.CollectableRow) (*simplemedia.Playlist, error) {
	var p simplemedia.Playlist
	err := row.Scan(&p.ID, &p.Name)
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
	q := newQuery().PlaylistFilter(filter)
	var n int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM playlists"+q.Where(), q.Args...).Scan(&n); err != nil {
		return 0, handlePostgresError("count playlists", err)
	}
	return n, nil
}

func (r *Repository) ListPlaylists(ctx context.Context, params simplemedia.ListPlaylistsParams) ([]*simplemedia.Playlist, error) {
	order, err := sqlbuild.EntityOrder(params.Order)
	if err != nil {
		return nil, err
	}
	q := newQuery().PlaylistFilter(params.Filter)
	query := "SELECT " + sqlbuild.PlaylistColumns + " FROM playlists" + q.Where() + order + q.Page(params.Limit, params.Offset)

	rows, err := r.db.Query(ctx, query, q.Args...)
	if err != nil {
		return nil, handlePostgresError("list playlists", err)
	}
	playlists, err := pgx.CollectRows(rows, scanPlaylist)
	if err != nil {
		return nil, handlePostgresError("list playlists", err)
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
	rows, err := r.db.Query(ctx, "SELECT "+sqlbuild.PlaylistColumns+" FROM playlists"+q.Where(), q.Args...)
	if err != nil {
		return nil, handlePostgresError("get playlist", err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanPlaylist)
	if err != nil {
		return nil, handlePostgresError("get playlist", err)
	}
	if include.Bindings {
		if err := r.attachPlaylistBindings(ctx, []*simplemedia.Playlist{p}); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (r *Repository) CreatePlaylist(ctx context.Context, playlist *simplemedia.Playlist) error {
	_, err := r.db.Exec(ctx, `INSERT INTO playlists (id, name) VALUES ($1, $2)`, playlist.ID, playlist.Name)
	if err != nil {
		return handlePostgresError("create playlist", err)
	}
	return nil
}

func (r *Repository) UpdatePlaylist(ctx context.Context, key simplemedia.Key, patch simplemedia.PlaylistPatch) (*simplemedia.Playlist, error) {
	q := newQuery()
	set := "id = COALESCE(" + q.Arg(patch.ID) + ", id), name = COALESCE(" + q.Arg(patch.Name) + ", name)"
	q.Key(key)

	rows, err := r.db.Query(ctx, "UPDATE playlists SET "+set+q.Where()+" RETURNING "+sqlbuild.PlaylistColumns, q.Args...)
	if err != nil {
		return nil, handlePostgresError("update playlist", err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanPlaylist)
	if err != nil {
		return nil, handlePostgresError("update playlist", err)
	}
	return p, nil
}

func (r *Repository) DeletePlaylist(ctx context.Context, key simplemedia.Key) (*simplemedia.Playlist, error) {
	q := newQuery().Key(key)
	rows, err := r.db.Query(ctx, "DELETE FROM playlists"+q.Where()+" RETURNING "+sqlbuild.PlaylistColumns, q.Args...)
	if err != nil {
		return nil, handlePostgresError("delete playlist", err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanPlaylist)
	if err != nil {
		return nil, handlePostgresError("delete playlist", err)
	}
	return p, nil
}

// Media operations

func scanMedia(row pgx.CollectableRow) (*simplemedia.Media, error) {
	var m simplemedia.Media
	err := row.Scan(&m.ID, &m.Name)
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
	q := newQuery().MediaFilter(filter)
	var n int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM media"+q.Where(), q.Args...).Scan(&n); err != nil {
		return 0, handlePostgresError("count media", err)
	}
	return n, nil
}

func (r *Repository) ListMedia(ctx context.Context, params simplemedia.ListMediaParams) ([]*simplemedia.Media, error) {
	order, err := sqlbuild.EntityOrder(params.Order)
	if err != nil {
		return nil, err
	}
	q := newQuery().MediaFilter(params.Filter)
	query := "SELECT " + sqlbuild.MediaColumns + " FROM media" + q.Where() + order + q.Page(params.Limit, params.Offset)

	rows, err := r.db.Query(ctx, query, q.Args...)
	if err != nil {
		return nil, handlePostgresError("list media", err)
	}
	media, err := pgx.CollectRows(rows, scanMedia)
	if err != nil {
		return nil, handlePostgresError("list media", err)
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
	rows, err := r.db.Query(ctx, "SELECT "+sqlbuild.MediaColumns+" FROM media"+q.Where(), q.Args...)
	if err != nil {
		return nil, handlePostgresError("get media", err)
	}
	m, err := pgx.CollectExactlyOneRow(rows, scanMedia)
	if err != nil {
		return nil, handlePostgresError("get media", err)
	}
	if include.Bindings {
		if err := r.attachMediaBindings(ctx, []*simplemedia.Media{m}); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (r *Repository) CreateMedia(ctx context.Context, media *simplemedia.Media) error {
	_, err := r.db.Exec(ctx, `INSERT INTO media (id, name) VALUES ($1, $2)`, media.ID, media.Name)
	if err != nil {
		return handlePostgresError("create media", err)
	}
	return nil
}

func (r *Repository) UpdateMedia(ctx context.Context, key simplemedia.Key, patch simplemedia.MediaPatch) (*simplemedia.Media, error) {
	q := newQuery()
	set := "id = COALESCE(" + q.Arg(patch.ID) + ", id), name = COALESCE(" + q.Arg(patch.Name) + ", name)"
	q.Key(key)

	rows, err := r.db.Query(ctx, "UPDATE media SET "+set+q.Where()+" RETURNING "+sqlbuild.MediaColumns, q.Args...)
	if err != nil {
		return nil, handlePostgresError("update media", err)
	}
	m, err := pgx.CollectExactlyOneRow(rows, scanMedia)
	if err != nil {
		return nil, handlePostgresError("update media", err)
	}
	return m, nil
}

func (r *Repository) DeleteMedia(ctx context.Context, key simplemedia.Key) (*simplemedia.Media, error) {
	q := newQuery().Key(key)
	rows, err := r.db.Query(ctx, "DELETE FROM media"+q.Where()+" RETURNING "+sqlbuild.MediaColumns, q.Args...)
	if err != nil {
		return nil, handlePostgresError("delete media", err)
	}
	m, err := pgx.CollectExactlyOneRow(rows, scanMedia)
	if err != nil {
		return nil, handlePostgresError("delete media", err)
	}
	return m, nil
}

// Binding operations

const insertBinding = `INSERT INTO bindings (id, playlist_id, media_id, rank) VALUES ($1, $2, $3, $4)`

func (r *Repository) CountBindings(ctx context.Context, filter simplemedia.BindingFilter) (int, error) {
	q := newQuery().BindingFilter(filter)
	var n int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM bindings"+q.Where(), q.Args...).Scan(&n); err != nil {
		return 0, handlePostgresError("count bindings", err)
	}
	return n, nil
}

func (r *Repository) ListBindings(ctx context.Context, params simplemedia.ListBindingsParams) ([]*simplemedia.Binding, error) {
	order, err := sqlbuild.BindingOrder(params.Order)
	if err != nil {
		return nil, err
	}
	q := newQuery().BindingFilter(params.Filter)
	query := "SELECT " + sqlbuild.BindingColumns + " FROM bindings" + q.Where() + order + q.Page(params.Limit, params.Offset)

	rows, err := r.db.Query(ctx, query, q.Args...)
	if err != nil {
		return nil, handlePostgresError("list bindings", err)
	}
	bindings, err := pgx.CollectRows(rows, scanBinding)
	if err != nil {
		return nil, handlePostgresError("list bindings", err)
	}
	return bindings, nil
}

func (r *Repository) GetBinding(ctx context.Context, key simplemedia.BindingKey) (*simplemedia.Binding, error) {
	q := newQuery().BindingKey(key)
	rows, err := r.db.Query(ctx, "SELECT "+sqlbuild.BindingColumns+" FROM bindings"+q.Where(), q.Args...)
	if err != nil {
		return nil, handlePostgresError("get binding", err)
	}
	b, err := pgx.CollectExactlyOneRow(rows, scanBinding)
	if err != nil {
		return nil, handlePostgresError("get binding", err)
	}
	return b, nil
}

func (r *Repository) CreateBinding(ctx context.Context, b *simplemedia.Binding) error {
	_, err := r.db.Exec(ctx, insertBinding, b.ID, b.PlaylistID, b.MediaID, b.Rank)
	if err != nil {
		return handlePostgresError("create binding", err)
	}
	return nil
}

// CreateBindings inserts bindings in one round trip.
func (r *Repository) CreateBindings(ctx context.Context, bindings []*simplemedia.Binding) error {
	if len(bindings) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, b := range bindings {
		batch.Queue(insertBinding, b.ID, b.PlaylistID, b.MediaID, b.Rank)
	}

	br := r.db.SendBatch(ctx, batch)
	for range bindings {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return handlePostgresError("create bindings", err)
		}
	}
	if err := br.Close(); err != nil {
		return handlePostgresError("create bindings", err)
	}
	return nil
}

func (r *Repository) UpdateBinding(ctx context.Context, key simplemedia.BindingKey, patch simplemedia.BindingPatch) (*simplemedia.Binding, error) {
	q := newQuery()
	set := "playlist_id = COALESCE(" + q.Arg(patch.PlaylistID) + ", playlist_id), " +
		"media_id = COALESCE(" + q.Arg(patch.MediaID) + ", media_id), " +
		"rank = COALESCE(" + q.Arg(patch.Rank) + ", rank)"
	q.BindingKey(key)

	rows, err := r.db.Query(ctx, "UPDATE bindings SET "+set+q.Where()+" RETURNING "+sqlbuild.BindingColumns, q.Args...)
	if err != nil {
		return nil, handlePostgresError("update binding", err)
	}
	b, err := pgx.CollectExactlyOneRow(rows, scanBinding)
	if err != nil {
		return nil, handlePostgresError("update binding", err)
	}
	return b, nil
}

func (r *Repository) DeleteBinding(ctx context.Context, key simplemedia.BindingKey) (*simplemedia.Binding, error) {
	q := newQuery().BindingKey(key)
	rows, err := r.db.Query(ctx, "DELETE FROM bindings"+q.Where()+" RETURNING "+sqlbuild.BindingColumns, q.Args...)
	if err != nil {
		return nil, handlePostgresError("delete binding", err)
	}
	b, err := pgx.CollectExactlyOneRow(rows, scanBinding)
	if err != nil {
		return nil, handlePostgresError("delete binding", err)
	}
	return b, nil
}

func (r *Repository) DeleteBindings(ctx context.Context, filter simplemedia.BindingFilter) ([]*simplemedia.Binding, error) {
	q := newQuery().BindingFilter(filter)
	rows, err := r.db.Query(ctx, "DELETE FROM bindings"+q.Where()+" RETURNING "+sqlbuild.BindingColumns, q.Args...)
	if err != nil {
		return nil, handlePostgresError("delete bindings", err)
	}
	deleted, err := pgx.CollectRows(rows, scanBinding)
	if err != nil {
		return nil, handlePostgresError("delete bindings", err)
	}
	slices.SortFunc(deleted, func(a, b *simplemedia.Binding) int {
		return cmp.Or(cmp.Compare(a.Rank, b.Rank), cmp.Compare(a.ID, b.ID))
	})
	return deleted, nil
}
