package memory

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/tendant/simple-media/pkg/simplemedia"
)

// Repository implements simplemedia.MetadataStore using in-memory storage.
//
// Transactions work on a copy of the data and swap it in on commit. Only one
// transaction or call runs at a time. Binding references are checked when a
// call or transaction finishes, like a deferred foreign key.
type Repository struct {
	mu sync.Mutex
	st *state
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{st: newState()}
}

var _ simplemedia.MetadataStore = (*Repository)(nil)

type state struct {
	playlists map[string]*simplemedia.Playlist
	media     map[string]*simplemedia.Media
	bindings  map[string]*simplemedia.Binding
}

func newState() *state {
	return &state{
		playlists: make(map[string]*simplemedia.Playlist),
		media:     make(map[string]*simplemedia.Media),
		bindings:  make(map[string]*simplemedia.Binding),
	}
}

// clone copies the maps. Rows are never mutated in place, so sharing them
// is safe.
func (s *state) clone() *state {
	return &state{
		playlists: maps.Clone(s.playlists),
		media:     maps.Clone(s.media),
		bindings:  maps.Clone(s.bindings),
	}
}

// WithTx runs fn against a snapshot and commits it if fn succeeds and every
// binding still references an existing playlist and media.
func (r *Repository) WithTx(ctx context.Context, fn func(tx simplemedia.Repository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := r.st.clone()
	if err := fn(&tx{st: snapshot}); err != nil {
		return err
	}
	if err := snapshot.checkReferences(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.st = snapshot
	return nil
}

func (r *Repository) read(fn func(tx simplemedia.Repository)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&tx{st: r.st})
}

// Playlist operations

func (r *Repository) CountPlaylists(ctx context.Context, filter simplemedia.PlaylistFilter) (n int, err error) {
	r.read(func(t simplemedia.Repository) { n, err = t.CountPlaylists(ctx, filter) })
	return n, err
}

func (r *Repository) ListPlaylists(ctx context.Context, params simplemedia.ListPlaylistsParams) (out []*simplemedia.Playlist, err error) {
	r.read(func(t simplemedia.Repository) { out, err = t.ListPlaylists(ctx, params) })
	return out, err
}

func (r *Repository) GetPlaylist(ctx context.Context, key simplemedia.Key, include simplemedia.Include) (p *simplemedia.Playlist, err error) {
	r.read(func(t simplemedia.Repository) { p, err = t.GetPlaylist(ctx, key, include) })
	return p, err
}

func (r *Repository) CreatePlaylist(ctx context.Context, playlist *simplemedia.Playlist) error {
	return r.WithTx(ctx, func(t simplemedia.Repository) error { return t.CreatePlaylist(ctx, playlist) })
}

func (r *Repository) UpdatePlaylist(ctx context.Context, key simplemedia.Key, patch simplemedia.PlaylistPatch) (p *simplemedia.Playlist, err error) {
	err = r.WithTx(ctx, func(t simplemedia.Repository) error {
		p, err = t.UpdatePlaylist(ctx, key, patch)
		return err
	})
	return p, err
}

func (r *Repository) DeletePlaylist(ctx context.Context, key simplemedia.Key) (p *simplemedia.Playlist, err error) {
	err = r.WithTx(ctx, func(t simplemedia.Repository) error {
		p, err = t.DeletePlaylist(ctx, key)
		return err
	})
	return p, err
}

// Media operations

func (r *Repository) CountMedia(ctx context.Context, filter simplemedia.MediaFilter) (n int, err error) {
	r.read(func(t simplemedia.Repository) { n, err = t.CountMedia(ctx, filter) })
	return n, err
}

func (r *Repository) ListMedia(ctx context.Context, params simplemedia.ListMediaParams) (out []*simplemedia.Media, err error) {
	r.read(func(t simplemedia.Repository) { out, err = t.ListMedia(ctx, params) })
	return out, err
}

func (r *Repository) GetMedia(ctx context.Context, key simplemedia.Key, include simplemedia.Include) (m *simplemedia.Media, err error) {
	r.read(func(t simplemedia.Repository) { m, err = t.GetMedia(ctx, key, include) })
	return m, err
}

func (r *Repository) CreateMedia(ctx context.Context, media *simplemedia.Media) error {
	return r.WithTx(ctx, func(t simplemedia.Repository) error { return t.CreateMedia(ctx, media) })
}

func (r *Repository) UpdateMedia(ctx context.Context, key simplemedia.Key, patch simplemedia.MediaPatch) (m *simplemedia.Media, err error) {
	err = r.WithTx(ctx, func(t simplemedia.Repository) error {
		m, err = t.UpdateMedia(ctx, key, patch)
		return err
	})
	return m, err
}

func (r *Repository) DeleteMedia(ctx context.Context, key simplemedia.Key) (m *simplemedia.Media, err error) {
	err = r.WithTx(ctx, func(t simplemedia.Repository) error {
		m, err = t.DeleteMedia(ctx, key)
		return err
	})
	return m, err
}

// Binding operations

func (r *Repository) CountBindings(ctx context.Context, filter simplemedia.BindingFilter) (n int, err error) {
	r.read(func(t simplemedia.Repository) { n, err = t.CountBindings(ctx, filter) })
	return n, err
}

func (r *Repository) ListBindings(ctx context.Context, params simplemedia.ListBindingsParams) (out []*simplemedia.Binding, err error) {
	r.read(func(t simplemedia.Repository) { out, err = t.ListBindings(ctx, params) })
	return out, err
}

func (r *Repository) GetBinding(ctx context.Context, key simplemedia.BindingKey) (b *simplemedia.Binding, err error) {
	r.read(func(t simplemedia.Repository) { b, err = t.GetBinding(ctx, key) })
	return b, err
}

func (r *Repository) CreateBinding(ctx context.Context, binding *simplemedia.Binding) error {
	return r.WithTx(ctx, func(t simplemedia.Repository) error { return t.CreateBinding(ctx, binding) })
}

func (r *Repository) CreateBindings(ctx context.Context, bindings []*simplemedia.Binding) error {
	return r.WithTx(ctx, func(t simplemedia.Repository) error { return t.CreateBindings(ctx, bindings) })
}

func (r *Repository) UpdateBinding(ctx context.Context, key simplemedia.BindingKey, patch simplemedia.BindingPatch) (b *simplemedia.Binding, err error) {
	err = r.WithTx(ctx, func(t simplemedia.Repository) error {
		b, err = t.UpdateBinding(ctx, key, patch)
		return err
	})
	return b, err
}

func (r *Repository) DeleteBinding(ctx context.Context, key simplemedia.BindingKey) (b *simplemedia.Binding, err error) {
	err = r.WithTx(ctx, func(t simplemedia.Repository) error {
		b, err = t.DeleteBinding(ctx, key)
		return err
	})
	return b, err
}

func (r *Repository) DeleteBindings(ctx context.Context, filter simplemedia.BindingFilter) (out []*simplemedia.Binding, err error) {
	err = r.WithTx(ctx, func(t simplemedia.Repository) error {
		out, err = t.DeleteBindings(ctx, filter)
		return err
	})
	return out, err
}

func (s *state) checkReferences() error {
	for _, b := range s.bindings {
		if _, ok := s.playlists[b.PlaylistID]; !ok {
			return fmt.Errorf("binding %s: playlist %s: %w", b.ID, b.PlaylistID, simplemedia.ErrReferenceNotFound)
		}
		if _, ok := s.media[b.MediaID]; !ok {
			return fmt.Errorf("binding %s: media %s: %w", b.ID, b.MediaID, simplemedia.ErrReferenceNotFound)
		}
	}
	return nil
}

// sortRows orders rows by the given columns, falling back to defaults.
func sortRows[T any](rows []T, order, defaults []simplemedia.Order, field func(T, string) string) {
	if len(order) == 0 {
		order = defaults
	}
	slices.SortStableFunc(rows, func(a, b T) int {
		for _, o := range order {
			c := cmp.Compare(field(a, o.Field), field(b, o.Field))
			if o.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

func page[T any](rows []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(rows) {
			return nil
		}
		rows = rows[offset:]
	}
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

func matchIDs(ids []string, id string) bool {
	return ids == nil || slices.Contains(ids, id)
}
